package toggled

import (
	"sync"

	"github.com/google/uuid"
)

const (
	EventInit       = "initialized"
	EventError      = "error"
	EventReady      = "ready"
	EventUpdate     = "update"
	EventImpression = "impression"
	EventSent       = "sent"
)

// Listener receives the event payload: an error for EventError, a
// MetricsPayload for EventSent and nil for the others.
type Listener func(payload interface{})

type subscription struct {
	id       string
	listener Listener
	once     bool
}

type emitter struct {
	subscriptions map[string][]subscription
	mu            sync.Mutex
}

func newEmitter() *emitter {
	return &emitter{subscriptions: make(map[string][]subscription)}
}

func (e *emitter) on(event string, listener Listener, once bool) string {
	id := uuid.NewString()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions[event] = append(e.subscriptions[event], subscription{id: id, listener: listener, once: once})
	return id
}

func (e *emitter) off(event string, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.subscriptions[event]
	for i, s := range subs {
		if s.id == id {
			e.subscriptions[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Listeners run synchronously in registration order, outside the lock so
// they may subscribe or emit themselves.
func (e *emitter) emit(event string, payload interface{}) {
	e.mu.Lock()
	subs := e.subscriptions[event]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	remaining := subs[:0:0]
	for _, s := range subs {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	e.subscriptions[event] = remaining
	e.mu.Unlock()

	for _, s := range snapshot {
		e.call(event, s.listener, payload)
	}
}

func (e *emitter) call(event string, listener Listener, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			Logger().LogError(toError(r))
		}
	}()
	listener(payload)
}
