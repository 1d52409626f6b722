package toggled

// A value built once in the background. Reads miss until it is ready.
type lazyValue[T any] struct {
	value T
	done  chan struct{}
}

// Starts load in a goroutine; block waits for it to finish before returning
func loadLazily[T any](load func() T, block bool) *lazyValue[T] {
	l := &lazyValue[T]{done: make(chan struct{})}
	go func() {
		l.value = load()
		close(l.done)
	}()
	if block {
		<-l.done
	}
	return l
}

// A nil lazyValue never loads
func (l *lazyValue[T]) get() (T, bool) {
	var zero T
	if l == nil {
		return zero, false
	}
	select {
	case <-l.done:
		return l.value, true
	default:
		return zero, false
	}
}

func (l *lazyValue[T]) wait() {
	if l != nil {
		<-l.done
	}
}
