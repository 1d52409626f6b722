package toggled

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

var (
	fooOn  = Toggle{Name: "foo", Value: true, ValueType: ValueTypeBoolean, Status: StatusOn}
	barOff = Toggle{Name: "bar", Value: false, ValueType: ValueTypeBoolean, Status: StatusOff}
	bazStr = Toggle{Name: "baz", Value: "blue", ValueType: ValueTypeString, Status: StatusOn}
)

type logRecorder struct {
	mu       sync.Mutex
	messages []string
	errs     []error
}

func (l *logRecorder) callback(message string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
	l.errs = append(l.errs, err)
}

func (l *logRecorder) contains(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == message {
			return true
		}
	}
	return false
}

// Fills in the required options and silences the output logger
func newTestClient(t *testing.T, options Options) *Client {
	t.Helper()
	if options.URL == "" {
		options.URL = "http://localhost/api"
	}
	if options.ClientKey == "" {
		options.ClientKey = "client-key"
	}
	if options.OutputLoggerOptions.LogCallback == nil && options.OutputLoggerOptions.Writer == nil {
		options.OutputLoggerOptions.LogCallback = func(string, error) {}
	}
	client, err := NewClient(options)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Stop)
	return client
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type eventRecorder struct {
	mu       sync.Mutex
	counts   map[string]int
	payloads map[string][]interface{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{counts: make(map[string]int), payloads: make(map[string][]interface{})}
}

func (r *eventRecorder) listeners() map[string]Listener {
	out := make(map[string]Listener)
	for _, event := range []string{EventInit, EventError, EventReady, EventUpdate, EventSent} {
		event := event
		out[event] = func(payload interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.counts[event]++
			r.payloads[event] = append(r.payloads[event], payload)
		}
	}
	return out
}

func (r *eventRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[event]
}

func (r *eventRecorder) payload(event string, i int) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.payloads[event]) {
		return nil
	}
	return r.payloads[event][i]
}

type togglesServerOptions struct {
	toggles   []Toggle
	sessionID string
	etag      string
	status    int
}

// Serves the toggles endpoint, answering 304 when If-None-Match matches the etag
type togglesServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
}

func newTogglesServer(t *testing.T, opts togglesServerOptions) *togglesServer {
	t.Helper()
	s := &togglesServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, req.Clone(context.Background()))
		s.mu.Unlock()

		if opts.status != 0 {
			res.WriteHeader(opts.status)
			return
		}
		if opts.etag != "" && req.Header.Get("If-None-Match") == opts.etag {
			res.WriteHeader(http.StatusNotModified)
			return
		}
		if opts.etag != "" {
			res.Header().Set("ETag", opts.etag)
		}
		res.Header().Set("Content-Type", "application/json")
		json.NewEncoder(res).Encode(map[string]interface{}{
			"items":      opts.toggles,
			"session-id": opts.sessionID,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *togglesServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *togglesServer) request(i int) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func jsonResponse(status int, body interface{}) *BufferedResponse {
	bytes, _ := json.Marshal(body)
	return &BufferedResponse{StatusCode: status, Headers: http.Header{}, Body: bytes}
}

type failingStorage struct {
	getErr  error
	saveErr error
}

func (s *failingStorage) Get(context.Context, string) (string, error) {
	return "", s.getErr
}

func (s *failingStorage) Save(context.Context, string, string) error {
	return s.saveErr
}

type Metric struct {
	Name  string
	Type  string
	Value float64
	Tags  map[string]interface{}
}

type recordingObservabilityClient struct {
	mu      sync.Mutex
	metrics []Metric
	inits   int
	closed  bool
}

func (o *recordingObservabilityClient) Init(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inits++
	return nil
}

func (o *recordingObservabilityClient) record(kind string, name string, value float64, tags map[string]interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.metrics = append(o.metrics, Metric{Name: name, Type: kind, Value: value, Tags: tags})
	return nil
}

func (o *recordingObservabilityClient) Increment(metricName string, value int, tags map[string]interface{}) error {
	return o.record("increment", metricName, float64(value), tags)
}

func (o *recordingObservabilityClient) Gauge(metricName string, value float64, tags map[string]interface{}) error {
	return o.record("gauge", metricName, value, tags)
}

func (o *recordingObservabilityClient) Distribution(metricName string, value float64, tags map[string]interface{}) error {
	return o.record("distribution", metricName, value, tags)
}

func (o *recordingObservabilityClient) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *recordingObservabilityClient) find(name string) []Metric {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Metric
	for _, m := range o.metrics {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
