package toggled

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// First flush happens this long after start. Overridden in tests.
var metricsWarmup = 2 * time.Second

type ToggleCounts struct {
	EnableCount  int `json:"enable_count"`
	DisableCount int `json:"disable_count"`
}

type MetricsBucket struct {
	Start   time.Time               `json:"start"`
	Stop    *time.Time              `json:"stop"`
	Toggles map[string]ToggleCounts `json:"toggles"`
}

// Body of the usage request and payload of the sent event
type MetricsPayload struct {
	Bucket MetricsBucket `json:"bucket"`
}

type metricsOptions struct {
	onError         func(err error)
	onSent          func(payload MetricsPayload)
	metricsInterval time.Duration
	disabled        bool
	url             string
	clientKey       string
	transport       Transport
	headerName      string
	customHeaders   map[string]string
}

type metrics struct {
	bucket        MetricsBucket
	mu            sync.Mutex
	stopCh        chan struct{}
	onError       func(err error)
	onSent        func(payload MetricsPayload)
	interval      time.Duration
	disabled      bool
	url           string
	clientKey     string
	transport     Transport
	headerName    string
	customHeaders map[string]string
}

func newMetrics(options metricsOptions) *metrics {
	onSent := options.onSent
	if onSent == nil {
		onSent = func(MetricsPayload) {}
	}
	onError := options.onError
	if onError == nil {
		onError = func(error) {}
	}
	return &metrics{
		bucket:        newBucket(),
		onError:       onError,
		onSent:        onSent,
		interval:      options.metricsInterval,
		disabled:      options.disabled,
		url:           strings.TrimSuffix(options.url, "/") + "/usage",
		clientKey:     options.clientKey,
		transport:     options.transport,
		headerName:    defaultString(options.headerName, DefaultHeaderName),
		customHeaders: options.customHeaders,
	}
}

func newBucket() MetricsBucket {
	return MetricsBucket{
		Start:   now(),
		Toggles: make(map[string]ToggleCounts),
	}
}

func (m *metrics) start() bool {
	if m.disabled {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return true
	}
	m.stopCh = make(chan struct{})
	go m.backgroundFlush(m.stopCh)
	return true
}

func (m *metrics) backgroundFlush(stop <-chan struct{}) {
	warmup := time.NewTimer(metricsWarmup)
	defer warmup.Stop()
	select {
	case <-stop:
		return
	case <-warmup.C:
	}
	m.sendMetrics(context.Background())

	if m.interval <= 0 {
		return
	}
	tick := time.NewTicker(m.interval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			m.sendMetrics(context.Background())
		}
	}
}

func (m *metrics) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
}

func (m *metrics) count(name string, enabled bool) bool {
	if m.disabled {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := m.bucket.Toggles[name]
	if enabled {
		counts.EnableCount++
	} else {
		counts.DisableCount++
	}
	m.bucket.Toggles[name] = counts
	return true
}

func (m *metrics) getPayload() MetricsPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.bucket
	stop := now()
	bucket.Stop = &stop
	m.bucket = newBucket()
	return MetricsPayload{Bucket: bucket}
}

func (m *metrics) getHeaders() http.Header {
	headers := make(http.Header)
	headers.Set(m.headerName, m.clientKey)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	headers.Set("Toggled-Client-Version", clientIdentifier)
	return mergeHeaders(headers, m.customHeaders)
}

func (m *metrics) sendMetrics(ctx context.Context) {
	payload := m.getPayload()
	if len(payload.Bucket.Toggles) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		m.onError(err)
		return
	}
	_, err = m.doSend(ctx, body)
	if err != nil {
		Logger().Log("Toggled: unable to send feature metrics", err)
		m.onError(err)
		return
	}
	Logger().Increment("metrics_flush", 1, nil)
	m.onSent(payload)
}

func (m *metrics) doSend(ctx context.Context, body []byte) (res Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toError(r)
		}
	}()
	return m.transport.Do(ctx, &Request{
		Method: http.MethodPost,
		URL:    m.url,
		Header: m.getHeaders(),
		Body:   body,
		Cache:  cacheNoCache,
	})
}
