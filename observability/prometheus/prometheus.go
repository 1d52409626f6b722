// Package prometheus exposes the SDK's health metrics as Prometheus
// collectors. Collectors are created on first use and registered in the
// Registerer given to New, so applications can serve them next to their own.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	toggled "github.com/toggled-dev/go-sdk"
)

// Client implements toggled.ObservabilityClient
type Client struct {
	reg        prometheus.Registerer
	buckets    []float64
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
}

var _ toggled.ObservabilityClient = (*Client)(nil)

// Distribution buckets in milliseconds, sized for fetch latencies
var DefaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// New returns a client registering into reg, prometheus.DefaultRegisterer when nil
func New(reg prometheus.Registerer) *Client {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Client{
		reg:        reg,
		buckets:    DefaultBuckets,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labels:     make(map[string][]string),
	}
}

func (c *Client) Init(ctx context.Context) error {
	return nil
}

func (c *Client) Increment(metricName string, value int, tags map[string]interface{}) error {
	name := metricName
	if !strings.HasSuffix(name, "_count") && !strings.HasSuffix(name, "_total") {
		name += "_total"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	labelNames, labelValues, err := c.labelsFor(name, tags)
	if err != nil {
		return err
	}
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: sanitizeName(name),
			Help: "Toggled SDK counter " + metricName,
		}, labelNames)
		if vec, err = register(c.reg, vec); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		c.counters[name] = vec
	}
	vec.WithLabelValues(labelValues...).Add(float64(value))
	return nil
}

func (c *Client) Gauge(metricName string, value float64, tags map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	labelNames, labelValues, err := c.labelsFor(metricName, tags)
	if err != nil {
		return err
	}
	vec, ok := c.gauges[metricName]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: sanitizeName(metricName),
			Help: "Toggled SDK gauge " + metricName,
		}, labelNames)
		if vec, err = register(c.reg, vec); err != nil {
			return fmt.Errorf("register %s: %w", metricName, err)
		}
		c.gauges[metricName] = vec
	}
	vec.WithLabelValues(labelValues...).Set(value)
	return nil
}

func (c *Client) Distribution(metricName string, value float64, tags map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	labelNames, labelValues, err := c.labelsFor(metricName, tags)
	if err != nil {
		return err
	}
	vec, ok := c.histograms[metricName]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    sanitizeName(metricName),
			Help:    "Toggled SDK distribution " + metricName,
			Buckets: c.buckets,
		}, labelNames)
		if vec, err = register(c.reg, vec); err != nil {
			return fmt.Errorf("register %s: %w", metricName, err)
		}
		c.histograms[metricName] = vec
	}
	vec.WithLabelValues(labelValues...).Observe(value)
	return nil
}

// Shutdown leaves the collectors registered so their last values stay scrapeable
func (c *Client) Shutdown(ctx context.Context) error {
	return nil
}

// A collector registered earlier under the same descriptor, for example by
// another Client sharing the Registerer, is reused.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, err
}

// The first call for a metric fixes its label names. Caller holds c.mu.
func (c *Client) labelsFor(name string, tags map[string]interface{}) ([]string, []string, error) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, sanitizeName(k))
	}
	sort.Strings(keys)

	known, ok := c.labels[name]
	if !ok {
		c.labels[name] = keys
		known = keys
	} else if strings.Join(known, ",") != strings.Join(keys, ",") {
		return nil, nil, fmt.Errorf("metric %s: label names %v do not match %v", name, keys, known)
	}

	byLabel := make(map[string]string, len(tags))
	for k, v := range tags {
		byLabel[sanitizeName(k)] = fmt.Sprint(v)
	}
	values := make([]string, len(known))
	for i, k := range known {
		values[i] = byLabel[k]
	}
	return known, values, nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
