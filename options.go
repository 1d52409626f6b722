package toggled

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	PlatformURLUSE1 = "https://us-east-1-api.saas.toggled.dev/client/features"
	PlatformURLEUC1 = "https://eu-central-1-api.saas.toggled.dev/client/features"
	PlatformURLAPS1 = "https://ap-south-1-api.saas.toggled.dev/client/features"

	DefaultHeaderName      = "x-api-key"
	DefaultRefreshInterval = 30 * time.Second
	DefaultMetricsInterval = 30 * time.Second
)

// Options for configuring a Toggled client
type Options struct {
	URL                      string
	ClientKey                string
	DisableRefresh           bool
	RefreshInterval          time.Duration // zero means DefaultRefreshInterval, negative disables refresh
	MetricsInterval          time.Duration
	EnableMetrics            bool // metrics reporting is not supported yet, must stay false
	StorageProvider          StorageProvider
	Context                  Context
	Transport                Transport
	Bootstrap                []Toggle
	DisableBootstrapOverride bool // keep a non-empty cached toggle set instead of the bootstrap
	HeaderName               string
	CustomHeaders            map[string]string
	ImpressionDataAll        bool // accepted for compatibility, impression events are not emitted
	UsePOSTRequests          bool // POST requests are not supported yet, must stay false
	OutputLoggerOptions      OutputLoggerOptions
	ObservabilityClient      ObservabilityClient
	ContextEnrichment        ContextEnrichmentOptions
	Listeners                map[string]Listener // registered before initialization starts
}

// Opt-in derivation of extra context keys from remoteAddress and userAgent
type ContextEnrichmentOptions struct {
	Country   bool // derive "country" from "remoteAddress"
	UserAgent bool // derive "browserName", "osName" and "deviceName" from "userAgent"
	LazyLoad  bool // load lookup tables in the background instead of at construction
}

func (o *Options) validate() (*url.URL, error) {
	if strings.TrimSpace(o.URL) == "" {
		return nil, newConfigurationError("URL", "url is required")
	}
	parsed, err := url.Parse(o.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, newConfigurationError("URL", "url must be an absolute URL")
	}
	if o.ClientKey == "" {
		return nil, newConfigurationError("ClientKey", "clientKey is required")
	}
	if o.EnableMetrics {
		return nil, newConfigurationError("EnableMetrics", "metrics are not currently supported")
	}
	if o.UsePOSTRequests {
		return nil, newConfigurationError("UsePOSTRequests", "POST requests are not currently supported")
	}
	if o.HeaderName != "" && http.CanonicalHeaderKey(o.HeaderName) != http.CanonicalHeaderKey(DefaultHeaderName) {
		return nil, newConfigurationError("HeaderName", "only "+DefaultHeaderName+" is supported as the client key header")
	}
	return parsed, nil
}

func (o *Options) refreshInterval() time.Duration {
	if o.DisableRefresh || o.RefreshInterval < 0 {
		return 0
	}
	if o.RefreshInterval == 0 {
		return DefaultRefreshInterval
	}
	return o.RefreshInterval
}

func (o *Options) metricsInterval() time.Duration {
	if o.MetricsInterval == 0 {
		return DefaultMetricsInterval
	}
	return o.MetricsInterval
}

func (o *Options) headerName() string {
	return defaultString(o.HeaderName, DefaultHeaderName)
}
