package toggled

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// An instance of a Toggled client. It keeps a local copy of the toggles,
// refreshes it in the background once started and answers evaluation
// calls without network round-trips.
type Client struct {
	url               *url.URL
	clientKey         string
	headerName        string
	customHeaders     map[string]string
	storage           StorageProvider
	transport         Transport
	refreshInterval   time.Duration
	bootstrap         []Toggle
	bootstrapOverride bool
	impressionDataAll bool
	metrics           *metrics
	emitter           *emitter
	enricher          *contextEnricher
	ready             chan struct{}

	mu                sync.RWMutex
	toggles           []Toggle
	context           Context
	sessionID         string
	etag              string
	started           bool
	readyEventEmitted bool
	pollStop          chan struct{}
	firstFetchDone    chan struct{}
	pendingRefetch    chan struct{}
}

// Creates a Toggled client and starts loading cached state in the
// background. A bootstrap toggle set is usable immediately.
func NewClient(options Options) (*Client, error) {
	parsedURL, err := options.validate()
	if err != nil {
		return nil, err
	}
	initializeGlobalOutputLogger(options.OutputLoggerOptions, options.ObservabilityClient, options.ClientKey)
	Logger().Initialize()

	storage := options.StorageProvider
	if storage == nil {
		storage = NewInMemoryStorageProvider()
	}
	transport := options.Transport
	if transport == nil {
		transport = NewHTTPTransport(nil)
	}
	customHeaders := make(map[string]string, len(options.CustomHeaders))
	for name, value := range options.CustomHeaders {
		customHeaders[name] = value
	}
	var bootstrap []Toggle
	if len(options.Bootstrap) > 0 {
		bootstrap = append([]Toggle(nil), options.Bootstrap...)
	}

	c := &Client{
		url:               parsedURL,
		clientKey:         options.ClientKey,
		headerName:        options.headerName(),
		customHeaders:     customHeaders,
		storage:           storage,
		transport:         transport,
		refreshInterval:   options.refreshInterval(),
		bootstrap:         bootstrap,
		bootstrapOverride: !options.DisableBootstrapOverride,
		impressionDataAll: options.ImpressionDataAll,
		emitter:           newEmitter(),
		enricher:          newContextEnricher(options.ContextEnrichment),
		ready:             make(chan struct{}),
		toggles:           bootstrap,
		context:           options.Context.clone(),
	}
	c.metrics = newMetrics(metricsOptions{
		onError:         func(err error) { c.emitter.emit(EventError, err) },
		onSent:          func(payload MetricsPayload) { c.emitter.emit(EventSent, payload) },
		metricsInterval: options.metricsInterval(),
		disabled:        !options.EnableMetrics,
		url:             parsedURL.String(),
		clientKey:       options.ClientKey,
		transport:       transport,
		headerName:      c.headerName,
		customHeaders:   customHeaders,
	})
	for event, listener := range options.Listeners {
		c.emitter.on(event, listener, false)
	}

	go c.initialize()
	return c, nil
}

// Closed once the cached state has been loaded, whether or not that succeeded
func (c *Client) Initialized() <-chan struct{} {
	return c.ready
}

func (c *Client) initialize() {
	defer close(c.ready)
	if err := c.init(context.Background()); err != nil {
		Logger().LogError(err)
		c.emitter.emit(EventError, err)
	}
}

func (c *Client) init(ctx context.Context) error {
	Logger().LogStep(ToggledProcessInitialize, "Resolving session id from storage")
	sessionID, err := storageGet(ctx, c.storage, SessionIDStorageKey)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()

	Logger().LogStep(ToggledProcessInitialize, "Loading cached toggles from storage")
	cached, err := loadToggles(ctx, c.storage)
	if err != nil {
		return err
	}

	if c.bootstrap != nil && (c.bootstrapOverride || len(cached) == 0) {
		Logger().LogStep(ToggledProcessInitialize, "Applying bootstrap toggles")
		if err := saveToggles(ctx, c.storage, c.bootstrap); err != nil {
			return err
		}
		c.mu.Lock()
		c.toggles = c.bootstrap
		c.readyEventEmitted = true
		c.mu.Unlock()
		c.emitter.emit(EventReady, nil)
	} else {
		c.mu.Lock()
		c.toggles = cached
		c.mu.Unlock()
	}

	c.emitter.emit(EventInit, nil)
	return nil
}

// Waits for initialization, fetches the toggles once and, unless refresh is
// disabled, keeps refreshing them in the background until Stop is called.
// ctx only bounds the initialization wait and the first fetch.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	if c.pollStop != nil {
		c.mu.Unlock()
		Logger().Warn("Toggled SDK has already started, if you want to restart the SDK you should call client.Stop() before starting again.")
		return nil
	}
	firstFetch := make(chan struct{})
	c.firstFetchDone = firstFetch
	c.mu.Unlock()
	defer close(firstFetch)

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.metrics.start()
	c.fetchToggles(ctx)

	if c.refreshInterval > 0 {
		c.mu.Lock()
		if c.pollStop == nil {
			c.pollStop = make(chan struct{})
			go c.pollForToggleChanges(c.pollStop)
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) pollForToggleChanges(stop <-chan struct{}) {
	tick := time.NewTicker(c.refreshInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			select {
			case <-stop:
				return
			default:
			}
			c.fetchToggles(context.Background())
		}
	}
}

// Stops background refreshes and metrics flushes. A fetch already in flight
// still completes and updates the toggles.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
	c.mu.Unlock()
	c.metrics.stop()
}

// Stops the client and shuts down the observability client
func (c *Client) Shutdown() {
	c.Stop()
	Logger().Shutdown()
}

func (c *Client) IsEnabled(name string) bool {
	c.mu.RLock()
	toggle, ok := findToggle(c.toggles, name)
	c.mu.RUnlock()
	enabled := ok && toggle.enabled()
	c.metrics.count(name, enabled)
	return enabled
}

// Returns the raw value (bool or string) of the toggle, false if it is unknown
func (c *Client) GetValue(name string) (interface{}, bool) {
	c.mu.RLock()
	toggle, ok := findToggle(c.toggles, name)
	c.mu.RUnlock()
	c.metrics.count(name, ok && toggle.enabled())
	if !ok {
		return nil, false
	}
	return toggle.Value, true
}

func (c *Client) GetAllToggles() []Toggle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Toggle{}, c.toggles...)
}

func (c *Client) GetCurrentSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) GetContext() Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.context.clone()
}

// Replaces the context and fetches toggles for it. Before the client is
// ready the fetch waits for readiness; before Start no fetch happens.
func (c *Client) UpdateContext(ctx context.Context, newContext Context) error {
	c.mu.Lock()
	c.context = newContext.clone()
	immediate := c.pollStop != nil || c.readyEventEmitted
	started := c.started
	c.mu.Unlock()

	if immediate {
		c.fetchToggles(ctx)
		return nil
	}
	if !started {
		return nil
	}
	return c.deferredFetch(ctx)
}

// Concurrent callers share one pending fetch
func (c *Client) deferredFetch(ctx context.Context) error {
	c.mu.Lock()
	pending := c.pendingRefetch
	if pending == nil {
		pending = make(chan struct{})
		c.pendingRefetch = pending
		trigger := make(chan struct{})
		var once sync.Once
		id := c.emitter.on(EventReady, func(interface{}) {
			once.Do(func() { close(trigger) })
		}, true)
		firstFetch := c.firstFetchDone
		go func() {
			select {
			case <-trigger:
			case <-firstFetch:
			}
			c.emitter.off(EventReady, id)
			<-c.ready
			c.mu.Lock()
			c.pendingRefetch = nil
			c.mu.Unlock()
			c.fetchToggles(context.Background())
			close(pending)
		}()
	}
	c.mu.Unlock()

	select {
	case <-pending:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sets a single context field, an empty value removes it. Triggers a fetch
// in the background while the refresh loop is running.
func (c *Client) SetContextField(key string, value string) {
	c.mu.Lock()
	updated := c.context.clone()
	if value == "" {
		delete(updated, key)
	} else {
		updated[key] = value
	}
	c.context = updated
	running := c.pollStop != nil
	c.mu.Unlock()

	if running {
		go c.fetchToggles(context.Background())
	}
}

// Registers a listener and returns its subscription id
func (c *Client) On(event string, listener Listener) string {
	return c.emitter.on(event, listener, false)
}

func (c *Client) Once(event string, listener Listener) string {
	return c.emitter.on(event, listener, true)
}

func (c *Client) Off(event string, id string) {
	c.emitter.off(event, id)
}

func (c *Client) getHeaders() http.Header {
	headers := make(http.Header)
	headers.Set(c.headerName, c.clientKey)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	headers.Set("If-None-Match", c.etag)
	headers = mergeHeaders(headers, c.customHeaders)
	if c.sessionID != "" {
		headers.Set("session-id", c.sessionID)
	}
	return headers
}

func (c *Client) storeToggles(ctx context.Context, toggles []Toggle) error {
	if toggles == nil {
		toggles = []Toggle{}
	}
	c.mu.Lock()
	c.toggles = toggles
	c.mu.Unlock()
	Logger().Gauge("toggle_count", float64(len(toggles)), nil)
	c.emitter.emit(EventUpdate, nil)
	return saveToggles(ctx, c.storage, toggles)
}

// A fetch cycle never fails: every error ends up on the error event
func (c *Client) fetchToggles(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := toError(r)
			Logger().Log("Toggled: unable to fetch feature toggles", err)
			c.emitter.emit(EventError, err)
		}
	}()
	if err := c.doFetchToggles(ctx); err != nil {
		Logger().Log("Toggled: unable to fetch feature toggles", err)
		c.emitter.emit(EventError, err)
	}
}

func (c *Client) doFetchToggles(ctx context.Context) error {
	c.mu.RLock()
	requestURL := urlWithContextAsQuery(c.url, c.enricher.enrich(c.context))
	headers := c.getHeaders()
	c.mu.RUnlock()

	Logger().LogStep(ToggledProcessSync, "Fetching toggles")
	start := now()
	res, err := c.transport.Do(ctx, &Request{
		Method: http.MethodGet,
		URL:    requestURL.String(),
		Header: headers,
		Cache:  cacheNoCache,
	})
	if err != nil {
		return err
	}
	Logger().Distribution("fetch_latency", float64(now().Sub(start).Milliseconds()), nil)
	Logger().Increment("fetch_count", 1, map[string]interface{}{"status": strconv.Itoa(res.Status())})

	if res.Status() == http.StatusNotModified {
		Logger().LogStep(ToggledProcessSync, "Toggles not modified")
		return nil
	}
	if !res.OK() {
		httpErr := newHTTPError(res.Status())
		Logger().Log("Toggled: Fetching feature toggles did not have an ok response", httpErr)
		c.emitter.emit(EventError, httpErr)
		return nil
	}

	var data togglesResponse
	if err := res.JSON(&data); err != nil {
		return err
	}
	c.mu.Lock()
	c.etag = res.Header("ETag")
	c.mu.Unlock()

	if err := c.storeToggles(ctx, data.Items); err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = data.SessionID
	c.mu.Unlock()
	if err := storageSave(ctx, c.storage, SessionIDStorageKey, data.SessionID); err != nil {
		return err
	}

	c.mu.Lock()
	emitReady := c.bootstrap == nil && !c.readyEventEmitted
	if emitReady {
		c.readyEventEmitted = true
	}
	c.mu.Unlock()
	if emitReady {
		c.emitter.emit(EventReady, nil)
	}
	return nil
}
