// Package toggled is a client for Toggled feature toggles. It keeps a local
// copy of the toggles for a context, refreshes it in the background and
// reports usage counts back to the platform.
package toggled

import (
	"context"
	"fmt"
	"sync"
)

var (
	instance   *Client
	instanceMu sync.RWMutex
)

// Initializes and starts the global Toggled instance
func Initialize(ctx context.Context, url string, clientKey string) error {
	return InitializeWithOptions(ctx, Options{URL: url, ClientKey: clientKey})
}

// Initializes and starts the global Toggled instance with the given options.
// ctx bounds the wait for the first fetch.
func InitializeWithOptions(ctx context.Context, options Options) error {
	if IsInitialized() {
		Logger().Log("Toggled is already initialized.", nil)
		return nil
	}
	client, err := NewClient(options)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		client.Stop()
		return err
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		client.Stop()
		return nil
	}
	instance = client
	return nil
}

// IsInitialized returns whether the global Toggled instance has already been initialized or not
func IsInitialized() bool {
	return getInstance() != nil
}

func getInstance() *Client {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instance
}

func mustInstance(method string) *Client {
	client := getInstance()
	if client == nil {
		panic(fmt.Errorf("must Initialize() toggled before calling %s", method))
	}
	return client
}

// Checks whether the toggle is on for the current context
func IsEnabled(name string) bool {
	return mustInstance("IsEnabled").IsEnabled(name)
}

func GetValue(name string) (interface{}, bool) {
	return mustInstance("GetValue").GetValue(name)
}

func GetAllToggles() []Toggle {
	return mustInstance("GetAllToggles").GetAllToggles()
}

// Replaces the context of the global instance and refetches its toggles
func UpdateContext(ctx context.Context, newContext Context) error {
	return mustInstance("UpdateContext").UpdateContext(ctx, newContext)
}

func SetContextField(key string, value string) {
	mustInstance("SetContextField").SetContextField(key, value)
}

func On(event string, listener Listener) string {
	return mustInstance("On").On(event, listener)
}

func Off(event string, id string) {
	mustInstance("Off").Off(event, id)
}

// Using any method is undefined after Shutdown() has been called
func Shutdown() {
	client := getInstance()
	if client == nil {
		return
	}
	client.Shutdown()
}

// Shuts down the global instance and forgets it so Initialize can be called again
func ShutdownAndDangerouslyClearInstance() {
	Shutdown()
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}
