package toggled

import "sync"

// Using global state variables directly will lead to race conditions
// Instead, define an accessor below using the Mutex lock
type GlobalState struct {
	logger *OutputLogger
	mu     sync.RWMutex
}

var global GlobalState

func Logger() *OutputLogger {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.logger
}

func InitializeGlobalOutputLogger(options OutputLoggerOptions, observabilityClient ObservabilityClient) {
	initializeGlobalOutputLogger(options, observabilityClient)
}

func initializeGlobalOutputLogger(options OutputLoggerOptions, observabilityClient ObservabilityClient, secrets ...string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.logger = newOutputLogger(options, observabilityClient, secrets...)
}
