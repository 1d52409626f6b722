package toggled

import (
	"errors"
	"fmt"
)

// Error Variables
type ToggledError error

var (
	ErrConfiguration  ToggledError = errors.New("invalid configuration")
	ErrStorageAdapter ToggledError = errors.New("failed storage adapter")
	ErrHTTP           ToggledError = errors.New("unexpected http response")
)

// Returned by NewClient when the options cannot be used. Not recoverable.
type ConfigurationError struct {
	Field  string
	Reason string
}

func newConfigurationError(field string, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Toggled: invalid option %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Payload of the error event when the toggles endpoint answers with a non-ok status
type HTTPError struct {
	Type string `json:"type"`
	Code int    `json:"code"`
}

func newHTTPError(code int) *HTTPError {
	return &HTTPError{Type: "HttpError", Code: code}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Toggled: %s %d", e.Type, e.Code)
}

func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }

type StorageAdapterError struct {
	Err    error
	Method string
	Key    string
}

func (e *StorageAdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Error calling storage adapter %s(%s): %s", e.Method, e.Key, e.Err.Error())
	} else {
		return fmt.Sprintf("Error calling storage adapter %s(%s)", e.Method, e.Key)
	}
}

func (e *StorageAdapterError) Unwrap() error { return e.Err }

func (e *StorageAdapterError) Is(target error) bool { return target == ErrStorageAdapter }

func toError(err interface{}) error {
	switch e := err.(type) {
	case error:
		return e
	case string:
		return errors.New(e)
	default:
		return fmt.Errorf("%v", e)
	}
}
