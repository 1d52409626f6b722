package toggled

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	TogglesStorageKey   = "repo"
	SessionIDStorageKey = "sessionId"

	// Prefix used by durable storage providers so keys do not collide with other data
	StorageKeyPrefix = "toggled:repository"
)

// StorageProvider persists the toggle set and the session id between runs.
// Get must return an empty string and a nil error for keys that were never saved.
type StorageProvider interface {
	Get(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key string, value string) error
}

func storageGet(ctx context.Context, s StorageProvider, key string) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StorageAdapterError{Err: toError(r), Method: "get", Key: key}
		}
	}()
	value, err = s.Get(ctx, key)
	if err != nil {
		return "", &StorageAdapterError{Err: err, Method: "get", Key: key}
	}
	return value, nil
}

func storageSave(ctx context.Context, s StorageProvider, key string, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StorageAdapterError{Err: toError(r), Method: "save", Key: key}
		}
	}()
	if err = s.Save(ctx, key, value); err != nil {
		return &StorageAdapterError{Err: err, Method: "save", Key: key}
	}
	return nil
}

func loadToggles(ctx context.Context, s StorageProvider) ([]Toggle, error) {
	raw, err := storageGet(ctx, s, TogglesStorageKey)
	if err != nil || raw == "" {
		return nil, err
	}
	var toggles []Toggle
	if err := json.Unmarshal([]byte(raw), &toggles); err != nil {
		return nil, &StorageAdapterError{Err: fmt.Errorf("decode toggles: %w", err), Method: "get", Key: TogglesStorageKey}
	}
	return toggles, nil
}

func saveToggles(ctx context.Context, s StorageProvider, toggles []Toggle) error {
	if toggles == nil {
		toggles = []Toggle{}
	}
	bytes, err := json.Marshal(toggles)
	if err != nil {
		return err
	}
	return storageSave(ctx, s, TogglesStorageKey, string(bytes))
}
