package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	toggled "github.com/toggled-dev/go-sdk"
)

func newTestStorage(t *testing.T, cfg Config) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	storage := New(redis.NewClient(&redis.Options{Addr: mini.Addr()}), cfg)
	t.Cleanup(func() { storage.Close() })
	return storage, mini
}

func TestGetMissingKey(t *testing.T) {
	storage, _ := newTestStorage(t, Config{})

	value, err := storage.Get(context.Background(), toggled.TogglesStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestSaveAndGet(t *testing.T) {
	storage, mini := newTestStorage(t, Config{})
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, toggled.SessionIDStorageKey, "abc-123"))

	value, err := storage.Get(ctx, toggled.SessionIDStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", value)

	raw, err := mini.Get("toggled:repository:sessionId")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", raw)
}

func TestCustomPrefixAndTTL(t *testing.T) {
	storage, mini := newTestStorage(t, Config{KeyPrefix: "app", TTL: time.Minute})

	require.NoError(t, storage.Save(context.Background(), "repo", "[]"))

	assert.True(t, mini.Exists("app:repo"))
	assert.Equal(t, time.Minute, mini.TTL("app:repo"))
}

func TestGetServerError(t *testing.T) {
	storage, mini := newTestStorage(t, Config{})
	mini.SetError("boom")

	_, err := storage.Get(context.Background(), "repo")
	assert.Error(t, err)
}

func TestNewFromAddrUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewFromAddr(ctx, "127.0.0.1:1", Config{})
	assert.Error(t, err)
}

func TestClientPersistsThroughRedis(t *testing.T) {
	storage, _ := newTestStorage(t, Config{})
	bootstrap := []toggled.Toggle{{Name: "foo", Value: true, ValueType: toggled.ValueTypeBoolean, Status: toggled.StatusOn}}

	client, err := toggled.NewClient(toggled.Options{
		URL:             "http://localhost/api",
		ClientKey:       "key",
		StorageProvider: storage,
		Bootstrap:       bootstrap,
		OutputLoggerOptions: toggled.OutputLoggerOptions{
			LogCallback: func(string, error) {},
		},
	})
	require.NoError(t, err)
	<-client.Initialized()

	raw, err := storage.Get(context.Background(), toggled.TogglesStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"toggleName":"foo","toggleValue":true,"toggleValueType":"boolean","toggleStatus":"on"}]`, raw)
}
