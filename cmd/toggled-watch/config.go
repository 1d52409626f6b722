package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toggled "github.com/toggled-dev/go-sdk"
	"github.com/toggled-dev/go-sdk/storage/badger"
	"github.com/toggled-dev/go-sdk/storage/redis"
)

const (
	storageMemory = "memory"
	storageBadger = "badger"
	storageRedis  = "redis"
)

type Config struct {
	URL             string        `env:"TOGGLED_URL,required,notEmpty"`
	ClientKey       string        `env:"TOGGLED_CLIENT_KEY,required,notEmpty"`
	RefreshInterval time.Duration `env:"TOGGLED_REFRESH_INTERVAL" envDefault:"30s"`
	DisableRefresh  bool          `env:"TOGGLED_DISABLE_REFRESH"`
	Storage         string        `env:"TOGGLED_STORAGE" envDefault:"memory"`
	BadgerPath      string        `env:"TOGGLED_BADGER_PATH" envDefault:"./toggled-data"`
	RedisAddr       string        `env:"TOGGLED_REDIS_ADDR" envDefault:"localhost:6379"`
	MetricsAddr     string        `env:"TOGGLED_METRICS_ADDR" envDefault:":9102"`
	LogLevel        string        `env:"TOGGLED_LOG_LEVEL" envDefault:"info"`
	Watch           []string      `env:"TOGGLED_WATCH" envSeparator:","`
	Context         ContextConfig `envPrefix:"TOGGLED_CONTEXT_"`
}

type ContextConfig struct {
	UserID      string            `env:"USER_ID"`
	AppName     string            `env:"APP_NAME"`
	Environment string            `env:"ENVIRONMENT"`
	Extra       map[string]string `env:"EXTRA" envSeparator:"," envKeyValSeparator:":"`
}

func (c ContextConfig) toContext() toggled.Context {
	ctx := toggled.Context{}
	for k, v := range c.Extra {
		ctx[k] = v
	}
	set := func(key string, value string) {
		if value != "" {
			ctx[key] = value
		}
	}
	set(toggled.ContextUserID, c.UserID)
	set(toggled.ContextAppName, c.AppName)
	set(toggled.ContextEnvironment, c.Environment)
	return ctx
}

// Reads the environment, seeded from a .env file when one exists
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	switch cfg.Storage {
	case storageMemory, storageBadger, storageRedis:
	default:
		return Config{}, fmt.Errorf("unknown TOGGLED_STORAGE %q", cfg.Storage)
	}
	return cfg, nil
}

func (c Config) options() toggled.Options {
	return toggled.Options{
		URL:             c.URL,
		ClientKey:       c.ClientKey,
		RefreshInterval: c.RefreshInterval,
		DisableRefresh:  c.DisableRefresh,
		Context:         c.Context.toContext(),
		OutputLoggerOptions: toggled.OutputLoggerOptions{
			Level: c.LogLevel,
		},
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStorage(ctx context.Context, cfg Config) (toggled.StorageProvider, io.Closer, error) {
	switch cfg.Storage {
	case storageBadger:
		s, err := badger.New(badger.Config{Path: cfg.BadgerPath})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case storageRedis:
		s, err := redis.NewFromAddr(ctx, cfg.RedisAddr, redis.Config{})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return toggled.NewInMemoryStorageProvider(), nopCloser{}, nil
	}
}
