// Command toggled-watch runs a Toggled client from environment configuration,
// logs every toggle update and error, and serves the SDK's health metrics
// for Prometheus to scrape.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	toggled "github.com/toggled-dev/go-sdk"
	togglesprom "github.com/toggled-dev/go-sdk/observability/prometheus"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("cmd", "toggled-watch").Logger()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("toggled-watch stopped")
	}
}

func run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	storage, closer, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	reg := prometheus.NewRegistry()
	options := cfg.options()
	options.StorageProvider = storage
	options.ObservabilityClient = togglesprom.New(reg)
	options.Listeners = watchListeners(log)

	client, err := toggled.NewClient(options)
	if err != nil {
		return err
	}
	defer client.Shutdown()
	client.On(toggled.EventUpdate, func(interface{}) {
		logWatched(client, cfg.Watch, log)
	})

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	if err := client.Start(ctx); err != nil {
		return err
	}
	log.Info().Str("url", cfg.URL).Str("storage", cfg.Storage).Msg("watching toggles")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func watchListeners(log zerolog.Logger) map[string]toggled.Listener {
	return map[string]toggled.Listener{
		toggled.EventError: func(payload interface{}) {
			if err, ok := payload.(error); ok {
				log.Error().Err(err).Msg("toggled error")
			}
		},
		toggled.EventReady: func(interface{}) {
			log.Info().Msg("toggles ready")
		},
	}
}

func logWatched(client *toggled.Client, watch []string, log zerolog.Logger) {
	all := client.GetAllToggles()
	event := log.Info().Int("toggles", len(all)).Str("session", client.GetCurrentSessionID())
	for _, name := range watch {
		event = event.Bool(name, client.IsEnabled(name))
	}
	event.Msg("toggles updated")
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
