package toggled

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type ToggledProcess string

const (
	ToggledProcessInitialize ToggledProcess = "Initialize"
	ToggledProcessSync       ToggledProcess = "Sync"
	METRIC_PREFIX                           = "toggled.sdk"
)

type OutputLoggerOptions struct {
	LogCallback            func(message string, err error)
	EnableDebug            bool
	DisableInitDiagnostics bool
	DisableSyncDiagnostics bool
	Level                  string    // zerolog level name, "info" when empty
	Writer                 io.Writer // defaults to os.Stderr
}

type OutputLogger struct {
	options             OutputLoggerOptions
	observabilityClient ObservabilityClient
	logger              zerolog.Logger
	secrets             []string
}

func newOutputLogger(options OutputLoggerOptions, observabilityClient ObservabilityClient, secrets ...string) *OutputLogger {
	writer := options.Writer
	if writer == nil {
		writer = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(options.Level))
	if err != nil || options.Level == "" {
		level = zerolog.InfoLevel
	}
	if options.EnableDebug {
		level = zerolog.DebugLevel
	}
	metadata := getSDKMetadata()
	logger := zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("sdk", metadata.SDKType).
		Str("sdkVersion", metadata.SDKVersion).
		Str("processSession", metadata.SessionID).
		Logger()
	return &OutputLogger{
		options:             options,
		observabilityClient: observabilityClient,
		logger:              logger,
		secrets:             secrets,
	}
}

func (o *OutputLogger) Log(msg string, err error) {
	if !o.isInitialized() {
		return
	}
	msg = o.sanitize(msg)
	if o.options.LogCallback != nil {
		o.options.LogCallback(msg, err)
		return
	}
	if err != nil {
		o.logger.Error().Str("error", o.sanitize(err.Error())).Msg(msg)
	} else if msg != "" {
		o.logger.Info().Msg(msg)
	}
}

func (o *OutputLogger) Warn(msg string) {
	if !o.isInitialized() {
		return
	}
	msg = o.sanitize(msg)
	if o.options.LogCallback != nil {
		o.options.LogCallback(msg, nil)
		return
	}
	o.logger.Warn().Msg(msg)
}

func (o *OutputLogger) LogStep(process ToggledProcess, msg string) {
	if !o.isInitialized() || !o.options.EnableDebug {
		return
	}
	if o.options.DisableInitDiagnostics && process == ToggledProcessInitialize {
		return
	}
	if o.options.DisableSyncDiagnostics && process == ToggledProcessSync {
		return
	}
	if o.options.LogCallback != nil {
		o.options.LogCallback(o.sanitize(fmt.Sprintf("%s: %s", process, msg)), nil)
		return
	}
	o.logger.Debug().Str("process", string(process)).Msg(o.sanitize(msg))
}

func (o *OutputLogger) LogError(err interface{}) {
	var errMsg error
	switch e := err.(type) {
	case string:
		errMsg = errors.New(e)
	case error:
		errMsg = e
	default:
		errMsg = fmt.Errorf("%v", e)
	}

	o.Increment("exceptions_count", 1, nil)
	o.Log("Error: ", errMsg)
}

func (o *OutputLogger) Initialize() {
	if o.isInitialized() && o.observabilityClient != nil {
		defer func() {
			if r := recover(); r != nil {
				o.Log("Observability client Init panicked", nil)
			}
		}()
		if err := o.observabilityClient.Init(context.Background()); err != nil {
			o.Log("Observability client Init failed", err)
		}
	}
}

func (o *OutputLogger) Increment(metricName string, value int, tags map[string]interface{}) {
	if o.isInitialized() && o.observabilityClient != nil {
		defer func() {
			if r := recover(); r != nil {
				o.Log("Observability client Increment panicked", nil)
			}
		}()
		if err := o.observabilityClient.Increment(metricKey(metricName), value, tags); err != nil {
			o.Log("Observability client Increment failed", err)
		}
	}
}

func (o *OutputLogger) Gauge(metricName string, value float64, tags map[string]interface{}) {
	if o.isInitialized() && o.observabilityClient != nil {
		defer func() {
			if r := recover(); r != nil {
				o.Log("Observability client Gauge panicked", nil)
			}
		}()
		if err := o.observabilityClient.Gauge(metricKey(metricName), value, tags); err != nil {
			o.Log("Observability client Gauge failed", err)
		}
	}
}

func (o *OutputLogger) Distribution(metricName string, value float64, tags map[string]interface{}) {
	if o.isInitialized() && o.observabilityClient != nil {
		defer func() {
			if r := recover(); r != nil {
				o.Log("Observability client Distribution panicked", nil)
			}
		}()
		if err := o.observabilityClient.Distribution(metricKey(metricName), value, tags); err != nil {
			o.Log("Observability client Distribution failed", err)
		}
	}
}

func (o *OutputLogger) Shutdown() {
	if o.isInitialized() && o.observabilityClient != nil {
		defer func() {
			if r := recover(); r != nil {
				o.Log("Observability client Shutdown panicked", nil)
			}
		}()
		if err := o.observabilityClient.Shutdown(context.Background()); err != nil {
			o.Log("Observability client Shutdown failed", err)
		}
	}
}

func (o *OutputLogger) isInitialized() bool {
	return o != nil
}

func (o *OutputLogger) sanitize(s string) string {
	for _, secret := range o.secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, "****")
	}
	return s
}

func metricKey(name string) string {
	return fmt.Sprintf("%s.%s", METRIC_PREFIX, name)
}
