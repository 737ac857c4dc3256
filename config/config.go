// Package config provides configuration management for applications
// embedding ezpubsub.
package config

import (
	"golang.org/x/time/rate"

	"github.com/ezpubsub/ezpubsub/pkg/logger"
	"github.com/ezpubsub/ezpubsub/pkg/metrics"
	"github.com/ezpubsub/ezpubsub/pkg/signal"
)

// Config is the embedding application's ezpubsub configuration.
type Config struct {
	// App is the application metadata.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Signal holds defaults applied to new signals.
	Signal SignalConfig `mapstructure:"signal"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Environment is the runtime environment.
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level to emit.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format selects the handler encoding.
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output"`
}

// SignalConfig holds defaults applied to signals created through Options.
type SignalConfig struct {
	// LoggingEnabled sets the initial diagnostic-logging flag.
	LoggingEnabled bool `mapstructure:"logging_enabled"`

	// RequireFreeze makes publishing fail until Freeze is called.
	RequireFreeze bool `mapstructure:"require_freeze"`

	// ErrorLogLimit caps subscriber-failure log lines per second;
	// zero means unlimited.
	ErrorLogLimit float64 `mapstructure:"error_log_limit" validate:"gte=0"`

	// ErrorLogBurst is the burst size for the error-log limiter.
	ErrorLogBurst int `mapstructure:"error_log_burst" validate:"gte=0"`
}

// MetricsConfig holds metrics endpoint settings.
type MetricsConfig struct {
	// Enabled enables the Prometheus registry and endpoint.
	Enabled bool `mapstructure:"enabled"`

	// Port is the scrape endpoint port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// Path is the scrape endpoint path.
	Path string `mapstructure:"path"`
}

// LoggerConfig converts the log section for pkg/logger.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.ParseLevel(c.Log.Level),
		Format: c.Log.Format,
		Output: c.Log.Output,
	}
}

// MetricsManagerConfig converts the metrics section for pkg/metrics.
func (c *Config) MetricsManagerConfig() metrics.Config {
	mc := metrics.DefaultConfig()
	mc.Enabled = c.Metrics.Enabled
	mc.Port = c.Metrics.Port
	mc.Path = c.Metrics.Path
	return mc
}

// SignalOptions converts the signal section into construction options for a
// Signal carrying payload type T.
func SignalOptions[T any](c *Config) []signal.Option[T] {
	opts := []signal.Option[T]{
		signal.WithLogging[T](c.Signal.LoggingEnabled),
	}
	if c.Signal.RequireFreeze {
		opts = append(opts, signal.WithRequireFreeze[T]())
	}
	if c.Signal.ErrorLogLimit > 0 {
		burst := c.Signal.ErrorLogBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, signal.WithErrorLogLimit[T](rate.Limit(c.Signal.ErrorLogLimit), burst))
	}
	return opts
}
