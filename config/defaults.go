package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "ezpubsub",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Signal: SignalConfig{
			LoggingEnabled: false,
			RequireFreeze:  false,
			ErrorLogLimit:  0,
			ErrorLogBurst:  0,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9091,
			Path:    "/metrics",
		},
	}
}
