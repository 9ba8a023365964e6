package config

import "time"

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	// RuntimeAuto asks the detector to inspect platform markers.
	RuntimeAuto = "auto"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxBodyBytes    = 10 * 1024 * 1024 // 10MB
	DefaultPort            = 8080
	DefaultHost            = "localhost"
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultConfig returns a complete configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		ServiceName: "multiruntime",
		LogLevel:    "info",
		Version:     "1.0.0",

		Adapters:      DefaultAdapterConfig(),
		Runtime:       DefaultRuntimeConfig(),
		Server:        DefaultServerConfig(),
		Observability: DefaultObservabilityConfig(),
	}
}

// DefaultAdapterConfig returns default adapter selection
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Runtime: RuntimeAuto,
		Logger:  "stdout",
		Metrics: "prometheus",
	}
}

// DefaultRuntimeConfig returns the default per-request limits
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// DefaultServerConfig returns default bind settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            DefaultPort,
		Host:            DefaultHost,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// DefaultObservabilityConfig returns sensible defaults for observability configuration
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		MetricsAddr:      "",
		CloudWatchRegion: "us-east-2",
	}
}

// applyDefaults applies environment-specific defaults
func applyDefaults(cfg *Config) {
	if cfg.Adapters.Runtime == "" {
		cfg.Adapters.Runtime = RuntimeAuto
	}
	if cfg.Adapters.Logger == "" {
		cfg.Adapters.Logger = "stdout"
	}
	if cfg.Adapters.Metrics == "" {
		cfg.Adapters.Metrics = "prometheus"
	}
	if cfg.Observability.CloudWatchLogGroup == "" && cfg.Adapters.Logger == "cloudwatch" {
		cfg.Observability.CloudWatchLogGroup = "/multiruntime/" + cfg.ServiceName
	}
	if cfg.IsProduction() && cfg.LogLevel == "debug" {
		cfg.LogLevel = "info"
	}
}
