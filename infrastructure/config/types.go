package config

import (
	"strings"
	"time"

	"github.com/vesla0x1/multiruntime/utils"
)

// Source is the read-only key/value boundary every component reads from.
type Source = utils.Source

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Adapter selection
	Adapters AdapterConfig

	// Component configurations
	Runtime       RuntimeConfig
	Server        ServerConfig
	Lambda        LambdaConfig
	Observability ObservabilityConfig

	source Source
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Runtime string // "auto", "lambda", "cloudflare", "deno", "fargate", "generic-server"
	Logger  string // "stdout", "cloudwatch"
	Metrics string // "prometheus", "stdout", "none"
}

// RuntimeConfig holds the per-request limits shared by every adapter.
type RuntimeConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// ServerConfig holds persistent adapter bind settings.
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// LambdaConfig holds Lambda diagnostics read from the function environment.
type LambdaConfig struct {
	FunctionName    string
	FunctionVersion string
	Region          string
}

// ObservabilityConfig holds logger and metrics backend settings.
type ObservabilityConfig struct {
	MetricsAddr        string
	CloudWatchRegion   string
	CloudWatchLogGroup string
	AccessKeyID        string
	SecretAccessKey    string
}

// Source returns the snapshot the configuration was parsed from.
func (c *Config) Source() Source {
	if c.source == nil {
		return utils.OSEnv{}
	}
	return c.source
}

// IsDevelopment reports whether the development environment is active,
// including when it was only defaulted.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// ExposeErrorDetail reports whether failure messages may reach clients. It
// requires ENVIRONMENT=development to be set, not defaulted.
func (c *Config) ExposeErrorDetail() bool {
	v, ok := c.Source().Lookup(KeyEnvironment)
	return ok && strings.EqualFold(strings.TrimSpace(v), EnvDevelopment)
}

// IsProduction reports whether the production marker is set.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
