package config

import (
	"fmt"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	validEnvironments := map[string]bool{EnvDevelopment: true, EnvStaging: true, EnvProduction: true, "test": true}
	if !validEnvironments[c.Environment] {
		errors = append(errors, fmt.Sprintf("invalid ENVIRONMENT: %s", c.Environment))
	}

	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Runtime.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Server.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Adapters.Logger == "cloudwatch" && c.Observability.CloudWatchRegion == "" {
		errors = append(errors, "CLOUDWATCH_REGION is required for CloudWatch logging")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter configuration. The runtime override is not
// checked here: unrecognized values fall back to the generic server when the
// adapter is built.
func (a *AdapterConfig) Validate() error {
	validLogger := map[string]bool{"cloudwatch": true, "stdout": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be cloudwatch or stdout)", a.Logger)
	}

	validMetrics := map[string]bool{"prometheus": true, "stdout": true, "none": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be prometheus, stdout or none)", a.Metrics)
	}

	return nil
}

// Validate validates the per-request limits
func (r *RuntimeConfig) Validate() error {
	if r.Timeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if r.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_SIZE must be positive")
	}
	return nil
}

// Validate validates server bind settings
func (s *ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("PORT must be between 0 and 65535")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
