package config

import (
	"strings"

	"github.com/vesla0x1/multiruntime/utils"
)

// Environment keys read by the parser and the runtime detector.
const (
	KeyRuntime         = "RUNTIME"
	KeyEnvironment     = "ENVIRONMENT"
	KeyRequestTimeout  = "REQUEST_TIMEOUT"
	KeyMaxBodySize     = "MAX_BODY_SIZE"
	KeyPort            = "PORT"
	KeyHost            = "HOST"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"

	KeyLambdaFunctionName    = "AWS_LAMBDA_FUNCTION_NAME"
	KeyLambdaFunctionVersion = "AWS_LAMBDA_FUNCTION_VERSION"
	KeyRegion                = "AWS_REGION"

	KeyDenoDeploymentID = "DENO_DEPLOYMENT_ID"
	KeyDenoRegion       = "DENO_REGION"
	KeyDenoVersion      = "DENO_VERSION"

	KeyCloudflarePages   = "CF_PAGES"
	KeyCloudflareWorker  = "CF_WORKER"
	KeyCloudflareAccount = "CLOUDFLARE_ACCOUNT_ID"
)

// Parse reads configuration from src, applies defaults and validates it.
func Parse(src Source) (*Config, error) {
	cfg := parse(src)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse reads configuration values from src
func parse(src Source) *Config {
	defaults := DefaultConfig()

	cfg := &Config{
		// Core
		Environment: strings.ToLower(utils.GetEnv(src, KeyEnvironment, defaults.Environment)),
		ServiceName: utils.GetEnv(src, "SERVICE_NAME", defaults.ServiceName),
		LogLevel:    strings.ToLower(utils.GetEnv(src, "LOG_LEVEL", defaults.LogLevel)),
		Version:     utils.GetEnv(src, "SERVICE_VERSION", defaults.Version),

		// Adapter selection
		Adapters: AdapterConfig{
			Runtime: strings.ToLower(utils.GetEnv(src, KeyRuntime, "")),
			Logger:  utils.GetEnv(src, "ADAPTER_LOGGER", ""),
			Metrics: utils.GetEnv(src, "ADAPTER_METRICS", ""),
		},

		Runtime: RuntimeConfig{
			Timeout:      utils.GetEnvMillis(src, KeyRequestTimeout, defaults.Runtime.Timeout),
			MaxBodyBytes: utils.GetEnvInt64(src, KeyMaxBodySize, defaults.Runtime.MaxBodyBytes),
		},

		Server: ServerConfig{
			Port:            utils.GetEnvInt(src, KeyPort, defaults.Server.Port),
			Host:            utils.GetEnv(src, KeyHost, defaults.Server.Host),
			ShutdownTimeout: utils.GetEnvDuration(src, KeyShutdownTimeout, defaults.Server.ShutdownTimeout.String()),
		},

		Lambda: LambdaConfig{
			FunctionName:    utils.GetEnv(src, KeyLambdaFunctionName, ""),
			FunctionVersion: utils.GetEnv(src, KeyLambdaFunctionVersion, ""),
			Region:          utils.GetEnv(src, KeyRegion, ""),
		},

		Observability: ObservabilityConfig{
			MetricsAddr:        utils.GetEnv(src, "METRICS_ADDR", defaults.Observability.MetricsAddr),
			CloudWatchRegion:   utils.GetEnv(src, "CLOUDWATCH_REGION", utils.GetEnv(src, KeyRegion, defaults.Observability.CloudWatchRegion)),
			CloudWatchLogGroup: utils.GetEnv(src, "CLOUDWATCH_LOG_GROUP", ""),
			AccessKeyID:        utils.GetEnv(src, "AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:    utils.GetEnv(src, "AWS_SECRET_ACCESS_KEY", ""),
		},

		source: src,
	}

	return cfg
}
