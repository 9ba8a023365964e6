package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vesla0x1/multiruntime/utils"
)

// Load loads .env files into the process environment and parses the result.
// This should be called once at application startup.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := Parse(utils.OSEnv{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadWith loads .env files like Load, then parses the given overrides
// layered on top of the process environment.
func LoadWith(overrides ...Source) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	chain := append(utils.Chain{}, overrides...)
	chain = append(chain, utils.OSEnv{})

	cfg, err := Parse(chain)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() error {
	if IsLambda() {
		return nil
	}

	// Load base .env file (optional)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// Load environment-specific file (optional)
	if env := os.Getenv(KeyEnvironment); env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	// Load .env.local for local overrides (highest precedence, optional)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}

// LoadFile reads a dotenv file into an in-memory Source without touching
// the process environment.
func LoadFile(path string) (utils.MapEnv, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return utils.MapEnv(values), nil
}

// IsLambda reports whether the process runs inside a Lambda function.
func IsLambda() bool {
	return utils.Has(utils.OSEnv{}, KeyLambdaFunctionName)
}
