package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for overrides. All but EnvConfig are the names
// the service has always been deployed with.
const (
	EnvConfig             = "GDRIVE_FILES_CONFIG"
	EnvSrcPort            = "SRC_PORT"
	EnvDockerPort         = "DOCKER_PORT"
	EnvSecretKey          = "SECRET_KEY"
	EnvAlgorithm          = "ALGORITHM"
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
)

// EnvOverrides holds values read from environment variables. Empty means
// not set.
type EnvOverrides struct {
	ConfigPath         string
	SrcPort            string
	DockerPort         string
	SecretKey          string
	Algorithm          string
	GoogleClientID     string
	GoogleClientSecret string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:         os.Getenv(EnvConfig),
		SrcPort:            os.Getenv(EnvSrcPort),
		DockerPort:         os.Getenv(EnvDockerPort),
		SecretKey:          os.Getenv(EnvSecretKey),
		Algorithm:          os.Getenv(EnvAlgorithm),
		GoogleClientID:     os.Getenv(EnvGoogleClientID),
		GoogleClientSecret: os.Getenv(EnvGoogleClientSecret),
	}
}

// apply copies every set override into cfg.
func (env EnvOverrides) apply(cfg *Config) error {
	var errs []error

	if env.SrcPort != "" {
		port, err := strconv.Atoi(env.SrcPort)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSrcPort, err))
		} else {
			cfg.Server.Port = port
		}
	}

	if env.DockerPort != "" {
		port, err := strconv.Atoi(env.DockerPort)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDockerPort, err))
		} else {
			cfg.Server.DockerPort = port
		}
	}

	if env.SecretKey != "" {
		cfg.Auth.SecretKey = env.SecretKey
	}

	if env.Algorithm != "" {
		cfg.Auth.Algorithm = env.Algorithm
	}

	if env.GoogleClientID != "" {
		cfg.Google.ClientID = env.GoogleClientID
	}

	if env.GoogleClientSecret != "" {
		cfg.Google.ClientSecret = env.GoogleClientSecret
	}

	return errors.Join(errs...)
}
