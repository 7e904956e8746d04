package config

// Default values for configuration options. The secret key and algorithm
// defaults match what the service has always shipped with; require_token is
// off, so the key is unused unless an operator opts in.
const (
	defaultPort              = 8000
	defaultDockerPort        = 8000
	defaultReadHeaderTimeout = "10s"
	defaultShutdownTimeout   = "30s"
	defaultMaxUploadSize     = "100MiB"
	defaultSecretKey         = "secret_key :)"
	defaultAlgorithm         = "HS256"
	defaultTokenTTL          = "24h"
	defaultRequestTimeout    = "60s"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              defaultPort,
			DockerPort:        defaultDockerPort,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			MaxUploadSize:     defaultMaxUploadSize,
		},
		Auth: AuthConfig{
			SecretKey: defaultSecretKey,
			Algorithm: defaultAlgorithm,
			TokenTTL:  defaultTokenTTL,
		},
		Google: GoogleConfig{
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
