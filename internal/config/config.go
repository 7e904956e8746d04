// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for gdrive-files. Values are layered:
// defaults -> config file -> .env file -> environment -> CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Google  GoogleConfig  `toml:"google"`
	Tasks   TasksConfig   `toml:"tasks"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig controls the HTTP listener. DockerPort is the port published
// by the container image; it is informational and only shown by "config show".
type ServerConfig struct {
	Port              int    `toml:"port"`
	DockerPort        int    `toml:"docker_port"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	MaxUploadSize     string `toml:"max_upload_size"`
}

// AuthConfig holds the signing key for API bearer tokens. Tokens are only
// checked when RequireToken is set.
type AuthConfig struct {
	SecretKey    string `toml:"secret_key"`
	Algorithm    string `toml:"algorithm"`
	RequireToken bool   `toml:"require_token"`
	TokenTTL     string `toml:"token_ttl"`
}

// GoogleConfig holds the OAuth client registration and Drive API settings.
// An empty TokenFile or APIEndpoint means the platform default.
type GoogleConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TokenFile      string `toml:"token_file"`
	APIEndpoint    string `toml:"api_endpoint"`
	RequestTimeout string `toml:"request_timeout"`
}

// TasksConfig controls the optional task ledger.
type TasksConfig struct {
	LedgerEnabled bool   `toml:"ledger_enabled"`
	LedgerPath    string `toml:"ledger_path"`
}

// LoggingConfig controls log output: level and format (auto, text, json).
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	Port       *int   // serve --port
}
