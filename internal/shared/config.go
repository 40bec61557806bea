package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvAPIKey     = "TUBETODO_API_KEY"
	EnvMirrorBase = "TUBETODO_MIRROR_BASE"
	EnvDBPath     = "TUBETODO_DB_PATH"
	EnvLogLevel   = "TUBETODO_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Mirror      MirrorConfig      `toml:"mirror"`
	Discovery   DiscoveryConfig   `toml:"discovery"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// MirrorConfig selects the community mirror used when no API key is set.
type MirrorConfig struct {
	BaseURL string `toml:"base_url"`
}

// DiscoveryConfig controls mirror health probing.
type DiscoveryConfig struct {
	RelayURL       string   `toml:"relay_url"`
	CanaryPlaylist string   `toml:"canary_playlist"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxConcurrency int      `toml:"max_concurrency"`
	Candidates     []string `toml:"candidates"`
}

// Timeout returns the per-request probe timeout, defaulting to 8s.
func (d DiscoveryConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides config values from the process environment and the given dotenv files.
//
// Process variables win over dotenv values; missing dotenv files are skipped.
func ApplyEnv(c *Config, envFiles ...string) error {
	vars := map[string]string{}
	for _, f := range envFiles {
		fileVars, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		maps.Copy(vars, fileVars)
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return vars[key]
	}

	if v := lookup(EnvAPIKey); v != "" {
		c.Credentials.YouTube.APIKey = v
	}
	if v := lookup(EnvMirrorBase); v != "" {
		c.Mirror.BaseURL = v
	}
	if v := lookup(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}
