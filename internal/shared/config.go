package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file,
// with environment variables taking precedence for every secret-bearing key.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Broker      BrokerConfig      `toml:"broker"`
	Poll        PollConfig        `toml:"poll"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	SessionSecret string `toml:"session_secret"`
}

// BrokerConfig contains MQTT broker connection and publish settings.
//
// Strategy selects the publisher implementation: "ephemeral" opens a fresh
// connection per publish, "persistent" keeps one reconnecting connection.
type BrokerConfig struct {
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	Topic          string `toml:"topic"`
	ClientID       string `toml:"client_id"`
	QoS            int    `toml:"qos"`
	Strategy       string `toml:"strategy"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PollConfig contains playback polling settings.
type PollConfig struct {
	IntervalSeconds    int  `toml:"interval_seconds"`
	RefreshSkewSeconds int  `toml:"refresh_skew_seconds"`
	PaletteSize        int  `toml:"palette_size"`
	IncludeFeatures    bool `toml:"include_features"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment variable overrides. A .env file in the working
// directory is loaded first if present.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded
// example config, with environment overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
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

// ApplyEnv overlays environment variables onto the config. Values from a .env
// file are loaded first (without clobbering variables already exported).
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	envString(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	envString(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	envString(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	envString(&c.Database.Path, "DATABASE_PATH")
	envString(&c.Server.SessionSecret, "SESSION_SECRET")
	envString(&c.Broker.URL, "MQTT_BROKER_URL")
	envString(&c.Broker.Username, "MQTT_USERNAME")
	envString(&c.Broker.Password, "MQTT_PASSWORD")
	envString(&c.Broker.Topic, "MQTT_TOPIC")
	envString(&c.Broker.ClientID, "MQTT_CLIENT_ID")
	envInt(&c.Broker.QoS, "MQTT_QOS")
	envString(&c.Broker.Strategy, "MQTT_STRATEGY")
	envInt(&c.Server.Port, "PORT")
	envInt(&c.Poll.IntervalSeconds, "POLL_INTERVAL_SECONDS")
	envInt(&c.Poll.RefreshSkewSeconds, "REFRESH_SKEW_SECONDS")
}

// Validate checks that every setting required to run the service is present.
// Missing configuration here is the only condition treated as fatal at startup.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client id and secret are required", ErrMissingCredentials)
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrMissingConfig)
	}
	if c.Broker.URL == "" {
		return fmt.Errorf("%w: broker url is required", ErrMissingConfig)
	}
	if c.Broker.Topic == "" {
		return fmt.Errorf("%w: broker topic is required", ErrMissingConfig)
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 1 {
		return fmt.Errorf("%w: broker qos must be 0 or 1", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrMissingConfig)
	}
	return nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
