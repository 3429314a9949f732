package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/spotivy/internal/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML or YAML file.
type Config struct {
	Output  string        `toml:"output" yaml:"output"`
	Format  string        `toml:"format" yaml:"format"`
	Audio   bool          `toml:"audio" yaml:"audio"`
	Debug   bool          `toml:"debug" yaml:"debug"`
	Spotify SpotifyConfig `toml:"spotify" yaml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube" yaml:"youtube"`
	Fetcher FetcherConfig `toml:"fetcher" yaml:"fetcher"`
	History HistoryConfig `toml:"history" yaml:"history"`
}

// SpotifyConfig contains the catalog account identity and client credentials.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id" yaml:"client_id"`
	ClientSecret string  `toml:"client_secret" yaml:"client_secret"`
	Username     string  `toml:"username" yaml:"username"`
	RateLimit    float64 `toml:"rate_limit" yaml:"rate_limit"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
	}
}

// YouTubeConfig contains YouTube Data API settings used for media search.
type YouTubeConfig struct {
	APIKey    string  `toml:"api_key" yaml:"api_key"`
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"`
	Timeout   int     `toml:"timeout" yaml:"timeout"`
}

// FetcherConfig selects and tunes the media download backend.
type FetcherConfig struct {
	Backend   string `toml:"backend" yaml:"backend"`
	YTDLPPath string `toml:"ytdlp_path" yaml:"ytdlp_path"`
	Timeout   int    `toml:"timeout" yaml:"timeout"`
	TagAudio  bool   `toml:"tag_audio" yaml:"tag_audio"`
}

// HistoryConfig contains the optional SQLite run history settings.
type HistoryConfig struct {
	Path         string `toml:"path" yaml:"path"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns"`
}

// LoadConfig reads a configuration file on top of [DefaultConfig].
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
//
// Placeholder credentials from the example file are cleared.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.Spotify.ClientID = ""
	config.Spotify.ClientSecret = ""
	config.Spotify.Username = ""
	config.YouTube.APIKey = ""
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given dotenv files into the process environment.
//
// Missing files are ignored and variables already set in the environment win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and the account identity from environment variables.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret},
		{"SPOTIFY_USERNAME", &c.Spotify.Username},
		{"YOUTUBE_API_KEY", &c.YouTube.APIKey},
		{"SPOTIVY_OUTPUT", &c.Output},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}
	if v, ok := os.LookupEnv("SPOTIVY_DEBUG"); ok && v != "" && v != "0" && v != "false" {
		c.Debug = true
	}
}

// Intent returns the download intent for the run; the audio shortcut forces [models.IntentAudio].
func (c *Config) Intent() (models.Intent, error) {
	if c.Audio {
		return models.IntentAudio, nil
	}
	return models.ParseIntent(c.Format)
}

// Validate checks that the configuration can drive a sync run.
func (c *Config) Validate() error {
	if _, err := c.Intent(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output directory must not be empty", ErrInvalidConfig)
	}
	if c.Spotify.Username == "" {
		return fmt.Errorf("%w: spotify username is required", ErrMissingCredentials)
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("%w: youtube api_key is required", ErrMissingCredentials)
	}
	switch c.Fetcher.Backend {
	case "", "stream", "ytdlp":
	default:
		return fmt.Errorf("%w: unknown fetcher backend %q", ErrInvalidConfig, c.Fetcher.Backend)
	}
	return nil
}
