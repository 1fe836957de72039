package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	DefaultProvider string                    `toml:"default_provider"`
	Log             LogConfig                 `toml:"log"`
	Cache           CacheConfig               `toml:"cache"`
	MusicBrainz     MusicBrainzConfig         `toml:"musicbrainz"`
	Providers       map[string]ProviderConfig `toml:"providers"`
	Reconcile       ReconcileConfig           `toml:"reconcile"`
}

// LogConfig controls the logger level.
type LogConfig struct {
	Level string `toml:"level"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend    string `toml:"backend"` // memory or sqlite
	Path       string `toml:"path"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// TTL returns the configured entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MusicBrainzConfig contains registry connection settings.
type MusicBrainzConfig struct {
	BaseURL   string  `toml:"base_url"`
	UserAgent string  `toml:"user_agent"`
	RateLimit float64 `toml:"rate_limit"`
}

// ProviderConfig contains per-provider credentials and limits.
type ProviderConfig struct {
	Enabled      bool    `toml:"enabled"`
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	CountryCode  string  `toml:"country_code"`
	RateLimit    float64 `toml:"rate_limit"`
}

// ReconcileConfig tunes matching and fan-out.
type ReconcileConfig struct {
	StrictProviders []string `toml:"strict_providers"`
	TieBreak        string   `toml:"tie_break"`
	Concurrency     int      `toml:"concurrency"`
	DeepSearchCount int      `toml:"deep_search_count"`
}

var tieBreakPolicies = []string{"first", "latest", "flag"}

// Provider returns the settings for a namespace, or a zero value when absent.
func (c *Config) Provider(ns string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[ns]
}

// Validate reports configuration values the engine cannot run with.
func (c *Config) Validate() error {
	if !slices.Contains(tieBreakPolicies, c.Reconcile.TieBreak) {
		return fmt.Errorf("%w: unknown tie_break policy %q", ErrInvalidConfig, c.Reconcile.TieBreak)
	}
	if c.Reconcile.Concurrency <= 0 {
		return fmt.Errorf("%w: reconcile.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Reconcile.DeepSearchCount < 0 {
		return fmt.Errorf("%w: reconcile.deep_search_count must not be negative", ErrInvalidConfig)
	}
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
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

// ApplyEnv overlays MBX_* variables onto the config. Files in envFiles are loaded first with
// [godotenv.Load], which never overrides variables already set in the process environment.
// Missing files are skipped.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%w: failed to load %s: %w", ErrInvalidConfig, f, err)
		}
	}

	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}

	overlay := func(ns string, apply func(*ProviderConfig)) {
		pc := c.Providers[ns]
		apply(&pc)
		c.Providers[ns] = pc
	}

	if v, ok := os.LookupEnv("MBX_SPOTIFY_CLIENT_ID"); ok {
		overlay("spotify", func(pc *ProviderConfig) { pc.ClientID = v })
	}
	if v, ok := os.LookupEnv("MBX_SPOTIFY_CLIENT_SECRET"); ok {
		overlay("spotify", func(pc *ProviderConfig) { pc.ClientSecret = v })
	}
	if v, ok := os.LookupEnv("MBX_TIDAL_CLIENT_ID"); ok {
		overlay("tidal", func(pc *ProviderConfig) { pc.ClientID = v })
	}
	if v, ok := os.LookupEnv("MBX_TIDAL_CLIENT_SECRET"); ok {
		overlay("tidal", func(pc *ProviderConfig) { pc.ClientSecret = v })
	}
	if v, ok := os.LookupEnv("MBX_MUSICBRAINZ_USER_AGENT"); ok {
		c.MusicBrainz.UserAgent = v
	}
	if v, ok := os.LookupEnv("MBX_CACHE_PATH"); ok {
		c.Cache.Path = v
	}
	if v, ok := os.LookupEnv("MBX_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}
