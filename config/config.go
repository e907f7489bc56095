package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete overlay configuration.
type Config struct {
	Feed      FeedConfig      `yaml:"feed"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	GridCache GridCacheConfig `yaml:"grid_cache"`
	Web       WebConfig       `yaml:"web"`
	UI        UIConfig        `yaml:"ui"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FeedConfig contains RBN map feed settings.
type FeedConfig struct {
	BaseURL        string `yaml:"base_url"`
	Callsign       string `yaml:"callsign"`
	Limit          int    `yaml:"limit"`
	PollSeconds    int    `yaml:"poll_seconds"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OverlayConfig contains filter defaults and the home locator used as the
// great-circle path origin.
type OverlayConfig struct {
	HomeGrid      string  `yaml:"home_grid"`
	Band          string  `yaml:"band"`
	WindowMinutes int     `yaml:"window_minutes"`
	MinSNR        float64 `yaml:"min_snr"`
	ShowPaths     bool    `yaml:"show_paths"`
	PathPoints    int     `yaml:"path_points"`
}

// GridCacheConfig contains reporter-locator cache settings.
type GridCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	TTLDays int    `yaml:"ttl_days"`
}

// WebConfig contains the GeoJSON snapshot server settings.
type WebConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// UIConfig contains terminal dashboard settings.
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	Console       bool   `yaml:"console"`
}

// Load loads configuration from a YAML file and applies defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no feed
// callsign configured.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://api.hamdash.net"
	}
	if c.Feed.Callsign == "" {
		c.Feed.Callsign = "NOCALL"
	}
	if c.Feed.Limit <= 0 {
		c.Feed.Limit = 50
	}
	if c.Feed.PollSeconds <= 0 {
		c.Feed.PollSeconds = 60
	}
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 10
	}
	if c.Overlay.Band == "" {
		c.Overlay.Band = "All"
	}
	if c.Overlay.WindowMinutes <= 0 {
		c.Overlay.WindowMinutes = 15
	}
	if c.Overlay.PathPoints <= 0 {
		c.Overlay.PathPoints = 30
	}
	if c.GridCache.Dir == "" {
		c.GridCache.Dir = "data/gridcache"
	}
	if c.GridCache.TTLDays <= 0 {
		c.GridCache.TTLDays = 30
	}
	if c.Web.Port <= 0 {
		c.Web.Port = 8073
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

// PollInterval returns the feed poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollSeconds) * time.Second
}

// FeedTimeout returns the per-request feed timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// GridCacheTTL returns the locator cache record lifetime.
func (c *Config) GridCacheTTL() time.Duration {
	return time.Duration(c.GridCache.TTLDays) * 24 * time.Hour
}

// Print displays the configuration.
func (c *Config) Print() {
	fmt.Printf("Feed: %s (as %s, limit %d, every %ds)\n",
		c.Feed.BaseURL, c.Feed.Callsign, c.Feed.Limit, c.Feed.PollSeconds)
	fmt.Printf("Overlay: band=%s window=%dm minSNR=%.0f paths=%v home=%s\n",
		c.Overlay.Band, c.Overlay.WindowMinutes, c.Overlay.MinSNR, c.Overlay.ShowPaths, c.Overlay.HomeGrid)
	if c.GridCache.Enabled {
		fmt.Printf("Grid cache: %s (ttl %dd)\n", c.GridCache.Dir, c.GridCache.TTLDays)
	}
	if c.Web.Enabled {
		fmt.Printf("Web: %s:%d\n", c.Web.BindAddress, c.Web.Port)
	}
}
