package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pders01/reel/internal/validation"
)

type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Search   SearchConfig   `mapstructure:"search"`
	UI       UIConfig       `mapstructure:"ui"`
	Media    MediaConfig    `mapstructure:"media"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	ImageBaseURL      string        `mapstructure:"image_base_url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key"`
	Language          string        `mapstructure:"language"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	UserAgent         string        `mapstructure:"user_agent" validate:"required"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	// AllowInsecure accepts http and loopback base URLs (local mirrors, tests)
	AllowInsecure bool `mapstructure:"allow_insecure"`
}

type DatabaseConfig struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=bolt sqlite"`
	Path        string        `mapstructure:"path" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	SearchIndex string        `mapstructure:"search_index"`
	DetailsTTL  time.Duration `mapstructure:"details_ttl" validate:"gte=0"`
}

type FeedConfig struct {
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	ProximityRows int           `mapstructure:"proximity_rows" validate:"gt=0"`
	Dedupe        bool          `mapstructure:"dedupe"`
}

type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce" validate:"gt=0"`
	DropdownLimit  int           `mapstructure:"dropdown_limit" validate:"gt=0"`
	MinQueryLength int           `mapstructure:"min_query_length" validate:"gte=1"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type MediaConfig struct {
	DefaultOpener string `mapstructure:"default_opener"`
	// Player handles trailer links when installed (mpv, vlc, iina, ...)
	Player string `mapstructure:"player"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit            string `mapstructure:"quit"`
	Search          string `mapstructure:"search"`
	ToggleWatchlist string `mapstructure:"toggle_watchlist"`
	Watchlist       string `mapstructure:"watchlist"`
	Trailer         string `mapstructure:"trailer"`
	NextTab         string `mapstructure:"next_tab"`
	Retry           string `mapstructure:"retry"`
	Back            string `mapstructure:"back"`
	Help            string `mapstructure:"help"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error off DEBUG INFO WARN WARNING ERROR OFF"`
	Path  string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Catalog: CatalogConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			Language:          "en-US",
			HTTPTimeout:       20 * time.Second,
			UserAgent:         "reel/1.0 (https://github.com/pders01/reel)",
			RequestsPerSecond: 20,
		},
		Database: DatabaseConfig{
			Driver:      "bolt",
			Path:        filepath.Join(homeDir, ".reel", "reel.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(homeDir, ".reel", "watchlist.bleve"),
			DetailsTTL:  24 * time.Hour,
		},
		Feed: FeedConfig{
			FetchTimeout:  15 * time.Second,
			ProximityRows: 5,
		},
		Search: SearchConfig{
			Debounce:       400 * time.Millisecond,
			DropdownLimit:  5,
			MinQueryLength: 1,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#E50914",
				Secondary:  "#4ECDC4",
				Accent:     "#F5C518",
				Background: "#141414",
				Surface:    "#1F1F1F",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#46D369",
			},
		},
		Media: MediaConfig{
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:            "q",
				Search:          "s",
				ToggleWatchlist: "a",
				Watchlist:       "w",
				Trailer:         "t",
				NextTab:         "tab",
				Retry:           "r",
				Back:            "esc",
				Help:            "?",
			},
		},
		Log: LogConfig{
			Level: "off",
			Path:  filepath.Join(homeDir, ".reel", "reel.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "reel")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("catalog.api_key", "REEL_API_KEY", "TMDB_API_KEY")
	_ = v.BindEnv("catalog.base_url", "REEL_BASE_URL")
	_ = v.BindEnv("database.path", "REEL_DB")
	_ = v.BindEnv("log.level", "REEL_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decode onto the defaults so a partial file only overrides what it names.
	config := defaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct constraints and normalizes the catalog base URL.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	urlValidator := validation.NewCatalogURLValidator()
	if c.Catalog.AllowInsecure {
		urlValidator = validation.NewPermissiveCatalogURLValidator()
	}
	base, err := urlValidator.ValidateAndNormalize(c.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid catalog.base_url: %w", err)
	}
	c.Catalog.BaseURL = base
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	path = validation.ExpandHome(path)

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// expandPaths expands all paths in the config
func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

// sections renders cfg as nested maps keyed by the mapstructure names, with
// durations as strings for TOML readability.
func sections(config *Config) map[string]interface{} {
	c := config.UI.Colors
	b := config.Keys.Bindings
	return map[string]interface{}{
		"catalog": map[string]interface{}{
			"base_url":            config.Catalog.BaseURL,
			"image_base_url":      config.Catalog.ImageBaseURL,
			"api_key":             config.Catalog.APIKey,
			"language":            config.Catalog.Language,
			"http_timeout":        config.Catalog.HTTPTimeout.String(),
			"user_agent":          config.Catalog.UserAgent,
			"requests_per_second": config.Catalog.RequestsPerSecond,
			"allow_insecure":      config.Catalog.AllowInsecure,
		},
		"database": map[string]interface{}{
			"driver":       config.Database.Driver,
			"path":         config.Database.Path,
			"timeout":      config.Database.Timeout.String(),
			"search_index": config.Database.SearchIndex,
			"details_ttl":  config.Database.DetailsTTL.String(),
		},
		"feed": map[string]interface{}{
			"fetch_timeout":  config.Feed.FetchTimeout.String(),
			"proximity_rows": config.Feed.ProximityRows,
			"dedupe":         config.Feed.Dedupe,
		},
		"search": map[string]interface{}{
			"debounce":         config.Search.Debounce.String(),
			"dropdown_limit":   config.Search.DropdownLimit,
			"min_query_length": config.Search.MinQueryLength,
		},
		"ui": map[string]interface{}{
			"colors": map[string]interface{}{
				"primary":    c.Primary,
				"secondary":  c.Secondary,
				"accent":     c.Accent,
				"background": c.Background,
				"surface":    c.Surface,
				"text":       c.Text,
				"muted":      c.Muted,
				"error":      c.Error,
				"success":    c.Success,
			},
		},
		"media": map[string]interface{}{
			"default_opener": config.Media.DefaultOpener,
			"player":         config.Media.Player,
		},
		"keys": map[string]interface{}{
			"modifier": config.Keys.Modifier,
			"bindings": map[string]interface{}{
				"quit":             b.Quit,
				"search":           b.Search,
				"toggle_watchlist": b.ToggleWatchlist,
				"watchlist":        b.Watchlist,
				"trailer":          b.Trailer,
				"next_tab":         b.NextTab,
				"retry":            b.Retry,
				"back":             b.Back,
				"help":             b.Help,
			},
		},
		"log": map[string]interface{}{
			"level": config.Log.Level,
			"path":  config.Log.Path,
		},
	}
}

func Save(config *Config, path string) error {
	v := viper.New()
	for key, section := range sections(config) {
		v.Set(key, section)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// DefaultPath is where GenerateDefaultConfig writes when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "reel", "config.toml")
}
