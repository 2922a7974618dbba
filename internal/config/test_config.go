package config

import "time"

// TestConfig returns a config suitable for testing: short timers, permissive
// catalog URL and an in-memory-ish database path the caller overrides.
func TestConfig() *Config {
	d := defaultConfig()
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:           "http://127.0.0.1",
			APIKey:            "test-key",
			Language:          "en-US",
			HTTPTimeout:       5 * time.Second,
			UserAgent:         "reel-test/1.0",
			RequestsPerSecond: 1000,
			AllowInsecure:     true,
		},
		Database: DatabaseConfig{
			Driver:     "bolt",
			Path:       ":memory:",
			Timeout:    1 * time.Second,
			DetailsTTL: time.Hour,
		},
		Feed: FeedConfig{
			FetchTimeout:  2 * time.Second,
			ProximityRows: 3,
		},
		Search: SearchConfig{
			Debounce:       20 * time.Millisecond,
			DropdownLimit:  5,
			MinQueryLength: 1,
		},
		UI:    d.UI,
		Media: d.Media,
		Keys:  d.Keys,
		Log:   LogConfig{Level: "off"},
	}
}
