package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlCollection holds the remote articles collection endpoints
type TomlCollection struct {
	Hosts     []string `toml:"hosts"`
	Compress  bool     `toml:"compress,omitempty"`
	UserAgent string   `toml:"user_agent,omitempty"`

	// Decode pool sizing; zero means the built-in defaults apply
	Workers   int `toml:"workers,omitempty"`
	QueueSize int `toml:"queue_size,omitempty"`
}

// TomlProxy holds the image proxy endpoint used by web clients
type TomlProxy struct {
	Base string `toml:"base"`
}

// TomlTheme represents one palette override
type TomlTheme struct {
	Base          string `toml:"base"`
	Accent        string `toml:"accent"`
	Text          string `toml:"text"`
	TextSecondary string `toml:"text_secondary"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Collection TomlCollection       `toml:"collection"`
	Proxy      TomlProxy            `toml:"proxy"`
	Themes     map[string]TomlTheme `toml:"themes"`
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if len(config.Collection.Hosts) == 0 {
		return nil, fmt.Errorf("config must list at least one collection host")
	}

	return &config, nil
}
