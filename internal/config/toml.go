// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Race    RaceConfig    `toml:"race"`
	Network NetworkConfig `toml:"network"`
	Log     LogConfig     `toml:"log"`
}

// RaceConfig maps race-related settings.
type RaceConfig struct {
	TimeLimit *int    `toml:"time-limit"`
	Words     *int    `toml:"words"`
	Lang      *string `toml:"lang"`
	WordList  *string `toml:"wordlist"`
}

// NetworkConfig maps peer connection settings. Durations use Go syntax
// such as "30s" or "500ms".
type NetworkConfig struct {
	Port           *int      `toml:"port"`
	ConnectTimeout *Duration `toml:"connect-timeout"`
	ReadTimeout    *Duration `toml:"read-timeout"`
	SyncInterval   *Duration `toml:"sync-interval"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
