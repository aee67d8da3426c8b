package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvTimeLimit      = "TUIRACE_TIME_LIMIT"
	EnvWords          = "TUIRACE_WORDS"
	EnvPort           = "TUIRACE_PORT"
	EnvConnectTimeout = "TUIRACE_CONNECT_TIMEOUT"
	EnvLogLevel       = "TUIRACE_LOG_LEVEL"
)

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := envInt(lookup, EnvTimeLimit, &cfg.Race.TimeLimit); err != nil {
		return err
	}
	if err := envInt(lookup, EnvWords, &cfg.Race.Words); err != nil {
		return err
	}
	if err := envInt(lookup, EnvPort, &cfg.Network.Port); err != nil {
		return err
	}
	if v, ok := lookupNonEmpty(lookup, EnvConnectTimeout); ok {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvConnectTimeout, err)
		}
		cfg.Network.ConnectTimeout = &d
	}
	if v, ok := lookupNonEmpty(lookup, EnvLogLevel); ok {
		cfg.Log.Level = &v
	}
	return nil
}

func envInt(lookup func(string) (string, bool), name string, target **int) error {
	v, ok := lookupNonEmpty(lookup, name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*target = &n
	return nil
}

func lookupNonEmpty(lookup func(string) (string, bool), name string) (string, bool) {
	v, ok := lookup(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
