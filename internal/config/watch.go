package config

import (
	"github.com/spf13/pflag"
)

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	ServerURL string
	LogLevel  string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}

	v.SetDefault("server-url", "http://localhost:8080")
	v.SetDefault("log-level", "info")

	cfg := WatchConfig{
		ServerURL: v.GetString("server-url"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}
