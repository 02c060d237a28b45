package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RelayConfig holds configuration for the relay command.
type RelayConfig struct {
	RPCURL          string
	PoolAddress     string
	TokenAddress    string
	CustodyKey      string
	Listen          string
	PollInterval    time.Duration
	ReceiptInterval time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadRelay merges config file, environment variables, and flags into RelayConfig.
func LoadRelay(cfgFile string, flags *pflag.FlagSet) (RelayConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return RelayConfig{}, err
	}

	v.SetDefault("listen", ":8080")
	v.SetDefault("poll-interval", 3*time.Second)
	v.SetDefault("receipt-interval", 2*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	cfg := RelayConfig{
		RPCURL:          v.GetString("rpc"),
		PoolAddress:     v.GetString("pool-address"),
		TokenAddress:    v.GetString("token-address"),
		CustodyKey:      v.GetString("custody-key"),
		Listen:          v.GetString("listen"),
		PollInterval:    v.GetDuration("poll-interval"),
		ReceiptInterval: v.GetDuration("receipt-interval"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MEPFLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
