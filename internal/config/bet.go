package config

import (
	"time"

	"github.com/spf13/pflag"
)

// BetConfig holds configuration for the bet command.
type BetConfig struct {
	ServerURL       string
	RPCURL          string
	PoolAddress     string
	TokenAddress    string
	PrivateKey      string
	Name            string
	Amount          int64
	Choice          string
	SessionFile     string
	PollInterval    time.Duration
	ReceiptInterval time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadBet merges config file, environment variables, and flags into BetConfig.
func LoadBet(cfgFile string, flags *pflag.FlagSet) (BetConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return BetConfig{}, err
	}

	v.SetDefault("server-url", "http://localhost:8080")
	v.SetDefault("session-file", "./data/session.json")
	v.SetDefault("poll-interval", 3*time.Second)
	v.SetDefault("receipt-interval", 2*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	cfg := BetConfig{
		ServerURL:       v.GetString("server-url"),
		RPCURL:          v.GetString("rpc"),
		PoolAddress:     v.GetString("pool-address"),
		TokenAddress:    v.GetString("token-address"),
		PrivateKey:      v.GetString("private-key"),
		Name:            v.GetString("name"),
		Amount:          v.GetInt64("amount"),
		Choice:          v.GetString("choice"),
		SessionFile:     v.GetString("session-file"),
		PollInterval:    v.GetDuration("poll-interval"),
		ReceiptInterval: v.GetDuration("receipt-interval"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
