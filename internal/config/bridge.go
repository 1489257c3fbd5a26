package config

import (
	"time"

	"github.com/spf13/pflag"

	"shadowScope/internal/bridge"
)

// BridgeConfig configures the bridge commands.
type BridgeConfig struct {
	Common

	PollInterval  time.Duration
	StatsInterval time.Duration
	StateFile     string
	Out           string
	PGDSN         string
	MetricsAddr   string
}

// LoadBridge merges config file, environment variables, and flags into BridgeConfig.
func LoadBridge(cfgFile string, flags *pflag.FlagSet) (BridgeConfig, error) {
	return loadBridge(cfgFile, flags, nil)
}

func loadBridge(cfgFile string, flags *pflag.FlagSet, environ map[string]string) (BridgeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"poll-interval":  bridge.DefaultPollInterval,
		"stats-interval": bridge.DefaultStatsInterval,
		"state-file":     "./data/bridge_state.json",
	})
	if err != nil {
		return BridgeConfig{}, err
	}
	common, err := loadCommon(v, environ)
	if err != nil {
		return BridgeConfig{}, err
	}
	poll, err := positive(v, "poll-interval")
	if err != nil {
		return BridgeConfig{}, err
	}
	stats, err := positive(v, "stats-interval")
	if err != nil {
		return BridgeConfig{}, err
	}
	return BridgeConfig{
		Common:        common,
		PollInterval:  poll,
		StatsInterval: stats,
		StateFile:     v.GetString("state-file"),
		Out:           v.GetString("out"),
		PGDSN:         v.GetString("pg-dsn"),
		MetricsAddr:   v.GetString("metrics-addr"),
	}, nil
}

// LoadNode loads the settings of the one-shot node commands.
func LoadNode(cfgFile string, flags *pflag.FlagSet) (Common, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Common{}, err
	}
	return loadCommon(v, nil)
}
