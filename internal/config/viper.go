package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read through viper.
const EnvPrefix = "SHADOWSCOPE"

// Common holds the settings every command shares.
type Common struct {
	Node       NodeEndpoint
	Timeout    time.Duration
	LogLevel   string
	LogFile    string
	LogMaxSize int
}

// newViper merges a config file, SHADOWSCOPE_* environment variables and
// flags, applying defaults first.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

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
		v.SetConfigName("shadowscope")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper, environ map[string]string) (Common, error) {
	node, err := loadNodeEndpoint(v, environ)
	if err != nil {
		return Common{}, err
	}
	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		return Common{}, fmt.Errorf("timeout must be positive")
	}
	return Common{
		Node:       node,
		Timeout:    timeout,
		LogLevel:   v.GetString("log-level"),
		LogFile:    v.GetString("log-file"),
		LogMaxSize: v.GetInt("log-max-size"),
	}, nil
}

func positive(v *viper.Viper, key string) (time.Duration, error) {
	d := v.GetDuration(key)
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
