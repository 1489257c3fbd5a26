package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"shadowScope/internal/feed"
	"shadowScope/internal/metricsync"
)

// WatchConfig configures the dashboard session.
type WatchConfig struct {
	Common

	PollInterval   time.Duration
	TickInterval   time.Duration
	SlotPolicy     metricsync.SlotPolicy
	EventsSource   feed.Mode
	SynthInterval  time.Duration
	SynthSeed      uint64
	RenderInterval time.Duration
	EventsShown    int
	HealthAttempts uint

	Out          string
	PGDSN        string
	AMQPURL      string
	AMQPExchange string
	MetricsAddr  string
}

// Load merges config file, environment variables, and flags into WatchConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	return load(cfgFile, flags, nil)
}

func load(cfgFile string, flags *pflag.FlagSet, environ map[string]string) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"poll-interval":   metricsync.DefaultPollInterval,
		"tick-interval":   metricsync.DefaultTickInterval,
		"slot-policy":     string(metricsync.SeedOnce),
		"events-source":   string(feed.ModeAuto),
		"synth-interval":  feed.DefaultSynthInterval,
		"render-interval": time.Second,
		"events-shown":    10,
		"health-attempts": 5,
		"amqp-exchange":   "shadowscope",
	})
	if err != nil {
		return WatchConfig{}, err
	}

	common, err := loadCommon(v, environ)
	if err != nil {
		return WatchConfig{}, err
	}
	policy, err := metricsync.ParseSlotPolicy(v.GetString("slot-policy"))
	if err != nil {
		return WatchConfig{}, err
	}
	mode, err := feed.ParseMode(v.GetString("events-source"))
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		Common:         common,
		SlotPolicy:     policy,
		EventsSource:   mode,
		SynthSeed:      v.GetUint64("synth-seed"),
		EventsShown:    v.GetInt("events-shown"),
		HealthAttempts: v.GetUint("health-attempts"),
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		AMQPURL:        v.GetString("amqp-url"),
		AMQPExchange:   v.GetString("amqp-exchange"),
		MetricsAddr:    v.GetString("metrics-addr"),
	}
	for key, dst := range map[string]*time.Duration{
		"poll-interval":   &cfg.PollInterval,
		"tick-interval":   &cfg.TickInterval,
		"synth-interval":  &cfg.SynthInterval,
		"render-interval": &cfg.RenderInterval,
	} {
		if *dst, err = positive(v, key); err != nil {
			return WatchConfig{}, err
		}
	}
	if cfg.EventsShown < 0 || cfg.EventsShown > feed.Capacity {
		return WatchConfig{}, fmt.Errorf("events-shown must be between 0 and %d", feed.Capacity)
	}
	return cfg, nil
}
