package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowScope/internal/endpoint"
	"shadowScope/internal/feed"
	"shadowScope/internal/metricsync"
)

func watchFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.String("api-url", "", "")
	fs.String("api-host", "", "")
	fs.String("api-port", "", "")
	fs.String("ws-url", "", "")
	fs.Duration("poll-interval", metricsync.DefaultPollInterval, "")
	fs.String("slot-policy", "seed-once", "")
	fs.String("events-source", "auto", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", watchFlags(t), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, endpoint.DefaultHTTPBase, cfg.Node.Endpoints.HTTPBase)
	assert.Equal(t, endpoint.DefaultStreamBase, cfg.Node.Endpoints.StreamBase)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, metricsync.SeedOnce, cfg.SlotPolicy)
	assert.Equal(t, feed.ModeAuto, cfg.EventsSource)
	assert.Equal(t, feed.DefaultSynthInterval, cfg.SynthInterval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFlagsOverrideLegacyEnv(t *testing.T) {
	environ := map[string]string{
		"REACT_APP_API_HOST":    "node.internal",
		"REACT_APP_API_PORT":    "9000",
		"REACT_APP_API_WS_PORT": "9001",
	}

	cfg, err := load("", watchFlags(t), environ)
	require.NoError(t, err)
	assert.Equal(t, "http://node.internal:9000", cfg.Node.Endpoints.HTTPBase)
	assert.Equal(t, "9001", cfg.Node.Input.WSPort)
	assert.Equal(t, "ws://node.internal:9001", cfg.Node.Endpoints.StreamBase)

	cfg, err = load("", watchFlags(t, "--api-url", "https://rpc.example.org/", "--slot-policy", "reseed", "--poll-interval", "500ms"), environ)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.org", cfg.Node.Endpoints.HTTPBase)
	assert.Equal(t, "wss://rpc.example.org:9001", cfg.Node.Endpoints.StreamBase)
	assert.Equal(t, metricsync.Reseed, cfg.SlotPolicy)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("SHADOWSCOPE_EVENTS_SOURCE", "synthesized")
	t.Setenv("SHADOWSCOPE_API_URL", "http://10.0.0.5:8899")

	cfg, err := load("", watchFlags(t), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, feed.ModeSynthesized, cfg.EventsSource)
	assert.Equal(t, "http://10.0.0.5:8899", cfg.Node.Endpoints.HTTPBase)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadowscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick-interval: 750ms\nevents-shown: 25\nout: ./data/watch.jsonl\n"), 0o644))

	cfg, err := load(path, watchFlags(t), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 25, cfg.EventsShown)
	assert.Equal(t, "./data/watch.jsonl", cfg.Out)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := load("", watchFlags(t, "--slot-policy", "sometimes"), map[string]string{})
	require.Error(t, err)

	_, err = load("", watchFlags(t, "--events-source", "radio"), map[string]string{})
	require.Error(t, err)

	_, err = load("", watchFlags(t, "--poll-interval", "0s"), map[string]string{})
	require.Error(t, err)

	_, err = load(filepath.Join(t.TempDir(), "missing.yaml"), watchFlags(t), map[string]string{})
	require.Error(t, err)
}

func TestLegacyEndpointConfigPrefersWSPort(t *testing.T) {
	cfg, err := LegacyEndpointConfig(map[string]string{
		"REACT_APP_WS_PORT":     "7000",
		"REACT_APP_API_WS_PORT": "7001",
		"REACT_APP_WS_PROTOCOL": "wss",
	})
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.WSPort)
	assert.Equal(t, "wss", cfg.WSProtocol)
}

func TestLoadBridge(t *testing.T) {
	fs := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	fs.String("state-file", "", "")
	require.NoError(t, fs.Parse([]string{"--state-file", "/tmp/state.json"}))

	cfg, err := loadBridge("", fs, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.StatsInterval)
	assert.Equal(t, "/tmp/state.json", cfg.StateFile)
}
