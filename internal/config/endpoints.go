package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"shadowScope/internal/endpoint"
)

// legacyEnv is the endpoint contract of the browser build. It is honored so
// one .env file serves both clients.
type legacyEnv struct {
	APIURL      string `env:"REACT_APP_API_URL"`
	APIHost     string `env:"REACT_APP_API_HOST"`
	APIPort     string `env:"REACT_APP_API_PORT"`
	APIProtocol string `env:"REACT_APP_API_PROTOCOL"`
	WSURL       string `env:"REACT_APP_WS_URL"`
	WSProtocol  string `env:"REACT_APP_WS_PROTOCOL"`
	WSPort      string `env:"REACT_APP_WS_PORT"`
	APIWSPort   string `env:"REACT_APP_API_WS_PORT"`
}

// NodeEndpoint is the resolved node address plus the inputs it came from.
type NodeEndpoint struct {
	Input     endpoint.Config
	Endpoints endpoint.Endpoints
}

// endpointKeys maps viper keys onto endpoint.Config fields.
var endpointKeys = []struct {
	key string
	set func(*endpoint.Config, string)
}{
	{"api-url", func(c *endpoint.Config, s string) { c.APIURL = s }},
	{"api-host", func(c *endpoint.Config, s string) { c.APIHost = s }},
	{"api-port", func(c *endpoint.Config, s string) { c.APIPort = s }},
	{"api-protocol", func(c *endpoint.Config, s string) { c.APIProtocol = s }},
	{"ws-url", func(c *endpoint.Config, s string) { c.WSURL = s }},
	{"ws-protocol", func(c *endpoint.Config, s string) { c.WSProtocol = s }},
	{"ws-port", func(c *endpoint.Config, s string) { c.WSPort = s }},
}

// LegacyEndpointConfig reads the REACT_APP_* variables from environ, or from
// the process environment when environ is nil.
func LegacyEndpointConfig(environ map[string]string) (endpoint.Config, error) {
	var legacy legacyEnv
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&legacy, opts); err != nil {
		return endpoint.Config{}, fmt.Errorf("parse endpoint env: %w", err)
	}

	wsPort := legacy.WSPort
	if wsPort == "" {
		wsPort = legacy.APIWSPort
	}
	return endpoint.Config{
		APIURL:      legacy.APIURL,
		APIHost:     legacy.APIHost,
		APIPort:     legacy.APIPort,
		APIProtocol: legacy.APIProtocol,
		WSURL:       legacy.WSURL,
		WSProtocol:  legacy.WSProtocol,
		WSPort:      wsPort,
	}, nil
}

// loadNodeEndpoint layers viper values (flags, SHADOWSCOPE_* env, config
// file) over the legacy variables and resolves the result once.
func loadNodeEndpoint(v *viper.Viper, environ map[string]string) (NodeEndpoint, error) {
	cfg, err := LegacyEndpointConfig(environ)
	if err != nil {
		return NodeEndpoint{}, err
	}
	for _, k := range endpointKeys {
		if value := v.GetString(k.key); value != "" {
			k.set(&cfg, value)
		}
	}
	return NodeEndpoint{Input: cfg, Endpoints: endpoint.Resolve(cfg, nil)}, nil
}
