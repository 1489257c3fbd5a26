package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		origin     *Origin
		wantHTTP   string
		wantStream string
	}{
		{
			name:       "defaults without origin",
			wantHTTP:   "http://127.0.0.1:8899",
			wantStream: "ws://127.0.0.1:8899",
		},
		{
			name:       "explicit base url wins",
			cfg:        Config{APIURL: " https://node.example.com/// ", APIHost: "ignored", APIPort: "1"},
			origin:     &Origin{Protocol: "http:", Hostname: "page.example.com"},
			wantHTTP:   "https://node.example.com",
			wantStream: "wss://node.example.com",
		},
		{
			name:       "origin fills protocol and host",
			origin:     &Origin{Protocol: "https:", Hostname: "page.example.com"},
			wantHTTP:   "https://page.example.com:8899",
			wantStream: "wss://page.example.com:8899",
		},
		{
			name:       "explicit components beat origin",
			cfg:        Config{APIHost: "10.0.0.5", APIPort: "9000", APIProtocol: "http"},
			origin:     &Origin{Protocol: "https:", Hostname: "page.example.com"},
			wantHTTP:   "http://10.0.0.5:9000",
			wantStream: "ws://10.0.0.5:9000",
		},
		{
			name:       "port zero omitted",
			cfg:        Config{APIHost: "node", APIPort: "0", APIProtocol: "https://"},
			wantHTTP:   "https://node",
			wantStream: "wss://node",
		},
		{
			name:       "explicit stream override",
			cfg:        Config{APIURL: "http://node:8899", WSURL: "wss://stream.example.com/"},
			wantHTTP:   "http://node:8899",
			wantStream: "wss://stream.example.com",
		},
		{
			name:       "stream protocol and port overrides",
			cfg:        Config{APIHost: "node", WSProtocol: "wss", WSPort: "9001"},
			wantHTTP:   "http://node:8899",
			wantStream: "wss://node:9001",
		},
		{
			name:       "stream port alone keeps derived protocol",
			cfg:        Config{APIURL: "https://node.example.com", WSPort: "9443"},
			wantHTTP:   "https://node.example.com",
			wantStream: "wss://node.example.com:9443",
		},
		{
			name:       "stream protocol alone keeps api port",
			cfg:        Config{APIHost: "node", APIPort: "9000", WSProtocol: "wss:"},
			wantHTTP:   "http://node:9000",
			wantStream: "wss://node:9000",
		},
		{
			name:       "unusable base falls back",
			cfg:        Config{APIURL: "not a url"},
			wantHTTP:   DefaultHTTPBase,
			wantStream: DefaultStreamBase,
		},
		{
			name:       "unknown protocol ignored",
			cfg:        Config{APIHost: "node", APIProtocol: "gopher"},
			wantHTTP:   "http://node:8899",
			wantStream: "ws://node:8899",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.cfg, tt.origin)
			assert.Equal(t, tt.wantHTTP, got.HTTPBase)
			assert.Equal(t, tt.wantStream, got.StreamBase)
		})
	}
}

func TestEndpointsJoin(t *testing.T) {
	e := Endpoints{HTTPBase: "http://node:8899", StreamBase: "ws://node:8899"}

	assert.Equal(t, "http://node:8899/shadow/info", e.API("shadow/info"))
	assert.Equal(t, "http://node:8899/shadow/info", e.API("///shadow/info"))
	assert.Equal(t, "ws://node:8899/events", e.Stream("/events"))
	assert.Equal(t, "/", NormalizePath(""))
}
