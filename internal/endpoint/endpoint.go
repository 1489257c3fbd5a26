package endpoint

import (
	"net/url"
	"strings"
)

const (
	// DefaultHTTPBase is used when nothing else resolves to a usable address.
	DefaultHTTPBase = "http://127.0.0.1:8899"
	// DefaultStreamBase is the streaming counterpart of DefaultHTTPBase.
	DefaultStreamBase = "ws://127.0.0.1:8899"

	defaultHost = "127.0.0.1"
	defaultPort = "8899"
)

// Config holds the optional address overrides. Empty values are treated as unset.
type Config struct {
	APIURL      string
	APIHost     string
	APIPort     string
	APIProtocol string

	WSURL      string
	WSProtocol string
	WSPort     string
}

// Origin is the runtime origin of the hosting page, when there is one.
type Origin struct {
	Protocol string
	Hostname string
}

// Endpoints holds the resolved base addresses. It is immutable once built.
type Endpoints struct {
	HTTPBase   string
	StreamBase string
}

// Resolve derives the HTTP and streaming bases. It never fails: anything that
// cannot be turned into an absolute address falls back to the defaults.
func Resolve(cfg Config, origin *Origin) Endpoints {
	apiURL := trim(cfg.APIURL)
	apiHost := trim(cfg.APIHost)
	apiPort := trim(cfg.APIPort)
	apiProtocol := normalizeScheme(cfg.APIProtocol, "http", "https")

	protocol := apiProtocol
	if protocol == "" {
		protocol = originScheme(origin)
	}
	host := apiHost
	if host == "" && origin != nil {
		host = trim(origin.Hostname)
	}
	if host == "" {
		host = defaultHost
	}
	port := apiPort
	if port == "" {
		port = defaultPort
	}

	httpBase := stripTrailingSlash(apiURL)
	if httpBase == "" {
		httpBase = buildURL(protocol, host, port)
	}
	if !isAbsolute(httpBase, "http", "https") {
		httpBase = DefaultHTTPBase
	}

	streamBase := stripTrailingSlash(trim(cfg.WSURL))
	wsProtocol := normalizeScheme(cfg.WSProtocol, "ws", "wss")
	wsPort := trim(cfg.WSPort)
	switch {
	case streamBase != "":
	case wsProtocol != "" || wsPort != "":
		streamBase = composeStream(httpBase, wsProtocol, wsPort)
	default:
		streamBase = deriveStream(httpBase)
	}
	if !isAbsolute(streamBase, "ws", "wss") {
		streamBase = DefaultStreamBase
	}

	return Endpoints{HTTPBase: httpBase, StreamBase: streamBase}
}

// API joins path onto the HTTP base.
func (e Endpoints) API(path string) string {
	return e.HTTPBase + NormalizePath(path)
}

// Stream joins path onto the streaming base.
func (e Endpoints) Stream(path string) string {
	return e.StreamBase + NormalizePath(path)
}

// NormalizePath returns path with exactly one leading slash.
func NormalizePath(path string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

func deriveStream(httpBase string) string {
	switch {
	case strings.HasPrefix(httpBase, "https://"):
		return "wss://" + strings.TrimPrefix(httpBase, "https://")
	case strings.HasPrefix(httpBase, "http://"):
		return "ws://" + strings.TrimPrefix(httpBase, "http://")
	default:
		return ""
	}
}

// composeStream builds a stream base on the host of httpBase. Missing protocol
// and port follow httpBase.
func composeStream(httpBase, protocol, port string) string {
	u, err := url.Parse(httpBase)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if protocol == "" {
		protocol = "ws"
		if strings.EqualFold(u.Scheme, "https") {
			protocol = "wss"
		}
	}
	if port == "" {
		port = u.Port()
	}
	return buildURL(protocol, u.Hostname(), port)
}

func buildURL(scheme, host, port string) string {
	if port == "" || port == "0" {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + port
}

func originScheme(origin *Origin) string {
	if origin != nil && normalizeScheme(origin.Protocol, "https") == "https" {
		return "https"
	}
	return "http"
}

// normalizeScheme accepts "https", "https:" and "https://" forms and returns the
// bare lower-case scheme when it is one of allowed.
func normalizeScheme(value string, allowed ...string) string {
	value = strings.ToLower(trim(value))
	value = strings.TrimSuffix(value, "//")
	value = strings.TrimSuffix(value, ":")
	for _, scheme := range allowed {
		if value == scheme {
			return scheme
		}
	}
	return ""
}

func isAbsolute(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, scheme := range schemes {
		if strings.EqualFold(u.Scheme, scheme) {
			return true
		}
	}
	return false
}

func stripTrailingSlash(value string) string {
	return strings.TrimRight(value, "/")
}

func trim(value string) string {
	return strings.TrimSpace(value)
}
