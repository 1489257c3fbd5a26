package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"shadowScope/internal/endpoint"
	"shadowScope/internal/model"
)

const (
	EventsPath              = "/events"
	defaultHandshakeTimeout = 10 * time.Second
)

// StreamSource reads events from the node's push channel.
type StreamSource struct {
	url    string
	dialer websocket.Dialer
	header http.Header
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

type StreamOption func(*StreamSource)

func WithStreamLogger(logger *zap.Logger) StreamOption {
	return func(s *StreamSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHandshakeTimeout(d time.Duration) StreamOption {
	return func(s *StreamSource) {
		if d > 0 {
			s.dialer.HandshakeTimeout = d
		}
	}
}

func WithHeader(header http.Header) StreamOption {
	return func(s *StreamSource) { s.header = header }
}

func NewStreamSource(endpoints endpoint.Endpoints, opts ...StreamOption) *StreamSource {
	s := &StreamSource{
		url:    endpoints.Stream(EventsPath),
		dialer: websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StreamSource) Kind() SourceKind { return Push }

func (s *StreamSource) URL() string { return s.url }

// Connect opens the channel ahead of Run. Run uses the connection opened here
// instead of dialing again.
func (s *StreamSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial event stream %s: %w", s.url, err)
	}
	s.conn = conn
	return nil
}

func (s *StreamSource) Run(ctx context.Context, emit func(model.NetworkEvent)) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-closed:
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event stream: %w", err)
		}

		var ev model.NetworkEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Debug("skip undecodable event frame", zap.Error(err))
			continue
		}
		if ev.Type == "" {
			s.logger.Debug("skip event frame without type", zap.ByteString("frame", data))
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		emit(ev)
	}
}

// Close releases a connection opened by Connect that Run never consumed.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
