package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shadowScope/internal/model"
)

const (
	KindMetrics = "metrics"
	KindEvent   = "event"
	KindBridge  = "bridge"
)

// Record is one line of the archive.
type Record struct {
	Kind       string          `json:"kind"`
	SessionID  string          `json:"session_id,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
	Data       json.RawMessage `json:"data"`
}

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path      string
	sessionID string
	now       func() time.Time
	mu        sync.Mutex
}

func NewJsonlStorage(path, sessionID string) *JsonlStorage {
	return &JsonlStorage{path: path, sessionID: sessionID, now: time.Now}
}

func (s *JsonlStorage) PutMetricsSnapshot(_ context.Context, snap model.MetricsSnapshot) error {
	return s.append(KindMetrics, []any{snap})
}

func (s *JsonlStorage) PutEvents(_ context.Context, events []model.NetworkEvent) error {
	items := make([]any, len(events))
	for i := range events {
		items[i] = events[i]
	}
	return s.append(KindEvent, items)
}

func (s *JsonlStorage) PutBridgeDeposit(_ context.Context, dep model.BridgeDeposit) error {
	return s.append(KindBridge, []any{dep})
}

func (s *JsonlStorage) append(kind string, items []any) error {
	if len(items) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	now := s.now().UTC()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", kind, err)
		}
		line, err := json.Marshal(Record{Kind: kind, SessionID: s.sessionID, RecordedAt: now, Data: data})
		if err != nil {
			return fmt.Errorf("marshal %s envelope: %w", kind, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
