package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shadowScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS metrics_snapshots (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	displayed_slot BIGINT NOT NULL,
	fetched_slot BIGINT NOT NULL,
	epoch BIGINT NOT NULL,
	tps DOUBLE PRECISION NOT NULL,
	stale BOOLEAN NOT NULL,
	metrics JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS network_events (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	slot BIGINT,
	hash TEXT,
	leader TEXT,
	received_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS bridge_deposits (
	bridge_id TEXT PRIMARY KEY,
	depositor TEXT NOT NULL,
	amount NUMERIC(20,0) NOT NULL,
	status TEXT NOT NULL,
	status_detail JSONB NOT NULL,
	mixing_hops_completed INTEGER NOT NULL,
	total_hops INTEGER NOT NULL,
	privacy_score DOUBLE PRECISION NOT NULL,
	withdrawal_address TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store records reconciled values in Postgres.
type Store struct {
	pool      *pgxpool.Pool
	sessionID string
}

func NewStore(ctx context.Context, dsn, sessionID string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, sessionID: sessionID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const (
	insertMetricsSQL = `
		INSERT INTO metrics_snapshots (
			session_id, displayed_slot, fetched_slot, epoch, tps, stale, metrics, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	insertEventSQL = `
		INSERT INTO network_events (
			session_id, event_type, slot, hash, leader, received_at, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	upsertDepositSQL = `
		INSERT INTO bridge_deposits (
			bridge_id, depositor, amount, status, status_detail, mixing_hops_completed,
			total_hops, privacy_score, withdrawal_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (bridge_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			status_detail = EXCLUDED.status_detail,
			mixing_hops_completed = EXCLUDED.mixing_hops_completed,
			total_hops = EXCLUDED.total_hops,
			privacy_score = EXCLUDED.privacy_score,
			withdrawal_address = COALESCE(EXCLUDED.withdrawal_address, bridge_deposits.withdrawal_address),
			updated_at = now()
	`
)

func (s *Store) PutMetricsSnapshot(ctx context.Context, snap model.MetricsSnapshot) error {
	args, err := metricsArgs(s.sessionID, snap)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, insertMetricsSQL, args...)
	return err
}

func (s *Store) PutEvents(ctx context.Context, events []model.NetworkEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		args, err := eventArgs(s.sessionID, ev)
		if err != nil {
			return err
		}
		batch.Queue(insertEventSQL, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutBridgeDeposit inserts or replaces the whole record of a deposit.
func (s *Store) PutBridgeDeposit(ctx context.Context, dep model.BridgeDeposit) error {
	args, err := depositArgs(dep)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertDepositSQL, args...)
	return err
}

func metricsArgs(sessionID string, snap model.MetricsSnapshot) ([]any, error) {
	metrics, err := json.Marshal(snap.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	return []any{
		sessionID,
		int64(snap.Metrics.Slot),
		int64(snap.FetchedSlot),
		int64(snap.Metrics.Epoch),
		snap.Metrics.TPS,
		snap.Stale,
		metrics,
	}, nil
}

func eventArgs(sessionID string, ev model.NetworkEvent) ([]any, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	var slot *int64
	if ev.Slot != nil {
		v := int64(*ev.Slot)
		slot = &v
	}
	return []any{sessionID, ev.Type, slot, ev.Hash, ev.Leader, ev.ReceivedAt, payload}, nil
}

// depositArgs orders the upsert arguments. The amount travels as a decimal
// string so NUMERIC(20,0) holds the full uint64 range.
func depositArgs(dep model.BridgeDeposit) ([]any, error) {
	if dep.BridgeID == "" {
		return nil, fmt.Errorf("bridge id required")
	}
	detail, err := json.Marshal(dep.Status)
	if err != nil {
		return nil, fmt.Errorf("marshal bridge status: %w", err)
	}
	return []any{
		dep.BridgeID,
		dep.Depositor,
		strconv.FormatUint(dep.Amount, 10),
		dep.Status.Kind.String(),
		detail,
		int32(dep.MixingHopsCompleted),
		int32(dep.TotalHops),
		dep.PrivacyScore,
		dep.WithdrawalAddress,
	}, nil
}
