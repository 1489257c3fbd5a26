package feed

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/crypto"

	"shadowScope/internal/model"
)

const (
	DefaultSynthInterval = 5 * time.Second
	synthValidators      = 21
)

// SynthSource invents one plausible block event per interval. It stands in
// for the push channel when the node does not offer one.
type SynthSource struct {
	interval time.Duration
	faker    *gofakeit.Faker
	slot     uint64
}

func NewSynthSource(interval time.Duration, seed uint64, startSlot uint64) *SynthSource {
	if interval <= 0 {
		interval = DefaultSynthInterval
	}
	return &SynthSource{
		interval: interval,
		faker:    gofakeit.New(seed),
		slot:     startSlot,
	}
}

func (s *SynthSource) Kind() SourceKind { return Synthesized }

func (s *SynthSource) Run(ctx context.Context, emit func(model.NetworkEvent)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			emit(s.Next())
		}
	}
}

// Next advances the synthetic slot and returns the event for it. Run is the
// only caller once the source is started.
func (s *SynthSource) Next() model.NetworkEvent {
	s.slot += uint64(s.faker.IntRange(1, 4))

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], s.slot)

	slot := s.slot
	txs := uint64(s.faker.IntRange(0, 50))
	shielded := uint64(s.faker.IntRange(0, int(txs)))
	finalized := s.faker.Bool()
	return model.NetworkEvent{
		Type:         "block",
		Slot:         &slot,
		Hash:         crypto.Keccak256Hash(buf[:]).Hex(),
		Leader:       fmt.Sprintf("Validator-%02d", s.faker.IntRange(1, synthValidators)),
		Transactions: &txs,
		ShieldedTxs:  &shielded,
		Finalized:    &finalized,
	}
}
