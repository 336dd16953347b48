package sink

import (
	"context"

	"github.com/nerrad567/busdecode/internal/store"
)

// StoreSink writes records to the decode history. Records for ignored
// addresses are dropped.
type StoreSink struct {
	repo store.Repository
}

// NewStoreSink creates a sink over repo.
func NewStoreSink(repo store.Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Name implements Sink.
func (*StoreSink) Name() string { return "store" }

// Handle implements Sink.
func (s *StoreSink) Handle(ctx context.Context, rec Record) error {
	if rec.Ignored {
		return nil
	}
	return s.repo.Record(ctx, toTransaction(rec))
}

func toTransaction(rec Record) *store.Transaction {
	r := rec.Result
	return &store.Transaction{
		RunID:        rec.RunID,
		Seq:          rec.Seq,
		Address:      r.Address,
		Name:         r.Name,
		Direction:    r.Direction.String(),
		AddressAck:   r.AddressAck.String(),
		TrailingAck:  r.TrailingAck.String(),
		Register:     r.Register,
		RegisterName: r.RegisterName,
		Page:         r.Page,
		Format:       r.Format.String(),
		Value:        r.Value,
		Numeric:      r.Numeric,
		Raw:          r.Raw,
		Line:         r.Line,
		Condition:    string(r.Condition),
		CreatedAt:    rec.Time,
	}
}
