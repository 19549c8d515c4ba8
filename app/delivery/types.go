// Package delivery hands newly discovered candidates to downstream
// consumers. A delivery is a batch: all new candidates from one source
// run, identified so consumers can dedup redeliveries.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"archscout/app/adapters"
)

type Batch struct {
	ID          string                `json:"id"`
	SourceID    string                `json:"source_id"`
	DeliveredAt time.Time             `json:"delivered_at"`
	Candidates  []*adapters.Candidate `json:"candidates"`
}

func NewBatch(sourceID string, candidates []*adapters.Candidate) *Batch {
	return &Batch{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		DeliveredAt: time.Now().UTC(),
		Candidates:  candidates,
	}
}

type Deliverer interface {
	Deliver(ctx context.Context, batch *Batch) error
}

// Multi fans a batch out to several deliverers. The first failure
// aborts; persistence already happened upstream, so a redelivery after
// a crash only repeats a batch, never invents one.
type Multi []Deliverer

var _ Deliverer = Multi(nil)

func (m Multi) Deliver(ctx context.Context, batch *Batch) error {
	for _, d := range m {
		if err := d.Deliver(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}
