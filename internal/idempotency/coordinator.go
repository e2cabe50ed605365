package idempotency

import (
	"context"

	"github.com/google/uuid"

	"github.com/parchmail/parchmail/internal/metrics"
)

// Claimer is the ledger operation the coordinator needs.
type Claimer interface {
	TryClaim(ctx context.Context, userID uuid.UUID, key Key) (Work, *StoredResponse, error)
}

// Coordinator gates side-effecting request processing behind the ledger.
// For a fixed (user, key) the work block runs exactly once across any
// number of concurrent callers; every other caller gets the stored
// response of that one execution.
type Coordinator struct {
	ledger Claimer
}

func NewCoordinator(ledger Claimer) *Coordinator {
	return &Coordinator{ledger: ledger}
}

// TryProcessing returns either a Work handle (this caller must perform
// the side effects and finish with SaveResponse or Abort) or the response
// saved by the caller that already did. Duplicate submissions are a
// normal path, not an error.
func (c *Coordinator) TryProcessing(ctx context.Context, userID uuid.UUID, key Key) (Work, *StoredResponse, error) {
	work, saved, err := c.ledger.TryClaim(ctx, userID, key)
	if err != nil {
		return nil, nil, err
	}
	if saved != nil {
		metrics.RecordIdempotency("replayed")
		return nil, saved, nil
	}
	metrics.RecordIdempotency("fresh")
	return work, nil, nil
}
