package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/offer-dispatch/internal/offer"
)

// Counters are bumped in SQL, never read-modify-written: workers for several
// channels increment the same batch concurrently.
const incDispatched = `
UPDATE batches SET dispatched_count = dispatched_count + 1, updated_at = NOW() WHERE id = $1
`

const incError = `
UPDATE batches SET error_count = error_count + 1, updated_at = NOW() WHERE id = $1
`

const selectBatch = `
SELECT id, slot, pending_count, approved_count, dispatched_count, error_count, created_at
FROM batches
WHERE id = $1
`

func (s *Store) IncrementDispatched(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx, incDispatched, batchID)
	if err != nil {
		return fmt.Errorf("increment dispatched for batch %s: %w", batchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batchID, offer.ErrBatchNotFound)
	}
	return nil
}

func (s *Store) IncrementError(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx, incError, batchID)
	if err != nil {
		return fmt.Errorf("increment error for batch %s: %w", batchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batchID, offer.ErrBatchNotFound)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (offer.Batch, error) {
	var b offer.Batch
	err := s.pool.QueryRow(ctx, selectBatch, id).Scan(
		&b.ID,
		&b.Slot,
		&b.PendingCount,
		&b.ApprovedCount,
		&b.DispatchedCount,
		&b.ErrorCount,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return offer.Batch{}, fmt.Errorf("batch %s: %w", id, offer.ErrBatchNotFound)
		}
		return offer.Batch{}, fmt.Errorf("fetch batch %s: %w", id, err)
	}
	return b, nil
}
