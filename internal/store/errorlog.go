package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/example/offer-dispatch/internal/offer"
)

const insertErrorLog = `
INSERT INTO error_logs (id, draft_id, error_type, message, post_id, channel, resolved, created_at)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
`

const selectUnresolvedError = `
SELECT draft_id FROM error_logs WHERE id = $1 AND resolved = FALSE
`

const resolveError = `
UPDATE error_logs SET resolved = TRUE WHERE id = $1
`

const resetDraftPending = `
UPDATE drafts SET status = 'PENDING', updated_at = NOW() WHERE id = $1
`

// AppendErrorLog writes one triage row. Rows are append-only; workers never
// touch them again after insertion.
func (s *Store) AppendErrorLog(ctx context.Context, entry offer.ErrorLog) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, insertErrorLog,
		id,
		entry.DraftID,
		entry.ErrorType,
		entry.Message,
		entry.PostID,
		string(entry.Channel),
	)
	if err != nil {
		return "", fmt.Errorf("append error log for draft %s: %w", entry.DraftID, err)
	}
	return id, nil
}

// RetryFromError is the operator's triage action: marks the log row resolved
// and sends the originating draft back to PENDING, re-entering the pipeline
// upstream of fan-out. Both writes happen in one transaction.
func (s *Store) RetryFromError(ctx context.Context, errorLogID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin retry tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var draftID string
	if err := tx.QueryRow(ctx, selectUnresolvedError, errorLogID).Scan(&draftID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("error log %s: %w", errorLogID, offer.ErrErrorLogNotFound)
		}
		return fmt.Errorf("fetch error log %s: %w", errorLogID, err)
	}
	if _, err := tx.Exec(ctx, resolveError, errorLogID); err != nil {
		return fmt.Errorf("resolve error log %s: %w", errorLogID, err)
	}
	if _, err := tx.Exec(ctx, resetDraftPending, draftID); err != nil {
		return fmt.Errorf("reset draft %s: %w", draftID, err)
	}
	return tx.Commit(ctx)
}
