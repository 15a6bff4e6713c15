package store

import (
	"context"
	"fmt"
	"time"

	"github.com/example/offer-dispatch/internal/offer"
)

// The upsert guard keeps the status machine monotonic: a record that already
// reached SENT is never demoted back to SENDING by a re-delivered job.
const upsertSending = `
INSERT INTO delivery_records (post_id, channel, status, retries, updated_at)
VALUES ($1, $2, 'SENDING', 0, NOW())
ON CONFLICT (post_id, channel) DO UPDATE
SET status = 'SENDING', error = NULL, updated_at = NOW()
WHERE delivery_records.status <> 'SENT'
`

const markSent = `
UPDATE delivery_records
SET status = 'SENT', sent_at = $3, external_id = $4, error = NULL, updated_at = NOW()
WHERE post_id = $1 AND channel = $2
`

const markError = `
UPDATE delivery_records
SET status = 'ERROR', error = $3, retries = retries + 1, updated_at = NOW()
WHERE post_id = $1 AND channel = $2 AND status <> 'SENT'
`

const selectDeliveries = `
SELECT post_id, channel, status, sent_at, external_id, error, retries, updated_at
FROM delivery_records
WHERE post_id = $1
ORDER BY channel
`

// MarkSending is the visible in-flight marker: creates the record on the
// first attempt, resets it back to SENDING on later ones.
func (s *Store) MarkSending(ctx context.Context, postID string, ch offer.Channel) error {
	if _, err := s.pool.Exec(ctx, upsertSending, postID, string(ch)); err != nil {
		return fmt.Errorf("mark (%s, %s) sending: %w", postID, ch, err)
	}
	return nil
}

func (s *Store) MarkSent(ctx context.Context, postID string, ch offer.Channel, externalID string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, markSent, postID, string(ch), at, externalID); err != nil {
		return fmt.Errorf("mark (%s, %s) sent: %w", postID, ch, err)
	}
	return nil
}

// MarkError records one failed attempt; the retries counter counts failures,
// incremented in SQL so re-delivered jobs never lose an increment.
func (s *Store) MarkError(ctx context.Context, postID string, ch offer.Channel, message string) error {
	if _, err := s.pool.Exec(ctx, markError, postID, string(ch), message); err != nil {
		return fmt.Errorf("mark (%s, %s) error: %w", postID, ch, err)
	}
	return nil
}

func (s *Store) ListDeliveries(ctx context.Context, postID string) ([]offer.DeliveryRecord, error) {
	rows, err := s.pool.Query(ctx, selectDeliveries, postID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for post %s: %w", postID, err)
	}
	defer rows.Close()

	var records []offer.DeliveryRecord
	for rows.Next() {
		var (
			rec        offer.DeliveryRecord
			channel    string
			status     string
			sentAt     *time.Time
			externalID *string
			errMsg     *string
		)
		if err := rows.Scan(&rec.PostID, &channel, &status, &sentAt, &externalID, &errMsg, &rec.Retries, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		rec.Channel = offer.Channel(channel)
		rec.Status = offer.DeliveryStatus(status)
		rec.SentAt = sentAt
		if externalID != nil {
			rec.ExternalID = *externalID
		}
		if errMsg != nil {
			rec.Error = *errMsg
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
