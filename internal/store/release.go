package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/offer-dispatch/internal/offer"
)

const selectChannelActivity = `
SELECT COUNT(*), MAX(sent_at)
FROM delivery_records
WHERE channel = $1 AND status = 'SENT' AND sent_at >= $2
`

// A post is pending for a channel while it targets the channel and no
// delivery record exists for the pair yet.
const selectNextPending = `
SELECT p.id, p.draft_id
FROM posts p
WHERE $1 = ANY(p.channels)
  AND NOT EXISTS (
    SELECT 1 FROM delivery_records d
    WHERE d.post_id = p.id AND d.channel = $1
  )
ORDER BY p.created_at
LIMIT 1
`

// ChannelActivity reports how many sends a channel completed since dayStart
// and when the last one happened.
func (s *Store) ChannelActivity(ctx context.Context, ch offer.Channel, dayStart time.Time) (int, *time.Time, error) {
	var (
		count    int
		lastSent *time.Time
	)
	err := s.pool.QueryRow(ctx, selectChannelActivity, string(ch), dayStart).Scan(&count, &lastSent)
	if err != nil {
		return 0, nil, fmt.Errorf("channel %s activity: %w", ch, err)
	}
	return count, lastSent, nil
}

// NextPending returns the oldest post still awaiting release on the channel.
// ok is false when the channel's backlog is empty.
func (s *Store) NextPending(ctx context.Context, ch offer.Channel) (postID, draftID string, ok bool, err error) {
	err = s.pool.QueryRow(ctx, selectNextPending, string(ch)).Scan(&postID, &draftID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("next pending for channel %s: %w", ch, err)
	}
	return postID, draftID, true, nil
}
