package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/offer-dispatch/internal/offer"
)

const insertClick = `
INSERT INTO clicks (id, post_id, channel, referer, created_at)
VALUES ($1, $2, $3, $4, NOW())
`

// RecordClick appends one click-tracking row for the redirector. The source
// channel comes from the redirect URL's ch parameter.
func (s *Store) RecordClick(ctx context.Context, postID string, ch offer.Channel, referer string) error {
	if _, err := s.pool.Exec(ctx, insertClick, uuid.NewString(), postID, string(ch), referer); err != nil {
		return fmt.Errorf("record click for post %s: %w", postID, err)
	}
	return nil
}
