package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/example/offer-dispatch/internal/offer"
)

const selectPost = `
SELECT id, draft_id, batch_id, title, copy, price, discount_percent, urgency, store_name, affiliate_url, created_at
FROM posts
WHERE id = $1
`

const setSiteVisible = `
UPDATE posts SET site_visible = TRUE, updated_at = NOW() WHERE id = $1
`

func (s *Store) GetPost(ctx context.Context, id string) (offer.Post, error) {
	var p offer.Post
	var urgency string
	err := s.pool.QueryRow(ctx, selectPost, id).Scan(
		&p.ID,
		&p.DraftID,
		&p.BatchID,
		&p.Title,
		&p.Copy,
		&p.Price,
		&p.DiscountPercent,
		&urgency,
		&p.StoreName,
		&p.AffiliateURL,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return offer.Post{}, fmt.Errorf("post %s: %w", id, offer.ErrPostNotFound)
		}
		return offer.Post{}, fmt.Errorf("fetch post %s: %w", id, err)
	}
	p.Urgency = offer.Urgency(urgency)
	return p, nil
}

// SetSiteVisible flips the publication flag read by the site renderer. This
// is the whole of the site channel's delivery.
func (s *Store) SetSiteVisible(ctx context.Context, postID string) error {
	tag, err := s.pool.Exec(ctx, setSiteVisible, postID)
	if err != nil {
		return fmt.Errorf("set post %s visible: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s: %w", postID, offer.ErrPostNotFound)
	}
	return nil
}
