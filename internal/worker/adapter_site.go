package worker

import (
	"context"

	"github.com/example/offer-dispatch/internal/offer"
)

// SiteVisibility is the slice of the store the site adapter needs.
type SiteVisibility interface {
	SetSiteVisible(ctx context.Context, postID string) error
}

// SiteAdapter is the cheapest channel: publication is a local visibility
// flag flip, no external call and no external id.
type SiteAdapter struct {
	Store SiteVisibility
}

func (a *SiteAdapter) Channel() offer.Channel { return offer.ChannelSite }

func (a *SiteAdapter) Format(post offer.Post, _ string) (Payload, error) {
	return Payload{Meta: map[string]string{"post_id": post.ID}}, nil
}

func (a *SiteAdapter) Send(ctx context.Context, p Payload) (string, error) {
	if a.Store == nil {
		return "", offer.NewConfigError(offer.ChannelSite, "site store")
	}
	if err := a.Store.SetSiteVisible(ctx, p.Meta["post_id"]); err != nil {
		return "", err
	}
	return "", nil
}
