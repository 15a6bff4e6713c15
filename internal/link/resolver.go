package link

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/offer-dispatch/internal/offer"
)

// Mode selects how the outbound URL for an offer/channel pair is produced.
// The mode is external configuration, never a per-message decision.
type Mode string

const (
	// ModeDirectPaste uses the manually supplied affiliate URL verbatim.
	ModeDirectPaste Mode = "DIRECT_PASTE"
	// ModeTemplateAppend composes the URL from a per-provider template.
	ModeTemplateAppend Mode = "TEMPLATE_APPEND"
	// ModeRedirector emits the internal click-tracking redirect endpoint.
	ModeRedirector Mode = "REDIRECTOR"
)

type Rule struct {
	Mode     Mode
	Template string
}

// RuleSource supplies the configured rule for a (provider, channel) pair.
// ok is false when no rule is configured, in which case the resolver falls
// back to the redirector.
type RuleSource interface {
	LinkRule(ctx context.Context, storeName string, ch offer.Channel) (Rule, bool, error)
}

// Resolver produces the one authoritative outbound URL per post, per
// channel. Workers never invent or guess links.
type Resolver struct {
	Rules        RuleSource
	RedirectBase string
}

func (r *Resolver) Resolve(ctx context.Context, post offer.Post, ch offer.Channel) (string, error) {
	rule := Rule{Mode: ModeRedirector}
	if r.Rules != nil {
		configured, ok, err := r.Rules.LinkRule(ctx, post.StoreName, ch)
		if err != nil {
			return "", fmt.Errorf("link rule for (%s, %s): %w", post.StoreName, ch, err)
		}
		if ok {
			rule = configured
		}
	}

	switch rule.Mode {
	case ModeDirectPaste:
		if post.AffiliateURL == "" {
			return "", fmt.Errorf("post %s has no affiliate url for direct-paste link", post.ID)
		}
		return post.AffiliateURL, nil
	case ModeTemplateAppend:
		if rule.Template == "" {
			return "", fmt.Errorf("empty link template for (%s, %s)", post.StoreName, ch)
		}
		out := strings.ReplaceAll(rule.Template, "{id}", url.QueryEscape(post.ID))
		out = strings.ReplaceAll(out, "{channel}", string(ch))
		return out, nil
	case ModeRedirector:
		return r.redirectURL(post.ID, ch), nil
	default:
		return "", fmt.Errorf("unknown link mode %q for (%s, %s)", rule.Mode, post.StoreName, ch)
	}
}

func (r *Resolver) redirectURL(postID string, ch offer.Channel) string {
	base := strings.TrimRight(r.RedirectBase, "/")
	return fmt.Sprintf("%s/r/%s?ch=%s", base, url.PathEscape(postID), ch)
}
