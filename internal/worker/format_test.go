package worker

import (
	"context"
	"strings"
	"testing"

	"github.com/example/offer-dispatch/internal/offer"
)

func TestRenderCaptionPriceAndLink(t *testing.T) {
	post := testPost()
	post.Price = 99.9
	post.DiscountPercent = 25

	caption := renderCaption(post, "https://go.example/r/p1?ch=chat")

	if !strings.Contains(caption, "R$ 99.90") {
		t.Fatalf("price not formatted to two decimals: %q", caption)
	}
	if !strings.Contains(caption, "(25% OFF)") {
		t.Fatalf("discount missing: %q", caption)
	}
	if !strings.Contains(caption, "https://go.example/r/p1?ch=chat") {
		t.Fatalf("link missing: %q", caption)
	}
	if !strings.Contains(caption, "MegaStore") {
		t.Fatalf("store name missing: %q", caption)
	}
}

func TestRenderCaptionUrgencyMarkers(t *testing.T) {
	cases := map[offer.Urgency]string{
		offer.UrgencyToday:     "🔥",
		offer.UrgencyLastUnits: "⚡",
		offer.UrgencyLimited:   "⏰",
		offer.UrgencyNormal:    "💰",
		offer.Urgency("???"):   "💰",
	}

	for urgency, emoji := range cases {
		post := testPost()
		post.Urgency = urgency
		caption := renderCaption(post, "https://x")
		if !strings.HasPrefix(caption, emoji) {
			t.Fatalf("urgency %s caption starts with %q, expected %q", urgency, caption[:4], emoji)
		}
	}
}

func TestSiteAdapterFormatsNoExternalCall(t *testing.T) {
	a := &SiteAdapter{}
	p, err := a.Format(testPost(), "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Meta["post_id"] != "p1" {
		t.Fatalf("site payload missing post id: %+v", p)
	}
}

func TestAdaptersReportMissingConfiguration(t *testing.T) {
	adapters := []Adapter{
		&ChatAdapter{},
		&SocialAdapter{},
		&GatewayAdapter{},
		&SiteAdapter{},
	}

	for _, a := range adapters {
		payload, err := a.Format(testPost(), "https://x")
		if err != nil {
			t.Fatalf("%s format failed: %v", a.Channel(), err)
		}
		if _, err := a.Send(context.Background(), payload); err == nil {
			t.Fatalf("%s adapter with no configuration should fail fast", a.Channel())
		}
	}
}
