package link

import (
	"context"
	"testing"

	"github.com/example/offer-dispatch/internal/offer"
)

type ruleMap map[string]Rule

func (r ruleMap) LinkRule(_ context.Context, storeName string, ch offer.Channel) (Rule, bool, error) {
	rule, ok := r[storeName+":"+string(ch)]
	return rule, ok, nil
}

func testPost() offer.Post {
	return offer.Post{
		ID:           "p1",
		StoreName:    "MegaStore",
		AffiliateURL: "https://loja.example/item?aff=42",
	}
}

func TestResolveDirectPaste(t *testing.T) {
	r := &Resolver{
		Rules:        ruleMap{"MegaStore:chat": {Mode: ModeDirectPaste}},
		RedirectBase: "https://go.example",
	}

	url, err := r.Resolve(context.Background(), testPost(), offer.ChannelChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://loja.example/item?aff=42" {
		t.Fatalf("direct paste should use the affiliate url verbatim, got %q", url)
	}
}

func TestResolveDirectPasteRequiresURL(t *testing.T) {
	r := &Resolver{Rules: ruleMap{"MegaStore:chat": {Mode: ModeDirectPaste}}}
	post := testPost()
	post.AffiliateURL = ""

	if _, err := r.Resolve(context.Background(), post, offer.ChannelChat); err == nil {
		t.Fatalf("expected error for missing affiliate url")
	}
}

func TestResolveTemplateAppend(t *testing.T) {
	r := &Resolver{
		Rules: ruleMap{"MegaStore:social": {
			Mode:     ModeTemplateAppend,
			Template: "https://aff.example/go?offer={id}&src={channel}",
		}},
	}

	url, err := r.Resolve(context.Background(), testPost(), offer.ChannelSocial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://aff.example/go?offer=p1&src=social" {
		t.Fatalf("template not filled: %q", url)
	}
}

func TestResolveRedirector(t *testing.T) {
	r := &Resolver{
		Rules:        ruleMap{"MegaStore:chat": {Mode: ModeRedirector}},
		RedirectBase: "https://go.example/",
	}

	url, err := r.Resolve(context.Background(), testPost(), offer.ChannelChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://go.example/r/p1?ch=chat" {
		t.Fatalf("unexpected redirect url: %q", url)
	}
}

func TestResolveDefaultsToRedirector(t *testing.T) {
	r := &Resolver{Rules: ruleMap{}, RedirectBase: "https://go.example"}

	url, err := r.Resolve(context.Background(), testPost(), offer.ChannelGateway)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://go.example/r/p1?ch=gateway" {
		t.Fatalf("missing rule should fall back to redirector, got %q", url)
	}
}

func TestResolveRejectsUnknownMode(t *testing.T) {
	r := &Resolver{Rules: ruleMap{"MegaStore:chat": {Mode: "GUESS"}}}

	if _, err := r.Resolve(context.Background(), testPost(), offer.ChannelChat); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
