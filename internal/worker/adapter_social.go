package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/offer-dispatch/internal/offer"
)

// SocialAdapter publishes offers to the social-graph API's page feed.
type SocialAdapter struct {
	Endpoint    string
	PageID      string
	AccessToken string
	Client      *http.Client
}

func (a *SocialAdapter) Channel() offer.Channel { return offer.ChannelSocial }

func (a *SocialAdapter) Format(post offer.Post, link string) (Payload, error) {
	return Payload{
		Text: renderCaption(post, link),
		Meta: map[string]string{"link": link},
	}, nil
}

func (a *SocialAdapter) Send(ctx context.Context, p Payload) (string, error) {
	if a.Endpoint == "" || a.PageID == "" || a.AccessToken == "" {
		return "", offer.NewConfigError(offer.ChannelSocial, "social endpoint, page id or access token")
	}

	form := url.Values{}
	form.Set("message", p.Text)
	if link := p.Meta["link"]; link != "" {
		form.Set("link", link)
	}
	form.Set("access_token", a.AccessToken)

	target := fmt.Sprintf("%s/%s/feed", strings.TrimRight(a.Endpoint, "/"), a.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("social send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", &offer.AdapterError{Channel: offer.ChannelSocial, Status: resp.StatusCode, Message: "feed publish rejected"}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode social response: %w", err)
	}
	if out.ID == "" {
		return "", &offer.AdapterError{Channel: offer.ChannelSocial, Message: "feed publish returned no id"}
	}
	return out.ID, nil
}

func (a *SocialAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
