package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/offer-dispatch/internal/offer"
)

// GatewayAdapter sends offers through the messaging-gateway API (group
// broadcasts). The gateway enforces stricter rate limits than the other
// channels, which is why its worker runs with lower concurrency.
type GatewayAdapter struct {
	Endpoint string
	APIKey   string
	GroupID  string
	Client   *http.Client
}

func (a *GatewayAdapter) Channel() offer.Channel { return offer.ChannelGateway }

func (a *GatewayAdapter) Format(post offer.Post, link string) (Payload, error) {
	return Payload{Text: renderCaption(post, link)}, nil
}

func (a *GatewayAdapter) Send(ctx context.Context, p Payload) (string, error) {
	if a.Endpoint == "" || a.APIKey == "" {
		return "", offer.NewConfigError(offer.ChannelGateway, "gateway endpoint or api key")
	}

	body, err := json.Marshal(map[string]any{
		"to":   a.GroupID,
		"body": p.Text,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.APIKey)

	resp, err := a.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", &offer.AdapterError{Channel: offer.ChannelGateway, Status: resp.StatusCode, Message: "message rejected"}
	}

	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	return out.MessageID, nil
}

func (a *GatewayAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
