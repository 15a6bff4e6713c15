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

// ChatAdapter posts offers to the chat-bot API's broadcast channel.
type ChatAdapter struct {
	Endpoint string
	Token    string
	ChatID   string
	Client   *http.Client
}

func (a *ChatAdapter) Channel() offer.Channel { return offer.ChannelChat }

func (a *ChatAdapter) Format(post offer.Post, link string) (Payload, error) {
	return Payload{Text: renderCaption(post, link)}, nil
}

func (a *ChatAdapter) Send(ctx context.Context, p Payload) (string, error) {
	if a.Endpoint == "" || a.Token == "" {
		return "", offer.NewConfigError(offer.ChannelChat, "chat endpoint or token")
	}

	body, err := json.Marshal(map[string]any{
		"chat_id": a.ChatID,
		"text":    p.Text,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint+"/bot"+a.Token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("chat send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", &offer.AdapterError{Channel: offer.ChannelChat, Status: resp.StatusCode, Message: "sendMessage rejected"}
	}

	var out struct {
		Result struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return fmt.Sprintf("%d", out.Result.MessageID), nil
}

func (a *ChatAdapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}
