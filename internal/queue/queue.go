package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/example/offer-dispatch/internal/offer"
)

// Job is the unit of work created once per (post, channel) pair during
// fan-out. It lives only on the wire; attempts and backoff are worker-side
// bookkeeping.
type Job struct {
	PostID     string        `json:"post_id"`
	DraftID    string        `json:"draft_id"`
	Channel    offer.Channel `json:"channel"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// Client writes dispatch jobs to the per-channel topics. One instance is
// created at process start and shared; Close drains pending writes.
type Client struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

func NewClient(brokers []string, logger zerolog.Logger) *Client {
	return &Client{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.Hash{},
		},
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.writer.Close()
}

// Enqueue adds a single job to its channel's topic.
func (c *Client) Enqueue(ctx context.Context, job Job) error {
	msg, err := messageFor(job)
	if err != nil {
		return err
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s job for post %s: %w", job.Channel, job.PostID, err)
	}
	c.logger.Debug().Str("post_id", job.PostID).Str("channel", string(job.Channel)).Msg("job enqueued")
	return nil
}

// FanOut creates one job per channel in a single batched write, so the
// fan-out set lands all-or-nothing: a transient broker failure never leaves
// a post partially distributed.
func (c *Client) FanOut(ctx context.Context, postID, draftID string, channels []offer.Channel) ([]Job, error) {
	jobs, msgs, err := buildFanOut(postID, draftID, channels, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := c.writer.WriteMessages(ctx, msgs...); err != nil {
		return nil, fmt.Errorf("fan out post %s: %w", postID, err)
	}
	c.logger.Info().Str("post_id", postID).Int("channels", len(jobs)).Msg("post fanned out")
	return jobs, nil
}

func buildFanOut(postID, draftID string, channels []offer.Channel, now time.Time) ([]Job, []kafka.Message, error) {
	if postID == "" || draftID == "" {
		return nil, nil, fmt.Errorf("fan-out requires post and draft ids")
	}
	if len(channels) == 0 {
		return nil, nil, fmt.Errorf("fan-out requires at least one channel")
	}

	seen := make(map[offer.Channel]bool, len(channels))
	jobs := make([]Job, 0, len(channels))
	msgs := make([]kafka.Message, 0, len(channels))
	for _, ch := range channels {
		if !ch.Valid() {
			return nil, nil, fmt.Errorf("unknown channel %q", ch)
		}
		if seen[ch] {
			return nil, nil, fmt.Errorf("duplicate channel %q in fan-out set", ch)
		}
		seen[ch] = true

		job := Job{PostID: postID, DraftID: draftID, Channel: ch, EnqueuedAt: now}
		msg, err := messageFor(job)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, job)
		msgs = append(msgs, msg)
	}
	return jobs, msgs, nil
}

func messageFor(job Job) (kafka.Message, error) {
	topic := TopicFor(job.Channel)
	if topic == "" {
		return kafka.Message{}, fmt.Errorf("unknown channel %q", job.Channel)
	}
	value, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal job: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(job.PostID + ":" + string(job.Channel)),
		Value: value,
	}, nil
}

// TopicFor maps a channel to its dispatch topic. One topic per channel keeps
// per-channel FIFO while letting channels progress independently.
func TopicFor(ch offer.Channel) string {
	switch ch {
	case offer.ChannelChat:
		return "dispatch.chat"
	case offer.ChannelSocial:
		return "dispatch.social"
	case offer.ChannelGateway:
		return "dispatch.gateway"
	case offer.ChannelSite:
		return "dispatch.site"
	default:
		return ""
	}
}
