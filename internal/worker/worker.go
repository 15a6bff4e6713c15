package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
)

var (
	jobCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_jobs_total",
		Help: "Dispatch jobs processed, by channel and result",
	}, []string{"channel", "result"})
	deliveryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_delivery_duration_seconds",
		Help:    "Wall time from claim to terminal state per job",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
)

// Payload is the channel-native message body produced by an adapter's
// Format and consumed by the same adapter's Send.
type Payload struct {
	Text string
	Meta map[string]string
}

// Adapter is the per-channel capability the generic worker is
// parameterized by.
type Adapter interface {
	Channel() offer.Channel
	Format(post offer.Post, link string) (Payload, error)
	Send(ctx context.Context, p Payload) (externalID string, err error)
}

// DataStore is the slice of the relational store a worker touches.
type DataStore interface {
	GetPost(ctx context.Context, id string) (offer.Post, error)
	MarkSending(ctx context.Context, postID string, ch offer.Channel) error
	MarkSent(ctx context.Context, postID string, ch offer.Channel, externalID string, at time.Time) error
	MarkError(ctx context.Context, postID string, ch offer.Channel, message string) error
	IncrementDispatched(ctx context.Context, batchID string) error
	IncrementError(ctx context.Context, batchID string) error
	AppendErrorLog(ctx context.Context, entry offer.ErrorLog) (string, error)
}

// LinkResolver yields the authoritative outbound URL for a post/channel.
type LinkResolver interface {
	Resolve(ctx context.Context, post offer.Post, ch offer.Channel) (string, error)
}

// Worker consumes dispatch jobs for exactly one channel. Jobs tagged for
// another channel are acknowledged untouched, so several workers can share
// one logical queue filtered by tag.
type Worker struct {
	Channel       offer.Channel
	Concurrency   int64
	ReaderFactory func() *kafka.Reader
	DLQWriter     *kafka.Writer
	Adapter       Adapter
	Store         DataStore
	Links         LinkResolver
	Retry         queue.Policy
	SendTimeout   time.Duration
	Logger        zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Adapter == nil || w.Store == nil || w.Links == nil {
		return errors.New("worker requires adapter, store and link resolver")
	}
	if w.ReaderFactory == nil {
		return errors.New("worker requires a reader factory")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := w.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	reader := w.ReaderFactory()
	defer reader.Close()
	sem := semaphore.NewWeighted(concurrency)
	tracer := otel.Tracer("channel-worker")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			// Let claimed jobs finish before reporting the stop.
			_ = sem.Acquire(context.Background(), concurrency)
			return fmt.Errorf("fetch message: %w", err)
		}

		var job queue.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			w.Logger.Error().Err(err).Msg("failed to decode dispatch job")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			_ = sem.Acquire(context.Background(), concurrency)
			return fmt.Errorf("acquire worker slot: %w", err)
		}

		go func(msg kafka.Message, job queue.Job) {
			defer sem.Release(1)

			spanCtx, span := tracer.Start(ctx, "deliver")
			span.SetAttributes(
				attribute.String("post.id", job.PostID),
				attribute.String("channel", string(w.Channel)),
			)
			start := time.Now()
			w.handle(spanCtx, job, timeout)
			deliveryLatency.WithLabelValues(string(w.Channel)).Observe(time.Since(start).Seconds())
			span.End()

			// Ack only after the handler is done: at-least-once.
			if err := reader.CommitMessages(ctx, msg); err != nil {
				w.Logger.Error().Err(err).Str("post_id", job.PostID).Msg("commit message failed")
			}
		}(msg, job)
	}
}

func (w *Worker) handle(ctx context.Context, job queue.Job, timeout time.Duration) {
	logger := w.Logger.With().
		Str("post_id", job.PostID).
		Str("draft_id", job.DraftID).
		Str("channel", string(w.Channel)).
		Logger()

	if job.Channel != w.Channel {
		jobCounter.WithLabelValues(string(w.Channel), "skipped").Inc()
		logger.Debug().Str("job_channel", string(job.Channel)).Msg("job for another channel, acknowledged")
		return
	}

	// A transient store failure gets the same retry budget as an adapter
	// failure; only a dangling post reference is immediately terminal.
	var post offer.Post
	lookup := func() error {
		p, err := w.Store.GetPost(ctx, job.PostID)
		if err != nil {
			if errors.Is(err, offer.ErrPostNotFound) {
				return backoff.Permanent(err)
			}
			logger.Warn().Err(err).Msg("post lookup failed")
			return err
		}
		post = p
		return nil
	}
	if err := backoff.Retry(lookup, backoff.WithContext(w.Retry.Backoff(), ctx)); err != nil {
		w.terminate(ctx, logger, job, "", 0, err)
		return
	}

	markSending := func() error {
		if err := w.Store.MarkSending(ctx, job.PostID, w.Channel); err != nil {
			logger.Warn().Err(err).Msg("mark sending failed")
			return err
		}
		return nil
	}
	if err := backoff.Retry(markSending, backoff.WithContext(w.Retry.Backoff(), ctx)); err != nil {
		w.terminate(ctx, logger, job, post.BatchID, 0, err)
		return
	}

	w.deliver(ctx, logger, job, post, timeout)
}

// deliver runs the retried part of the job: link resolution, formatting and
// the external call. Missing link configuration fails fast inside an
// attempt, but still burns the normal budget like any adapter failure.
func (w *Worker) deliver(ctx context.Context, logger zerolog.Logger, job queue.Job, post offer.Post, timeout time.Duration) {
	var (
		externalID string
		attempts   int
	)
	op := func() error {
		attempts++

		url, err := w.Links.Resolve(ctx, post, w.Channel)
		if err == nil {
			var payload Payload
			payload, err = w.Adapter.Format(post, url)
			if err == nil {
				attemptCtx, cancel := context.WithTimeout(ctx, timeout)
				var id string
				id, err = w.Adapter.Send(attemptCtx, payload)
				cancel()
				if err == nil {
					externalID = id
					return nil
				}
			}
		}

		logger.Warn().Err(err).Int("attempt", attempts).Msg("delivery attempt failed")
		if mErr := w.Store.MarkError(ctx, job.PostID, w.Channel, err.Error()); mErr != nil {
			logger.Error().Err(mErr).Msg("mark error failed")
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(w.Retry.Backoff(), ctx)); err != nil {
		w.terminate(ctx, logger, job, post.BatchID, attempts, err)
		return
	}

	if err := w.Store.MarkSent(ctx, job.PostID, w.Channel, externalID, time.Now().UTC()); err != nil {
		// The external send happened; only the bookkeeping lagged.
		logger.Error().Err(err).Msg("mark sent failed")
	}
	if err := w.Store.IncrementDispatched(ctx, post.BatchID); err != nil {
		logger.Error().Err(err).Msg("increment dispatched failed")
	}
	jobCounter.WithLabelValues(string(w.Channel), "sent").Inc()
	logger.Info().Str("external_id", externalID).Int("attempts", attempts).Msg("post delivered")
}

// terminate records the terminal failure of a job: one error-log row for the
// triage screen, batch error counter, DLQ copy.
func (w *Worker) terminate(ctx context.Context, logger zerolog.Logger, job queue.Job, batchID string, attempts int, cause error) {
	if _, err := w.Store.AppendErrorLog(ctx, offer.ErrorLog{
		DraftID:   job.DraftID,
		ErrorType: w.Channel.ErrorType(),
		Message:   cause.Error(),
		PostID:    job.PostID,
		Channel:   w.Channel,
	}); err != nil {
		logger.Error().Err(err).Msg("append error log failed")
	}
	if batchID != "" {
		if err := w.Store.IncrementError(ctx, batchID); err != nil {
			logger.Error().Err(err).Msg("increment error failed")
		}
	}
	w.writeDLQ(ctx, logger, job, attempts, cause)
	jobCounter.WithLabelValues(string(w.Channel), "error").Inc()
	logger.Error().Err(cause).Int("attempts", attempts).Msg("delivery abandoned")
}

func (w *Worker) writeDLQ(ctx context.Context, logger zerolog.Logger, job queue.Job, attempts int, cause error) {
	if w.DLQWriter == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"post_id":   job.PostID,
		"draft_id":  job.DraftID,
		"channel":   job.Channel,
		"attempts":  attempts,
		"error":     cause.Error(),
		"failed_at": time.Now().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("marshal dlq payload failed")
		return
	}
	if err := w.DLQWriter.WriteMessages(ctx, kafka.Message{Key: []byte(job.PostID), Value: payload}); err != nil {
		logger.Error().Err(err).Msg("write dlq failed")
	}
}
