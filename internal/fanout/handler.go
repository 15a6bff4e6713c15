package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/offer-dispatch/internal/common"
	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
)

var (
	fanOutCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanout_requests_total",
		Help: "Total fan-out requests received",
	}, []string{"status"})
	retryCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "error_retry_requests_total",
		Help: "Operator retry actions from the error-triage screen",
	}, []string{"status"})
)

// QueueClient is the dispatch queue as the API sees it.
type QueueClient interface {
	FanOut(ctx context.Context, postID, draftID string, channels []offer.Channel) ([]queue.Job, error)
}

// AdminStore covers the delivery-status reads and the triage retry action.
type AdminStore interface {
	ListDeliveries(ctx context.Context, postID string) ([]offer.DeliveryRecord, error)
	RetryFromError(ctx context.Context, errorLogID string) error
}

type Handler struct {
	store  AdminStore
	queue  QueueClient
	tracer trace.Tracer
	logger zerolog.Logger
}

func NewHandler(store AdminStore, q QueueClient, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		queue:  q,
		tracer: otel.Tracer("fanout-api"),
		logger: logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/fanout", h.fanOut)
	r.Get("/v1/posts/{postID}/deliveries", h.deliveries)
	r.Post("/v1/errors/{errorLogID}/retry", h.retry)
	return r
}

// FanOutRequest is what the admin API sends when an operator approves a
// draft for delivery.
type FanOutRequest struct {
	PostID   string          `json:"post_id"`
	DraftID  string          `json:"draft_id"`
	Channels []offer.Channel `json:"channels"`
}

func (h *Handler) fanOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "fanout")
	defer span.End()

	var req FanOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(
		attribute.String("post.id", req.PostID),
		attribute.Int("channels", len(req.Channels)),
	)

	jobs, err := h.queue.FanOut(ctx, req.PostID, req.DraftID, req.Channels)
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, err)
		return
	}

	fanOutCounter.WithLabelValues("accepted").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"jobs": len(jobs)})
}

func (h *Handler) deliveries(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "list-deliveries")
	defer span.End()

	postID := chi.URLParam(r, "postID")
	records, err := h.store.ListDeliveries(ctx, postID)
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, err)
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		entry := map[string]any{
			"post_id": rec.PostID,
			"channel": rec.Channel,
			"status":  rec.Status,
			"retries": rec.Retries,
		}
		if rec.SentAt != nil {
			entry["sent_at"] = rec.SentAt
		}
		if rec.ExternalID != "" {
			entry["external_id"] = rec.ExternalID
		}
		if rec.Error != "" {
			entry["error"] = rec.Error
		}
		out = append(out, entry)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"deliveries": out})
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "retry-from-error")
	defer span.End()

	id := chi.URLParam(r, "errorLogID")
	if err := h.store.RetryFromError(ctx, id); err != nil {
		if errors.Is(err, offer.ErrErrorLogNotFound) {
			retryCounter.WithLabelValues("not_found").Inc()
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.respondErr(ctx, w, http.StatusInternalServerError, err)
		return
	}

	retryCounter.WithLabelValues("resolved").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "resolved"})
}

func (h *Handler) respondErr(ctx context.Context, w http.ResponseWriter, status int, err error) {
	logger := common.WithContext(ctx, h.logger)
	logger.Error().Err(err).Int("status", status).Msg("fanout handler failed")
	outcome := "error"
	if status < http.StatusInternalServerError {
		outcome = "rejected"
	}
	fanOutCounter.WithLabelValues(outcome).Inc()
	http.Error(w, err.Error(), status)
}

func validateRequest(req FanOutRequest) error {
	if req.PostID == "" {
		return errors.New("post_id is required")
	}
	if req.DraftID == "" {
		return errors.New("draft_id is required")
	}
	if len(req.Channels) == 0 {
		return errors.New("channels is required")
	}
	seen := make(map[offer.Channel]bool, len(req.Channels))
	for _, ch := range req.Channels {
		if !ch.Valid() {
			return fmt.Errorf("unknown channel %q", ch)
		}
		if seen[ch] {
			return fmt.Errorf("duplicate channel %q", ch)
		}
		seen[ch] = true
	}
	return nil
}
