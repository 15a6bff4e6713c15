package redirect

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/offer-dispatch/internal/common"
	"github.com/example/offer-dispatch/internal/offer"
)

var clickCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "redirect_clicks_total",
	Help: "Redirect hits, by channel and outcome",
}, []string{"channel", "status"})

// ClickStore resolves the real destination and records the click.
type ClickStore interface {
	GetPost(ctx context.Context, id string) (offer.Post, error)
	RecordClick(ctx context.Context, postID string, ch offer.Channel, referer string) error
}

// Server answers the REDIRECTOR link mode: records the click, then forwards
// to the offer's real destination with a 302.
type Server struct {
	Store  ClickStore
	Logger zerolog.Logger
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/r/{postID}", s.redirect)
	return r
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("redirector").Start(r.Context(), "redirect")
	defer span.End()

	postID := chi.URLParam(r, "postID")
	ch := offer.Channel(r.URL.Query().Get("ch"))
	if !ch.Valid() {
		ch = offer.ChannelSite
	}
	span.SetAttributes(
		attribute.String("post.id", postID),
		attribute.String("channel", string(ch)),
	)

	post, err := s.Store.GetPost(ctx, postID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, offer.ErrPostNotFound) {
			status = http.StatusNotFound
		}
		s.respondErr(ctx, w, ch, status, err)
		return
	}
	if post.AffiliateURL == "" {
		s.respondErr(ctx, w, ch, http.StatusNotFound, errors.New("post has no destination url"))
		return
	}

	// Click tracking is best-effort; losing a row must not break the hop.
	if err := s.Store.RecordClick(ctx, postID, ch, r.Referer()); err != nil {
		logger := common.WithContext(ctx, s.Logger)
		logger.Warn().Err(err).Str("post_id", postID).Msg("record click failed")
	}

	clickCounter.WithLabelValues(string(ch), "ok").Inc()
	http.Redirect(w, r, post.AffiliateURL, http.StatusFound)
}

func (s *Server) respondErr(ctx context.Context, w http.ResponseWriter, ch offer.Channel, status int, err error) {
	logger := common.WithContext(ctx, s.Logger)
	logger.Error().Err(err).Int("status", status).Msg("redirect failed")
	clickCounter.WithLabelValues(string(ch), "error").Inc()
	http.Error(w, err.Error(), status)
}
