package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
)

var releaseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scheduler_releases_total",
	Help: "Jobs released into the dispatch queue, by channel",
}, []string{"channel"})

// Pacing is one channel's release policy. A DailyLimit of zero disables the
// channel entirely; that is configuration, not an error.
type Pacing struct {
	MinInterval time.Duration
	Window      Window
	DailyLimit  int
}

// ReleaseSource is the slice of the store the scheduler reads.
type ReleaseSource interface {
	ChannelActivity(ctx context.Context, ch offer.Channel, dayStart time.Time) (int, *time.Time, error)
	NextPending(ctx context.Context, ch offer.Channel) (postID, draftID string, ok bool, err error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Scheduler gates release of pending posts into the dispatch queue on a
// fixed polling interval. Channels are evaluated independently; one
// channel's throttling never blocks another's progress.
type Scheduler struct {
	Pacing map[offer.Channel]Pacing
	Store  ReleaseSource
	Queue  Enqueuer
	Tick   time.Duration
	Logger zerolog.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time

	mu          sync.Mutex
	lastRelease map[offer.Channel]time.Time
	releaseDay  map[offer.Channel]string
	releases    map[offer.Channel]int
}

// Run drives TickOnce on the polling interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := s.Tick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", tick), func() { s.TickOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	c.Start()
	s.Logger.Info().Dur("tick", tick).Msg("scheduler started")

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// TickOnce evaluates every configured channel once. Safe to call directly
// and reentrant across ticks.
func (s *Scheduler) TickOnce(ctx context.Context) {
	channels := make([]offer.Channel, 0, len(s.Pacing))
	for ch := range s.Pacing {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	for _, ch := range channels {
		if err := s.releaseChannel(ctx, ch, s.Pacing[ch]); err != nil {
			s.Logger.Error().Err(err).Str("channel", string(ch)).Msg("channel tick failed")
		}
	}
}

func (s *Scheduler) releaseChannel(ctx context.Context, ch offer.Channel, p Pacing) error {
	if p.DailyLimit <= 0 {
		return nil // channel disabled
	}

	now := s.now()
	if !p.Window.Contains(now) {
		return nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sent, lastSent, err := s.Store.ChannelActivity(ctx, ch, dayStart)
	if err != nil {
		return err
	}

	// Combine store-observed deliveries with our own release bookkeeping:
	// a job released moments ago has not produced a SENT record yet, and
	// must still count against the interval and the daily cap.
	lastRelease, released := s.bookkeeping(ch, dayStart)
	last := lastSent
	if lastRelease != nil && (last == nil || lastRelease.After(*last)) {
		last = lastRelease
	}
	if last != nil && now.Sub(*last) < p.MinInterval {
		return nil
	}
	count := sent
	if released > count {
		count = released
	}
	if count >= p.DailyLimit {
		return nil
	}

	postID, draftID, ok, err := s.Store.NextPending(ctx, ch)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	job := queue.Job{PostID: postID, DraftID: draftID, Channel: ch, EnqueuedAt: now}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		return err
	}

	s.recordRelease(ch, now, dayStart)
	releaseCounter.WithLabelValues(string(ch)).Inc()
	s.Logger.Info().
		Str("channel", string(ch)).
		Str("post_id", postID).
		Int("sent_today", count+1).
		Msg("post released")
	return nil
}

func (s *Scheduler) bookkeeping(ch offer.Channel, dayStart time.Time) (*time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := dayStart.Format("2006-01-02")
	var last *time.Time
	if t, ok := s.lastRelease[ch]; ok {
		last = &t
	}
	if s.releaseDay[ch] != day {
		return last, 0
	}
	return last, s.releases[ch]
}

func (s *Scheduler) recordRelease(ch offer.Channel, now, dayStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRelease == nil {
		s.lastRelease = map[offer.Channel]time.Time{}
		s.releaseDay = map[offer.Channel]string{}
		s.releases = map[offer.Channel]int{}
	}
	day := dayStart.Format("2006-01-02")
	if s.releaseDay[ch] != day {
		s.releaseDay[ch] = day
		s.releases[ch] = 0
	}
	s.lastRelease[ch] = now
	s.releases[ch]++
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
