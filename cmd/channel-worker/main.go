package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/example/offer-dispatch/internal/common"
	"github.com/example/offer-dispatch/internal/link"
	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
	"github.com/example/offer-dispatch/internal/store"
	"github.com/example/offer-dispatch/internal/worker"
)

// Per-channel in-flight budgets. The gateway's external API rate-limits
// hardest; the site flip is a local write and can run wide open.
var concurrencyFor = map[offer.Channel]int64{
	offer.ChannelChat:    5,
	offer.ChannelSocial:  5,
	offer.ChannelGateway: 3,
	offer.ChannelSite:    10,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	channel := offer.Channel(os.Getenv("DISPATCH_CHANNEL"))
	if !channel.Valid() {
		log.Fatalf("DISPATCH_CHANNEL must be one of chat, social, gateway, site (got %q)", channel)
	}

	cfg, err := common.LoadConfig("channel-worker-" + string(channel))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort)
	defer metricsSrv.Shutdown(context.Background())

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL must be provided")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	st := store.New(pool)

	readerFactory := func() *kafka.Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.ServiceName,
			Topic:   queue.TopicFor(channel),
		})
	}

	dlqWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.DLQTopic,
		Balancer: &kafka.Hash{},
	}
	defer dlqWriter.Close()

	w := worker.Worker{
		Channel:       channel,
		Concurrency:   concurrencyFor[channel],
		ReaderFactory: readerFactory,
		DLQWriter:     dlqWriter,
		Adapter:       adapterFor(channel, st),
		Store:         st,
		Links:         &link.Resolver{Rules: st, RedirectBase: cfg.RedirectBaseURL},
		Retry:         queue.DefaultPolicy(),
		Logger:        logger,
	}

	logger.Info().Str("channel", string(channel)).Msg("channel worker started")
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("channel worker stopped")
	}
}

func adapterFor(channel offer.Channel, st *store.Store) worker.Adapter {
	switch channel {
	case offer.ChannelChat:
		return &worker.ChatAdapter{
			Endpoint: envOr("CHAT_API_ENDPOINT", "https://api.telegram.org"),
			Token:    os.Getenv("CHAT_BOT_TOKEN"),
			ChatID:   os.Getenv("CHAT_TARGET_ID"),
		}
	case offer.ChannelSocial:
		return &worker.SocialAdapter{
			Endpoint:    envOr("SOCIAL_API_ENDPOINT", "https://graph.facebook.com/v19.0"),
			PageID:      os.Getenv("SOCIAL_PAGE_ID"),
			AccessToken: os.Getenv("SOCIAL_ACCESS_TOKEN"),
		}
	case offer.ChannelGateway:
		return &worker.GatewayAdapter{
			Endpoint: os.Getenv("GATEWAY_API_ENDPOINT"),
			APIKey:   os.Getenv("GATEWAY_API_KEY"),
			GroupID:  os.Getenv("GATEWAY_GROUP_ID"),
		}
	default:
		return &worker.SiteAdapter{Store: st}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
