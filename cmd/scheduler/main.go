package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/example/offer-dispatch/internal/common"
	"github.com/example/offer-dispatch/internal/offer"
	"github.com/example/offer-dispatch/internal/queue"
	"github.com/example/offer-dispatch/internal/scheduler"
	"github.com/example/offer-dispatch/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := common.LoadConfig("scheduler")
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

	qc := queue.NewClient(cfg.KafkaBrokers, logger)
	defer qc.Close()

	s := &scheduler.Scheduler{
		Pacing: map[offer.Channel]scheduler.Pacing{
			offer.ChannelChat:    loadPacing("CHAT", 15*time.Minute, "08:00-23:00", 20),
			offer.ChannelSocial:  loadPacing("SOCIAL", 30*time.Minute, "08:00-22:00", 10),
			offer.ChannelGateway: loadPacing("GATEWAY", 20*time.Minute, "09:00-21:00", 12),
			offer.ChannelSite:    loadPacing("SITE", time.Minute, "00:00-00:00", 100),
		},
		Store:  store.New(pool),
		Queue:  qc,
		Tick:   cfg.SchedulerTick,
		Logger: logger,
	}

	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("scheduler stopped")
	}
}

func loadPacing(prefix string, interval time.Duration, window string, limit int) scheduler.Pacing {
	if v := os.Getenv(prefix + "_MIN_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid %s_MIN_INTERVAL: %v", prefix, err)
		}
		interval = parsed
	}
	if v := os.Getenv(prefix + "_WINDOW"); v != "" {
		window = v
	}
	if v := os.Getenv(prefix + "_DAILY_LIMIT"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid %s_DAILY_LIMIT: %v", prefix, err)
		}
		limit = parsed
	}

	parsedWindow, err := scheduler.ParseWindow(window)
	if err != nil {
		log.Fatalf("invalid %s_WINDOW: %v", prefix, err)
	}
	return scheduler.Pacing{
		MinInterval: interval,
		Window:      parsedWindow,
		DailyLimit:  limit,
	}
}
