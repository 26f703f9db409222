package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"telegram-object-publisher/internal/application"
	"telegram-object-publisher/internal/config"
	"telegram-object-publisher/internal/domain/ports/adapter"
	"telegram-object-publisher/internal/infra/adapters/telegram"
	"telegram-object-publisher/internal/infra/api"
	"telegram-object-publisher/internal/infra/api/apiv1"
	"telegram-object-publisher/internal/infra/db/postgres"
	"telegram-object-publisher/internal/infra/i18n"
	"telegram-object-publisher/internal/infra/logging"
	"telegram-object-publisher/internal/infra/metrics"
	red "telegram-object-publisher/internal/infra/redis"
	"telegram-object-publisher/internal/infra/sched"
	"telegram-object-publisher/internal/infra/worker"
	"telegram-object-publisher/internal/usecase"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the publishing pipeline and the admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("counter_backend", cfg.Counter.Backend).
		Bool("dry_run", cfg.Publisher.DryRun).Msg("starting publisher")

	// ---- Storage ----
	b, err := openBacking(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	counters, err := b.counterStore(cfg, logger)
	if err != nil {
		return err
	}
	grantRepo := postgres.NewGrantRepo(b.pool)
	publishLog := postgres.NewPublishLogRepo(b.pool)

	var (
		claims      adapter.SubmissionClaimer
		rateLimiter *red.RateLimiter
	)
	if b.redis != nil {
		claims = red.NewClaimer(b.redis, cfg.Redis.TTL)
		rateLimiter = red.NewRateLimiter(b.redis)
	}

	// ---- Use cases ----
	accessUC := usecase.NewAccessUseCase(grantRepo, cfg.Bot.Channel, logger)
	sanitizer := usecase.NewSanitizer(cfg.Sanitizer.ContactKeywords)
	sequences := usecase.NewSequenceAllocator(counters, logger)

	pool := worker.NewPool(cfg.Publisher.PoolWorkers, logger)
	pool.Start(context.WithoutCancel(ctx))

	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return err
	}

	// ---- Telegram ----
	if strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot.mode not implemented; falling back to polling")
	}
	bot, err := telegram.NewRealTelegramBotAdapter(&cfg.Bot, translator, rateLimiter, logger)
	if err != nil {
		return err
	}
	var publisher adapter.Publisher = bot
	if cfg.Publisher.DryRun {
		publisher = telegram.NewNoopBotAdapter(logger)
	}

	coordinator, err := usecase.NewPublishCoordinator(usecase.PublishDeps{
		Access:     accessUC,
		Sanitizer:  sanitizer,
		Sequences:  sequences,
		Publisher:  publisher,
		Notifier:   bot,
		Translator: translator,
		Records:    publishLog,
		Claims:     claims,
		Pool:       pool,
	}, usecase.PublishOptions{
		Debounce:     cfg.Publisher.Debounce,
		HeaderFormat: cfg.Publisher.HeaderFormat,
		Escape:       telegram.TextEscaper(cfg.Bot.ParseMode),
	}, logger)
	if err != nil {
		return err
	}
	facade := application.NewBotFacade(coordinator, accessUC, sequences, translator, logger)
	bot.SetFacade(facade)

	// ---- Background ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.GrantExpiryInterval, accessUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	auth := api.NewAuthManager(cfg.Admin.JWTSecret)
	if cfg.Admin.JWTSecret == "" {
		logger.Warn().Msg("admin.jwt_secret not set; admin API will refuse every request")
	}
	router := api.NewRouter(apiv1.NewServer(accessUC, sequences, publishLog, logger), auth, logger)
	httpSrv := api.NewServer(cfg.Admin.Port, router, logger)
	httpErr := make(chan error, 1)
	go func() { httpErr <- httpSrv.Start() }()

	pollDone := make(chan error, 1)
	go func() { pollDone <- bot.StartPolling(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err = <-httpErr:
		if err != nil {
			logger.Error().Err(err).Msg("admin HTTP server failed")
		}
	case err = <-pollDone:
		if err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}

	// ---- Graceful shutdown ----
	// stop intake first, then flush open albums, then drain the publishes they queued
	bot.StopPolling()
	select {
	case <-pollDone:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("telegram polling did not stop in time")
	}
	coordinator.Close()
	pool.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shErr := httpSrv.Shutdown(shCtx); shErr != nil && !errors.Is(shErr, context.DeadlineExceeded) {
		logger.Warn().Err(shErr).Msg("admin HTTP shutdown")
	}
	logger.Info().Msg("stopped")
	return err
}
