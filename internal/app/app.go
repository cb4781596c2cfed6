package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	_ "phoneverify/docs"
	"phoneverify/internal/bot"
	"phoneverify/internal/config"
	"phoneverify/internal/handlers"
	"phoneverify/internal/logger"
	"phoneverify/internal/metrics"
	"phoneverify/internal/middleware"
	"phoneverify/internal/ratelimit"
	"phoneverify/internal/repositories"
	"phoneverify/internal/routes"
	"phoneverify/internal/services"
	"phoneverify/internal/session"
	"phoneverify/internal/upstream"
	"phoneverify/internal/verification"
)

const shutdownTimeout = 15 * time.Second

// Run поднимает HTTP API и бота и работает до отмены ctx.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging)
	m := metrics.New()

	// === Journal ===
	journalRepo, closeDB, err := openJournal(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeDB()

	// === Core ===
	codec, err := session.NewCodec([]byte(cfg.Session.Secret))
	if err != nil {
		return err
	}
	if codec.EphemeralSecret() {
		log.Warn("JWT_SECRET not set: generated a process secret, issued links will not survive a restart")
	}

	limiter := ratelimit.New(ratelimit.Config{MaxAttempts: cfg.RateLimit.MaxAttempts, Window: cfg.RateLimit.Window()})
	if cfg.RateLimit.SweepSchedule != "" {
		stopSweep, err := limiter.StartSweeper(cfg.RateLimit.SweepSchedule, logger.Component(log, "ratelimit"))
		if err != nil {
			return err
		}
		defer stopSweep()
	}

	up := upstream.NewClient(upstream.Config{
		BaseURL:       cfg.Upstream.BaseURL,
		LoginEmail:    cfg.Upstream.LoginEmail,
		LoginPassword: cfg.Upstream.LoginPassword,
		LoginLanguage: cfg.Upstream.LoginLanguage,
		CodeLanguage:  cfg.Upstream.CodeLanguage,
		Timeout:       cfg.Upstream.Timeout,
	}, upstream.WithLogger(logger.Component(log, "upstream")), upstream.WithObserver(m))
	if !up.HasServiceCredentials() {
		log.Warn("service login not configured: requests without tokens will fail with LOGIN_API_ERROR")
	}

	// === Telegram ===
	api, err := services.NewBotAPI(cfg.Telegram.Token, cfg.Telegram.DeliveryTimeout)
	if err != nil {
		return err
	}
	api.Debug = cfg.Telegram.Debug
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		botUsername = api.Self.UserName
	}

	tg := services.NewTelegramService(api, cfg.Telegram.Banner, log)
	msgs := services.NewMessages(cfg.Support.Username, cfg.Support.AppName)
	journal := services.NewJournalService(journalRepo, log)

	// === Orchestrator ===
	opts := []verification.Option{
		verification.WithLogger(logger.Component(log, "verification")),
		verification.WithObserver(m),
		verification.WithObserver(journal),
	}
	if cfg.Alerts.Enabled {
		alerts := services.NewAlertService(cfg.Alerts, cfg.Support.AppName, m.AlertDropped, log)
		defer alerts.Close()
		opts = append(opts, verification.WithObserver(alerts))
	}
	orch := verification.New(up, limiter, services.NewChatNotifier(tg, msgs, logger.Component(log, "notifier")), codec, opts...)

	runTimeout := 2*cfg.Upstream.Timeout + cfg.Telegram.DeliveryTimeout
	tgBot := bot.New(bot.Options{
		Telegram:   tg,
		Messages:   msgs,
		Runner:     orch,
		Stats:      limiter,
		IsAdmin:    cfg.IsAdmin,
		Counter:    m,
		Logger:     log,
		RunTimeout: runTimeout,
	})

	// === HTTP ===
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	stats := services.NewStatsService(up.BaseURL(), up.HasServiceCredentials(), codec.EphemeralSecret(), tg, limiter, journal)
	deps := routes.Deps{
		System:       handlers.NewSystemHandler(cfg.Support.AppName),
		Verification: handlers.NewVerificationHandler(session.NewLinkGenerator(codec), orch, stats, botUsername, runTimeout, log),
		Telegram:     handlers.NewTelegramHandler(tg, msgs, log),
		Metrics:      m.Handler(),
		APIKeyAuth:   middleware.APIKeyAuth(cfg.API.KeyHash, logger.Component(log, "auth")),
	}
	webhookSecret := cfg.Webhook.SecretToken
	if cfg.Telegram.RunMode == config.RunModeWebhook {
		if webhookSecret == "" {
			if webhookSecret, err = services.NewWebhookSecret(); err != nil {
				return err
			}
		}
		deps.Webhook = tgBot.WebhookHandler(webhookSecret)
		deps.WebhookPath = cfg.Webhook.Path
	}
	engine := routes.SetupRoutes(routes.NewEngine(middleware.RequestID(), middleware.AccessLog(log, m)), deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// === Bot ===
	pollDone := make(chan struct{})
	switch cfg.Telegram.RunMode {
	case config.RunModeWebhook:
		close(pollDone)
		if err := tg.SetWebhook(cfg.Webhook.URL, webhookSecret); err != nil {
			shutdown(srv, log)
			return err
		}
	default:
		if err := tg.DeleteWebhook(); err != nil {
			log.Warn("failed to delete webhook", "err", err)
		}
		// getUpdates висит до longpoll_timeout_seconds: отдельный клиент,
		// таймаут доставки сообщений остаётся у api.
		pollAPI, err := services.NewBotAPI(cfg.Telegram.Token,
			services.PollingTimeout(cfg.Telegram.LongPollTimeoutSeconds, cfg.Telegram.DeliveryTimeout))
		if err != nil {
			shutdown(srv, log)
			return err
		}
		pollAPI.Debug = cfg.Telegram.Debug
		go func() {
			defer close(pollDone)
			_ = tgBot.Poll(ctx, pollAPI, cfg.Telegram.LongPollTimeoutSeconds)
		}()
	}
	log.Info("verification agent started",
		"mode", cfg.Telegram.RunMode,
		"max_attempts", cfg.RateLimit.MaxAttempts,
		"window", cfg.RateLimit.Window(),
		"upstream", up.BaseURL(),
	)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		log.Error("http server failed", "err", err)
	}
	shutdown(srv, log)
	<-pollDone
	tgBot.Wait()
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func shutdown(srv *http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown", "err", err)
	}
}

// openJournal: Postgres при заданном database.url, иначе кольцевой буфер в памяти.
func openJournal(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (repositories.JournalRepository, func(), error) {
	if cfg.URL == "" {
		log.Info("journal: in-memory", "capacity", cfg.JournalCapacity)
		return repositories.NewMemoryJournal(cfg.JournalCapacity), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := repositories.EnsureJournalSchema(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("journal: postgres")
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("close database", "err", err)
		}
	}
	return repositories.NewJournalRepository(db), closeDB, nil
}
