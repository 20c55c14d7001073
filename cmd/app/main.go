package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"telegram-tempmail-relay/internal/config"
	pg "telegram-tempmail-relay/internal/infra/db/postgres"
	"telegram-tempmail-relay/internal/infra/i18n"
	"telegram-tempmail-relay/internal/infra/logging"
	"telegram-tempmail-relay/internal/infra/mailtm"
	"telegram-tempmail-relay/internal/infra/metrics"
	"telegram-tempmail-relay/internal/infra/push"
	red "telegram-tempmail-relay/internal/infra/redis"
	"telegram-tempmail-relay/internal/infra/sched"
	"telegram-tempmail-relay/internal/infra/security"
	"telegram-tempmail-relay/internal/infra/sink"
	tele "telegram-tempmail-relay/internal/infra/telegram"
	"telegram-tempmail-relay/internal/infra/web"
	"telegram-tempmail-relay/internal/infra/worker"
	"telegram-tempmail-relay/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logging, relaxed sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	guard := red.NewSessionGuard(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 16 && len(encKey) != 24 && len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or wrong length; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	sessionRepo := pg.NewSessionRepo(pool, encSvc)
	txManager := pg.NewTxManager(pool)

	// ---- Mail provider ----
	provider := mailtm.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout.Std())

	// ---- Telegram ----
	bot, err := tele.NewBot(&cfg.Bot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	// ---- Dispatch sinks ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	hub := push.NewHub(cfg.Web.MaxSocketsPerUser, logger)
	dispatch := sink.NewFanout(logger, push.NewSink(hub), tele.NewChatSink(bot, translator))

	// ---- Use cases ----
	refresher := usecase.NewTokenRefresher(sessionRepo, txManager, provider, logger)
	relayUC := usecase.NewRelayUseCase(
		sessionRepo, refresher, provider, dispatch, guard,
		cfg.Relay.ActiveWindow.Std(), cfg.Relay.DispatchTimeout.Std(), logger,
	)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, provider, logger)
	inboxUC := usecase.NewInboxUseCase(sessionRepo, refresher, provider, logger)

	// ---- Relay worker ----
	workerPool := worker.NewPool(cfg.Relay.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	relayWorker := sched.NewRelayWorker(cfg.Relay.PollInterval.Std(), relayUC, workerPool, logger)
	go func() {
		if err := relayWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("relay worker stopped")
		}
	}()

	// ---- Web server ----
	auth := web.NewSocketAuth(cfg.Web.SocketSecret, cfg.Web.SocketTokenTTL.Std())
	webSrv := web.NewServer(sessionUC, inboxUC, auth, hub, cfg.Web.APIKey, []web.Pinger{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "redis", Ping: redisClient.Ping},
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           webSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("web server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("web server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("web server shutdown")
	}
}
