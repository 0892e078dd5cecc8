package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camerashop/backend/internal/api/handler"
	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/chathub"
	"camerashop/backend/internal/config"
	"camerashop/backend/internal/localization"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/notify"
	"camerashop/backend/internal/storage"
	"camerashop/backend/internal/supervisor"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func newBlacklist(ctx context.Context, cfg config.RedisConfig) auth.Blacklist {
	if cfg.Addr == "" {
		logging.Warn().Msg("REDIS_ADDR not set, token revocations are kept in memory")
		return auth.NewMemoryBlacklist()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.Addr).Msg("failed to connect Redis")
	}
	return auth.NewRedisBlacklist(rdb, config.RevokedTokenPrefix)
}

func newSender(cfg config.MailConfig) notify.Sender {
	if cfg.Host == "" {
		logging.Warn().Msg("MAIL_HOST not set, notifications are only logged")
		return notify.LogSender{}
	}
	loc, err := localization.Default()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load notification templates")
	}
	sender, err := notify.NewMailSender(cfg, loc)
	if err != nil {
		logging.Fatal().Err(err).Str("host", cfg.Host).Msg("failed to configure mail client")
	}
	return sender
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Msg("starting CameraShop chat backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}

	guard := auth.NewGuard(auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration), newBlacklist(ctx, cfg.Redis))
	dispatcher := notify.NewDispatcher(newSender(cfg.Mail), cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.Timeout)

	chatSvc := chat.NewService(store, dispatcher)
	hub := chathub.NewManagerService(
		chatSvc,
		chathub.NewBroker(),
		chat.NewPresenceStore(store, time.Now),
		chathub.NewAuthenticator(guard),
		chathub.ClientOptions{
			SendQueue: cfg.Chat.SendQueue,
			SendRate:  cfg.Chat.SendRate,
			SendBurst: cfg.Chat.SendBurst,
		},
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.NewHandler(hub, chatSvc, guard, store, cfg.Server.AllowedOrigins).Register(router)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", handler.RequestIDHeader},
		ExposedHeaders:   []string{handler.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        corsHandler(router),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddMessagingService(dispatcher)
	tree.AddMessagingService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.WriteTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}
