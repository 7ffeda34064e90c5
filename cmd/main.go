package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-dm/internal/cache"
	"github.com/weiawesome/wes-io-dm/internal/config"
	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/handler"
	"github.com/weiawesome/wes-io-dm/internal/hub"
	"github.com/weiawesome/wes-io-dm/internal/idgen"
	"github.com/weiawesome/wes-io-dm/internal/presence"
	"github.com/weiawesome/wes-io-dm/internal/repository"
	"github.com/weiawesome/wes-io-dm/internal/service"
	"github.com/weiawesome/wes-io-dm/pkg/database"
	"github.com/weiawesome/wes-io-dm/pkg/jwt"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/metrics"
	"github.com/weiawesome/wes-io-dm/pkg/middleware"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
	"github.com/weiawesome/wes-io-dm/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, &domain.MessageModel{}, &domain.UserModel{}); err != nil {
		l.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	var redisClient *redis.Client
	if cfg.Cache.Driver == cache.DriverRedis {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	pages, profiles, err := cache.New(cfg.Cache, redisClient)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create caches")
	}
	defer pages.Close()
	defer profiles.Close()

	ids, err := idgen.New(cfg.Message.IDGenerator)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create id generator")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage.Config)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create attachment storage")
	}

	var publisher pubsub.Publisher
	if cfg.Events.Enabled() {
		bus, err := pubsub.NewPubSub(cfg.Events)
		if err != nil {
			l.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to connect to event bus")
		}
		defer bus.Close()
		publisher = bus
		l.Info().Str("driver", cfg.Events.Driver).Msg("event bus ready")
	}

	tokens, err := jwt.NewManager(cfg.Auth.JWT)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create token validator")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens, cfg.Auth.CookieName)

	registry := presence.NewRegistry()
	wsHub := hub.NewHub(registry)
	go wsHub.Run(ctx)

	messageRepo := repository.NewGormMessageRepository(db, ids)
	userRepo := repository.NewGormUserRepository(db)

	userService := service.NewUserService(userRepo, profiles, cfg.Cache.ProfileTTL)
	attachmentService := service.NewAttachmentService(store, ids, service.AttachmentOptions{
		Prefix:   cfg.Storage.AttachmentPrefix,
		URLTTL:   cfg.Storage.URLTTL,
		MaxBytes: cfg.Storage.MaxUploadBytes,
	})
	messageService := service.NewMessageService(service.MessageServiceDeps{
		Messages:    messageRepo,
		Users:       userRepo,
		Presence:    registry,
		Pages:       pages,
		Attachments: attachmentService,
		Publisher:   publisher,
	}, service.MessageOptions{
		Limits:                 service.PageLimits{Default: cfg.Message.DefaultLimit, Max: cfg.Message.MaxLimit},
		MaxTextLength:          cfg.Message.MaxTextLength,
		MaxAttachmentRefLength: cfg.Message.MaxAttachmentRefLength,
		PageTTL:                cfg.Cache.PageTTL,
		FetchTimeout:           cfg.Server.OperationTimeout,
	})
	partnerService := service.NewPartnerService(messageRepo, userService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), log.GinMiddleware(l, "/health", "/metrics"), metrics.GinMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	// Realtime connections are long-lived; only the REST surface is time bounded.
	api := r.Group("", middleware.Timeout(cfg.Server.OperationTimeout))
	handler.NewHandler(messageService, partnerService, userService, wsHub, authMiddleware).RegisterRoutes(api)
	handler.NewAttachmentHandler(attachmentService, cfg.Storage.MaxUploadBytes).
		RegisterRoutes(api, authMiddleware.RequireAuth(), handler.EnsureUser(userService))
	handler.NewWSHandler(wsHub, userService, authMiddleware, cfg.WebSocket).RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("dm-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down dm-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()

	l.Info().Msg("dm-service stopped")
}
