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

	"github.com/weiawesome/wes-io-dm/internal/archive"
	"github.com/weiawesome/wes-io-dm/internal/config"
	"github.com/weiawesome/wes-io-dm/internal/handler"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/metrics"
	"github.com/weiawesome/wes-io-dm/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg.Log.ServiceName = "dm-archiver"
	log.Init(cfg.Log)
	l := log.L()

	if !cfg.Events.Enabled() {
		l.Fatal().Msg("archiver needs an event bus: set events.driver to redis or kafka")
	}

	client, err := archive.NewClient(cfg.Cassandra)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to cassandra")
	}
	defer client.Close()
	l.Info().Strs("hosts", cfg.Cassandra.Hosts).Str("keyspace", cfg.Cassandra.Keyspace).Msg("connected to cassandra")

	store := archive.NewCassandraStore(client)
	if err := store.EnsureSchema(context.Background()); err != nil {
		l.Fatal().Err(err).Msg("failed to prepare archive schema")
	}

	bus, err := pubsub.NewPubSub(cfg.Events)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to connect to event bus")
	}
	defer bus.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Archiver.Host, cfg.Archiver.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("archiver health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("health server error")
		}
	}()

	ctx, cancel := context.WithCancel(log.WithLogger(context.Background(), l))

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- archive.NewConsumer(bus, store).Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		l.Info().Msg("received shutdown signal")
	case err := <-consumerDone:
		if err != nil {
			l.Error().Err(err).Msg("consumer exited")
		}
	}

	cancel()

	select {
	case <-consumerDone:
	case <-time.After(10 * time.Second):
		l.Warn().Msg("consumer shutdown timed out")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	l.Info().Msg("archiver stopped")
}
