package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/config"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/events"
	"github.com/devsanbid/quickbite/internal/router"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/devsanbid/quickbite/internal/ws"
)

func main() {
	cfg := config.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("run migrations")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logrus.WithError(err).Fatal("ping database")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Fatal("ping redis")
	}
	defer rdb.Close()
	carts := cart.NewStore(rdb)

	var publisher service.EventPublisher
	if cfg.KafkaBroker != "" {
		kp := events.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logrus.WithField("topic", cfg.KafkaTopic).Info("order event stream enabled")
	}

	hub := ws.NewHub()
	go hub.Run()

	queries := database.New(pool)
	r := router.New(cfg, queries, pool, carts, hub, publisher)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
