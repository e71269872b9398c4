// Package main boots the cart checkout HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/cart-checkout-service/internal/config"
	"github.com/fairyhunter13/cart-checkout-service/internal/events"
	httpapi "github.com/fairyhunter13/cart-checkout-service/internal/http"
	"github.com/fairyhunter13/cart-checkout-service/internal/idempotency"
	"github.com/fairyhunter13/cart-checkout-service/internal/obs"
	"github.com/fairyhunter13/cart-checkout-service/internal/queue"
	"github.com/fairyhunter13/cart-checkout-service/internal/store"
	"github.com/fairyhunter13/cart-checkout-service/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		obs.Logger.Error("service_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	obs.InitLoggerLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	obs.Logger.Info("service_starting", "storage_backend", cfg.StorageBackend, "events_broker", cfg.EventsBroker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	idem, err := openIdempotency(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := idem.(io.Closer); ok {
		defer c.Close()
	}

	pub, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	if c, ok := pub.(io.Closer); ok {
		defer c.Close()
	}

	var mgr *queue.Manager
	metrics := obs.NewMetrics(func() int { return mgr.QueueDepth() })
	mgr = queue.NewManager(cfg, queue.New(128), pub, metrics)
	mgr.Start(context.Background())

	app := httpapi.NewApp(cfg, repo, mgr, idem, metrics)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		obs.Logger.Info("shutdown_signal")
		app.StartShutdown()

		ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelSrv()
		if err := srv.Shutdown(ctxSrv); err != nil {
			obs.Logger.Error("http_shutdown_error", "error", err.Error())
		}

		obs.Logger.Info("shutdown_drain_begin", "backlog_size", mgr.BacklogSize(), "worker_count", mgr.WorkerCount())
		if mgr.DrainUntil(ctxSrv) {
			obs.Logger.Info("shutdown_drain_complete")
		} else {
			obs.Logger.Warn("shutdown_drain_timeout")
		}
		mgr.Stop()
		return nil
	})
	err = g.Wait()
	obs.Logger.Info("service_stopped")
	return err
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		return store.OpenFile(cfg.DataDir)
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return store.New(), nil
	}
}

func openIdempotency(ctx context.Context, cfg config.Config) (idempotency.Store, error) {
	if cfg.RedisURL == "" {
		return idempotency.NewMemory(cfg.IdempotencyTTL), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return idempotency.NewRedis(client, cfg.IdempotencyTTL), nil
}

func openPublisher(cfg config.Config) (queue.Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		return events.DialRabbitMQ(cfg.AMQPURL, cfg.AMQPExchange)
	case config.BrokerKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return events.LogPublisher{}, nil
	}
}
