package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/notification-dispatcher/internal/api/handlers/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/api/router"
	"github.com/aliskhannn/notification-dispatcher/internal/api/server"
	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/dispatch"
	"github.com/aliskhannn/notification-dispatcher/internal/kafka"
	"github.com/aliskhannn/notification-dispatcher/internal/metrics"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/queue"
	rabbitqueue "github.com/aliskhannn/notification-dispatcher/internal/rabbitmq/queue"
	notifrepo "github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/scheduler"
	"github.com/aliskhannn/notification-dispatcher/internal/sender"
	notifsvc "github.com/aliskhannn/notification-dispatcher/internal/service/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/worker"
	"github.com/aliskhannn/notification-dispatcher/pkg/email"
	"github.com/aliskhannn/notification-dispatcher/pkg/fcm"
	"github.com/aliskhannn/notification-dispatcher/pkg/webhook"
)

type store interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	FindByID(ctx context.Context, id string) (model.Notification, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	UpdateWithCAS(ctx context.Context, id string, expectedVersion int64, n model.Notification) (bool, error)
	FindAndLockScheduledNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	FindPendingNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}

type transport interface {
	Publish(ctx context.Context, cmd model.Command) error
	Consume(ctx context.Context, out chan<- model.Command) error
}

type statusCache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()

	if err := godotenv.Load(); err != nil {
		zlog.Logger.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := config.Must()
	val := validator.New()
	metrics.Init()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// storage
	var repo store
	switch cfg.Storage.Driver {
	case "memory":
		zlog.Logger.Warn().Msg("using in-memory storage, notifications are lost on restart")
		repo = notifrepo.NewMemoryRepository()
	default:
		opts := &dbpg.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}

		slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
		for _, s := range cfg.Database.Slaves {
			slaveDSNs = append(slaveDSNs, s.DSN())
		}

		db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
		}

		closers = append(closers, func() {
			if err := db.Master.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close master DB")
			}
			for i, s := range db.Slaves {
				if err := s.Close(); err != nil {
					zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
				}
			}
		})

		repo = notifrepo.NewRepository(db)
	}

	// status cache
	var cache statusCache
	if cfg.Redis.Enabled {
		dbNum, err := strconv.Atoi(cfg.Redis.Database)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
		}

		rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = rdb
	}

	// command transport
	var tr transport
	switch cfg.Dispatch.Transport {
	case "rabbitmq":
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Retries, cfg.RabbitMQ.Pause)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}

		ch, err := conn.Channel()
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
		}

		closers = append(closers, func() {
			if err := ch.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
			}
			if err := conn.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
			}
		})

		cq, err := rabbitqueue.NewCommandQueue(ch, cfg)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to create command queue")
		}
		tr = cq
	default:
		ct := queue.NewChannelTransport(cfg.Dispatch.QueueBuffer)
		closers = append(closers, ct.Close)
		tr = ct
	}

	q := queue.New(tr, queue.Options{MaxRetry: cfg.Dispatch.MaxRetryCount})
	closers = append(closers, q.Close)

	// senders
	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse email smtp port")
	}

	senders := []sender.Sender{
		sender.NewEmail(email.NewClient(
			cfg.Email.SMTPHost,
			smtpPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
		)),
		sender.NewChat(webhook.NewClient(cfg.Chat.Timeout)),
	}

	if cfg.Push.CredentialsPath != "" {
		pushClient, err := fcm.NewClient(ctx, cfg.Push.CredentialsPath, cfg.Push.Timeout)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to initialize firebase messaging")
		}
		senders = append(senders, sender.NewPush(pushClient))
	} else {
		zlog.Logger.Warn().Msg("push credentials not configured, PUSH notifications will fail")
	}

	// dispatch
	handler := dispatch.NewHandler(repo, q, sender.NewRegistry(senders...), cache, cfg.Retry, cfg.Dispatch.MaxRetryCount)
	q.OnPermanentFailure(handler.HandlePermanentFailure)

	service := notifsvc.NewService(
		repo,
		q,
		cache,
		notifsvc.NewRenderer(cfg.Templates),
		cfg.Retry,
		cfg.Dispatch.MaxRetryCount,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.NewDispatcher(tr, handler).Run(gctx, cfg.Workers.Count)
		return nil
	})

	g.Go(func() error {
		return scheduler.New(repo, q, cache, cfg.Retry, cfg.Scheduler).Run(gctx)
	})

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(kafka.NewReader(cfg.Kafka), service)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	// http
	r := router.New(notification.NewHandler(service, val))
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	zlog.Logger.Info().
		Str("addr", cfg.Server.HTTPPort).
		Str("storage", cfg.Storage.Driver).
		Str("transport", cfg.Dispatch.Transport).
		Int("workers", cfg.Workers.Count).
		Msg("notification dispatcher started")

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := g.Wait(); err != nil {
		zlog.Logger.Error().Err(err).Msg("background worker exited with error")
	}
}
