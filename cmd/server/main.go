package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/chronofeed/internal/config"
	"github.com/vedran77/chronofeed/internal/database"
	"github.com/vedran77/chronofeed/internal/events"
	"github.com/vedran77/chronofeed/internal/repository"
	"github.com/vedran77/chronofeed/internal/repository/cached"
	"github.com/vedran77/chronofeed/internal/repository/memory"
	postgresrepo "github.com/vedran77/chronofeed/internal/repository/postgres"
	"github.com/vedran77/chronofeed/internal/service"
	"github.com/vedran77/chronofeed/internal/telemetry"
	"github.com/vedran77/chronofeed/internal/transport/http/handlers"
	"github.com/vedran77/chronofeed/internal/transport/http/middleware"
	"github.com/vedran77/chronofeed/internal/transport/ws"
)

type repos struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
}

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, shutdownTracing(shutdownCtx))
	}()

	// Storage
	var store repos
	switch cfg.Store {
	case "memory":
		db := memory.NewDB()
		store = repos{
			users:         memory.NewUserRepo(db),
			conversations: memory.NewConversationRepo(db),
			messages:      memory.NewMessageRepo(db),
			notifications: memory.NewNotificationRepo(db),
		}
		slog.Warn("using in-memory store, data is lost on restart")
	default:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		slog.Info("connected to database", "host", cfg.DBHost, "db", cfg.DBName)

		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		store = postgresRepos(pool)
	}

	users, err := cached.NewUserRepo(store.users, cfg.UserCacheSize)
	if err != nil {
		return err
	}

	// Services
	clock := clockwork.NewRealClock()
	authService := service.NewAuthService(users, cfg.JWTSecret, clock)
	convService := service.NewConversationService(store.conversations, users, clock)
	notificationService := service.NewNotificationService(store.notifications, users, clock)
	messageService := service.NewMessageService(store.messages, store.conversations, notificationService, clock)

	// Realtime
	hub := ws.NewHub()
	defer hub.Shutdown()
	notifier := ws.NewHubNotifier(hub)
	messageService.SetRelay(notifier)
	notificationService.SetPusher(notifier)

	g, gctx := errgroup.WithContext(ctx)

	var sendLimit handlers.Middleware
	if cfg.RedisURL != "" {
		opts, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			return fmt.Errorf("parse REDIS_URL: %w", parseErr)
		}
		rdb := redis.NewClient(opts)
		defer func() { err = multierr.Append(err, rdb.Close()) }()

		bridge := ws.NewRedisBridge(rdb, hub)
		hub.SetBridge(bridge)
		g.Go(func() error { return bridge.Run(gctx) })

		sendLimit = middleware.RateLimit(middleware.NewRedisLimiter(rdb, cfg.SendRateLimit, cfg.SendRateWindow), "send")
		slog.Info("redis enabled", "addr", opts.Addr)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaMessagesTopic)
		defer func() { err = multierr.Append(err, publisher.Close()) }()
		messageService.SetPublisher(publisher)

		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaNotificationsTopic, notificationService)
		g.Go(func() error { return consumer.Run(gctx) })
		slog.Info("kafka enabled", "brokers", cfg.KafkaBrokers)
	}

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, authService))

	handlers.Router{
		Auth:          handlers.NewAuthHandler(authService),
		Conversations: handlers.NewConversationHandler(convService),
		Messages:      handlers.NewMessageHandler(messageService),
		Notifications: handlers.NewNotificationHandler(notificationService),
	}.Mount(mux, middleware.Auth(authService), sendLimit)

	var handler http.Handler = middleware.AccessLog(logger)(mux)
	handler = chimw.Recoverer(handler)
	handler = chimw.RealIP(handler)
	handler = chimw.RequestID(handler)
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = otelhttp.NewHandler(handler, "chronofeed")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func postgresRepos(pool *pgxpool.Pool) repos {
	return repos{
		users:         postgresrepo.NewUserRepo(pool),
		conversations: postgresrepo.NewConversationRepo(pool),
		messages:      postgresrepo.NewMessageRepo(pool),
		notifications: postgresrepo.NewNotificationRepo(pool),
	}
}
