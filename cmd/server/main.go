package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"campus-chat/internal/auth"
	"campus-chat/internal/chat"
	"campus-chat/internal/config"
	"campus-chat/internal/db"
	"campus-chat/internal/middleware"
	"campus-chat/internal/notification"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	// 2. Logger
	log := newLogger(cfg)
	log.Info().Str("addr", cfg.Addr).Str("env", cfg.Environment).Msg("starting campus-chat")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Collaborator stores (optional: the live core runs without them)
	var (
		chatRepo  *chat.Repository
		notifRepo *notification.Repository
	)
	if cfg.DatabaseDSN != "" {
		database, err := db.NewDatabase(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to postgres")
		}
		defer database.Conn.Close()
		if err := database.AutoMigrate(); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		chatRepo = chat.NewRepository(database.Conn)
		notifRepo = notification.NewRepository(database.Conn)
		log.Info().Msg("connected to postgres")
	} else {
		log.Warn().Msg("DB_DSN not set, history and notifications disabled")
	}

	// 4. Message bus
	var bus chat.Bus
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Fatal().Err(err).Msg("connect to redis")
		}
		defer redisClient.Close()
		bus = chat.NewRedisBus(redisClient, log)
		log.Info().Str("redis", cfg.RedisAddr).Msg("connected to redis")
	} else {
		bus = chat.NewMemoryBus(log)
		log.Info().Msg("REDIS_ADDR not set, using in-process bus")
	}

	// 5. Hub
	var (
		archive  chat.MessageArchiver
		notifier chat.NotificationWriter
	)
	if chatRepo != nil {
		archive = chatRepo
	}
	if notifRepo != nil {
		notifier = notifRepo
	}
	hub := chat.NewHub(bus, archive, notifier, log)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	// 6. HTTP layer
	validator := auth.NewValidator(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(validator)
	chatHandler := chat.NewHandler(hub, chatRepo, cfg.HistoryLimit, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/ws", chatHandler.ServeWs)
		r.Get("/api/presence", chatHandler.GetPresence)
		r.Get("/api/messages", chatHandler.GetDirectHistory)
		r.Get("/api/groups/{groupID}/messages", chatHandler.GetGroupHistory)

		if notifRepo != nil {
			notification.NewHandler(notifRepo, cfg.HistoryLimit, log).Routes(r)
		}
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket writes manage their own deadlines
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", cfg.Addr).Msg("server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
		// The hub may still be publishing; close the bus only once it stops.
		<-hubDone
		bus.Close()
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Development() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
