package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hw-quiz-service/internal/app"
	"hw-quiz-service/internal/config"
	"hw-quiz-service/internal/editor"
	"hw-quiz-service/internal/gateway"
	"hw-quiz-service/internal/infra/file"
	"hw-quiz-service/internal/infra/memory"
	pgcontent "hw-quiz-service/internal/infra/postgres"
	redisinfra "hw-quiz-service/internal/infra/redis"
	webcontent "hw-quiz-service/internal/infra/web"
	transport "hw-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	backend := gateway.New(cfg.Backend.URL, config.TTLDuration(cfg.Backend.Timeout, 15*time.Second))

	// Content source priority: Postgres, then the content web origin, then a
	// local directory.
	var loader memory.ContentLoader
	switch {
	case pool != nil:
		loader = pgcontent.NewContentLoader(pool)
	case cfg.Content.BaseURL != "":
		loader = webcontent.NewContentLoader(cfg.Content.BaseURL, 15*time.Second)
	default:
		dir := cfg.Content.Dir
		if dir == "" {
			dir = "quizzes"
		}
		loader = file.NewContentLoader(dir)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = redisinfra.NewContentRepository(redisClient, loader, contentTTL)
	} else {
		content = memory.NewContentRepository(loader, contentTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Session.TTL, 12*time.Hour))
	} else {
		store = memory.NewSessionStore()
	}

	auth := app.NewAuthService(backend, store)
	attempts := app.NewAttemptManager(content, backend)
	history := app.NewHistoryService(backend, content)
	publisher := editor.NewPublisher(backend)

	handler := transport.NewHandler(auth, attempts, history, publisher)
	wsHandler := transport.NewWSHandler(auth, attempts)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /ws/attempt", wsHandler.ServeWS)

	// Warm up the backend so the first login does not pay its cold start.
	go backend.Ping(ctx)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
