package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"torcida-quiz-service/internal/app"
	"torcida-quiz-service/internal/auth"
	"torcida-quiz-service/internal/config"
	"torcida-quiz-service/internal/infra/memory"
	"torcida-quiz-service/internal/infra/postgres"
	redisinfra "torcida-quiz-service/internal/infra/redis"
	"torcida-quiz-service/internal/logger"
	"torcida-quiz-service/internal/observability"
	transport "torcida-quiz-service/internal/transport/http"
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

// backends are the storage, cache and fan-out implementations picked from config.
type backends struct {
	store  app.Store
	sheets app.SheetCache
	events app.Broadcaster
	close  func()
}

func openBackends(ctx context.Context, cfg config.Config, log *logger.Logger) (backends, error) {
	b := backends{close: func() {}}
	sheetTTL := config.Duration(cfg.Quiz.SheetTTL, 10*time.Minute)

	var loader memory.SheetLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return b, err
		}
		store := postgres.NewStore(pool)
		b.store, loader = store, store
		b.close = pool.Close
		log.Info("using postgres store")
	} else {
		store := memory.NewStore()
		b.store, loader = store, store
		log.Warn("postgres not configured, using in-memory store")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			b.close()
			return b, err
		}
		b.sheets = redisinfra.NewSheetCache(client, loader, config.Duration(cfg.Redis.TTL, sheetTTL))
		b.events = redisinfra.NewBroadcaster(client)
		closeStore := b.close
		b.close = func() {
			_ = client.Close()
			closeStore()
		}
		log.Info("using redis sheet cache and broadcaster", "addr", cfg.Redis.Addr)
	} else {
		b.sheets = memory.NewSheetCache(loader, sheetTTL)
		b.events = memory.NewBroadcaster()
	}
	return b, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	shutdownTracing, err := observability.InitTracing(ctx, log, cfg.Tracing, cfg.App.Env, nil)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.Duration(cfg.Auth.TokenTTL, 7*24*time.Hour))
	defaults := app.Defaults{
		TimeLimit:       cfg.Quiz.DefaultTimeLimit,
		MaxParticipants: cfg.Quiz.DefaultMaxParticipants,
		Points:          cfg.Quiz.DefaultPoints,
	}
	authService := app.NewAuthService(b.store, tokens, log)
	quizService := app.NewQuizService(b.store, b.store, b.store, b.sheets, b.events, defaults, log)
	playService := app.NewPlayService(b.store, b.store, b.store, b.sheets, b.events, log)

	api := transport.NewServer(authService, quizService, playService, tokens, log, transport.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		Tracing:        cfg.Tracing.Enabled,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JoinURL:        cfg.Share.JoinURL,
		Development:    cfg.Development(),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(),
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
