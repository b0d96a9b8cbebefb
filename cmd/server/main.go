package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/philosophersclick/internal/config"
	"github.com/playperu/philosophersclick/internal/database"
	"github.com/playperu/philosophersclick/internal/game"
	"github.com/playperu/philosophersclick/internal/handler/health"
	"github.com/playperu/philosophersclick/internal/migrations"
	"github.com/playperu/philosophersclick/internal/question"
	"github.com/playperu/philosophersclick/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	if cfg.DBPath != database.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Questions ---
	svc, err := newQuestionService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating question service: %w", err)
	}
	logger.Info("question service ready", "provider", cfg.Provider())

	pipeline := question.NewPipeline(svc, logger,
		question.WithCallTimeout(cfg.LLMTimeout),
		question.WithRetries(cfg.LLMRetries),
	)

	// --- Sessions ---
	store := server.NewSQLiteStore(db)
	broker := server.NewBroker()
	sessions := server.NewRegistry(pipeline, game.Options{
		GameName:                cfg.GameName,
		ScoreInterval:           cfg.ScoreInterval,
		QuestionInterval:        cfg.QuestionInterval,
		ResponseSeconds:         cfg.ResponseSeconds,
		PauseScoreWhileAwaiting: cfg.PauseScoreWhileAwaiting,
	}, store, broker, logger, server.WithIdleTTL(cfg.IdleSessionTTL))

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:              store,
		Sessions:           sessions,
		Broker:             broker,
		SPADir:             cfg.SPADir,
		AllowManualTrigger: cfg.AllowManualTrigger,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"sqlite":   health.CheckFunc(db.PingContext),
			"sessions": sessions,
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func newQuestionService(ctx context.Context, cfg *config.Config) (question.Service, error) {
	if cfg.Provider() == config.ProviderGemini {
		return question.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return question.NewOffline(), nil
}
