package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cache"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/llm"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/notify"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/rediscache"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/scheduler"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/storage"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/infrastructure/youtube"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/logging"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/usecase"
)

// Application wires configuration to use cases and lifecycle management.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	history  ports.History
	janitor  *usecase.Janitor
	db       *sql.DB
	logger   *slog.Logger
}

// New builds a runnable application instance. Optional adapters
// (history, notifier, Redis cache) are wired only when configured.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	cfg.Normalize()
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := cascade.NewRegistry("openrouter")
	registry.Register("openrouter", llm.NewOpenRouterClient(cfg.AI.OpenRouter))
	if cfg.AI.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiClient(cfg.AI.Gemini)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		registry.Register("gemini", gemini)
	}

	runner := cascade.NewExecutor(registry, cfg.AI.RetryAttempts, cfg.AI.Timeout(), baseLogger.With("component", "cascade"))

	app := &Application{cfg: cfg, logger: baseLogger}

	videoCache, sweeper, err := app.buildCache()
	if err != nil {
		return nil, err
	}

	var history ports.History
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.db = db
		history = storage.NewPostgresRepository(db)
	}
	app.history = history

	var notifier ports.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	extractor := youtube.NewExtractor(cfg.Subtitles, nil, baseLogger.With("component", "youtube"))

	app.pipeline = usecase.NewPipeline(cfg, usecase.PipelineDeps{
		Extractor: extractor,
		Runner:    runner,
		Cache:     videoCache,
		History:   history,
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	if sweeper != nil {
		interval := time.Duration(cfg.Cache.SweepMinutes) * time.Minute
		app.janitor = usecase.NewJanitor(scheduler.NewTickerScheduler(interval), sweeper, baseLogger.With("component", "janitor"))
	}

	return app, nil
}

// buildCache selects the cache backend. The in-memory backend also
// serves as the janitor's sweep target; Redis expires entries itself.
func (a *Application) buildCache() (ports.VideoCache, usecase.Sweeper, error) {
	switch a.cfg.Cache.Backend {
	case "", "memory":
		c := cache.New(a.cfg.Cache.MaxPerRoom, a.cfg.Cache.TTL(), nil)
		return c, c, nil
	case "redis":
		if a.cfg.Cache.RedisAddr == "" {
			return nil, nil, fmt.Errorf("cache backend redis requires an address")
		}
		client := rediscache.Connect(a.cfg.Cache.RedisAddr)
		return rediscache.New(client, a.cfg.Cache.MaxPerRoom, a.cfg.Cache.TTL()), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}

// Start launches background maintenance.
func (a *Application) Start(ctx context.Context) error {
	if a.janitor == nil {
		return nil
	}
	return a.janitor.Start(ctx)
}

// Stop tears down background work and closes the database.
func (a *Application) Stop(ctx context.Context) error {
	if a.janitor != nil {
		if err := a.janitor.Stop(ctx); err != nil {
			return err
		}
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Summarize runs the full pipeline for one video.
func (a *Application) Summarize(ctx context.Context, room, videoID string) (domain.VideoState, error) {
	return a.pipeline.SummarizeVideo(ctx, room, videoID)
}

// Answer responds to a question about the room's latest video.
func (a *Application) Answer(ctx context.Context, room, question string) (string, error) {
	return a.pipeline.AnswerQuestion(ctx, room, question)
}

// RecentSummaries returns recent summaries for a room from persistent storage.
func (a *Application) RecentSummaries(ctx context.Context, room string, limit int) ([]domain.VideoState, error) {
	if a.history == nil {
		return nil, fmt.Errorf("history storage not configured")
	}
	return a.history.Recent(ctx, room, limit)
}
