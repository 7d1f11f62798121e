package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lexicard/lexicard-api/internal/config"
	"github.com/lexicard/lexicard-api/internal/enrichment"
	"github.com/lexicard/lexicard-api/internal/events"
	"github.com/lexicard/lexicard-api/internal/generation"
	"github.com/lexicard/lexicard-api/internal/platform/anthropic"
	"github.com/lexicard/lexicard-api/internal/platform/gemini"
	"github.com/lexicard/lexicard-api/internal/platform/metrics"
	"github.com/lexicard/lexicard-api/internal/platform/postgres"
	"github.com/lexicard/lexicard-api/internal/service"
	"github.com/lexicard/lexicard-api/internal/service/auth"
	"github.com/lexicard/lexicard-api/internal/synonym"
	"github.com/lexicard/lexicard-api/internal/task"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Registry

	jwtService  auth.JWTService
	deckService *service.DeckAIService
	taskRunner  *task.TaskRunner
}

// newApplication wires providers, stores, services and the background task
// runner. The runner is started before it returns.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.NewRegistry(),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	backends, err := buildBackends(ctx, cfg.LLM, logger, app.metrics)
	if err != nil {
		return nil, err
	}
	orchestrator := generation.NewOrchestrator(backends,
		generation.WithCallTimeout(cfg.LLM.CallTimeout),
		generation.WithLogger(logger),
		generation.WithRecorder(app.metrics),
	)

	enricher, err := enrichment.NewService(orchestrator, cfg.Enrichment,
		enrichment.WithLogger(logger),
		enrichment.WithRecorder(app.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment service: %w", err)
	}

	mode, err := synonym.ParseMode(cfg.Enrichment.ClusterMode)
	if err != nil {
		return nil, fmt.Errorf("invalid cluster mode: %w", err)
	}
	suggester := synonym.NewSuggester(enricher, synonym.Clusterer{Mode: mode},
		synonym.WithSynonymLimit(cfg.Enrichment.SynonymLimit),
		synonym.WithConcurrency(cfg.Enrichment.SynonymConcurrency),
		synonym.WithLogger(logger),
	)

	deckStore := postgres.NewPostgresDeckStore(db, logger)
	cardStore := postgres.NewPostgresCardStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	emitter := events.NewInMemoryEmitter(logger)

	opts := []service.DeckAIOption{
		service.WithEmitter(emitter),
		service.WithBackfillBatchSize(cfg.Enrichment.BatchChunkSize),
		service.WithSuggestLimit(cfg.Enrichment.SuggestCardLimit),
	}
	if cfg.LLM.GeminiAPIKey != "" {
		embedder, err := gemini.NewEmbedder(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		opts = append(opts, service.WithEmbedder(embedder))
	} else {
		logger.Warn("no gemini API key configured, similarity search is disabled")
	}

	app.deckService, err = service.NewDeckAIService(db, deckStore, cardStore, enricher, suggester, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck AI service: %w", err)
	}

	runnerCfg := task.DefaultTaskRunnerConfig()
	runnerCfg.WorkerCount = cfg.Task.WorkerCount
	runnerCfg.QueueSize = cfg.Task.QueueSize
	app.taskRunner = task.NewTaskRunner(taskStore, runnerCfg, logger, task.WithRecorder(app.metrics))

	factory := task.NewBackfillTaskFactory(app.deckService, task.DefaultBackfillLimit, logger)
	app.taskRunner.RegisterRestorer(task.TaskTypeBackfillTranscriptions, factory.Restore)
	emitter.Subscribe(events.TypeCardsCreated, task.NewBackfillEventHandler(factory, app.taskRunner, logger))

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// buildBackends returns one backend per entry of cfg.ProviderPriority, in
// order. Providers without credentials or models are kept as unconfigured
// backends so requests reaching them report generation.ErrNotConfigured.
func buildBackends(
	ctx context.Context,
	cfg config.LLMConfig,
	logger *slog.Logger,
	rec generation.Recorder,
) ([]generation.Backend, error) {
	var rotationOpts []generation.RotationOption
	if !cfg.LockRotation {
		rotationOpts = append(rotationOpts, generation.WithoutLocking())
	}
	rotationOpts = append(rotationOpts,
		generation.WithRotationLogger(logger),
		generation.WithRotationRecorder(rec),
	)

	backends := make([]generation.Backend, 0, len(cfg.ProviderPriority))
	for _, name := range cfg.ProviderPriority {
		b := generation.Backend{Name: name}
		if !cfg.ProviderConfigured(name) {
			logger.Warn("LLM provider not configured", "provider", name)
			backends = append(backends, b)
			continue
		}

		var (
			models []string
			err    error
		)
		switch name {
		case config.ProviderGemini:
			models = cfg.GeminiModels
			b.Provider, err = gemini.New(ctx, cfg.GeminiAPIKey)
		case config.ProviderAnthropic:
			models = cfg.AnthropicModels
			b.Provider, err = anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicMaxTokens)
		default:
			return nil, fmt.Errorf("unknown LLM provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", name, err)
		}

		b.Rotation, err = generation.NewRotation(name, models, rotationOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s model rotation: %w", name, err)
		}
		logger.Info("LLM provider configured", "provider", name, "models", models)
		backends = append(backends, b)
	}
	return backends, nil
}

// Run serves HTTP until ctx is cancelled, then releases all resources.
func (app *application) Run(ctx context.Context) error {
	router := newRouter(routerDeps{
		logger:    app.logger,
		validator: app.jwtService,
		service:   app.deckService,
		metrics:   app.metrics,
	})

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task runner and closes the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
