package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lemdata/ai-gateway/config"
	"github.com/lemdata/ai-gateway/repositories"
	"github.com/lemdata/ai-gateway/repositories/postgres"
	"github.com/lemdata/ai-gateway/services/dispatch"
	"github.com/lemdata/ai-gateway/services/pricing"
	"github.com/lemdata/ai-gateway/services/providers"
	"github.com/lemdata/ai-gateway/services/providers/gemini"
	"github.com/lemdata/ai-gateway/services/providers/huggingface"
	"github.com/lemdata/ai-gateway/services/providers/ollama"
	"github.com/lemdata/ai-gateway/services/routing"
	"github.com/lemdata/ai-gateway/services/usage"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Usage         repositories.UsageRepository
	Conversations repositories.ConversationRepository

	// Services
	Registry     *providers.Registry
	UsageService *usage.Service
	Router       *routing.Service
	Dispatch     *dispatch.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the PostgreSQL connection, runs the schema, and
// builds the repositories.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Usage = postgres.NewUsageRepository(db, d.Logger)
	d.Conversations = postgres.NewConversationRepository(db, d.Logger)

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initProviders registers the three generation backends. Backends with
// missing credentials still register; they report unavailable and the
// selection policy routes around them.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	estimator := pricing.NewEstimator(pricing.Table{
		GeminiRatePer1KTokens: cfg.Routing.GeminiRatePer1KTokens,
		GeminiFreeTokenBudget: cfg.Routing.GeminiFreeTokenBudget,
	})

	geminiAdapter := gemini.NewAdapter(gemini.Config{
		APIKey:        cfg.Providers.Gemini.APIKey,
		BaseURL:       cfg.Providers.Gemini.BaseURL,
		Model:         cfg.Providers.Gemini.Model,
		Timeout:       cfg.Providers.Gemini.Timeout,
		HistoryWindow: cfg.Routing.HistoryWindow,
	}, estimator, d.Logger)
	if err := registry.Register(geminiAdapter); err != nil {
		return err
	}

	hfAdapter := huggingface.NewAdapter(huggingface.Config{
		APIKey:        cfg.Providers.HuggingFace.APIKey,
		BaseURL:       cfg.Providers.HuggingFace.BaseURL,
		Model:         cfg.Providers.HuggingFace.Model,
		Timeout:       cfg.Providers.HuggingFace.Timeout,
		HistoryWindow: cfg.Routing.HistoryWindow,
	}, d.Logger)
	if err := registry.Register(hfAdapter); err != nil {
		return err
	}

	ollamaAdapter := ollama.NewAdapter(ollama.Config{
		Host:              cfg.Providers.Ollama.Host,
		Model:             cfg.Providers.Ollama.Model,
		GenerationTimeout: cfg.Providers.Ollama.GenerationTimeout,
		ProbeTimeout:      cfg.Routing.ProbeTimeout,
		HistoryWindow:     cfg.Routing.HistoryWindow,
	}, d.Logger)
	if err := registry.Register(ollamaAdapter); err != nil {
		return err
	}

	d.Registry = registry
	d.Logger.Info("provider registry initialized",
		zap.Int("providers", len(registry.All())))
	return nil
}

// initServices wires the usage ledger, the selection policy, and the
// dispatch orchestrator on top of the repositories and the registry.
func (d *Dependencies) initServices(cfg *config.Config) {
	d.UsageService = usage.NewService(d.Usage, d.Logger)

	d.Router = routing.NewService(routing.Limits{
		DailyCostThreshold: cfg.Routing.DailyCostThreshold,
		FreeQueriesPerDay:  cfg.Routing.FreeQueriesPerDay,
	}, d.Registry, d.UsageService, d.Logger)

	d.Dispatch = dispatch.NewService(
		d.Router,
		d.Registry,
		d.UsageService,
		d.Conversations,
		cfg.Routing.HistoryWindow,
		d.Logger,
	)

	d.Logger.Info("services initialized")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
