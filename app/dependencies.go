package app

import (
	"context"
	"fmt"

	"github.com/upb/nse-market-bot/config"
	"github.com/upb/nse-market-bot/internal/embedding"
	"github.com/upb/nse-market-bot/internal/observability"
	"github.com/upb/nse-market-bot/repositories"
	"github.com/upb/nse-market-bot/repositories/memory"
	"github.com/upb/nse-market-bot/repositories/postgres"
	"github.com/upb/nse-market-bot/services/chat"
	"github.com/upb/nse-market-bot/services/ingest"
	"github.com/upb/nse-market-bot/services/providers"
	"github.com/upb/nse-market-bot/services/providers/openai"
	"github.com/upb/nse-market-bot/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB // nil for the memory store
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repository Factory (postgres store only)
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Passages  repositories.PassageRepository
	TxManager repositories.TransactionManager

	// Embedding model shared by search and ingestion
	Embedder *embedding.Provider

	// Provider Registry
	ProviderRegistry *providers.Registry

	// Services
	Retrieval *retrieval.Service
	Ingest    *ingest.Service
	Chat      *chat.Service // nil when no chat provider serves the configured model
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initEmbedding(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	if err := deps.initProviders(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initServices(cfg)

	if cfg.Embedding.EagerInit {
		go deps.warmUp()
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Backend),
		zap.String("embedding_model", deps.Embedder.Model()),
		zap.Bool("chat_enabled", deps.Chat != nil))
	return deps, nil
}

// initStore opens the passage store selected by STORE_BACKEND
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Backend == config.StoreBackendMemory {
		d.Passages = memory.NewPassageRepository(cfg.Embedding.Dimensions)
		d.TxManager = memory.NewTransactionManager()
		d.Logger.Warn("using in-memory passage store, data is lost on restart")
		return nil
	}

	if cfg.Store.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cfg.Database, d.Logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	repos := factory.NewRepositories()
	d.Passages = repos.Passages
	d.TxManager = repos.Transactions

	d.Logger.Info("repositories initialized", zap.String("table", cfg.Store.Table))
	return nil
}

// initEmbedding builds the embedding provider; the model is loaded lazily
func (d *Dependencies) initEmbedding(cfg *config.Config) error {
	extractor, err := embedding.NewExtractor(cfg.Embedding.Backend, embedding.BackendConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
		MaxRetries: cfg.Embedding.MaxRetries,
	}, d.Logger)
	if err != nil {
		return err
	}

	provider, err := embedding.NewProvider(extractor, embedding.ProviderConfig{
		Dimensions:  cfg.Embedding.Dimensions,
		InitTimeout: cfg.Embedding.InitTimeout,
		CacheSize:   cfg.Embedding.CacheSize,
	}, d.Logger, d.Metrics)
	if err != nil {
		return err
	}

	d.Embedder = provider
	return nil
}

// initProviders initializes the provider registry with configured providers
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := NewProviderRegistry(d.Logger)

	if cfg.Providers.OpenAI.APIKey != "" {
		providerCfg := providers.DefaultProviderConfig()
		providerCfg.APIKey = cfg.Providers.OpenAI.APIKey
		providerCfg.BaseURL = cfg.Providers.OpenAI.BaseURL
		providerCfg.Timeout = cfg.Providers.OpenAI.Timeout
		providerCfg.MaxRetries = cfg.Providers.OpenAI.MaxRetries

		if err := registry.Register(openai.NewOpenAIAdapter(providerCfg, d.Logger)); err != nil {
			return err
		}
	}

	if registry.Count() == 0 {
		d.Logger.Warn("no LLM providers configured, chat endpoint disabled")
	}

	d.ProviderRegistry = registry
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.Retrieval = retrieval.NewService(d.Embedder, d.Passages, retrieval.Config{
		DefaultCount: cfg.Retrieval.DefaultCount,
		MaxCount:     cfg.Retrieval.MaxCount,
		Timeout:      cfg.Retrieval.Timeout,
	}, d.Logger, d.Metrics)

	d.Ingest = ingest.NewService(d.Embedder, d.Passages, d.TxManager, d.Logger, d.Metrics)

	if d.ProviderRegistry.Count() == 0 {
		return
	}
	provider, err := d.ProviderRegistry.StreamingForModel(cfg.Chat.Model)
	if err != nil {
		d.Logger.Warn("no streaming provider for chat model, chat endpoint disabled",
			zap.String("model", cfg.Chat.Model),
			zap.Error(err))
		return
	}
	d.Chat = chat.NewService(d.Retrieval, provider, chat.Config{
		Model:        cfg.Chat.Model,
		Temperature:  cfg.Chat.Temperature,
		MaxTokens:    cfg.Chat.MaxTokens,
		ContextCount: cfg.Retrieval.DefaultCount,
	}, d.Logger, d.Metrics)
}

// warmUp loads the embedding model in the background so the first question
// does not pay for it. Failures are retried on first use.
func (d *Dependencies) warmUp() {
	if err := d.Embedder.Init(context.Background()); err != nil {
		d.Logger.Warn("embedding model warm-up failed", zap.Error(err))
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
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

// NewProviderRegistry creates an empty provider registry
func NewProviderRegistry(logger *zap.Logger) *providers.Registry {
	return providers.NewRegistry(logger)
}
