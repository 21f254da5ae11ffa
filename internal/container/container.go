package container

import (
	"context"
	"fmt"
	"time"

	"hypogate/adapters/excel"
	"hypogate/adapters/llm"
	"hypogate/adapters/llm/heuristic"
	"hypogate/adapters/memstore"
	"hypogate/adapters/resilience"
	"hypogate/adapters/sqlstore"
	"hypogate/internal"
	"hypogate/internal/api"
	"hypogate/internal/classifier"
	"hypogate/internal/config"
	"hypogate/internal/consistency"
	"hypogate/internal/empirical"
	"hypogate/internal/metrics"
	"hypogate/internal/orchestrator"
	"hypogate/internal/report"
	"hypogate/internal/scoring"
	"hypogate/internal/validator"
	"hypogate/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Metrics *metrics.Metrics
	Store   ports.ExperimentStore
	sql     *sqlstore.Store

	// Collaborators
	Datasets  ports.DatasetAccess
	Generator ports.Generator
	Enhancer  ports.Enhancer

	// Engine
	Registry     *validator.Registry
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *orchestrator.Dispatcher

	// HTTP surface
	Hub    *api.EventHub
	Server *api.Server
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Container{Config: cfg, Logger: logger, Metrics: metrics.New()}, nil
}

// Init wires the store, collaborators, orchestrator and API in dependency order.
func (c *Container) Init(ctx context.Context) error {
	if err := c.initStore(ctx); err != nil {
		return err
	}
	if err := c.initCollaborators(); err != nil {
		return err
	}
	if err := c.initEngine(); err != nil {
		return err
	}
	c.Hub = api.NewEventHub(c.Logger)
	c.Server = api.NewServer(api.Deps{
		Experiments: c.Orchestrator,
		Queue:       c.Dispatcher,
		Store:       c.Store,
		Metrics:     c.Metrics,
		Hub:         c.Hub,
		Logger:      c.Logger,
	})
	return nil
}

func (c *Container) initStore(ctx context.Context) error {
	db := c.Config.Database
	switch db.Driver {
	case config.DriverMemory:
		c.Store = memstore.New()
		c.Logger.Warn("using in-memory experiment store; state is lost on exit")
	default:
		s, err := sqlstore.Open(ctx, db.Driver, db.URL)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", db.Driver, err)
		}
		c.sql = s
		c.Store = s
		c.Logger.Info("experiment store ready (%s)", db.Driver)
	}
	return nil
}

func (c *Container) initCollaborators() error {
	rcfg := resilience.DefaultConfig()

	catalog := &excel.Catalog{}
	if path := c.Config.Data.CatalogPath; path != "" {
		loaded, err := excel.LoadCatalog(path)
		if err != nil {
			return err
		}
		catalog = loaded
		c.Logger.Info("dataset catalog %s: %d datasets", path, len(catalog.Datasets))
	} else {
		c.Logger.Warn("DATASET_CATALOG not set; every dataset reference will fail")
	}
	c.Datasets = resilience.WrapDatasets(excel.NewSeriesAccess(catalog, c.Logger), rcfg, c.Logger)

	if c.Config.LLM.BaseURL == "" {
		c.Logger.Info("LLM_BASE_URL not set; using the offline heuristic generator")
		c.Generator = heuristic.NewGenerator()
		return nil
	}
	gen, err := llm.NewGenerator(llm.Config{
		Model:       c.Config.LLM.Model,
		APIKey:      c.Config.LLM.APIKey,
		BaseURL:     c.Config.LLM.BaseURL,
		Temperature: c.Config.LLM.Temperature,
		MaxTokens:   c.Config.LLM.MaxTokens,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Generator = resilience.WrapGenerator(gen, rcfg, c.Logger)
	c.Enhancer = resilience.WrapEnhancer(gen, rcfg, c.Logger)
	return nil
}

func (c *Container) initEngine() error {
	engine := c.Config.Engine
	c.Registry = validator.NewRegistry(empirical.NewAnalyzer(), scoring.NewScorer())

	deps := orchestrator.Deps{
		Store:      c.Store,
		Datasets:   c.Datasets,
		Generator:  c.Generator,
		Enhancer:   c.Enhancer,
		Registry:   c.Registry,
		Classifier: classifier.New(engine.ClassifierFloor),
		Checker:    consistency.NewChecker(),
		Renderer:   report.NewRenderer(),
		Metrics:    c.Metrics,
		Logger:     c.Logger,
	}
	orch, err := orchestrator.New(engine, deps)
	if err != nil {
		return err
	}
	c.Orchestrator = orch
	c.Dispatcher = orchestrator.NewDispatcher(orch, c.Logger)
	return nil
}

// Close stops the dispatcher and releases the store.
func (c *Container) Close(timeout time.Duration) error {
	if c.Dispatcher != nil {
		c.Dispatcher.Stop(timeout)
	}
	if c.sql != nil {
		return c.sql.Close()
	}
	return nil
}
