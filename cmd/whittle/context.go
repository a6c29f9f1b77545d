package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"whittle/internal/carve"
	"whittle/internal/casedb"
	"whittle/internal/config"
	"whittle/internal/events"
	"whittle/internal/ingest"
	"whittle/internal/logging"
	"whittle/internal/notifications"
	"whittle/internal/report"
	"whittle/internal/services/photorec"
	"whittle/internal/workspace"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// pipeline is the fully wired carving stack behind the run and watch
// commands. close releases the case database.
type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *casedb.Store
	notifier notifications.Service
	runner   *ingest.Runner
	bus      *events.Bus
}

func (p *pipeline) close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

func (c *commandContext) buildPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	// New validates the settings and resolves the engine binary itself.
	engine, err := photorec.New(cfg.EngineCommand(), photorec.SettingsFromConfig(cfg),
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	store, err := casedb.Open(cfg.Paths.CaseDB)
	if err != nil {
		return nil, err
	}
	manager, err := workspace.NewManager(cfg.OutputRoot(), cfg.TempRoot())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	notifier := notifications.NewService(cfg)
	bus := events.NewBus(256)
	executor := carve.NewExecutor(engine, store, report.NewDFXML(), bus, notifier, logger)
	runner := ingest.NewRunner(store, executor, manager, notifier, logger,
		cfg.Paths.WorkDir, cfg.Carving.Workers)

	return &pipeline{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifier,
		runner:   runner,
		bus:      bus,
	}, nil
}
