// Package cli wires configuration, tools, archives and the agent for the lattice commands.
package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/openai"
	"github.com/aretw0/lattice/pkg/adapters/process"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/adapters/sqlite"
	"github.com/aretw0/lattice/pkg/agent"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
)

// App holds the collaborators shared by the commands.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Tools   *registry.Registry
	Archive ports.RunStore

	closers []func() error
}

// NewApp loads the tool file and opens the configured archive.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		Tools:  registry.NewRegistry(),
	}

	if cfg.ToolsFile != "" {
		cfgs, err := process.LoadTools(cfg.ToolsFile)
		if err != nil {
			return nil, err
		}
		_, err = process.Register(app.Tools, cfgs,
			process.WithBaseDir(filepath.Dir(cfg.ToolsFile)),
			process.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}

	archive, closeFn, err := openArchive(cfg.Store)
	if err != nil {
		return nil, err
	}
	app.Archive = archive
	if closeFn != nil {
		app.closers = append(app.closers, closeFn)
	}

	logger.Debug("app ready", "tools", app.Tools.Len(), "store", cfg.Store.Backend)
	return app, nil
}

func openArchive(cfg config.StoreConfig) (ports.RunStore, func() error, error) {
	store, closeFn, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	mws, err := archiveMiddleware(cfg)
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, err
	}
	return middleware.Chain(store, mws...), closeFn, nil
}

// archiveMiddleware masks then encrypts outputs, as configured.
func archiveMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

func openBackend(cfg config.StoreConfig) (ports.RunStore, func() error, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return memory.NewStore(), nil, nil
	case config.BackendRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return store, store.Close, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Model returns the OpenAI-compatible model described by the config.
func (a *App) Model() model.Model {
	opts := []openai.Option{
		openai.WithMaxRetries(a.Config.OpenAI.MaxRetries),
		openai.WithLogger(a.Logger),
	}
	if a.Config.OpenAI.APIKey != "" {
		opts = append(opts, openai.WithAPIKey(a.Config.OpenAI.APIKey))
	}
	if a.Config.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(a.Config.OpenAI.BaseURL))
	}
	if a.Config.OpenAI.Timeout > 0 {
		opts = append(opts, openai.WithTimeout(a.Config.OpenAI.Timeout))
	}
	return openai.New(a.Config.Agent.Model, opts...)
}

// NewAgent builds the agent around m. Lifecycle logging is always on;
// extra hooks fire after it.
func (a *App) NewAgent(m model.Model, hooks ...domain.LifecycleHooks) (*agent.Agent, error) {
	all := append([]domain.LifecycleHooks{observability.LoggingHooks(a.Logger)}, hooks...)
	return agent.New(agent.Options{
		Name:          a.Config.Agent.Name,
		Instructions:  a.Config.Agent.Instructions,
		Model:         m,
		Tools:         a.Tools,
		MaxIterations: a.Config.Agent.MaxIterations,
		Logger:        a.Logger,
		Hooks:         domain.ComposeHooks(all...),
	})
}

// Close releases the archive.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
