package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	galaxysync "github.com/jdziat/galaxy-sync"
	"github.com/jdziat/galaxy-sync/internal/config"
	"github.com/jdziat/galaxy-sync/pkg/blob"
	"github.com/jdziat/galaxy-sync/pkg/remote"
	"github.com/jdziat/galaxy-sync/pkg/scheduler"
	"github.com/jdziat/galaxy-sync/pkg/storage"
)

// app is the set of components a command works with. Fields a command does
// not need stay nil.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.GormStorage
	client *remote.Client
	engine *galaxysync.Engine
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: opts.ConfigFile,
		EnvFiles:   opts.EnvFiles,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// openStore opens the database only, for commands that never reach Galaxy.
func openStore(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: cfg.NewLogger(cmd.ErrOrStderr())}
	if a.store, err = newStore(cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return a, nil
}

// openEngine validates the full configuration and wires the engine.
func openEngine(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())

	sched, err := scheduler.Parse(cfg.Sync.Schedule)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid sync.schedule", err)
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid galaxy settings", err)
	}
	blobs, err := newBlobStore(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open object storage", err)
	}
	store, err := newStore(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engine := galaxysync.New(store, client, blobs,
		galaxysync.WithLogger(logger),
		galaxysync.WithConcurrency(cfg.Sync.Concurrency),
		galaxysync.WithOwnerConcurrency(cfg.Sync.Concurrency),
		galaxysync.WithInterval(cfg.Sync.Interval),
		galaxysync.WithRetryBudget(cfg.Sync.RetryBudget),
		galaxysync.WithSchedule(sched),
	)
	return &app{cfg: cfg, logger: logger, store: store, client: client, engine: engine}, nil
}

func newStore(cfg *config.Config) (*storage.GormStorage, error) {
	pool := cfg.DB.Pool
	return storage.Open(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.Debug,
		storage.MaxOpenConns(pool.MaxOpenConns),
		storage.MaxIdleConns(pool.MaxIdleConns),
		storage.ConnMaxLifetime(pool.ConnMaxLifetime),
		storage.ConnMaxIdleTime(pool.ConnMaxIdleTime),
	)
}

func newClient(cfg *config.Config, logger *slog.Logger) (*remote.Client, error) {
	return remote.New(cfg.Galaxy.URL, cfg.Galaxy.APIKey,
		remote.WithTimeout(cfg.Galaxy.Timeout),
		remote.WithLogger(logger),
	)
}

func newBlobStore(cfg *config.Config, logger *slog.Logger) (*blob.FSStore, error) {
	opts := []blob.FSOption{blob.WithLogger(logger)}
	if cfg.Storage.BaseURL != "" {
		u, err := url.Parse(cfg.Storage.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse storage.base_url: %w", err)
		}
		opts = append(opts, blob.WithBaseURL(u))
	}
	return blob.NewFSStore(cfg.Storage.Root, []byte(cfg.Storage.SigningKey), opts...)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
