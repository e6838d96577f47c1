package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/vidshare/client/internal/api"
	"github.com/vidshare/client/internal/config"
	"github.com/vidshare/client/internal/logging"
	"github.com/vidshare/client/internal/session"
	"github.com/vidshare/client/internal/store"
	"github.com/vidshare/client/internal/videos"
)

// commandContext lazily wires the client's collaborators so leaf commands
// share one configured set of services.
type commandContext struct {
	configFlag *string

	once sync.Once
	err  error

	cfg      config.Config
	logger   *slog.Logger
	sessions *session.Manager
	catalog  *videos.Catalog
	uploader *videos.Uploader
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensure() error {
	c.once.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}

		cfg, err := config.Load(path)
		if err != nil {
			c.err = err
			return
		}

		logger := logging.New(os.Stderr, cfg.LogLevel)
		slog.SetDefault(logger)

		state, err := store.NewFileStore(cfg.StateDir)
		if err != nil {
			c.err = err
			return
		}

		client := api.New(cfg.APIBaseURL, api.NewThrottle(cfg.RequestsPerSecond, cfg.RequestBurst))
		sessions := session.NewManager(client, state)
		catalog := videos.NewCatalog(sessions, cfg.PageSize)

		c.cfg = cfg
		c.logger = logger
		c.sessions = sessions
		c.catalog = catalog
		c.uploader = videos.NewUploader(sessions, client, catalog, cfg.CacheDir)
	})
	return c.err
}

// requireSession runs the startup reconciliation and fails when no live
// session survives it.
func (c *commandContext) requireSession(ctx context.Context) (context.Context, error) {
	if err := c.ensure(); err != nil {
		return ctx, err
	}

	ctx = logging.WithLogger(ctx, c.logger)

	ok, err := c.sessions.Restore(ctx)
	if err != nil {
		return ctx, err
	}
	if !ok {
		return ctx, fmt.Errorf("%w: run `vidshare login` first", session.ErrNotLoggedIn)
	}
	return ctx, nil
}

func (c *commandContext) loggerContext(ctx context.Context) (context.Context, error) {
	if err := c.ensure(); err != nil {
		return ctx, err
	}
	return logging.WithLogger(ctx, c.logger), nil
}
