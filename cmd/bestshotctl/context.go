package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/best-shot/backend/config"
	"github.com/best-shot/backend/internal/admin"
	"github.com/best-shot/backend/internal/bootstrap"
	"github.com/best-shot/backend/internal/logging"
	"github.com/best-shot/backend/internal/store"
	"github.com/best-shot/backend/pkg/redis"
)

type globalFlags struct {
	driver     string
	sqlitePath string
	noRedis    bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *zap.Logger
	store  store.Store
	redis  *redis.Client
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if path := strings.TrimSpace(c.flags.sqlitePath); path != "" {
			c.flags.driver = "sqlite"
			c.flags.sqlitePath = path
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.driver != "" {
			cfg.Database.Driver = strings.ToLower(c.flags.driver)
		}
		if c.flags.sqlitePath != "" {
			cfg.Database.SQLitePath = c.flags.sqlitePath
		}
		if c.flags.noRedis {
			cfg.Redis.Enabled = false
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		// CLI output goes to stdout; only warnings reach the log
		c.logger = logging.New("warn")
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore(ctx context.Context) (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := bootstrap.OpenStore(ctx, cfg.Database, c.logger)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

func (c *commandContext) openRedis(ctx context.Context) (*redis.Client, error) {
	if c.redis != nil {
		return c.redis, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis, c.logger)
	if err != nil {
		return nil, err
	}
	c.redis = rdb
	return rdb, nil
}

// adminService wires the admin service with the same draft store and change
// feed the server uses, so resets reach live dashboards.
func (c *commandContext) adminService(ctx context.Context) (*admin.Service, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	rdb, err := c.openRedis(ctx)
	if err != nil {
		return nil, err
	}
	cfg := c.config
	return admin.NewService(st, bootstrap.Drafts(rdb, cfg.Voting), bootstrap.Feed(rdb, c.logger), nil, cfg.Server.PublicBaseURL, c.logger), nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
		c.redis = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}
