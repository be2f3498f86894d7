package main

import (
	"log/slog"
	"strings"
	"sync"

	"cadastra/internal/config"
	"cadastra/internal/engine"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/logging"
	"cadastra/internal/workunit"
)

type commandContext struct {
	configFlag *string
	actorFlag  *string
	nameFlag   *string
	scopeFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, actorFlag, nameFlag, scopeFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		actorFlag:  actorFlag,
		nameFlag:   nameFlag,
		scopeFlag:  scopeFlag,
	}
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

// actor builds the trusted caller identity from the persistent flags, with
// the role implied by the command that was invoked.
func (c *commandContext) actor(role identity.Role) identity.Actor {
	actor := identity.Actor{Role: role}
	if c.actorFlag != nil {
		actor.ID = strings.TrimSpace(*c.actorFlag)
	}
	if c.nameFlag != nil {
		actor.Name = strings.TrimSpace(*c.nameFlag)
	}
	if c.scopeFlag != nil {
		actor.Region = strings.TrimSpace(*c.scopeFlag)
	}
	return actor
}

// env bundles the open store, audit log, engines, and logger for one command
// invocation.
type env struct {
	cfg        *config.Config
	store      *workunit.Store
	audit      *history.Log
	logger     *slog.Logger
	assignment *engine.Assignment
	progress   *engine.Progress
	qc         *engine.QualityControl
}

// withEnv opens the store and runs fn, closing everything afterwards.
func (c *commandContext) withEnv(fn func(*env) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	store, err := workunit.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	audit := history.NewLog(store.DB())

	return fn(&env{
		cfg:        cfg,
		store:      store,
		audit:      audit,
		logger:     logger,
		assignment: engine.NewAssignment(store, audit, logger, cfg),
		progress:   engine.NewProgress(store, audit, logger, cfg),
		qc:         engine.NewQualityControl(store, audit, logger, cfg),
	})
}
