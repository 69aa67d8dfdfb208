package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sales-insights/internal/config"
	"github.com/sells-group/sales-insights/internal/pipeline"
	"github.com/sells-group/sales-insights/internal/publish"
	"github.com/sells-group/sales-insights/internal/resilience"
	"github.com/sells-group/sales-insights/internal/store"
	"github.com/sells-group/sales-insights/pkg/notion"
)

// appEnv holds the store and pipeline used by the analyze and serve commands.
type appEnv struct {
	Store    store.Store // nil when history is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

type envOptions struct {
	store   bool
	publish bool
}

// initEnv validates config for command, opens the store when requested and
// builds the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, command string, o envOptions) (*appEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	env := &appEnv{}
	opts := []pipeline.Option{pipeline.WithTempDir(cfg.Publish.TempDir)}

	if o.store {
		if err := cfg.Validate("store"); err != nil {
			return nil, err
		}
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		opts = append(opts, pipeline.WithStore(st))
	}

	if o.publish {
		opts = append(opts, pipeline.WithPublishers(initPublishers(cfg)...))
	}

	p, err := pipeline.FromConfig(cfg.Analysis, opts...)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build pipeline")
	}
	env.Pipeline = p
	return env, nil
}

// initStore opens and migrates the configured upload store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initPublishers(c *config.Config) []publish.Publisher {
	pubs := []publish.Publisher{publish.NewFilePublisher(c.Publish.Dir, c.Publish.FileName)}

	if c.Notion.Enabled() {
		client := notion.NewClient(c.Notion.Token, notion.WithRateLimit(c.Notion.RateLimit))
		policy := resilience.NewPolicy(c.Notion.RetryAttempts, c.Notion.RetryBackoffMs)
		pubs = append(pubs, publish.NewNotionPublisher(client, c.Notion.UploadDB, policy))
		zap.L().Info("notion upload log enabled")
	} else {
		zap.L().Debug("notion not configured, upload log disabled")
	}
	return pubs
}
