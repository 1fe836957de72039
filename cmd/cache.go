package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mbx/internal/cache"
	"github.com/urfave/cli/v3"
)

func (r *Runner) maintainer() (cache.Maintainer, error) {
	m, ok := r.store.(cache.Maintainer)
	if !ok {
		return nil, fmt.Errorf("cache backend %q does not support housekeeping", r.config.Cache.Backend)
	}
	return m, nil
}

// CachePrune removes expired cache entries.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	m, err := r.maintainer()
	if err != nil {
		return err
	}
	n, err := m.Prune(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	r.logger.Info("cache pruned", "backend", r.config.Cache.Backend, "removed", n)
	return r.writePlain("Removed %d expired entries\n", n)
}

// CacheClear removes every cache entry.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	m, err := r.maintainer()
	if err != nil {
		return err
	}
	n, err := m.Clear(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	r.logger.Info("cache cleared", "backend", r.config.Cache.Backend, "removed", n)
	return r.writePlain("Removed %d entries\n", n)
}
