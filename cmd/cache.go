package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cinex/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheClear purges cached movie responses, optionally only those older than --older-than.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.cache == nil {
		return fmt.Errorf("%w: cache not initialized", shared.ErrServiceUnavailable)
	}

	maxAge := cmd.Duration("older-than")
	if maxAge < 0 {
		return fmt.Errorf("%w: --older-than must not be negative", shared.ErrInvalidFlag)
	}

	n, err := r.cache.Purge(maxAge)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("cache cleared", "removed", n, "older_than", maxAge)
	return r.writePlain("✓ Removed %d cached responses\n", n)
}

// CacheStats reports how many responses are cached.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if r.cache == nil {
		return fmt.Errorf("%w: cache not initialized", shared.ErrServiceUnavailable)
	}

	n, err := r.cache.Count()
	if err != nil {
		return fmt.Errorf("failed to count cached responses: %w", err)
	}
	r.writePlain("Cached responses: %d\n", n)
	return r.writePlain("TTL: %s\n", r.config.Cache.TTL.Duration)
}
