package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cinex/internal/favorites"
	"github.com/desertthunder/cinex/internal/formatter"
	"github.com/desertthunder/cinex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadFavorites fills the store once per process. Failures are logged and leave it empty.
func (r *Runner) loadFavorites(ctx context.Context) error {
	if r.favorites.State() != favorites.Idle {
		return nil
	}
	if err := r.favorites.Refresh(ctx); err != nil {
		r.logger.Warn("failed to load favorites", "error", err)
		return err
	}
	return nil
}

// FavoritesList prints the signed-in user's favorites.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadFavorites(ctx); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	entries := r.favorites.Entries()
	format := cmd.String("format")
	if format == formatter.FormatText && len(entries) == 0 {
		return r.writePlain("No favorites yet. Add one with 'cinex favorites add <movie-id>'\n")
	}

	data, err := formatter.Favorites(entries, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// FavoritesAdd favorites a movie.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, "movie-id")
	if err != nil {
		return err
	}
	if err := r.loadFavorites(ctx); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	if r.favorites.IsFavorite(id) {
		return r.writePlain("Movie %d is already a favorite\n", id)
	}

	r.logger.Info("adding favorite", "movie_id", id)
	if err := r.favorites.Add(ctx, id); err != nil {
		return fmt.Errorf("failed to add favorite: %s: %w", describe(err), err)
	}
	return r.writePlain("✓ Added movie %d to favorites (%d total)\n", id, r.favorites.Len())
}

// FavoritesRemove removes a movie from favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, "movie-id")
	if err != nil {
		return err
	}
	if err := r.loadFavorites(ctx); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	if !r.favorites.IsFavorite(id) {
		return r.writePlain("Movie %d is not a favorite\n", id)
	}

	r.logger.Info("removing favorite", "movie_id", id)
	if err := r.favorites.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove favorite: %s: %w", describe(err), err)
	}
	return r.writePlain("✓ Removed movie %d from favorites (%d total)\n", id, r.favorites.Len())
}

// FavoritesCheck reports whether a movie is a favorite.
func (r *Runner) FavoritesCheck(ctx context.Context, cmd *cli.Command) error {
	id, err := intArg(cmd, "movie-id")
	if err != nil {
		return err
	}
	if err := r.loadFavorites(ctx); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	if r.favorites.IsFavorite(id) {
		return r.writePlain("♥ Movie %d is a favorite\n", id)
	}
	return r.writePlain("Movie %d is not a favorite\n", id)
}

// FavoritesExport writes every favorite's details to disk with a manifest.
func (r *Runner) FavoritesExport(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return r.requireMovies()
	}
	if err := r.loadFavorites(ctx); err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	entries := r.favorites.Entries()
	if len(entries) == 0 {
		return r.writePlain("No favorites to export\n")
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}

	r.logger.Info("starting favorites export", "movies", len(entries), "format", opts.Format)
	r.writePlain("Exporting %d favorites...\n\n", len(entries))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchDetails:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			case tasks.ExportMovie:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkExport(ctx, progressCh, entries, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalMovies)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d movies:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %d %s: %v\n", res.MovieID, res.Title, res.Error)
			}
		}
	}
	return nil
}
