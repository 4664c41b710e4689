// package tasks implements long-running favorites operations.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"

	"github.com/desertthunder/cinex/internal/models"
)

// DetailFetcher retrieves a movie's details. Implemented by services.MovieService.
type DetailFetcher interface {
	Movie(ctx context.Context, id int) (*models.MovieDetails, error)
}

// FavoritesEngine runs bulk operations over a favorites collection.
type FavoritesEngine struct {
	movies DetailFetcher
}

// NewFavoritesEngine creates a new FavoritesEngine backed by movies.
func NewFavoritesEngine(movies DetailFetcher) *FavoritesEngine {
	return &FavoritesEngine{movies: movies}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *FavoritesEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
