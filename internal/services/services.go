// package services defines the interfaces for talking to the movie backend over HTTP
//
// Movies (read-only queries), Favorites (per-user bookmarks)
package services

import (
	"context"

	"github.com/desertthunder/cinex/internal/models"
)

// Movies defines the read-only movie queries offered by the backend.
type Movies interface {
	// Trending returns the current trending movies.
	Trending(ctx context.Context) ([]models.Movie, error)

	// ByGenre returns trending movies tagged with the named genre; [models.AllGenres] returns all.
	ByGenre(ctx context.Context, genre string) ([]models.Movie, error)

	// Movie retrieves a single movie by id.
	Movie(ctx context.Context, id int) (*models.MovieDetails, error)

	// Recommendations returns movies recommended for the given movie id.
	Recommendations(ctx context.Context, id int) ([]models.Movie, error)

	// Search runs a server-side search and returns one page of results.
	Search(ctx context.Context, params models.SearchParams) (*models.SearchPage, error)
}

// Favorites defines the authenticated favorites endpoints.
type Favorites interface {
	// List returns the caller's full favorites collection in canonical form.
	List(ctx context.Context) ([]models.FavoriteEntry, error)

	// Add favorites a movie. The returned entry is nil when the backend sends no usable body.
	Add(ctx context.Context, movieID int) (*models.FavoriteEntry, error)

	// Remove deletes the favorite addressed by its backend key.
	Remove(ctx context.Context, favoriteID int) error
}

var (
	_ Movies    = (*MovieService)(nil)
	_ Favorites = (*FavoritesService)(nil)
)
