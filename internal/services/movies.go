// Movie query layer: trending, details, recommendations and search
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/shared"
)

const (
	trendingPath = "/movies/trending/"
	searchPath   = "/movies/search"
)

// Cache stores raw response bodies keyed by request path.
type Cache interface {
	// Get returns a body stored less than maxAge ago.
	Get(key string, maxAge time.Duration) ([]byte, bool, error)
	// Put stores body under key, replacing any previous value.
	Put(key string, body []byte) error
}

// MovieService implements [Movies] against the backend, reusing cached responses for ttl.
type MovieService struct {
	api    *APIService
	cache  Cache
	ttl    time.Duration
	logger *log.Logger
}

// NewMovieService creates a movie query service. A nil cache or a non-positive ttl disables caching.
func NewMovieService(api *APIService, cache Cache, ttl time.Duration) *MovieService {
	return &MovieService{api: api, cache: cache, ttl: ttl, logger: log.New(io.Discard)}
}

// SetLogger sets the logger used for cache diagnostics.
func (s *MovieService) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Trending returns the current trending movies.
func (s *MovieService) Trending(ctx context.Context) ([]models.Movie, error) {
	body, err := s.fetch(ctx, trendingPath)
	if err != nil {
		return nil, err
	}
	return decodeMovieList(body)
}

// ByGenre filters the trending list by genre id on the client.
func (s *MovieService) ByGenre(ctx context.Context, genre string) ([]models.Movie, error) {
	var g models.Genre
	if !models.IsAllGenres(genre) {
		var ok bool
		if g, ok = models.GenreByName(genre); !ok {
			return nil, fmt.Errorf("%w: unknown genre %q", shared.ErrInvalidArgument, genre)
		}
	}

	movies, err := s.Trending(ctx)
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return movies, nil
	}
	return models.SearchFilter{GenreID: g.ID}.Apply(movies), nil
}

// Movie retrieves a movie's details.
//
// When the details endpoint reports 404, the trending list is searched for the id before giving up.
func (s *MovieService) Movie(ctx context.Context, id int) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", shared.ErrInvalidArgument)
	}

	body, err := s.fetch(ctx, fmt.Sprintf("/movies/%d", id))
	if errors.Is(err, shared.ErrNotFound) {
		return s.fromTrending(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	var details models.MovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("%w: movie %d: %v", shared.ErrDecode, id, err)
	}
	if details.ID == 0 {
		return nil, fmt.Errorf("%w: movie %d: response has no id", shared.ErrDecode, id)
	}
	return &details, nil
}

func (s *MovieService) fromTrending(ctx context.Context, id int) (*models.MovieDetails, error) {
	movies, err := s.Trending(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range movies {
		if m.ID == id {
			return &models.MovieDetails{Movie: m}, nil
		}
	}
	return nil, fmt.Errorf("%w: %d: %w", shared.ErrMovieNotFound, id, shared.ErrNotFound)
}

// Recommendations returns movies recommended for the given movie.
func (s *MovieService) Recommendations(ctx context.Context, id int) ([]models.Movie, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", shared.ErrInvalidArgument)
	}

	body, err := s.fetch(ctx, fmt.Sprintf("/movies/%d/recommendations/", id))
	if err != nil {
		return nil, err
	}
	return decodeMovieList(body)
}

// Search runs a server-side search.
func (s *MovieService) Search(ctx context.Context, params models.SearchParams) (*models.SearchPage, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	body, err := s.fetch(ctx, searchPath+"?"+params.Values().Encode())
	if err != nil {
		return nil, err
	}

	var page models.SearchPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: search: %v", shared.ErrDecode, err)
	}
	if page.Results == nil {
		page.Results = []models.Movie{}
	}
	if page.Page == 0 {
		page.Page = max(params.Page, 1)
	}
	if page.TotalPages == 0 && len(page.Results) > 0 {
		page.TotalPages = 1
	}
	return &page, nil
}

// fetch returns the 2xx body for path, serving from the cache when fresh.
func (s *MovieService) fetch(ctx context.Context, path string) ([]byte, error) {
	caching := s.cache != nil && s.ttl > 0

	if caching {
		body, ok, err := s.cache.Get(path, s.ttl)
		if err != nil {
			s.logger.Warn("cache read failed", "key", path, "error", err)
		} else if ok {
			s.logger.Debug("cache hit", "key", path)
			return body, nil
		}
	}

	resp, err := s.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(http.MethodGet, path); err != nil {
		return nil, err
	}

	if caching {
		if err := s.cache.Put(path, resp.Body); err != nil {
			s.logger.Warn("cache write failed", "key", path, "error", err)
		}
	}
	return resp.Body, nil
}

// decodeMovieList accepts either a bare array or an object wrapping it under "results".
func decodeMovieList(body []byte) ([]models.Movie, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty movie list", shared.ErrDecode)
	}

	switch trimmed[0] {
	case '[':
		var movies []models.Movie
		if err := json.Unmarshal(trimmed, &movies); err != nil {
			return nil, fmt.Errorf("%w: movie list: %v", shared.ErrDecode, err)
		}
		return movies, nil
	case '{':
		var wrapped struct {
			Results *[]models.Movie `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: movie list: %v", shared.ErrDecode, err)
		}
		if wrapped.Results == nil {
			return nil, fmt.Errorf("%w: movie list object without results", shared.ErrDecode)
		}
		return *wrapped.Results, nil
	default:
		return nil, fmt.Errorf("%w: movie list is neither array nor object", shared.ErrDecode)
	}
}
