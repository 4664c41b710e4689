// Favorites endpoints and normalization of their response shapes
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

const favoritesPath = "/auth/favorites/"

// FavoritesService implements [Favorites] with an authenticated [APIService].
type FavoritesService struct {
	api    *APIService
	logger *log.Logger
}

// NewFavoritesService creates a favorites client. api should carry the session credentials.
func NewFavoritesService(api *APIService) *FavoritesService {
	return &FavoritesService{api: api, logger: log.New(io.Discard)}
}

// SetLogger sets the logger used for response diagnostics.
func (s *FavoritesService) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// List fetches the whole favorites collection.
func (s *FavoritesService) List(ctx context.Context) ([]models.FavoriteEntry, error) {
	resp, err := s.api.Get(ctx, favoritesPath)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(http.MethodGet, favoritesPath); err != nil {
		return nil, err
	}
	return DecodeFavorites(resp.Body)
}

// Add favorites movieID.
//
// The backend's echo of the created entry is parsed on a best-effort basis; only the status decides success.
func (s *FavoritesService) Add(ctx context.Context, movieID int) (*models.FavoriteEntry, error) {
	if movieID <= 0 {
		return nil, fmt.Errorf("%w: movie id must be positive", shared.ErrInvalidArgument)
	}

	payload, err := json.Marshal(map[string]int{"movie_id": movieID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
	}

	resp, err := s.api.Post(ctx, favoritesPath, payload)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(http.MethodPost, favoritesPath); err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	var wire favoriteWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		s.logger.Debug("unparsed add favorite response", "movie_id", movieID, "error", err)
		return nil, nil
	}
	entry, err := wire.entry()
	if err != nil {
		s.logger.Debug("unparsed add favorite response", "movie_id", movieID, "error", err)
		return nil, nil
	}
	return &entry, nil
}

// Remove deletes the favorite addressed by favoriteID.
func (s *FavoritesService) Remove(ctx context.Context, favoriteID int) error {
	if favoriteID <= 0 {
		return fmt.Errorf("%w: favorite id must be positive", shared.ErrInvalidArgument)
	}

	path := fmt.Sprintf("%s%d/", favoritesPath, favoriteID)
	resp, err := s.api.Delete(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(http.MethodDelete, path); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: %d: %w", shared.ErrFavoriteNotFound, favoriteID, err)
		}
		return err
	}
	return nil
}

// DecodeFavorites normalizes a favorites listing into canonical entries.
//
// The body may be a bare array or an object with a favorite_movies array. Entries may be flat
// (movie_id plus movie fields) or nested (a favorite id with a movie object or movie id).
// Duplicate movie ids keep the first occurrence.
func DecodeFavorites(body []byte) ([]models.FavoriteEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty favorites response", shared.ErrDecode)
	}

	var wires []favoriteWire
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &wires); err != nil {
			return nil, fmt.Errorf("%w: favorites: %v", shared.ErrDecode, err)
		}
	case '{':
		var wrapped struct {
			Favorites *[]favoriteWire `json:"favorite_movies"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: favorites: %v", shared.ErrDecode, err)
		}
		if wrapped.Favorites == nil {
			return nil, fmt.Errorf("%w: favorites object without favorite_movies", shared.ErrDecode)
		}
		wires = *wrapped.Favorites
	default:
		return nil, fmt.Errorf("%w: favorites response is neither array nor object", shared.ErrDecode)
	}

	entries := make([]models.FavoriteEntry, 0, len(wires))
	seen := make(map[int]bool, len(wires))
	for i, w := range wires {
		entry, err := w.entry()
		if err != nil {
			return nil, fmt.Errorf("%w (entry %d)", err, i)
		}
		if seen[entry.MovieID] {
			continue
		}
		seen[entry.MovieID] = true
		entries = append(entries, entry)
	}
	return entries, nil
}

// favoriteWire covers both entry shapes the backend emits.
type favoriteWire struct {
	ID          int             `json:"id"`
	MovieID     int             `json:"movie_id"`
	Movie       json.RawMessage `json:"movie"`
	CreatedAt   string          `json:"created_at"`
	Title       string          `json:"title"`
	Overview    string          `json:"overview"`
	ReleaseDate string          `json:"release_date"`
	PosterPath  string          `json:"poster_path"`
	VoteAverage *float64        `json:"vote_average"`
}

func (w favoriteWire) entry() (models.FavoriteEntry, error) {
	e := models.FavoriteEntry{
		MovieID:     w.MovieID,
		CreatedAt:   parseTimestamp(w.CreatedAt),
		Title:       w.Title,
		Overview:    w.Overview,
		ReleaseDate: w.ReleaseDate,
		PosterPath:  w.PosterPath,
		VoteAverage: w.VoteAverage,
	}

	nested := len(bytes.TrimSpace(w.Movie)) > 0 && string(bytes.TrimSpace(w.Movie)) != "null"
	if nested {
		// nested entries use id for the favorite itself
		e.ID = w.ID
		if err := w.mergeMovie(&e); err != nil {
			return e, err
		}
	} else if e.MovieID == 0 {
		// flat entries without movie_id carry the movie id in id
		e.MovieID = w.ID
	} else if w.ID != w.MovieID {
		e.ID = w.ID
	}

	if e.MovieID <= 0 {
		return e, fmt.Errorf("%w: favorite entry without movie id", shared.ErrDecode)
	}
	return e, nil
}

func (w favoriteWire) mergeMovie(e *models.FavoriteEntry) error {
	var id int
	if err := json.Unmarshal(w.Movie, &id); err == nil {
		if e.MovieID == 0 {
			e.MovieID = id
		}
		return nil
	}

	var m models.Movie
	if err := json.Unmarshal(w.Movie, &m); err != nil {
		return fmt.Errorf("%w: favorite movie: %v", shared.ErrDecode, err)
	}
	if e.MovieID == 0 {
		e.MovieID = m.ID
	}
	if e.Title == "" {
		e.Title = m.Title
	}
	if e.Overview == "" {
		e.Overview = m.Overview
	}
	if e.ReleaseDate == "" {
		e.ReleaseDate = m.ReleaseDate
	}
	if e.PosterPath == "" {
		e.PosterPath = m.PosterPath
	}
	if e.VoteAverage == nil {
		rating := m.VoteAverage
		e.VoteAverage = &rating
	}
	return nil
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", time.DateOnly}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
