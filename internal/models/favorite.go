package models

import "time"

// FavoriteEntry is one movie in a user's favorites, unique by MovieID within a collection.
//
// ID is the backend-issued favorite identifier and is 0 when the backend does not send one.
type FavoriteEntry struct {
	ID          int       `json:"id,omitempty"`
	MovieID     int       `json:"movie_id"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	ReleaseDate string    `json:"release_date"`
	PosterPath  string    `json:"poster_path"`
	VoteAverage *float64  `json:"vote_average,omitempty"`
}

// Key returns the identifier used to address this favorite on the backend.
func (f FavoriteEntry) Key() int {
	if f.ID != 0 {
		return f.ID
	}
	return f.MovieID
}

// Rating returns the vote average or 0 when absent.
func (f FavoriteEntry) Rating() float64 {
	if f.VoteAverage == nil {
		return 0
	}
	return *f.VoteAverage
}
