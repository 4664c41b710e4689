package models

import (
	"net/url"
	"strconv"
)

// SearchParams is a server-side movie search request.
type SearchParams struct {
	Query string
	Year  string
	Genre string
	Page  int
}

// Values encodes the params as the search endpoint's query string, keeping empty keys.
func (p SearchParams) Values() url.Values {
	page := p.Page
	if page < 1 {
		page = 1
	}
	v := url.Values{}
	v.Set("query", p.Query)
	v.Set("year", p.Year)
	v.Set("genre", p.Genre)
	v.Set("page", strconv.Itoa(page))
	return v
}

// SearchPage is one page of search results.
type SearchPage struct {
	Results      []Movie `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// SearchFilter refines fetched results on the client: release year, genre and rating range.
//
// Zero values disable a criterion; MaxRating 0 means 10.
type SearchFilter struct {
	Year      int
	GenreID   int
	MinRating float64
	MaxRating float64
}

// Active reports whether any criterion would remove results.
func (f SearchFilter) Active() bool {
	return f.Year != 0 || f.GenreID != 0 || f.MinRating > 0 || (f.MaxRating > 0 && f.MaxRating < 10)
}

// Apply returns the movies matching every criterion, preserving order.
func (f SearchFilter) Apply(movies []Movie) []Movie {
	maxRating := f.MaxRating
	if maxRating <= 0 {
		maxRating = 10
	}

	out := make([]Movie, 0, len(movies))
	for _, m := range movies {
		if f.Year != 0 && m.Year() != f.Year {
			continue
		}
		if f.GenreID != 0 && !m.HasGenre(f.GenreID) {
			continue
		}
		if m.VoteAverage < f.MinRating || m.VoteAverage > maxRating {
			continue
		}
		out = append(out, m)
	}
	return out
}
