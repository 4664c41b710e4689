package models

import (
	"strconv"
	"strings"
)

// Movie is the list projection of a movie as returned by trending, search and recommendations.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Adult            bool    `json:"adult,omitempty"`
}

// Year returns the release year, or 0 when the release date is missing or malformed.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(m.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// HasGenre reports whether the movie is tagged with the genre id.
func (m Movie) HasGenre(id int) bool {
	for _, g := range m.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Company is a production company credited on a movie.
type Company struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LogoPath      string `json:"logo_path,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// CastMember is one credited actor.
type CastMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// CrewMember is one credited crew member.
type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// Credits groups cast and crew.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// MovieDetails is the full record returned by the details endpoint.
//
// Every field besides ID is display data and may be absent.
type MovieDetails struct {
	Movie
	Genres              []Genre   `json:"genres,omitempty"`
	Runtime             int       `json:"runtime,omitempty"`
	Tagline             string    `json:"tagline,omitempty"`
	Status              string    `json:"status,omitempty"`
	Budget              int64     `json:"budget,omitempty"`
	Revenue             int64     `json:"revenue,omitempty"`
	Homepage            string    `json:"homepage,omitempty"`
	ProductionCompanies []Company `json:"production_companies,omitempty"`
	Credits             *Credits  `json:"credits,omitempty"`
}

// GenreNames returns the names of the detailed genres, falling back to the genre table for bare ids.
func (d MovieDetails) GenreNames() []string {
	var names []string
	if len(d.Genres) > 0 {
		for _, g := range d.Genres {
			names = append(names, g.Name)
		}
		return names
	}
	for _, id := range d.GenreIDs {
		if g, ok := GenreByID(id); ok {
			names = append(names, g.Name)
		}
	}
	return names
}

// Directors returns crew members credited with the Director job.
func (d MovieDetails) Directors() []string {
	if d.Credits == nil {
		return nil
	}
	var names []string
	for _, c := range d.Credits.Crew {
		if strings.EqualFold(c.Job, "Director") {
			names = append(names, c.Name)
		}
	}
	return names
}

// FormatRuntime renders minutes as "2h 15m".
func FormatRuntime(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return strconv.Itoa(m) + "m"
	case m == 0:
		return strconv.Itoa(h) + "h"
	default:
		return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
	}
}
