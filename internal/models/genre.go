package models

import "strings"

// AllGenres is the selector that disables genre filtering.
const AllGenres = "All Genres"

// Genre is a movie genre as identified by the backend.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Genres is the fixed genre table, ordered for display.
var Genres = []Genre{
	{28, "Action"},
	{12, "Adventure"},
	{16, "Animation"},
	{35, "Comedy"},
	{80, "Crime"},
	{99, "Documentary"},
	{18, "Drama"},
	{10751, "Family"},
	{14, "Fantasy"},
	{36, "History"},
	{27, "Horror"},
	{10402, "Music"},
	{9648, "Mystery"},
	{10749, "Romance"},
	{878, "Science Fiction"},
	{53, "Thriller"},
	{10752, "War"},
	{37, "Western"},
}

// GenreTabs is the short list of genres offered when browsing trending movies.
var GenreTabs = []string{AllGenres, "Drama", "Action", "Comedy", "Documentary"}

// GenreByName finds a genre by case-insensitive name.
func GenreByName(name string) (Genre, bool) {
	name = strings.TrimSpace(name)
	for _, g := range Genres {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return Genre{}, false
}

// GenreByID finds a genre by id.
func GenreByID(id int) (Genre, bool) {
	for _, g := range Genres {
		if g.ID == id {
			return g, true
		}
	}
	return Genre{}, false
}

// IsAllGenres reports whether name selects every genre.
func IsAllGenres(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, AllGenres) || strings.EqualFold(name, "all")
}
