package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/cinex/internal/models"
)

var (
	_ list.Item = movieItem{}
	_ list.Item = favoriteItem{}
)

// movieItem wraps [models.Movie] to implement [list.Item].
type movieItem struct {
	movie models.Movie
}

func (i movieItem) FilterValue() string { return i.movie.Title }
func (i movieItem) Title() string       { return i.movie.Title }
func (i movieItem) Description() string {
	parts := []string{}
	if y := i.movie.Year(); y != 0 {
		parts = append(parts, fmt.Sprintf("%d", y))
	}
	if i.movie.VoteAverage > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", i.movie.VoteAverage))
	}
	if names := genreNames(i.movie.GenreIDs); len(names) > 0 {
		parts = append(parts, strings.Join(names, ", "))
	}
	return strings.Join(parts, " • ")
}

// favoriteItem wraps [models.FavoriteEntry] to implement [list.Item].
type favoriteItem struct {
	entry models.FavoriteEntry
}

func (i favoriteItem) FilterValue() string { return i.Title() }
func (i favoriteItem) Title() string {
	if i.entry.Title == "" {
		return fmt.Sprintf("Movie #%d", i.entry.MovieID)
	}
	return i.entry.Title
}
func (i favoriteItem) Description() string {
	parts := []string{}
	if len(i.entry.ReleaseDate) >= 4 {
		parts = append(parts, i.entry.ReleaseDate[:4])
	}
	if i.entry.VoteAverage != nil {
		parts = append(parts, fmt.Sprintf("★ %.1f", *i.entry.VoteAverage))
	}
	if !i.entry.CreatedAt.IsZero() {
		parts = append(parts, "added "+i.entry.CreatedAt.Format("2006-01-02"))
	}
	return strings.Join(parts, " • ")
}

func genreNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if g, ok := models.GenreByID(id); ok {
			names = append(names, g.Name)
		}
	}
	return names
}

func movieItems(movies []models.Movie) []list.Item {
	items := make([]list.Item, len(movies))
	for i, m := range movies {
		items[i] = movieItem{movie: m}
	}
	return items
}

func favoriteItems(entries []models.FavoriteEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = favoriteItem{entry: e}
	}
	return items
}

func newList(title string, items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), max(width, 0), max(height, 0))
	l.Title = title
	l.SetShowHelp(false)
	return l
}
