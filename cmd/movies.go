package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/cinex/internal/formatter"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/shared"
	"github.com/urfave/cli/v3"
)

// MoviesTrending lists trending movies, optionally narrowed to one genre.
func (r *Runner) MoviesTrending(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMovies(); err != nil {
		return err
	}

	genre := cmd.String("genre")
	r.logger.Info("fetching trending movies", "genre", genre)

	movies, err := r.movies.ByGenre(ctx, genre)
	if err != nil {
		return fmt.Errorf("failed to load trending movies: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, cmd.Bool("pretty"))
	}
	if len(movies) == 0 {
		return r.writePlain("No movies found\n")
	}

	title := "Trending"
	if !models.IsAllGenres(genre) {
		title = fmt.Sprintf("Trending • %s", genre)
	}
	r.writePlainHeader(title)
	return r.writeBytes(formatter.MoviesToText(movies))
}

// MoviesShow prints one movie's details.
func (r *Runner) MoviesShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMovies(); err != nil {
		return err
	}
	id, err := intArg(cmd, "id")
	if err != nil {
		return err
	}

	details, err := r.movies.Movie(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load movie %d: %w", id, err)
	}

	switch format := cmd.String("format"); format {
	case formatter.FormatJSON:
		return r.writeJSON(details, true)
	case formatter.FormatMarkdown:
		return r.writeBytes(formatter.MovieToMarkdown(details))
	case formatter.FormatText, "":
		if err := r.writeBytes(formatter.MovieToText(details)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}

	if r.favorites != nil && r.session != nil && r.session.IsAuthenticated() {
		r.loadFavorites(ctx)
		if r.favorites.IsFavorite(id) {
			r.writePlain("\n♥ In your favorites\n")
		}
	}
	return nil
}

// MoviesRecommend lists recommendations for a movie.
func (r *Runner) MoviesRecommend(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMovies(); err != nil {
		return err
	}
	id, err := intArg(cmd, "id")
	if err != nil {
		return err
	}

	movies, err := r.movies.Recommendations(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recommendations for %d: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, true)
	}
	if len(movies) == 0 {
		return r.writePlain("No recommendations for movie %d\n", id)
	}
	r.writePlainHeader(fmt.Sprintf("Recommended for movie %d", id))
	return r.writeBytes(formatter.MoviesToText(movies))
}

// MoviesSearch runs a server-side search and refines the page locally.
func (r *Runner) MoviesSearch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMovies(); err != nil {
		return err
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	filter := models.SearchFilter{
		Year:      cmd.Int("year"),
		MinRating: cmd.Float("min-rating"),
		MaxRating: cmd.Float("max-rating"),
	}
	if filter.MinRating < 0 || filter.MaxRating < 0 || filter.MaxRating > 10 ||
		(filter.MaxRating > 0 && filter.MinRating > filter.MaxRating) {
		return fmt.Errorf("%w: rating range must be within 0-10", shared.ErrInvalidFlag)
	}

	params := models.SearchParams{Query: query, Page: cmd.Int("page")}
	if filter.Year != 0 {
		params.Year = strconv.Itoa(filter.Year)
	}
	if name := cmd.String("genre"); !models.IsAllGenres(name) {
		g, ok := models.GenreByName(name)
		if !ok {
			return fmt.Errorf("%w: unknown genre %q (see 'cinex genres')", shared.ErrInvalidFlag, name)
		}
		filter.GenreID = g.ID
		params.Genre = strconv.Itoa(g.ID)
	}

	r.logger.Info("searching movies", "query", query, "page", params.Page)

	page, err := r.movies.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := filter.Apply(page.Results)

	if cmd.Bool("json") {
		page.Results = results
		return r.writeJSON(page, true)
	}

	if len(results) == 0 {
		r.writePlain("No movies match %q\n", query)
	} else {
		r.writeBytes(formatter.MoviesToText(results))
	}
	if filter.Active() && len(results) != len(page.Results) {
		r.writePlain("\n%d of %d results on this page match the filters\n", len(results), len(page.Results))
	}
	return r.writePlain("Page %d of %d\n", page.Page, max(page.TotalPages, 1))
}

// Genres lists the genre table.
func (r *Runner) Genres(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("json") {
		return r.writeJSON(models.Genres, true)
	}
	for _, g := range models.Genres {
		r.writePlain("%6d  %s\n", g.ID, g.Name)
	}
	return nil
}
