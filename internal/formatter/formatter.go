// package formatter renders favorites and movie details to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/shared"
)

// Supported output formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// castLimit caps the cast list in rendered details.
const castLimit = 10

// FavoritesToCSV converts favorites to CSV with columns: MovieID, Title, Year, Rating, Added
func FavoritesToCSV(entries []models.FavoriteEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"MovieID", "Title", "Year", "Rating", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.MovieID),
			e.Title,
			yearOf(e.ReleaseDate),
			ratingOf(e.VoteAverage),
			dateOf(e.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// FavoritesToMarkdown converts favorites to a Markdown list
func FavoritesToMarkdown(entries []models.FavoriteEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Favorites\n\n")
	buf.WriteString(fmt.Sprintf("**Movies**: %d\n\n", len(entries)))

	if len(entries) == 0 {
		buf.WriteString("_No favorites yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Movies\n\n")
	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s%s", i+1, e.Title, yearSuffix(e.ReleaseDate)))
		if e.VoteAverage != nil {
			buf.WriteString(fmt.Sprintf(" [%s/10]", ratingOf(e.VoteAverage)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// FavoritesToText converts favorites to plain text format
func FavoritesToText(entries []models.FavoriteEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Favorites: %d\n\n", len(entries)))
	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s%s (#%d)\n", i+1, e.Title, yearSuffix(e.ReleaseDate), e.MovieID))
	}

	return buf.Bytes(), nil
}

// Favorites renders entries in the named format.
func Favorites(entries []models.FavoriteEntry, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return FavoritesToCSV(entries)
	case FormatMarkdown:
		return FavoritesToMarkdown(entries)
	case FormatText, "":
		return FavoritesToText(entries)
	case FormatJSON:
		if entries == nil {
			entries = []models.FavoriteEntry{}
		}
		return shared.MarshalJSON(entries, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (expected one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// MoviesToText renders a movie list, one line per movie
func MoviesToText(movies []models.Movie) []byte {
	var buf bytes.Buffer
	for _, m := range movies {
		buf.WriteString(fmt.Sprintf("%6d  %-40s %4s  %.1f\n", m.ID, truncate(m.Title, 40), yearOf(m.ReleaseDate), m.VoteAverage))
	}
	return buf.Bytes()
}

// MovieToMarkdown renders a movie's details as a Markdown document
func MovieToMarkdown(d *models.MovieDetails) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s%s\n\n", d.Title, yearSuffix(d.ReleaseDate)))
	if d.Tagline != "" {
		buf.WriteString(fmt.Sprintf("_%s_\n\n", d.Tagline))
	}

	if d.ReleaseDate != "" {
		buf.WriteString(fmt.Sprintf("**Released**: %s\n", d.ReleaseDate))
	}
	if d.Runtime > 0 {
		buf.WriteString(fmt.Sprintf("**Runtime**: %s\n", models.FormatRuntime(d.Runtime)))
	}
	buf.WriteString(fmt.Sprintf("**Rating**: %.1f/10\n", d.VoteAverage))
	if genres := d.GenreNames(); len(genres) > 0 {
		buf.WriteString(fmt.Sprintf("**Genres**: %s\n", strings.Join(genres, ", ")))
	}
	if directors := d.Directors(); len(directors) > 0 {
		buf.WriteString(fmt.Sprintf("**Directed by**: %s\n", strings.Join(directors, ", ")))
	}
	buf.WriteString("\n")

	if d.Overview != "" {
		buf.WriteString("## Overview\n\n")
		buf.WriteString(d.Overview + "\n\n")
	}

	if d.Credits != nil && len(d.Credits.Cast) > 0 {
		buf.WriteString("## Cast\n\n")
		for i, c := range d.Credits.Cast {
			if i == castLimit {
				break
			}
			if c.Character != "" {
				buf.WriteString(fmt.Sprintf("- %s as %s\n", c.Name, c.Character))
			} else {
				buf.WriteString(fmt.Sprintf("- %s\n", c.Name))
			}
		}
	}

	return buf.Bytes()
}

// MovieToText renders a movie's details as plain text
func MovieToText(d *models.MovieDetails) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s%s\n", d.Title, yearSuffix(d.ReleaseDate)))
	if d.Tagline != "" {
		buf.WriteString(d.Tagline + "\n")
	}
	buf.WriteString(fmt.Sprintf("Rating: %.1f/10", d.VoteAverage))
	if d.Runtime > 0 {
		buf.WriteString(fmt.Sprintf("  Runtime: %s", models.FormatRuntime(d.Runtime)))
	}
	buf.WriteString("\n")
	if genres := d.GenreNames(); len(genres) > 0 {
		buf.WriteString(fmt.Sprintf("Genres: %s\n", strings.Join(genres, ", ")))
	}
	if directors := d.Directors(); len(directors) > 0 {
		buf.WriteString(fmt.Sprintf("Directed by: %s\n", strings.Join(directors, ", ")))
	}
	if d.Overview != "" {
		buf.WriteString("\n" + d.Overview + "\n")
	}

	return buf.Bytes()
}

// WriteMovieExport writes one movie's details into dir and returns the file path.
//
// Files are named {id}-{slug}.{ext}; format is markdown, txt or json.
func WriteMovieExport(d *models.MovieDetails, dir, format string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case FormatMarkdown:
		data, ext = MovieToMarkdown(d), "md"
	case FormatText:
		data, ext = MovieToText(d), "txt"
	case FormatJSON, "":
		ext = "json"
		data, err = shared.MarshalJSON(d, true)
		if err != nil {
			return "", fmt.Errorf("failed to marshal movie: %w", err)
		}
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidFlag, format)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d-%s.%s", d.ID, Slug(d.Title), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write movie file: %w", err)
	}
	return path, nil
}

// ManifestEntry records one movie's export outcome.
type ManifestEntry struct {
	MovieID int      `json:"movie_id"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ExportManifest summarizes a favorites export.
type ExportManifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Format      string          `json:"format"`
	TotalMovies int             `json:"total_movies"`
	Successful  int             `json:"successful"`
	Failed      int             `json:"failed"`
	Entries     []ManifestEntry `json:"entries"`
}

// WriteExportManifest writes the manifest as indented JSON.
func WriteExportManifest(m *ExportManifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

func yearOf(releaseDate string) string {
	if y := (models.Movie{ReleaseDate: releaseDate}).Year(); y > 0 {
		return strconv.Itoa(y)
	}
	return ""
}

func yearSuffix(releaseDate string) string {
	if y := yearOf(releaseDate); y != "" {
		return " (" + y + ")"
	}
	return ""
}

func ratingOf(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func dateOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
