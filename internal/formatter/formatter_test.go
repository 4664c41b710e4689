package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/shared"
	th "github.com/desertthunder/cinex/internal/testing"
)

func rating(v float64) *float64 { return &v }

func sampleFavorites() []models.FavoriteEntry {
	return []models.FavoriteEntry{
		{
			ID:          101,
			MovieID:     2,
			Title:       "Heat",
			ReleaseDate: "1995-12-15",
			VoteAverage: rating(7.9),
			CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			MovieID:     3,
			Title:       "Paddington 2, the sequel",
			ReleaseDate: "",
		},
	}
}

func sampleDetails() *models.MovieDetails {
	return &models.MovieDetails{
		Movie: models.Movie{
			ID:          2,
			Title:       "Heat",
			Overview:    "A group of professional bank robbers...",
			ReleaseDate: "1995-12-15",
			VoteAverage: 7.9,
			GenreIDs:    []int{28, 80},
		},
		Runtime: 170,
		Tagline: "A Los Angeles crime saga",
		Credits: &models.Credits{
			Cast: []models.CastMember{{Name: "Al Pacino", Character: "Vincent Hanna"}, {Name: "Robert De Niro"}},
			Crew: []models.CrewMember{{Name: "Michael Mann", Job: "Director"}},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("FavoritesToCSV", func(t *testing.T) {
		data, err := FavoritesToCSV(sampleFavorites())
		if err != nil {
			t.Fatalf("FavoritesToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "MovieID,Title,Year,Rating,Added" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "2,Heat,1995,7.9,2024-03-01" {
			t.Errorf("unexpected first row: %s", lines[1])
		}
		if lines[2] != `3,"Paddington 2, the sequel",,,` {
			t.Errorf("expected quoted title and empty columns, got: %s", lines[2])
		}
	})

	t.Run("FavoritesToMarkdown", func(t *testing.T) {
		data, err := FavoritesToMarkdown(sampleFavorites())
		if err != nil {
			t.Fatalf("FavoritesToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# Favorites", "**Movies**: 2", "1. Heat (1995) [7.9/10]", "2. Paddington 2, the sequel\n"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}

		t.Run("Empty", func(t *testing.T) {
			data, _ := FavoritesToMarkdown(nil)
			if !strings.Contains(string(data), "No favorites yet") {
				t.Errorf("expected empty notice, got %s", data)
			}
		})
	})

	t.Run("FavoritesToText", func(t *testing.T) {
		data, err := FavoritesToText(sampleFavorites())
		if err != nil {
			t.Fatalf("FavoritesToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Favorites: 2\n") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "1. Heat (1995) (#2)") {
			t.Errorf("text missing first entry, got %s", output)
		}
	})

	t.Run("Favorites", func(t *testing.T) {
		t.Run("JSON", func(t *testing.T) {
			data, err := Favorites(nil, FormatJSON)
			if err != nil {
				t.Fatalf("Favorites failed: %v", err)
			}
			if strings.TrimSpace(string(data)) != "[]" {
				t.Errorf("expected empty array, got %s", data)
			}
		})

		t.Run("Dispatch", func(t *testing.T) {
			for _, format := range Formats {
				if _, err := Favorites(sampleFavorites(), format); err != nil {
					t.Errorf("format %s: %v", format, err)
				}
			}
		})

		t.Run("Unknown Format", func(t *testing.T) {
			_, err := Favorites(nil, "xml")
			if !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})
	})

	t.Run("MoviesToText", func(t *testing.T) {
		output := string(MoviesToText([]models.Movie{{ID: 1, Title: "Arrival", ReleaseDate: "2016-11-11", VoteAverage: 7.6}}))
		if !strings.Contains(output, "Arrival") || !strings.Contains(output, "2016") || !strings.Contains(output, "7.6") {
			t.Errorf("unexpected output %q", output)
		}
	})

	t.Run("MovieToMarkdown", func(t *testing.T) {
		output := string(MovieToMarkdown(sampleDetails()))
		for _, want := range []string{
			"# Heat (1995)",
			"_A Los Angeles crime saga_",
			"**Runtime**: 2h 50m",
			"**Genres**: Action, Crime",
			"**Directed by**: Michael Mann",
			"## Overview",
			"- Al Pacino as Vincent Hanna",
			"- Robert De Niro\n",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("MovieToText", func(t *testing.T) {
		output := string(MovieToText(sampleDetails()))
		if !strings.HasPrefix(output, "Heat (1995)\n") {
			t.Errorf("unexpected header in %q", output)
		}
		if !strings.Contains(output, "Runtime: 2h 50m") {
			t.Errorf("text missing runtime, got %q", output)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteMovieExport", func(t *testing.T) {
		tests := []struct {
			format string
			file   string
		}{
			{FormatMarkdown, "2-heat.md"},
			{FormatText, "2-heat.txt"},
			{FormatJSON, "2-heat.json"},
		}

		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				dir := t.TempDir()
				path, err := WriteMovieExport(sampleDetails(), dir, tt.format)
				if err != nil {
					t.Fatalf("WriteMovieExport failed: %v", err)
				}
				if path != filepath.Join(dir, tt.file) {
					t.Errorf("expected %s, got %s", tt.file, path)
				}
				th.AssertFileExists(t, path)
			})
		}

		t.Run("Unsupported Format", func(t *testing.T) {
			_, err := WriteMovieExport(sampleDetails(), t.TempDir(), FormatCSV)
			if !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})

		t.Run("Missing Directory", func(t *testing.T) {
			_, err := WriteMovieExport(sampleDetails(), filepath.Join(t.TempDir(), "missing"), FormatJSON)
			if err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("WriteExportManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export_manifest.json")
		manifest := &ExportManifest{
			Format:      FormatMarkdown,
			TotalMovies: 2,
			Successful:  1,
			Failed:      1,
			Entries: []ManifestEntry{
				{MovieID: 1, Title: "Arrival", Success: true, Files: []string{"1-arrival.md"}},
				{MovieID: 9, Success: false, Error: "not found"},
			},
		}

		if err := WriteExportManifest(manifest, path); err != nil {
			t.Fatalf("WriteExportManifest failed: %v", err)
		}

		var got ExportManifest
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil {
			t.Fatalf("failed to parse manifest: %v", err)
		}
		if got.Format != FormatMarkdown || got.TotalMovies != 2 || len(got.Entries) != 2 {
			t.Errorf("unexpected manifest %+v", got)
		}
		if got.Entries[1].Error != "not found" {
			t.Errorf("expected error message preserved, got %q", got.Entries[1].Error)
		}

		if err := WriteExportManifest(manifest, filepath.Join(t.TempDir(), "no", "such", "dir.json")); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Heat", "heat"},
		{"Paddington 2", "paddington-2"},
		{"  Mission: Impossible -- Fallout!", "mission-impossible-fallout"},
		{"Amélie", "amélie"},
		{"???", "untitled"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
