package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/cinex/internal/formatter"
	"github.com/desertthunder/cinex/internal/models"
	"github.com/desertthunder/cinex/internal/shared"
	"golang.org/x/time/rate"
)

const manifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk favorites exports.
type BulkExportOpts struct {
	Format     string  // Export format: markdown, txt, json
	OutputDir  string  // Base output directory (default: favorites_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 4, max 10)
	RateLimit  float64 // Detail requests per second (default: 5)
}

// MovieExportJob is one favorite waiting to be exported.
type MovieExportJob struct {
	Entry models.FavoriteEntry
	Step  int
}

func (j MovieExportJob) label() string {
	if j.Entry.Title != "" {
		return j.Entry.Title
	}
	return fmt.Sprintf("movie #%d", j.Entry.MovieID)
}

// MovieExportResult is the outcome of exporting one favorite.
type MovieExportResult struct {
	MovieID int
	Title   string
	Success bool
	Files   []string
	Error   error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalMovies       int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []MovieExportResult
}

// BulkExport exports the details of every entry concurrently with rate limiting and progress tracking.
//
// Failed movies are recorded in the result and the manifest; the returned error is reserved for
// setup failures, cancellation and a manifest that could not be written.
func (e *FavoritesEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	entries []models.FavoriteEntry,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.movies == nil {
		return nil, fmt.Errorf("%w: movie service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatMarkdown
	}
	switch opts.Format {
	case formatter.FormatMarkdown, formatter.FormatText, formatter.FormatJSON:
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("favorites_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(entries)
	result := &BulkExportResult{
		TotalMovies:     total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]MovieExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan MovieExportJob)
	results := make(chan MovieExportResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			job := MovieExportJob{Entry: entry, Step: i + 1}
			e.sendProgress(prog, fetchingDetailsUpdate(i+1, total, job))

			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, total, res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d movies: %w", completed, total, err)
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].MovieID < result.Results[j].MovieID
	})

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := formatter.WriteExportManifest(buildManifest(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports movies from the jobs channel.
func (e *FavoritesEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan MovieExportJob,
	results chan<- MovieExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleMovie(ctx, job, opts)
	}
}

// exportSingleMovie fetches one movie's details and writes its file.
func (e *FavoritesEngine) exportSingleMovie(ctx context.Context, j MovieExportJob, opts BulkExportOpts) MovieExportResult {
	result := MovieExportResult{
		MovieID: j.Entry.MovieID,
		Title:   j.label(),
		Files:   []string{},
	}

	details, err := e.movies.Movie(ctx, j.Entry.MovieID)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch details: %w", err)
		return result
	}
	if details.Title != "" {
		result.Title = details.Title
	}

	path, err := formatter.WriteMovieExport(details, opts.OutputDir, opts.Format)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = []string{path}
	result.Success = true
	return result
}

func buildManifest(result *BulkExportResult, format string) *formatter.ExportManifest {
	m := &formatter.ExportManifest{
		GeneratedAt: time.Now().UTC(),
		Format:      format,
		TotalMovies: result.TotalMovies,
		Successful:  result.SuccessfulExports,
		Failed:      result.FailedExports,
		Entries:     make([]formatter.ManifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := formatter.ManifestEntry{
			MovieID: res.MovieID,
			Title:   res.Title,
			Success: res.Success,
		}
		for _, f := range res.Files {
			entry.Files = append(entry.Files, filepath.Base(f))
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}
