package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/tubetodo/internal/formatter"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: playlist_export_{epoch})
	NumWorkers int     // Concurrent writers (default: 5, max 10)
	RateLimit  float64 // Resolutions per second (default: 5)
	APIKey     string  // Passed to every resolution
	MirrorBase string  // Passed to every resolution
}

type exportJob struct {
	reference string
	result    *services.Result
}

// BulkExport resolves many playlist references and writes each one to disk with a worker pool.
//
// Resolutions are rate limited and run in order; file writing is spread over the workers.
// Individual failures are recorded in the result and never abort the run. A manifest summarizing
// every reference is written to the output directory.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	refs []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playlist_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
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

	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(refs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.ExportEntry, 0, len(refs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(refs))
	results := make(chan formatter.ExportEntry, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	// the producer also sends failed resolutions to results, so it counts toward wg
	var stopErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, ref := range refs {
			if err := limiter.Wait(ctx); err != nil {
				// Wait fails early when the next slot lies past the deadline
				stopErr = ctx.Err()
				if stopErr == nil {
					stopErr = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
				}
				return
			}

			sendProgress(prog, resolvingUpdate(i+1, len(refs), ref))
			res, err := e.resolver.Resolve(ctx, services.Request{
				Reference:  ref,
				APIKey:     opts.APIKey,
				MirrorBase: opts.MirrorBase,
			})
			if err != nil {
				results <- formatter.ExportEntry{
					Reference: ref,
					Title:     fmt.Sprintf("Unknown (%s)", ref),
					Error:     fmt.Errorf("failed to resolve playlist: %w", err),
				}
				continue
			}

			jobs <- exportJob{reference: ref, result: res}
			sendProgress(prog, exportingPlaylistUpdate(i+1, len(refs), res.Playlist.Title))
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
			sendProgress(prog, exportCompletedUpdate(completed, len(refs), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(refs), res.Title, res.Error))
		}
	}

	if stopErr == nil {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		return result, stopErr
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(*result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished", "dir", opts.OutputDir,
		"ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker writes playlists taken from the jobs channel.
func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- formatter.ExportEntry,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSinglePlaylist(job, opts)
	}
}

func exportSinglePlaylist(j exportJob, opts BulkExportOpts) formatter.ExportEntry {
	p := j.result.Playlist
	entry := formatter.ExportEntry{
		Reference:  j.reference,
		PlaylistID: p.ID,
		Title:      p.Title,
		Source:     j.result.Source,
		Files:      []string{},
	}

	files, err := formatter.WritePlaylist(p, opts.Format, opts.OutputDir)
	if err != nil {
		entry.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return entry
	}
	entry.Files = files
	entry.Success = true
	return entry
}
