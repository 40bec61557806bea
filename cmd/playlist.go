package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/formatter"
	"github.com/desertthunder/tubetodo/internal/shared"
	"github.com/desertthunder/tubetodo/internal/tasks"
)

// useSettings opens the store so stored credentials apply. Failure is not fatal for read-only commands.
func (r *Runner) useSettings() {
	if err := r.openStore(); err != nil {
		r.logger.Warn("stored settings unavailable, using config", "error", err)
	}
}

// Resolve fetches a playlist and prints it.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	ref, err := reference(cmd)
	if err != nil {
		return err
	}
	r.useSettings()

	res, err := r.resolver.Resolve(ctx, r.request(ref, cmd))
	if err != nil {
		return fmt.Errorf("failed to resolve playlist: %w", err)
	}

	for _, a := range res.Attempts {
		r.logger.Debug("attempt", "backend", a.Backend, "url", a.URL, "status", a.Status, "error", a.Message)
	}

	if cmd.Bool("json") {
		return r.writeJSON(res, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(res.Playlist)
	if err != nil {
		return err
	}
	r.writePlainHeader(fmt.Sprintf("%s (via %s)", res.Playlist.Title, res.Source))
	if res.Playlist.Uploader != "" {
		r.writePlain("By %s\n\n", res.Playlist.Uploader)
	}
	return r.writePlain("%s", text)
}

// Import resolves a playlist and merges it into the watch-list.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	ref, err := reference(cmd)
	if err != nil {
		return err
	}
	if err := r.openStore(); err != nil {
		return err
	}

	progress, stop := r.watchProgress()
	res, err := r.engine.Import(ctx, progress, r.request(ref, cmd), !cmd.Bool("append"))
	stop()
	if err != nil {
		return err
	}

	p := res.Resolution.Playlist
	r.writePlain("✓ Imported %q (%d videos via %s)\n", p.Title, len(p.Videos), res.Resolution.Source)
	r.writePlain("  %d added, %d kept, %d removed\n", res.Merge.Added, res.Merge.Kept, res.Merge.Removed)
	return r.printProgress()
}

// ExportPlaylists resolves every reference and writes each playlist to the output directory.
func (r *Runner) ExportPlaylists(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		fromFile, err := readReferences(path)
		if err != nil {
			return err
		}
		refs = append(refs, fromFile...)
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one playlist reference or --file", shared.ErrMissingArgument)
	}

	r.useSettings()
	creds := r.request("", cmd)

	engine := r.engine
	if engine == nil {
		engine = tasks.NewPlaylistEngine(r.resolver, nil, r.logger)
	}

	progress, stop := r.watchProgress()
	result, err := engine.BulkExport(ctx, progress, refs, tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		APIKey:     creds.APIKey,
		MirrorBase: creds.MirrorBase,
	})
	stop()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Playlists: %d  Succeeded: %d  Failed: %d\n", result.TotalPlaylists, result.SuccessfulExports, result.FailedExports)
	for _, entry := range result.Results {
		if !entry.Success {
			r.writePlain("  ✗ %s: %v\n", entry.Reference, entry.Error)
		}
	}
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// readReferences reads one reference per line, skipping blanks and # comments.
func readReferences(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open references file: %w", err)
	}
	defer f.Close()

	var refs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read references file: %w", err)
	}
	return refs, nil
}
