package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

type manifestFile struct {
	Format            string `json:"format"`
	TotalPlaylists    int    `json:"total_playlists"`
	SuccessfulExports int    `json:"successful_exports"`
	FailedExports     int    `json:"failed_exports"`
	Playlists         []struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Error     string `json:"error"`
	} `json:"playlists"`
}

func readManifest(t *testing.T, path string) manifestFile {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return m
}

func drain(ch chan ProgressUpdate) {
	go func() {
		for range ch {
		}
	}()
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name          string
		format        string
		playlistCount int
		filesPerList  int
	}{
		{name: "single playlist json export", format: "json", playlistCount: 1, filesPerList: 1},
		{name: "multiple playlists csv export", format: "csv", playlistCount: 3, filesPerList: 2},
		{name: "text export", format: "txt", playlistCount: 2, filesPerList: 1},
		{name: "markdown export", format: "markdown", playlistCount: 1, filesPerList: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()

			resolver := &fakeResolver{playlists: map[string]*models.Playlist{}}
			refs := make([]string, tt.playlistCount)
			for i := range tt.playlistCount {
				id := fmt.Sprintf("PLplaylist%02d", i+1)
				refs[i] = id
				resolver.playlists[id] = makePlaylist(id, 2)
			}

			engine := NewPlaylistEngine(resolver, nil, nil)
			progressCh := make(chan ProgressUpdate, 100)
			drain(progressCh)

			opts := BulkExportOpts{
				Format:     tt.format,
				OutputDir:  tempDir,
				NumWorkers: 2,
				RateLimit:  100.0,
			}

			result, err := engine.BulkExport(context.Background(), progressCh, refs, opts)
			close(progressCh)

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, tt.playlistCount)
			}
			if result.SuccessfulExports != tt.playlistCount {
				t.Errorf("SuccessfulExports = %d, want %d", result.SuccessfulExports, tt.playlistCount)
			}
			if result.FailedExports != 0 {
				t.Errorf("FailedExports = %d, want 0", result.FailedExports)
			}
			if result.OutputDirectory != tempDir {
				t.Errorf("OutputDirectory = %s, want %s", result.OutputDirectory, tempDir)
			}

			for _, res := range result.Results {
				if len(res.Files) != tt.filesPerList {
					t.Errorf("%s export should create %d files, got %v", tt.format, tt.filesPerList, res.Files)
				}
				for _, f := range res.Files {
					if _, err := os.Stat(f); err != nil {
						t.Errorf("expected file %s: %v", f, err)
					}
				}
			}

			manifestPath := filepath.Join(tempDir, "export_manifest.json")
			if result.ManifestPath != manifestPath {
				t.Errorf("ManifestPath = %s, want %s", result.ManifestPath, manifestPath)
			}

			manifest := readManifest(t, manifestPath)
			if manifest.Format != tt.format {
				t.Errorf("manifest format = %s, want %s", manifest.Format, tt.format)
			}
			if manifest.TotalPlaylists != tt.playlistCount {
				t.Errorf("manifest total = %d, want %d", manifest.TotalPlaylists, tt.playlistCount)
			}
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	tempDir := t.TempDir()

	resolver := &fakeResolver{
		playlists: map[string]*models.Playlist{
			"PLplaylist01": makePlaylist("PLplaylist01", 1),
			"PLplaylist03": makePlaylist("PLplaylist03", 1),
		},
		errs: map[string]error{
			"not a playlist": &shared.InputError{Input: "not a playlist"},
		},
	}

	engine := NewPlaylistEngine(resolver, nil, nil)
	refs := []string{"PLplaylist01", "PLplaylist02", "PLplaylist03", "not a playlist"}

	result, err := engine.BulkExport(context.Background(), nil, refs, BulkExportOpts{
		Format:     "json",
		OutputDir:  tempDir,
		NumWorkers: 2,
		RateLimit:  100.0,
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 2 {
		t.Errorf("SuccessfulExports = %d, want 2", result.SuccessfulExports)
	}
	if result.FailedExports != 2 {
		t.Errorf("FailedExports = %d, want 2", result.FailedExports)
	}

	failures := map[string]error{}
	for _, res := range result.Results {
		if !res.Success {
			failures[res.Reference] = res.Error
		}
	}

	if !errors.Is(failures["PLplaylist02"], shared.ErrPlaylistNotFound) {
		t.Errorf("expected not found for PLplaylist02, got %v", failures["PLplaylist02"])
	}
	if !errors.Is(failures["not a playlist"], shared.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", failures["not a playlist"])
	}

	manifest := readManifest(t, result.ManifestPath)
	failed := 0
	for _, p := range manifest.Playlists {
		if p.Status == "failed" {
			failed++
			if !strings.Contains(p.Error, "failed to resolve playlist") {
				t.Errorf("manifest error = %q", p.Error)
			}
		}
	}
	if failed != 2 {
		t.Errorf("manifest lists %d failures, want 2", failed)
	}
}

func TestBulkExport_ServiceError(t *testing.T) {
	engine := NewPlaylistEngine(nil, nil, nil)

	_, err := engine.BulkExport(context.Background(), nil, []string{"PLplaylist01"}, BulkExportOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBulkExport_InvalidFormat(t *testing.T) {
	engine := NewPlaylistEngine(&fakeResolver{}, nil, nil)

	_, err := engine.BulkExport(context.Background(), nil, []string{"PLplaylist01"}, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBulkExport_ContextCancellation(t *testing.T) {
	resolver := &fakeResolver{playlists: map[string]*models.Playlist{}}
	refs := make([]string, 20)
	for i := range refs {
		refs[i] = fmt.Sprintf("PLplaylist%02d", i)
		resolver.playlists[refs[i]] = makePlaylist(refs[i], 1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	engine := NewPlaylistEngine(resolver, nil, nil)
	result, err := engine.BulkExport(ctx, nil, refs, BulkExportOpts{
		Format:    "json",
		OutputDir: t.TempDir(),
		RateLimit: 10.0, // far slower than 20 refs in 150ms
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if result == nil {
		t.Fatal("expected partial result")
	}
	if len(result.Results) >= len(refs) {
		t.Errorf("expected the run to stop early, got %d results", len(result.Results))
	}
	if result.ManifestPath != "" {
		t.Errorf("no manifest should be written for a canceled run")
	}
}

func TestBulkExport_DefaultOptions(t *testing.T) {
	tempDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(originalDir)

	resolver := &fakeResolver{playlists: map[string]*models.Playlist{"PLplaylist01": makePlaylist("PLplaylist01", 1)}}
	engine := NewPlaylistEngine(resolver, nil, nil)

	result, err := engine.BulkExport(context.Background(), nil, []string{"PLplaylist01"}, BulkExportOpts{})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if !strings.HasPrefix(result.OutputDirectory, "playlist_export_") {
		t.Errorf("OutputDirectory = %s, want playlist_export_ prefix", result.OutputDirectory)
	}
	if manifest := readManifest(t, result.ManifestPath); manifest.Format != "json" {
		t.Errorf("default format = %s, want json", manifest.Format)
	}
}

func TestBulkExport_ForwardsCredentials(t *testing.T) {
	resolver := &fakeResolver{playlists: map[string]*models.Playlist{"PLplaylist01": makePlaylist("PLplaylist01", 1)}}
	engine := NewPlaylistEngine(resolver, nil, nil)

	_, err := engine.BulkExport(context.Background(), nil, []string{"PLplaylist01"}, BulkExportOpts{
		OutputDir:  t.TempDir(),
		APIKey:     "AIzaSyTestKeyThatIsLongEnough",
		MirrorBase: "https://inv.example",
	})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if resolver.callCount() != 1 {
		t.Fatalf("expected 1 resolution, got %d", resolver.callCount())
	}
	req := resolver.calls[0]
	if req.APIKey != "AIzaSyTestKeyThatIsLongEnough" || req.MirrorBase != "https://inv.example" {
		t.Errorf("request not forwarded: %+v", req)
	}
}

func TestBulkExport_ProgressUpdates(t *testing.T) {
	resolver := &fakeResolver{playlists: map[string]*models.Playlist{
		"PLplaylist01": makePlaylist("PLplaylist01", 1),
		"PLplaylist02": makePlaylist("PLplaylist02", 1),
	}}
	engine := NewPlaylistEngine(resolver, nil, nil)
	progressCh := make(chan ProgressUpdate, 100)

	_, err := engine.BulkExport(context.Background(), progressCh, []string{"PLplaylist01", "PLplaylist02"}, BulkExportOpts{
		OutputDir: t.TempDir(),
		RateLimit: 100.0,
	})
	close(progressCh)
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	var resolving, completed int
	for u := range progressCh {
		switch {
		case u.Phase == ResolvePlaylist:
			resolving++
		case u.Phase == ExportPlaylist && strings.Contains(u.Message, "✓"):
			completed++
		}
	}
	if resolving != 2 {
		t.Errorf("expected 2 resolve updates, got %d", resolving)
	}
	if completed != 2 {
		t.Errorf("expected 2 completed updates, got %d", completed)
	}
}

func TestBulkExport_InvalidOutputDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	engine := NewPlaylistEngine(&fakeResolver{}, nil, nil)
	_, err := engine.BulkExport(context.Background(), nil, []string{"PLplaylist01"}, BulkExportOpts{
		OutputDir: filepath.Join(file, "sub"),
	})
	if err == nil || !strings.Contains(err.Error(), "failed to create output directory") {
		t.Errorf("expected output directory error, got %v", err)
	}
}
