package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/tubetodo/internal/shared"
)

// ExportEntry describes the outcome for one playlist reference in a bulk export.
type ExportEntry struct {
	Reference  string
	PlaylistID string
	Title      string
	Source     string
	Success    bool
	Files      []string
	Error      error
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []ExportEntry
	OutputDirectory   string
	ManifestPath      string
}

type manifestEntry struct {
	Reference  string   `json:"reference"`
	PlaylistID string   `json:"playlist_id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Source     string   `json:"source,omitempty"`
	Status     string   `json:"status"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt        time.Time       `json:"exported_at"`
	Format            string          `json:"format"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Playlists         []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON manifest describing every playlist in a bulk export.
func WriteBulkExportManifest(result BulkExportResult, format, path string) error {
	m := manifest{
		ExportedAt:        time.Now().UTC(),
		Format:            format,
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Playlists:         make([]manifestEntry, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		entry := manifestEntry{
			Reference:  r.Reference,
			PlaylistID: r.PlaylistID,
			Title:      r.Title,
			Source:     r.Source,
			Status:     "success",
			Files:      r.Files,
		}
		if !r.Success {
			entry.Status = "failed"
			if r.Error != nil {
				entry.Error = r.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
