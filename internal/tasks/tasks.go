// package tasks runs the multi-step operations built on top of playlist resolution.
//
// Operations emit progress updates via channels for non-blocking status reporting to the CLI and HTTP layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/repositories"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// PlaylistResolver resolves a playlist reference. Implemented by [services.Resolver].
type PlaylistResolver interface {
	Resolve(ctx context.Context, req services.Request) (*services.Result, error)
}

// TodoMerger persists a resolved playlist into the todo list. Implemented by [repositories.TodoRepository].
type TodoMerger interface {
	Merge(playlistID string, videos []models.Video, replace bool) (repositories.MergeResult, error)
}

// ImportResult contains the resolved playlist and what the merge changed.
type ImportResult struct {
	Resolution *services.Result
	Merge      repositories.MergeResult
}

// PlaylistEngine resolves playlists and feeds them to the todo list and exporters.
type PlaylistEngine struct {
	resolver PlaylistResolver
	todos    TodoMerger
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine. todos may be nil when only exports are needed.
func NewPlaylistEngine(resolver PlaylistResolver, todos TodoMerger, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PlaylistEngine{
		resolver: resolver,
		todos:    todos,
		logger:   shared.WithLogger(logger, "component", "engine"),
	}
}

// Import resolves req and merges its videos into the todo list.
//
// With replace set the todo list ends up holding exactly the playlist's videos; otherwise videos
// missing from the playlist stay. Completion state is kept for every URL already present.
func (e *PlaylistEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, req services.Request, replace bool) (*ImportResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}
	if e.todos == nil {
		return nil, fmt.Errorf("%w: todo store not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, resolvingUpdate(1, 1, req.Reference))

	res, err := e.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, resolvedUpdate(1, 1, res.Playlist, res.Source))

	merged, err := e.todos.Merge(res.Playlist.ID, res.Playlist.Videos, replace)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo list: %w", err)
	}
	sendProgress(progress, mergedUpdate(merged))

	e.logger.Info("imported playlist", "playlist", res.Playlist.ID, "source", res.Source,
		"added", merged.Added, "kept", merged.Kept, "removed", merged.Removed)

	return &ImportResult{Resolution: res, Merge: merged}, nil
}
