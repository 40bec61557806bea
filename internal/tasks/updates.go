package tasks

import (
	"fmt"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/repositories"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolvePlaylist Phase = iota
	MergeTodos
	ProbeInstances
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ResolvePlaylist:
		return "resolve_playlist"
	case MergeTodos:
		return "merge_todos"
	case ProbeInstances:
		return "probe_instances"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// A full channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func resolvingUpdate(step, total int, ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving playlist (%s)...", ref),
	}
}

func resolvedUpdate(step, total int, p *models.Playlist, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found playlist: %s (%d videos via %s)", p.Title, len(p.Videos), source),
		Data:    p,
	}
}

func mergedUpdate(res repositories.MergeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeTodos,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Todo list updated: %d added, %d kept, %d removed", res.Added, res.Kept, res.Removed),
		Data:    res,
	}
}

func probeStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeInstances,
		Total:   total,
		Message: fmt.Sprintf("Probing %d instances...", total),
	}
}

func probedUpdate(step, total int, inst models.Instance) ProgressUpdate {
	if inst.Healthy {
		return ProgressUpdate{
			Phase:   ProbeInstances,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, inst.BaseURL, inst.Kind),
			Data:    inst,
		}
	}
	return ProgressUpdate{
		Phase:   ProbeInstances,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, inst.BaseURL, inst.Message),
		Data:    inst,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
