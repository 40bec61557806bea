package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// todoJSON is the exported shape of a [models.TodoItem].
type todoJSON struct {
	ID          string     `json:"id"`
	PlaylistID  string     `json:"playlist_id"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Duration    int        `json:"duration"`
	Uploader    string     `json:"uploader"`
	Thumbnail   string     `json:"thumbnail"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TodoExport is the document written by [TodosToJSON].
type TodoExport struct {
	Progress models.Progress `json:"progress"`
	Items    []todoJSON      `json:"items"`
}

// TodosToCSV renders the checklist with columns: Position, Done, Title, URL, Duration, Uploader
func TodosToCSV(items []*models.TodoItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Done", "Title", "URL", "Duration", "Uploader"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		v := item.Video()
		record := []string{
			strconv.Itoa(item.Position() + 1),
			strconv.FormatBool(item.Completed()),
			v.Title,
			shared.WatchURL(v.URL),
			strconv.Itoa(v.Duration),
			v.Uploader,
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

// TodosToMarkdown renders a GitHub style task list headed by the progress summary.
func TodosToMarkdown(items []*models.TodoItem) ([]byte, error) {
	var buf bytes.Buffer
	p := models.Summarize(items)

	buf.WriteString("# Watch List\n\n")
	fmt.Fprintf(&buf, "**Progress**: %d/%d (%.1f%%)\n", p.Completed, p.Total, p.Percent)
	fmt.Fprintf(&buf, "**Remaining**: %s of %s\n\n", shared.FormatDuration(p.RemainingSeconds), shared.FormatDuration(p.TotalSeconds))

	for _, item := range items {
		v := item.Video()
		box := " "
		if item.Completed() {
			box = "x"
		}
		fmt.Fprintf(&buf, "- [%s] [%s](%s) [%s]\n", box, v.Title, shared.WatchURL(v.URL), shared.FormatDuration(v.Duration))
	}

	return buf.Bytes(), nil
}

// TodosToText renders one line per item with a check mark.
func TodosToText(items []*models.TodoItem) ([]byte, error) {
	var buf bytes.Buffer
	p := models.Summarize(items)

	fmt.Fprintf(&buf, "Progress: %d/%d (%.1f%%), %s remaining\n\n",
		p.Completed, p.Total, p.Percent, shared.FormatDuration(p.RemainingSeconds))

	for _, item := range items {
		v := item.Video()
		mark := "[ ]"
		if item.Completed() {
			mark = "[x]"
		}
		fmt.Fprintf(&buf, "%s %s (%s) %s\n", mark, v.Title, shared.FormatDuration(v.Duration), shared.WatchURL(v.URL))
	}

	return buf.Bytes(), nil
}

// TodosToJSON renders the checklist and its progress summary.
func TodosToJSON(items []*models.TodoItem) ([]byte, error) {
	doc := TodoExport{Progress: models.Summarize(items), Items: make([]todoJSON, len(items))}
	for i, item := range items {
		v := item.Video()
		doc.Items[i] = todoJSON{
			ID:          item.ID(),
			PlaylistID:  item.PlaylistID(),
			Position:    item.Position(),
			Title:       v.Title,
			URL:         v.URL,
			Duration:    v.Duration,
			Uploader:    v.Uploader,
			Thumbnail:   v.Thumbnail,
			Completed:   item.Completed(),
			CompletedAt: item.CompletedAt(),
		}
	}
	return shared.MarshalJSON(doc, true)
}

// ExportTodos renders the checklist in the given format (see [ParseFormat]).
func ExportTodos(items []*models.TodoItem, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return TodosToCSV(items)
	case FormatMarkdown:
		return TodosToMarkdown(items)
	case FormatText:
		return TodosToText(items)
	case FormatJSON:
		return TodosToJSON(items)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}
