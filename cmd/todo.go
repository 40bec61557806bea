package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/formatter"
	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

const progressBarWidth = 24

// TodoList prints the watch-list.
func (r *Runner) TodoList(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	criteria := map[string]any{}
	if id := cmd.String("playlist"); id != "" {
		criteria["playlist_id"] = id
	}
	if cmd.Bool("pending") {
		criteria["completed"] = false
	}

	items, err := r.todos.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		data, err := formatter.TodosToJSON(items)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", data)
	}

	if len(items) == 0 {
		return r.writePlain("Watch-list is empty. Run 'tubetodo import <playlist>' to add videos.\n")
	}

	for i, item := range items {
		v := item.Video()
		mark := " "
		if item.Completed() {
			mark = "x"
		}
		r.writePlain("[%s] %2d. %s [%s]\n", mark, i+1, v.Title, shared.FormatDuration(v.Duration))
		r.writePlain("        %s\n", shared.WatchURL(v.URL))
	}
	r.writePlain("\n")
	return r.printProgress()
}

// TodoToggle flips the watched state of one item.
func (r *Runner) TodoToggle(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	item, err := r.findTodo(cmd.StringArg("video"))
	if err != nil {
		return err
	}
	item, err = r.todos.Toggle(item.URL())
	if err != nil {
		return err
	}

	state := "unwatched"
	if item.Completed() {
		state = "watched"
	}
	r.writePlain("✓ %s marked %s\n", item.Video().Title, state)
	return r.printProgress()
}

// TodoOpen opens an item in the system browser.
func (r *Runner) TodoOpen(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	item, err := r.findTodo(cmd.StringArg("video"))
	if err != nil {
		return err
	}

	target := shared.WatchURL(item.URL())
	r.logger.Info("opening video", "url", target)
	if err := r.browser(target); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	if cmd.Bool("toggle") && !item.Completed() {
		if _, err := r.todos.Toggle(item.URL()); err != nil {
			return err
		}
		r.writePlain("✓ %s marked watched\n", item.Video().Title)
	}
	return nil
}

// TodoProgress prints completion progress.
func (r *Runner) TodoProgress(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}
	return r.printProgress()
}

// TodoExport renders the watch-list to stdout or a file.
func (r *Runner) TodoExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	items, err := r.todos.List(nil)
	if err != nil {
		return err
	}

	data, err := formatter.ExportTodos(items, cmd.String("format"))
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		_, err := r.output.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	r.logger.Info("watch-list exported", "path", path, "items", len(items))
	return r.writePlain("✓ Exported %d items to %s\n", len(items), path)
}

// TodoClear removes every item after confirmation.
func (r *Runner) TodoClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to clear the watch-list", shared.ErrMissingArgument)
	}

	n, err := r.todos.Clear()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %d items\n", n)
}

func (r *Runner) printProgress() error {
	items, err := r.todos.List(nil)
	if err != nil {
		return err
	}
	p := models.Summarize(items)
	return r.writePlain("Progress: %d/%d (%.0f%%) %s  Remaining: %s\n",
		p.Completed, p.Total, p.Percent, progressBar(p.Percent, progressBarWidth), shared.FormatDuration(p.RemainingSeconds))
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// findTodo looks an item up by 1-based list position, watch URL, watch path or bare video id.
func (r *Runner) findTodo(arg string) (*models.TodoItem, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("%w: video URL, id or list number", shared.ErrMissingArgument)
	}

	if n, err := strconv.Atoi(arg); err == nil {
		items, err := r.todos.List(nil)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > len(items) {
			return nil, fmt.Errorf("%w: %d (list has %d items)", shared.ErrTodoNotFound, n, len(items))
		}
		return items[n-1], nil
	}

	return r.todos.GetByURL(videoPath(arg))
}

// videoPath reduces a watch URL or video id to the stored relative path.
func videoPath(arg string) string {
	if u, err := url.Parse(arg); err == nil && u.Host != "" {
		if v := u.Query().Get("v"); v != "" {
			return "/watch?v=" + v
		}
		if strings.EqualFold(u.Host, "youtu.be") {
			return "/watch?v=" + strings.TrimPrefix(u.Path, "/")
		}
		return u.RequestURI()
	}
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	return "/watch?v=" + arg
}
