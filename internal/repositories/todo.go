package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

const todoColumns = `id, sequence, playlist_id, position, url, title, duration, thumbnail, uploader,
	completed, completed_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.TodoItem] = (*TodoRepository)(nil)

// TodoRepository implements [models.Repository] for [models.TodoItem] persistence.
type TodoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new [TodoRepository] with the given database connection
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// Create inserts a new todo item with generated ID and sequence
func (r *TodoRepository) Create(item *models.TodoItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "todos")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	item.SetID(id)
	item.SetSequence(sequence)

	v := item.Video()
	query := `
		INSERT INTO todos (id, sequence, playlist_id, position, url, title, duration, thumbnail, uploader,
			completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, item.PlaylistID(), item.Position(), v.URL, v.Title, v.Duration,
		v.Thumbnail, v.Uploader, item.Completed(), item.CompletedAt(), item.CreatedAt(), item.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert todo: %w", err)
	}

	return nil
}

// Get retrieves a todo item by ID, excluding soft-deleted items
func (r *TodoRepository) Get(id string) (*models.TodoItem, error) {
	row := r.db.QueryRow(`SELECT `+todoColumns+` FROM todos WHERE id = ? AND deleted_at IS NULL`, id)
	item, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTodoNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return item, nil
}

// GetByURL retrieves the live todo item for a video watch path.
func (r *TodoRepository) GetByURL(url string) (*models.TodoItem, error) {
	row := r.db.QueryRow(`SELECT `+todoColumns+` FROM todos WHERE url = ? AND deleted_at IS NULL`, url)
	item, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTodoNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return item, nil
}

// Update modifies an existing todo item
func (r *TodoRepository) Update(item *models.TodoItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	item.SetUpdatedAt(now)

	v := item.Video()
	query := `
		UPDATE todos
		SET playlist_id = ?, position = ?, url = ?, title = ?, duration = ?, thumbnail = ?, uploader = ?,
			completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, item.PlaylistID(), item.Position(), v.URL, v.Title, v.Duration, v.Thumbnail,
		v.Uploader, item.Completed(), item.CompletedAt(), now, item.ID())
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}

	return expectAffected(result, item.ID())
}

// Delete soft-deletes a todo item by ID
func (r *TodoRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE todos SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return expectAffected(result, id)
}

// List retrieves live todo items in playlist order.
//
// Supported criteria: "playlist_id" (string) and "completed" (bool).
func (r *TodoRepository) List(criteria map[string]any) ([]*models.TodoItem, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE deleted_at IS NULL`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}
	if completed, ok := criteria["completed"].(bool); ok {
		query += " AND completed = ?"
		args = append(args, completed)
	}

	query += " ORDER BY position ASC, sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	var items []*models.TodoItem
	for rows.Next() {
		item, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// MergeResult counts what a [TodoRepository.Merge] changed.
type MergeResult struct {
	Added   int
	Kept    int
	Removed int
}

// Merge loads a playlist's videos into the todo list.
//
// Videos already on the list (matched by URL) keep their completion state and move to their new position.
// New videos are added incomplete. With replace set, live items whose URL is not in videos are soft-deleted.
func (r *TodoRepository) Merge(playlistID string, videos []models.Video, replace bool) (MergeResult, error) {
	var res MergeResult

	existing, err := r.List(nil)
	if err != nil {
		return res, err
	}
	byURL := make(map[string]*models.TodoItem, len(existing))
	for _, item := range existing {
		byURL[item.URL()] = item
	}

	seen := make(map[string]bool, len(videos))
	for pos, v := range videos {
		if v.URL == "" || seen[v.URL] {
			continue
		}
		seen[v.URL] = true

		if item, ok := byURL[v.URL]; ok {
			item.SetVideo(v)
			item.SetPosition(pos)
			item.SetPlaylistID(playlistID)
			if err := r.Update(item); err != nil {
				return res, err
			}
			res.Kept++
			continue
		}

		if err := r.Create(models.NewTodoItem(0, playlistID, pos, v)); err != nil {
			return res, err
		}
		res.Added++
	}

	if replace {
		for url, item := range byURL {
			if seen[url] {
				continue
			}
			if err := r.Delete(item.ID()); err != nil {
				return res, err
			}
			res.Removed++
		}
	}

	return res, nil
}

// Toggle flips the completion state of the item with the given URL and returns it.
func (r *TodoRepository) Toggle(url string) (*models.TodoItem, error) {
	item, err := r.GetByURL(url)
	if err != nil {
		return nil, err
	}
	item.SetCompleted(!item.Completed())
	if err := r.Update(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Clear soft-deletes every live item and returns how many were removed.
func (r *TodoRepository) Clear() (int, error) {
	result, err := r.db.Exec(`UPDATE todos SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear todos: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*models.TodoItem, error) {
	var (
		id          string
		sequence    int
		playlistID  string
		position    int
		v           models.Video
		completed   bool
		completedAt sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := s.Scan(&id, &sequence, &playlistID, &position, &v.URL, &v.Title, &v.Duration, &v.Thumbnail, &v.Uploader,
		&completed, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	item := models.NewTodoItem(sequence, playlistID, position, v)
	item.SetID(id)
	item.SetCreatedAt(createdAt)
	item.SetUpdatedAt(updatedAt)
	if completed {
		item.SetCompleted(true)
		if completedAt.Valid {
			item.SetCompletedAt(&completedAt.Time)
		}
	}
	if deletedAt.Valid {
		item.SetDeletedAt(&deletedAt.Time)
	}
	return item, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrTodoNotFound, id)
	}
	return nil
}
