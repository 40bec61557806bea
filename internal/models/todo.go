package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TodoItem is a playlist video tracked on the local todo list.
//
// The video URL is the natural key: re-importing a playlist keeps the completion state of URLs already present.
type TodoItem struct {
	id          string
	sequence    int
	playlistID  string
	position    int
	video       Video
	completed   bool
	completedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewTodoItem creates an incomplete [TodoItem] for a video at the given playlist position.
func NewTodoItem(sequence int, playlistID string, position int, video Video) *TodoItem {
	now := time.Now()
	return &TodoItem{
		sequence:   sequence,
		playlistID: playlistID,
		position:   position,
		video:      video,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (t *TodoItem) ID() string { return t.id }
func (t *TodoItem) Sequence() int { return t.sequence }
func (t *TodoItem) PlaylistID() string { return t.playlistID }
func (t *TodoItem) Position() int { return t.position }
func (t *TodoItem) Video() Video { return t.video }
func (t *TodoItem) URL() string { return t.video.URL }
func (t *TodoItem) Completed() bool { return t.completed }
func (t *TodoItem) CompletedAt() *time.Time { return t.completedAt }
func (t *TodoItem) CreatedAt() time.Time { return t.createdAt }
func (t *TodoItem) UpdatedAt() time.Time { return t.updatedAt }
func (t *TodoItem) DeletedAt() *time.Time { return t.deletedAt }

func (t *TodoItem) SetID(id string) { t.id = id }
func (t *TodoItem) SetSequence(seq int) { t.sequence = seq }
func (t *TodoItem) SetPosition(pos int) { t.position = pos }
func (t *TodoItem) SetVideo(v Video) { t.video = v }
func (t *TodoItem) SetCreatedAt(ts time.Time) { t.createdAt = ts }
func (t *TodoItem) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *TodoItem) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }
func (t *TodoItem) SetCompletedAt(ts *time.Time) { t.completedAt = ts }
func (t *TodoItem) SetPlaylistID(playlistID string) { t.playlistID = playlistID }

// SetCompleted marks the item done or not done, stamping or clearing the completion time.
func (t *TodoItem) SetCompleted(done bool) {
	t.completed = done
	if done {
		now := time.Now()
		t.completedAt = &now
	} else {
		t.completedAt = nil
	}
}

// Validate checks the fields required for persistence.
func (t *TodoItem) Validate() error {
	if strings.TrimSpace(t.video.URL) == "" {
		return fmt.Errorf("todo item url is required")
	}
	if t.video.Duration < 0 {
		return fmt.Errorf("todo item duration must not be negative")
	}
	if t.position < 0 {
		return fmt.Errorf("todo item position must not be negative")
	}
	return nil
}

// Progress summarizes a todo list.
type Progress struct {
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Percent          float64 `json:"percent"`
	TotalSeconds     int     `json:"total_seconds"`
	RemainingSeconds int     `json:"remaining_seconds"`
}

// Summarize computes completion progress over the given items. An empty list is 0%.
func Summarize(items []*TodoItem) Progress {
	var p Progress
	for _, item := range items {
		p.Total++
		p.TotalSeconds += item.video.Duration
		if item.completed {
			p.Completed++
		} else {
			p.RemainingSeconds += item.video.Duration
		}
	}
	if p.Total > 0 {
		p.Percent = math.Round(float64(p.Completed)/float64(p.Total)*1000) / 10
	}
	return p
}
