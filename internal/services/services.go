package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// PlaylistAPI fetches a playlist from the first-party API with a caller-supplied key.
type PlaylistAPI interface {
	Name() string
	FetchPlaylist(ctx context.Context, playlistID, apiKey string) (*models.Playlist, error)
}

// PlaylistMirror fetches a playlist from a community mirror rooted at base.
type PlaylistMirror interface {
	Name() string
	FetchPlaylist(ctx context.Context, base, playlistID string) (*models.Playlist, []Attempt, error)
}

// Attempt records one request made while resolving a playlist.
type Attempt struct {
	Backend string             `json:"backend"` // "youtube", "piped" or "invidious"
	URL     string             `json:"url,omitempty"`
	Status  int                `json:"status,omitempty"`
	Kind    models.BackendKind `json:"kind"`
	Message string             `json:"error,omitempty"`
	Err     error              `json:"-"`
}

// OK reports whether the attempt produced the playlist.
func (a Attempt) OK() bool { return a.Err == nil }

// AttemptsError is returned when every mirror step failed. It unwraps to the last [*shared.BackendError].
type AttemptsError struct {
	Attempts []Attempt
	Last     *shared.BackendError
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%s (after %d attempts)", e.Last.Error(), len(e.Attempts))
}

func (e *AttemptsError) Unwrap() error { return e.Last }

// Request is one resolution call. Everything the resolver needs is passed in; it reads no global settings.
type Request struct {
	Reference  string // playlist URL, bare id or "demo"
	APIKey     string // optional Data API key
	MirrorBase string // mirror root, defaults to [DefaultMirrorBase]
}

// Result is a resolved playlist plus the trace of requests that produced it.
type Result struct {
	Playlist *models.Playlist `json:"playlist"`
	Source   string           `json:"source"` // "youtube", "mirror" or "demo"
	Attempts []Attempt        `json:"attempts"`
}

// Resolver selects a backend for a playlist reference and returns the normalized playlist.
//
// A key that looks like a credential routes to the first-party API; otherwise the mirror runs.
// There is no fallback between the two.
type Resolver struct {
	api    PlaylistAPI
	mirror PlaylistMirror
	logger *log.Logger
}

// NewResolver wires the two adapters.
func NewResolver(api PlaylistAPI, mirror PlaylistMirror, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Resolver{api: api, mirror: mirror, logger: logger}
}

// Resolve normalizes req.Reference and fetches the playlist.
//
// Malformed references fail with [*shared.InputError] before any network call.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if strings.EqualFold(strings.TrimSpace(req.Reference), DemoReference) {
		return &Result{Playlist: DemoPlaylist(), Source: "demo", Attempts: []Attempt{}}, nil
	}

	id, err := ExtractPlaylistID(req.Reference)
	if err != nil {
		return nil, err
	}

	if LooksLikeAPIKey(req.APIKey) {
		r.logger.Debug("resolving", "playlist", id, "backend", r.api.Name())
		playlist, err := r.api.FetchPlaylist(ctx, id, strings.TrimSpace(req.APIKey))
		if err != nil {
			return nil, err
		}
		attempt := Attempt{Backend: r.api.Name(), Status: http.StatusOK}
		return &Result{Playlist: playlist, Source: r.api.Name(), Attempts: []Attempt{attempt}}, nil
	}

	base := strings.TrimSpace(req.MirrorBase)
	if base == "" {
		base = DefaultMirrorBase
	}
	r.logger.Debug("resolving", "playlist", id, "backend", r.mirror.Name(), "base", base)
	playlist, attempts, err := r.mirror.FetchPlaylist(ctx, base, id)
	if err != nil {
		return nil, err
	}
	return &Result{Playlist: playlist, Source: r.mirror.Name(), Attempts: attempts}, nil
}

// DemoPlaylist returns the built-in sample playlist used for trying the app offline.
func DemoPlaylist() *models.Playlist {
	const uploader = "Net Ninja"
	videos := []struct {
		title    string
		n        int
		duration int
		thumb    string
	}{
		{"React Tutorial #1 - Introduction", 1, 300, "j942wKiXFu8"},
		{"React Tutorial #2 - Creating a React App", 2, 450, "9D7g_L_hbn8"},
		{"React Tutorial #3 - Components & Templates", 3, 520, "1w1q_K5g_5g"},
		{"React Tutorial #4 - Dynamic Values", 4, 380, "pnhO8UaCgxg"},
		{"React Tutorial #5 - Multiple Components", 5, 410, "0sSYCg46AuA"},
	}

	p := &models.Playlist{
		ID:          "mock-id",
		Title:       "Demo Playlist: React Tutorial",
		Uploader:    uploader,
		Description: "A demo playlist showcasing the app.",
		Videos:      make([]models.Video, len(videos)),
	}
	for i, v := range videos {
		p.Videos[i] = models.Video{
			Title:     v.title,
			URL:       fmt.Sprintf("/watch?v=playlist_video_%d", v.n),
			Duration:  v.duration,
			Thumbnail: fallbackThumbnail(v.thumb),
			Uploader:  uploader,
		}
	}
	return p
}
