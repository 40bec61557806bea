package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// DefaultMirrorBase is used when neither settings nor config name a mirror.
const DefaultMirrorBase = "https://pipedapi.kavin.rocks"

const mirrorBackend = "mirror"

type pipedStream struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Duration     float64 `json:"duration"`
	Thumbnail    string  `json:"thumbnail"`
	UploaderName string  `json:"uploaderName"`
}

type pipedPlaylist struct {
	Name           string        `json:"name"`
	Uploader       string        `json:"uploader"`
	Description    string        `json:"description"`
	UUID           string        `json:"uuid"`
	RelatedStreams []pipedStream `json:"relatedStreams"`
}

type invidiousVideo struct {
	Title           string  `json:"title"`
	VideoID         string  `json:"videoId"`
	Author          string  `json:"author"`
	LengthSeconds   float64 `json:"lengthSeconds"`
	VideoThumbnails []struct {
		URL string `json:"url"`
	} `json:"videoThumbnails"`
}

type invidiousPlaylist struct {
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	Description string           `json:"description"`
	PlaylistID  string           `json:"playlistId"`
	Plid        string           `json:"plid"`
	Videos      []invidiousVideo `json:"videos"`
}

// mirrorStep is one URL layout tried against a mirror base, in order.
type mirrorStep struct {
	name string
	path string
}

var mirrorSteps = []mirrorStep{
	{name: "piped", path: "/playlists/%s"},
	{name: "invidious", path: "/api/v1/playlists/%s"},
}

// MirrorService fetches playlists from a Piped or Invidious instance.
//
// The response body, not the URL that produced it, decides which mapper runs.
type MirrorService struct {
	api    *APIService
	logger *log.Logger
}

// NewMirrorService creates a mirror adapter. A nil api uses a default [APIService].
func NewMirrorService(api *APIService, logger *log.Logger) *MirrorService {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if api == nil {
		api = NewAPIService(nil, logger)
	}
	return &MirrorService{api: api, logger: shared.WithLogger(logger, "component", "mirror")}
}

// Name returns the backend name.
func (m *MirrorService) Name() string { return mirrorBackend }

// FetchPlaylist tries each URL layout against base until one returns a recognizable playlist.
//
// Every try is recorded as an [Attempt]. When none succeeds the error is an [*AttemptsError]
// wrapping the last attempt's [*shared.BackendError].
func (m *MirrorService) FetchPlaylist(ctx context.Context, base, playlistID string) (*models.Playlist, []Attempt, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultMirrorBase
	}

	attempts := make([]Attempt, 0, len(mirrorSteps))
	for _, step := range mirrorSteps {
		target := base + fmt.Sprintf(step.path, url.PathEscape(playlistID))
		attempt := Attempt{Backend: step.name, URL: target}

		playlist, err := m.try(ctx, step, target, playlistID, &attempt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, attempts, ctxErr
			}
			attempt.Err = err
			attempt.Message = err.Error()
			attempts = append(attempts, attempt)
			m.logger.Warn("attempt failed", "step", step.name, "url", target, "err", err)
			continue
		}

		attempts = append(attempts, attempt)
		m.logger.Debug("resolved", "step", step.name, "kind", attempt.Kind, "videos", len(playlist.Videos))
		return playlist, attempts, nil
	}

	last := attempts[len(attempts)-1]
	var be *shared.BackendError
	if !errors.As(last.Err, &be) {
		be = &shared.BackendError{Backend: mirrorBackend, Stage: last.Backend, Status: last.Status, Message: last.Err.Error()}
	}
	return nil, attempts, &AttemptsError{Attempts: attempts, Last: be}
}

func (m *MirrorService) try(ctx context.Context, step mirrorStep, target, playlistID string, attempt *Attempt) (*models.Playlist, error) {
	resp, err := m.api.Get(ctx, target)
	if err != nil {
		return nil, &shared.BackendError{Backend: mirrorBackend, Stage: step.name, Message: err.Error()}
	}
	attempt.Status = resp.StatusCode

	if !resp.OK() {
		return nil, &shared.BackendError{
			Backend: mirrorBackend, Stage: step.name, Status: resp.StatusCode,
			Message: fmt.Sprintf("API Error: %d", resp.StatusCode),
		}
	}

	kind, err := DetectShape(resp.Body)
	if err != nil {
		return nil, &shared.BackendError{Backend: mirrorBackend, Stage: step.name, Status: resp.StatusCode, Message: err.Error()}
	}
	attempt.Kind = kind

	var playlist *models.Playlist
	switch kind {
	case models.KindPiped:
		playlist, err = mapPiped(resp.Body, playlistID)
	case models.KindInvidious:
		playlist, err = mapInvidious(resp.Body, playlistID)
	}
	if err != nil {
		return nil, &shared.BackendError{Backend: mirrorBackend, Stage: step.name, Status: resp.StatusCode, Message: err.Error()}
	}
	return playlist, nil
}

// mapPiped converts a shape A body. Stream fields map 1:1.
func mapPiped(body []byte, playlistID string) (*models.Playlist, error) {
	var p pipedPlaylist
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode piped playlist: %w", err)
	}

	videos := make([]models.Video, len(p.RelatedStreams))
	for i, s := range p.RelatedStreams {
		videos[i] = models.Video{
			Title:     s.Title,
			URL:       s.URL,
			Duration:  seconds(s.Duration),
			Thumbnail: s.Thumbnail,
			Uploader:  s.UploaderName,
		}
	}

	return &models.Playlist{
		ID:          firstNonEmpty(p.UUID, playlistID),
		Title:       p.Name,
		Uploader:    p.Uploader,
		Description: p.Description,
		Videos:      videos,
	}, nil
}

// mapInvidious converts a shape B body.
func mapInvidious(body []byte, playlistID string) (*models.Playlist, error) {
	var p invidiousPlaylist
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode invidious playlist: %w", err)
	}

	videos := make([]models.Video, len(p.Videos))
	for i, v := range p.Videos {
		thumb := fallbackThumbnail(v.VideoID)
		if len(v.VideoThumbnails) > 0 && v.VideoThumbnails[0].URL != "" {
			thumb = v.VideoThumbnails[0].URL
		}
		videos[i] = models.Video{
			Title:     v.Title,
			URL:       "/watch?v=" + v.VideoID,
			Duration:  seconds(v.LengthSeconds),
			Thumbnail: thumb,
			Uploader:  v.Author,
		}
	}

	return &models.Playlist{
		ID:          firstNonEmpty(p.Plid, p.PlaylistID, playlistID),
		Title:       p.Title,
		Uploader:    p.Author,
		Description: p.Description,
		Videos:      videos,
	}, nil
}

// seconds clamps upstream durations. Piped reports live streams as -1; values past
// [shared.MaxDurationSeconds] also map to 0.
func seconds(f float64) int {
	if f <= 0 || math.IsNaN(f) || f > shared.MaxDurationSeconds {
		return 0
	}
	return int(math.Round(f))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
