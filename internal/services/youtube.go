// YouTube Data API v3 adapter
//
// Talks to the metered first-party API with an API key passed as a query parameter.
// A playlist takes one metadata call, then one playlistItems call per page of 50 and one
// videos call per page for durations.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

const (
	defaultDataAPIBase = "https://www.googleapis.com/youtube/v3"
	dataAPIPageSize    = 50
	dataAPIBackend     = "youtube"
)

type dataAPIThumbnail struct {
	URL string `json:"url"`
}

type dataAPIErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type dataAPIPlaylists struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type dataAPIPlaylistItem struct {
	Snippet struct {
		Title                  string `json:"title"`
		VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
		Thumbnails             struct {
			Default *dataAPIThumbnail `json:"default"`
			Medium  *dataAPIThumbnail `json:"medium"`
		} `json:"thumbnails"`
		ResourceID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

type dataAPIPlaylistItems struct {
	NextPageToken string                `json:"nextPageToken"`
	Items         []dataAPIPlaylistItem `json:"items"`
}

type dataAPIVideos struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// DataAPIService fetches playlists from the YouTube Data API v3.
//
// It holds no per-call state; the API key is supplied on every call.
type DataAPIService struct {
	api     *APIService
	baseURL string
	limiter *rate.Limiter
	logger  *log.Logger
}

// DataAPIOption configures a [DataAPIService].
type DataAPIOption func(*DataAPIService)

// WithBaseURL points the service at a different API root, e.g. an httptest server.
func WithBaseURL(base string) DataAPIOption {
	return func(s *DataAPIService) {
		if base != "" {
			s.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAPIService sets the transport.
func WithAPIService(api *APIService) DataAPIOption {
	return func(s *DataAPIService) { s.api = api }
}

// WithRequestsPerSecond throttles outgoing requests. Zero or less disables throttling.
func WithRequestsPerSecond(rps float64) DataAPIOption {
	return func(s *DataAPIService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		burst := max(int(rps), 1)
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDataAPILogger sets the logger.
func WithDataAPILogger(l *log.Logger) DataAPIOption {
	return func(s *DataAPIService) { s.logger = shared.WithLogger(l, "component", "dataapi") }
}

// NewDataAPIService creates a Data API adapter against the public endpoint.
func NewDataAPIService(opts ...DataAPIOption) *DataAPIService {
	s := &DataAPIService{baseURL: defaultDataAPIBase, logger: shared.DiscardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.api == nil {
		s.api = NewAPIService(nil, s.logger)
	}
	return s
}

// Name returns the backend name.
func (s *DataAPIService) Name() string { return dataAPIBackend }

// FetchPlaylist resolves playlistID into a [models.Playlist] with every page aggregated.
//
// Pages are fetched in order. Duration lookup for page N runs while page N+1 is fetched; any failure
// cancels outstanding work and the call returns a [*shared.BackendError] with no partial result.
func (s *DataAPIService) FetchPlaylist(ctx context.Context, playlistID, apiKey string) (*models.Playlist, error) {
	var meta dataAPIPlaylists
	params := url.Values{"part": {"snippet"}, "id": {playlistID}, "key": {apiKey}}
	if err := s.getJSON(ctx, "playlist", "playlists", params, &meta); err != nil {
		return nil, err
	}
	if len(meta.Items) == 0 {
		return nil, &shared.BackendError{
			Backend: dataAPIBackend, Stage: "playlist", Status: http.StatusNotFound, Message: "playlist not found",
		}
	}
	info := meta.Items[0].Snippet

	g, gctx := errgroup.WithContext(ctx)
	var pages []*[]models.Video
	token := ""

	for {
		params := url.Values{
			"part":       {"snippet,contentDetails"},
			"maxResults": {fmt.Sprint(dataAPIPageSize)},
			"playlistId": {playlistID},
			"key":        {apiKey},
		}
		if token != "" {
			params.Set("pageToken", token)
		}

		var page dataAPIPlaylistItems
		if err := s.getJSON(gctx, "items", "playlistItems", params, &page); err != nil {
			// an enrichment failure cancels gctx, so report it rather than the cancellation it caused
			if gerr := g.Wait(); gerr != nil {
				return nil, gerr
			}
			return nil, err
		}

		entries := make([]dataAPIPlaylistItem, 0, len(page.Items))
		for _, item := range page.Items {
			if item.Snippet.ResourceID.Kind == "youtube#video" {
				entries = append(entries, item)
			}
		}

		slot := new([]models.Video)
		pages = append(pages, slot)
		g.Go(func() error {
			videos, err := s.enrich(gctx, entries, info.ChannelTitle, apiKey)
			*slot = videos
			return err
		})

		s.logger.Debug("fetched page", "playlist", playlistID, "page", len(pages), "entries", len(entries))

		token = page.NextPageToken
		if token == "" {
			break
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0)
	for _, page := range pages {
		videos = append(videos, *page...)
	}

	return &models.Playlist{
		ID:          playlistID,
		Title:       info.Title,
		Uploader:    info.ChannelTitle,
		Description: info.Description,
		Videos:      videos,
	}, nil
}

// enrich looks up durations for one page of entries and builds the canonical videos.
func (s *DataAPIService) enrich(ctx context.Context, entries []dataAPIPlaylistItem, channel, apiKey string) ([]models.Video, error) {
	durations := make(map[string]int, len(entries))
	if len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.Snippet.ResourceID.VideoID
		}

		var lookup dataAPIVideos
		params := url.Values{"part": {"contentDetails"}, "id": {strings.Join(ids, ",")}, "key": {apiKey}}
		if err := s.getJSON(ctx, "videos", "videos", params, &lookup); err != nil {
			return nil, err
		}
		for _, v := range lookup.Items {
			durations[v.ID] = shared.ParseISODuration(v.ContentDetails.Duration)
		}
	}

	videos := make([]models.Video, len(entries))
	for i, e := range entries {
		id := e.Snippet.ResourceID.VideoID
		uploader := e.Snippet.VideoOwnerChannelTitle
		if uploader == "" {
			uploader = channel
		}
		videos[i] = models.Video{
			Title:     e.Snippet.Title,
			URL:       "/watch?v=" + id,
			Duration:  durations[id],
			Thumbnail: dataAPIThumbnailURL(e, id),
			Uploader:  uploader,
		}
	}
	return videos, nil
}

func dataAPIThumbnailURL(e dataAPIPlaylistItem, videoID string) string {
	thumbs := e.Snippet.Thumbnails
	switch {
	case thumbs.Medium != nil && thumbs.Medium.URL != "":
		return thumbs.Medium.URL
	case thumbs.Default != nil && thumbs.Default.URL != "":
		return thumbs.Default.URL
	default:
		return fallbackThumbnail(videoID)
	}
}

// fallbackThumbnail is the CDN thumbnail every public video has.
func fallbackThumbnail(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

func (s *DataAPIService) getJSON(ctx context.Context, stage, endpoint string, params url.Values, out any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	resp, err := s.api.Get(ctx, s.baseURL+"/"+endpoint+"?"+params.Encode())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &shared.BackendError{Backend: dataAPIBackend, Stage: stage, Message: redactURLError(err).Error()}
	}

	if !resp.OK() {
		msg := fmt.Sprintf("YouTube API Error: %d", resp.StatusCode)
		var body dataAPIErrorBody
		if json.Unmarshal(resp.Body, &body) == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		s.logger.Warn("request rejected", "stage", stage, "status", resp.StatusCode, "message", msg)
		return &shared.BackendError{Backend: dataAPIBackend, Stage: stage, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &shared.BackendError{
			Backend: dataAPIBackend, Stage: stage, Status: resp.StatusCode,
			Message: fmt.Sprintf("invalid response body: %v", err),
		}
	}
	return nil
}

// redactKey hides the api key query parameter in URLs that end up in logs.
func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") == "" {
		return raw
	}
	q.Set("key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
