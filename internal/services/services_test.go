package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
	tu "github.com/desertthunder/tubetodo/internal/testing"
)

func TestExtractPlaylistID(t *testing.T) {
	valid := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/playlist?list=PL4cUxeGkcC9l0Jnx0_oMEa_J8v_z_yD5E", "PL4cUxeGkcC9l0Jnx0_oMEa_J8v_z_yD5E"},
		{"https://www.youtube.com/watch?v=abc&list=PLabcdefghij&index=3", "PLabcdefghij"},
		{"https://music.youtube.com/playlist?list=OLAK5uy_k", "OLAK5uy_k"},
		{"PL4cUxeGkcC9l0Jnx0_oMEa_J8v_z_yD5E", "PL4cUxeGkcC9l0Jnx0_oMEa_J8v_z_yD5E"},
		{"  PLabcdefghij  ", "PLabcdefghij"},
		{"abcdefghij", "abcdefghij"},
	}
	for _, tt := range valid {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExtractPlaylistID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	invalid := []string{
		"",
		"short",
		"https://www.youtube.com/watch?v=abc",
		"not a playlist at all",
		"PL$bad*chars!!",
	}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ExtractPlaylistID(in)
			var ie *shared.InputError
			require.ErrorAs(t, err, &ie)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestLooksLikeAPIKey(t *testing.T) {
	assert.False(t, LooksLikeAPIKey(""))
	assert.False(t, LooksLikeAPIKey("short-key"))
	assert.False(t, LooksLikeAPIKey("12345678901234567890"), "exactly 20 is not enough")
	assert.False(t, LooksLikeAPIKey("   12345678901234567890   "), "whitespace does not count")
	assert.True(t, LooksLikeAPIKey("123456789012345678901"))
	assert.True(t, LooksLikeAPIKey(testKey))
}

type stubMirror struct {
	calls   int
	gotBase string
	gotID   string
	err     error
}

func (s *stubMirror) Name() string { return "mirror" }

func (s *stubMirror) FetchPlaylist(_ context.Context, base, id string) (*models.Playlist, []Attempt, error) {
	s.calls++
	s.gotBase, s.gotID = base, id
	if s.err != nil {
		return nil, nil, s.err
	}
	return &models.Playlist{ID: id, Title: "from mirror", Videos: []models.Video{}},
		[]Attempt{{Backend: "piped", Status: 200, Kind: models.KindPiped}}, nil
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	ref := "https://www.youtube.com/playlist?list=PLabcdefghij"

	t.Run("invalid reference fails before any request", func(t *testing.T) {
		api, mirror := &tu.MockPlaylistAPI{}, &stubMirror{}
		r := NewResolver(api, mirror, nil)

		_, err := r.Resolve(ctx, Request{Reference: "nope", APIKey: testKey})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Zero(t, api.CallCount())
		assert.Zero(t, mirror.calls)
	})

	t.Run("credential routes to the data api", func(t *testing.T) {
		api := &tu.MockPlaylistAPI{Playlist: &models.Playlist{ID: "PLabcdefghij", Title: "from api"}}
		mirror := &stubMirror{}
		r := NewResolver(api, mirror, nil)

		res, err := r.Resolve(ctx, Request{Reference: ref, APIKey: "  " + testKey + " "})
		require.NoError(t, err)
		assert.Equal(t, "youtube", res.Source)
		assert.Equal(t, "from api", res.Playlist.Title)
		require.Equal(t, 1, api.CallCount())
		assert.Equal(t, tu.MockCall{PlaylistID: "PLabcdefghij", APIKey: testKey}, api.Calls[0])
		assert.Zero(t, mirror.calls)
		require.Len(t, res.Attempts, 1)
	})

	t.Run("long but invalid key still goes first party", func(t *testing.T) {
		apiErr := &shared.BackendError{Backend: "youtube", Status: 400, Message: "API key not valid"}
		api := &tu.MockPlaylistAPI{Err: apiErr}
		mirror := &stubMirror{}
		r := NewResolver(api, mirror, nil)

		_, err := r.Resolve(ctx, Request{Reference: ref, APIKey: "this-key-is-long-but-garbage"})
		assert.ErrorIs(t, err, apiErr)
		assert.Zero(t, mirror.calls, "no fallback to the mirror")
	})

	t.Run("short key routes to the mirror", func(t *testing.T) {
		api, mirror := &tu.MockPlaylistAPI{}, &stubMirror{}
		r := NewResolver(api, mirror, nil)

		res, err := r.Resolve(ctx, Request{Reference: "PLabcdefghij", APIKey: "short", MirrorBase: "https://inv.example"})
		require.NoError(t, err)
		assert.Equal(t, "mirror", res.Source)
		assert.Equal(t, "https://inv.example", mirror.gotBase)
		assert.Equal(t, "PLabcdefghij", mirror.gotID)
		assert.Zero(t, api.CallCount())
		assert.Len(t, res.Attempts, 1)
	})

	t.Run("default mirror base", func(t *testing.T) {
		mirror := &stubMirror{}
		r := NewResolver(&tu.MockPlaylistAPI{}, mirror, nil)

		_, err := r.Resolve(ctx, Request{Reference: "PLabcdefghij"})
		require.NoError(t, err)
		assert.Equal(t, DefaultMirrorBase, mirror.gotBase)
	})

	t.Run("mirror failure is returned as is", func(t *testing.T) {
		last := &shared.BackendError{Backend: "mirror", Stage: "invidious", Status: 404, Message: "API Error: 404"}
		mirror := &stubMirror{err: &AttemptsError{Attempts: []Attempt{{}, {}}, Last: last}}
		r := NewResolver(&tu.MockPlaylistAPI{}, mirror, nil)

		_, err := r.Resolve(ctx, Request{Reference: "PLabcdefghij"})
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})

	t.Run("demo", func(t *testing.T) {
		api, mirror := &tu.MockPlaylistAPI{}, &stubMirror{}
		r := NewResolver(api, mirror, nil)

		res, err := r.Resolve(ctx, Request{Reference: "demo", APIKey: testKey})
		require.NoError(t, err)
		assert.Equal(t, "demo", res.Source)
		assert.Len(t, res.Playlist.Videos, 5)
		assert.Equal(t, 300+450+520+380+410, res.Playlist.TotalDuration())
		assert.Zero(t, api.CallCount()+mirror.calls)
	})

	t.Run("end to end against a mirror is idempotent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(pipedBody))
		}))
		defer srv.Close()

		r := NewResolver(NewDataAPIService(), NewMirrorService(nil, nil), nil)
		req := Request{Reference: "PLgo00000001", MirrorBase: srv.URL}

		first, err := r.Resolve(ctx, req)
		require.NoError(t, err)
		second, err := r.Resolve(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.Playlist, second.Playlist)
	})
}

func TestAttemptsError(t *testing.T) {
	last := &shared.BackendError{Backend: "mirror", Stage: "invidious", Status: 502, Message: "API Error: 502"}
	err := error(&AttemptsError{Attempts: make([]Attempt, 2), Last: last})

	var be *shared.BackendError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, 502, be.Status)
	assert.Equal(t, "mirror invidious (status 502): API Error: 502 (after 2 attempts)", err.Error())
}
