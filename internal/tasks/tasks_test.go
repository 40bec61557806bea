package tasks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/repositories"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// fakeResolver answers from a map keyed by reference.
type fakeResolver struct {
	mu        sync.Mutex
	playlists map[string]*models.Playlist
	errs      map[string]error
	calls     []services.Request
}

func (f *fakeResolver) Resolve(ctx context.Context, req services.Request) (*services.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[req.Reference]; ok {
		return nil, err
	}
	p, ok := f.playlists[req.Reference]
	if !ok {
		return nil, &shared.BackendError{Backend: "mirror", Status: 404, Message: "API Error: 404"}
	}
	return &services.Result{Playlist: p, Source: "mirror"}, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func makePlaylist(id string, n int) *models.Playlist {
	p := &models.Playlist{ID: id, Title: "Playlist " + id, Uploader: "Gopher"}
	for i := range n {
		p.Videos = append(p.Videos, models.Video{
			Title:    fmt.Sprintf("%s video %d", id, i+1),
			URL:      fmt.Sprintf("/watch?v=%s_%d", id, i+1),
			Duration: 60 * (i + 1),
		})
	}
	return p
}

func newTodoRepo(t *testing.T) *repositories.TodoRepository {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	shared.ConfigureDatabase(db, 1, 1)
	require.NoError(t, shared.RunMigrations(db))
	t.Cleanup(func() { db.Close() })
	return repositories.NewTodoRepository(db)
}

func TestPlaylistEngine_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh import adds every video", func(t *testing.T) {
		repo := newTodoRepo(t)
		resolver := &fakeResolver{playlists: map[string]*models.Playlist{"PLcourse0001": makePlaylist("PLcourse0001", 3)}}
		engine := NewPlaylistEngine(resolver, repo, nil)

		progress := make(chan ProgressUpdate, 10)
		res, err := engine.Import(ctx, progress, services.Request{Reference: "PLcourse0001"}, true)
		require.NoError(t, err)
		close(progress)

		assert.Equal(t, repositories.MergeResult{Added: 3}, res.Merge)
		assert.Equal(t, "mirror", res.Resolution.Source)

		items, err := repo.List(nil)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "/watch?v=PLcourse0001_1", items[0].URL())

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		assert.Equal(t, []Phase{ResolvePlaylist, ResolvePlaylist, MergeTodos}, phases)
	})

	t.Run("reimport keeps completion state", func(t *testing.T) {
		repo := newTodoRepo(t)
		p := makePlaylist("PLcourse0001", 3)
		resolver := &fakeResolver{playlists: map[string]*models.Playlist{"PLcourse0001": p}}
		engine := NewPlaylistEngine(resolver, repo, nil)

		_, err := engine.Import(ctx, nil, services.Request{Reference: "PLcourse0001"}, true)
		require.NoError(t, err)
		_, err = repo.Toggle("/watch?v=PLcourse0001_2")
		require.NoError(t, err)

		// the playlist drops its first video upstream
		p.Videos = p.Videos[1:]
		res, err := engine.Import(ctx, nil, services.Request{Reference: "PLcourse0001"}, true)
		require.NoError(t, err)
		assert.Equal(t, repositories.MergeResult{Kept: 2, Removed: 1}, res.Merge)

		item, err := repo.GetByURL("/watch?v=PLcourse0001_2")
		require.NoError(t, err)
		assert.True(t, item.Completed())
		assert.Equal(t, 0, item.Position())
	})

	t.Run("append keeps videos missing upstream", func(t *testing.T) {
		repo := newTodoRepo(t)
		resolver := &fakeResolver{playlists: map[string]*models.Playlist{
			"PLfirst00001": makePlaylist("PLfirst00001", 2),
			"PLsecond0001": makePlaylist("PLsecond0001", 2),
		}}
		engine := NewPlaylistEngine(resolver, repo, nil)

		_, err := engine.Import(ctx, nil, services.Request{Reference: "PLfirst00001"}, true)
		require.NoError(t, err)
		res, err := engine.Import(ctx, nil, services.Request{Reference: "PLsecond0001"}, false)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Merge.Removed)

		items, err := repo.List(nil)
		require.NoError(t, err)
		assert.Len(t, items, 4)
	})

	t.Run("resolution failure leaves the list untouched", func(t *testing.T) {
		repo := newTodoRepo(t)
		resolver := &fakeResolver{playlists: map[string]*models.Playlist{"PLcourse0001": makePlaylist("PLcourse0001", 2)}}
		engine := NewPlaylistEngine(resolver, repo, nil)
		_, err := engine.Import(ctx, nil, services.Request{Reference: "PLcourse0001"}, true)
		require.NoError(t, err)

		_, err = engine.Import(ctx, nil, services.Request{Reference: "PLmissing000"}, true)
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)

		items, err := repo.List(nil)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewPlaylistEngine(nil, nil, nil).Import(ctx, nil, services.Request{Reference: "demo"}, true)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

		_, err = NewPlaylistEngine(&fakeResolver{}, nil, nil).Import(ctx, nil, services.Request{Reference: "demo"}, true)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})

	t.Run("demo through the real resolver", func(t *testing.T) {
		repo := newTodoRepo(t)
		resolver := services.NewResolver(services.NewDataAPIService(), services.NewMirrorService(nil, nil), nil)
		engine := NewPlaylistEngine(resolver, repo, nil)

		res, err := engine.Import(ctx, nil, services.Request{Reference: "demo"}, true)
		require.NoError(t, err)
		assert.Equal(t, 5, res.Merge.Added)

		items, err := repo.List(nil)
		require.NoError(t, err)
		p := models.Summarize(items)
		assert.Equal(t, 2060, p.TotalSeconds)
		assert.Equal(t, 0.0, p.Percent)
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	progress := make(chan ProgressUpdate) // unbuffered and never read

	done := make(chan struct{})
	go func() {
		sendProgress(progress, ProgressUpdate{Phase: ResolvePlaylist, Message: "dropped"})
		sendProgress(nil, ProgressUpdate{Phase: ResolvePlaylist})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendProgress blocked")
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "resolve_playlist", ResolvePlaylist.String())
	assert.Equal(t, "merge_todos", MergeTodos.String())
	assert.Equal(t, "probe_instances", ProbeInstances.String())
	assert.Equal(t, "export_playlist", ExportPlaylist.String())
	assert.Equal(t, "", Phase(99).String())
}
