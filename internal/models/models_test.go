package models

import (
	"encoding/json"
	"testing"
)

func TestPlaylistTotalDuration(t *testing.T) {
	p := &Playlist{Videos: []Video{{Duration: 300}, {Duration: 0}, {Duration: 61}}}
	if got := p.TotalDuration(); got != 361 {
		t.Errorf("TotalDuration() = %d, want 361", got)
	}
	if got := (&Playlist{}).TotalDuration(); got != 0 {
		t.Errorf("empty TotalDuration() = %d, want 0", got)
	}
}

func TestBackendKind(t *testing.T) {
	t.Run("round trips through JSON", func(t *testing.T) {
		for _, kind := range []BackendKind{KindUnknown, KindPiped, KindInvidious} {
			data, err := json.Marshal(Instance{Kind: kind})
			if err != nil {
				t.Fatalf("marshal %v: %v", kind, err)
			}
			var inst Instance
			if err := json.Unmarshal(data, &inst); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if inst.Kind != kind {
				t.Errorf("got %v, want %v", inst.Kind, kind)
			}
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		if _, err := ParseBackendKind("peertube"); err == nil {
			t.Error("expected error")
		}
		if k, err := ParseBackendKind(""); err != nil || k != KindUnknown {
			t.Errorf("empty name = %v, %v", k, err)
		}
	})
}

func TestInstancePopularity(t *testing.T) {
	users := 42
	if got := (Instance{Users: &users}).Popularity(); got != 42 {
		t.Errorf("Popularity() = %d, want 42", got)
	}
	if got := (Instance{}).Popularity(); got != 0 {
		t.Errorf("Popularity() without users = %d, want 0", got)
	}
}

func TestTodoItem(t *testing.T) {
	t.Run("new items start incomplete", func(t *testing.T) {
		item := NewTodoItem(1, "PL1", 0, Video{URL: "/watch?v=a", Duration: 10})
		if item.Completed() || item.CompletedAt() != nil {
			t.Error("expected a new item to be incomplete")
		}
		if item.CreatedAt().IsZero() || !item.CreatedAt().Equal(item.UpdatedAt()) {
			t.Error("expected created and updated timestamps to be set")
		}
	})

	t.Run("SetCompleted stamps and clears", func(t *testing.T) {
		item := NewTodoItem(1, "PL1", 0, Video{URL: "/watch?v=a"})
		item.SetCompleted(true)
		if !item.Completed() || item.CompletedAt() == nil {
			t.Fatal("expected completion to be stamped")
		}
		item.SetCompleted(false)
		if item.Completed() || item.CompletedAt() != nil {
			t.Error("expected completion to be cleared")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			item    *TodoItem
			wantErr bool
		}{
			{name: "valid", item: NewTodoItem(1, "PL1", 0, Video{URL: "/watch?v=a"})},
			{name: "missing url", item: NewTodoItem(1, "PL1", 0, Video{URL: " "}), wantErr: true},
			{name: "negative duration", item: NewTodoItem(1, "PL1", 0, Video{URL: "/watch?v=a", Duration: -1}), wantErr: true},
			{name: "negative position", item: NewTodoItem(1, "PL1", -1, Video{URL: "/watch?v=a"}), wantErr: true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.item.Validate(); (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestSummarize(t *testing.T) {
	if p := Summarize(nil); p != (Progress{}) {
		t.Errorf("empty list = %+v, want zero", p)
	}

	items := []*TodoItem{
		NewTodoItem(1, "PL1", 0, Video{URL: "/a", Duration: 100}),
		NewTodoItem(2, "PL1", 1, Video{URL: "/b", Duration: 200}),
		NewTodoItem(3, "PL1", 2, Video{URL: "/c", Duration: 300}),
	}
	items[1].SetCompleted(true)

	p := Summarize(items)
	want := Progress{Total: 3, Completed: 1, Percent: 33.3, TotalSeconds: 600, RemainingSeconds: 400}
	if p != want {
		t.Errorf("Summarize() = %+v, want %+v", p, want)
	}
}
