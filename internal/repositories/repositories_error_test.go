package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

func TestTodoRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, models.Video{Title: "no url"})

			if err := repo.Create(item); err == nil {
				t.Fatal("expected validation error for empty url")
			}
		})

		t.Run("NegativeDuration", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, models.Video{URL: "/watch?v=x", Duration: -1})

			if err := repo.Create(item); err == nil {
				t.Fatal("expected validation error for negative duration")
			}
		})

		t.Run("DuplicateURL", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			if err := repo.Create(models.NewTodoItem(0, "PL1", 0, video("a", "A", 1))); err != nil {
				t.Fatalf("failed to create first todo: %v", err)
			}

			if err := repo.Create(models.NewTodoItem(0, "PL2", 0, video("a", "A", 1))); err == nil {
				t.Fatal("expected error when creating todo with duplicate url")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))

			_, err := repo.Get("nonexistent-id")
			if !errors.Is(err, shared.ErrTodoNotFound) {
				t.Fatalf("expected ErrTodoNotFound, got %v", err)
			}
		})

		t.Run("NotFoundByURL", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))

			_, err := repo.GetByURL("/watch?v=missing")
			if !errors.Is(err, shared.ErrTodoNotFound) {
				t.Fatalf("expected ErrTodoNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, video("a", "A", 1))
			item.SetID("nonexistent-id")

			if err := repo.Update(item); !errors.Is(err, shared.ErrTodoNotFound) {
				t.Fatalf("expected ErrTodoNotFound, got %v", err)
			}
		})

		t.Run("Deleted", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, video("a", "A", 1))
			if err := repo.Create(item); err != nil {
				t.Fatalf("failed to create todo: %v", err)
			}
			if err := repo.Delete(item.ID()); err != nil {
				t.Fatalf("failed to delete todo: %v", err)
			}

			if err := repo.Update(item); err == nil {
				t.Fatal("expected error when updating deleted todo")
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, video("a", "A", 1))
			if err := repo.Create(item); err != nil {
				t.Fatalf("failed to create todo: %v", err)
			}

			item.SetPosition(-1)
			if err := repo.Update(item); err == nil {
				t.Fatal("expected validation error for negative position")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("AlreadyDeleted", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))
			item := models.NewTodoItem(0, "PL1", 0, video("a", "A", 1))
			if err := repo.Create(item); err != nil {
				t.Fatalf("failed to create todo: %v", err)
			}
			if err := repo.Delete(item.ID()); err != nil {
				t.Fatalf("failed to delete todo: %v", err)
			}

			if err := repo.Delete(item.ID()); err == nil {
				t.Fatal("expected error when deleting twice")
			}
		})
	})

	t.Run("Toggle", func(t *testing.T) {
		t.Run("UnknownURL", func(t *testing.T) {
			repo := NewTodoRepository(setupTestDB(t))

			if _, err := repo.Toggle("/watch?v=missing"); !errors.Is(err, shared.ErrTodoNotFound) {
				t.Fatalf("expected ErrTodoNotFound, got %v", err)
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTodoRepository(db)
		db.Close()

		if _, err := repo.List(nil); err == nil {
			t.Error("expected error listing on closed database")
		}
		if _, err := repo.Clear(); err == nil {
			t.Error("expected error clearing on closed database")
		}
		if _, err := repo.Merge("PL1", []models.Video{video("a", "A", 1)}, true); err == nil {
			t.Error("expected error merging on closed database")
		}
	})
}

func TestSettingsRepositoryErrors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		repo := NewSettingsRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrSettingNotFound) {
			t.Fatalf("expected ErrSettingNotFound, got %v", err)
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSettingsRepository(db)
		db.Close()

		if err := repo.Set(SettingAPIKey, "x"); err == nil {
			t.Error("expected error on closed database")
		}
		if _, _, err := repo.Lookup(SettingAPIKey); err == nil {
			t.Error("expected lookup error on closed database")
		}
	})
}

func TestInstanceRepositoryErrors(t *testing.T) {
	t.Run("EmptyCache", func(t *testing.T) {
		repo := NewInstanceRepository(setupTestDB(t))

		if _, err := repo.Best(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("DuplicateBaseURL", func(t *testing.T) {
		repo := NewInstanceRepository(setupTestDB(t))
		run := []models.Instance{{BaseURL: "https://a.example"}, {BaseURL: "https://a.example"}}

		if err := repo.SaveRun(run); err == nil {
			t.Fatal("expected unique constraint error")
		}
	})
}
