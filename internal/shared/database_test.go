package shared

import (
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("Applies Store Pragmas", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "store.db"))
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		var timeout int
		if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("failed to read busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Errorf("busy_timeout = %d, want 5000", timeout)
		}

		var fk int
		if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("failed to read foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("foreign_keys = %d, want 1", fk)
		}
	})

	t.Run("In Memory", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()
		ConfigureDatabase(db, 1, 1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	})
}

func TestStoreDSN(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"./tubetodo.db", "./tubetodo.db?" + storePragmas},
		{":memory:", ":memory:?" + storePragmas},
		{"file:test.db?cache=shared", "file:test.db?cache=shared&" + storePragmas},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := storeDSN(tt.in); got != tt.want {
				t.Errorf("storeDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
