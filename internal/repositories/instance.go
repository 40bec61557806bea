package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// InstanceRepository caches the results of the most recent discovery run.
//
// Saving a run replaces the previous one; there is no history.
type InstanceRepository struct {
	db *sql.DB
}

// NewInstanceRepository creates a new [InstanceRepository] with the given database connection
func NewInstanceRepository(db *sql.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// SaveRun replaces the cached instances with the given discovery results.
func (r *InstanceRepository) SaveRun(instances []models.Instance) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM instances`); err != nil {
		return fmt.Errorf("failed to clear instances: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO instances (id, base_url, kind, healthy, users, last_error, stage, status, message, latency_ms, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, inst := range instances {
		var users sql.NullInt64
		if inst.Users != nil {
			users = sql.NullInt64{Int64: int64(*inst.Users), Valid: true}
		}
		_, err := stmt.Exec(shared.GenerateID(), inst.BaseURL, inst.Kind.String(), inst.Healthy, users,
			string(inst.LastError), inst.Stage, inst.Status, inst.Message, inst.Latency.Milliseconds(), now)
		if err != nil {
			return fmt.Errorf("failed to insert instance %s: %w", inst.BaseURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit instances: %w", err)
	}
	return nil
}

// List returns every cached instance, working ones first ranked by popularity.
func (r *InstanceRepository) List() ([]models.Instance, error) {
	return r.query(`SELECT base_url, kind, healthy, users, last_error, stage, status, message, latency_ms
		FROM instances ORDER BY healthy DESC, COALESCE(users, 0) DESC, rowid ASC`)
}

// ListWorking returns the cached working instances ranked by popularity.
func (r *InstanceRepository) ListWorking() ([]models.Instance, error) {
	return r.query(`SELECT base_url, kind, healthy, users, last_error, stage, status, message, latency_ms
		FROM instances WHERE healthy = 1 ORDER BY COALESCE(users, 0) DESC, rowid ASC`)
}

// Best returns the top-ranked working instance from the last saved run.
func (r *InstanceRepository) Best() (models.Instance, error) {
	working, err := r.ListWorking()
	if err != nil {
		return models.Instance{}, err
	}
	if len(working) == 0 {
		return models.Instance{}, fmt.Errorf("%w: no working instances cached, run discover --save", shared.ErrServiceUnavailable)
	}
	return working[0], nil
}

func (r *InstanceRepository) query(q string) ([]models.Instance, error) {
	rows, err := r.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var out []models.Instance
	for rows.Next() {
		var (
			inst      models.Instance
			kind      string
			users     sql.NullInt64
			lastError string
			latencyMS int64
		)
		err := rows.Scan(&inst.BaseURL, &kind, &inst.Healthy, &users, &lastError, &inst.Stage, &inst.Status,
			&inst.Message, &latencyMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		if inst.Kind, err = models.ParseBackendKind(kind); err != nil {
			return nil, err
		}
		if users.Valid {
			n := int(users.Int64)
			inst.Users = &n
		}
		inst.LastError = models.ProbeFailure(lastError)
		inst.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
