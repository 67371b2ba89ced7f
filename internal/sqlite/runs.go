package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded harness run.
type Run struct {
	ID        string    `json:"run_id"`
	Fixture   string    `json:"fixture"`
	Mode      string    `json:"mode"`
	Engine    string    `json:"engine"`
	Passed    bool      `json:"passed"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// generateUUID generates a UUID v7 for run ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// RecordRun stores r with a fresh id and timestamp and returns the stored
// row. The fixture is stored under FixtureKey.
func (s *Store) RecordRun(r Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.handle()
	if err != nil {
		return Run{}, err
	}

	r.ID = generateUUID()
	r.Fixture = FixtureKey(r.Fixture)
	stamp := s.timestamp()
	r.CreatedAt, _ = time.Parse(timeLayout, stamp)

	if _, err := db.Exec(`INSERT INTO runs (run_id, fixture, mode, engine, passed, output, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Fixture, r.Mode, r.Engine, r.Passed, nullable(r.Output), nullable(r.Error), stamp); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

// Runs lists recorded runs newest first. An empty fixture name lists every
// fixture; limit <= 0 means no limit.
func (s *Store) Runs(fixtureName string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT run_id, fixture, mode, engine, passed, output, error, created_at FROM runs`
	var args []any
	if fixtureName != "" {
		query += ` WHERE fixture = ?`
		args = append(args, FixtureKey(fixtureName))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r            Run
			output, rerr sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&r.ID, &r.Fixture, &r.Mode, &r.Engine, &r.Passed, &output, &rerr, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Output = output.String
		r.Error = rerr.String
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", createdAt, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
