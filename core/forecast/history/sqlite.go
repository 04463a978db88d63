package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists runs to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS forecast_runs (
        id TEXT PRIMARY KEY,
        ts INTEGER,
        schedule TEXT,
        mode TEXT,
        record TEXT
    );
    CREATE INDEX IF NOT EXISTS forecast_runs_schedule ON forecast_runs (schedule, ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the run. Appending an existing id replaces it.
func (s *SQLiteStore) Append(ctx context.Context, run Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO forecast_runs (id, ts, schedule, mode, record) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Time.UnixNano(), run.Schedule, run.Mode.String(), string(b))
	return err
}

// Query returns runs matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Run, error) {
	var args []any
	query := `SELECT record FROM forecast_runs WHERE 1=1`
	if q.Schedule != "" {
		query += ` AND schedule = ?`
		args = append(args, q.Schedule)
	}
	if !q.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.Until.UnixNano())
	}
	query += ` ORDER BY ts DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Run
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Run
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortAndLimit(res, 0), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
