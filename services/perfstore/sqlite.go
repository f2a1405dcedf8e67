package perfstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS performance_samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_id TEXT NOT NULL,
	score       REAL NOT NULL,
	latency_ms  REAL NOT NULL,
	cost        REAL NOT NULL,
	priority    TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_provider ON performance_samples (provider_id);
`

// SQLiteStore is a Store backed by a local sqlite database, keeping
// performance history across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, providerID string, sample Sample) error {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO performance_samples (provider_id, score, latency_ms, cost, priority, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		providerID, sample.Score, sample.LatencyMs, sample.Cost, sample.Priority, sample.RecordedAt)
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (map[string][]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider_id, score FROM performance_samples ORDER BY recorded_at`)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var providerID string
		var score float64
		if err := rows.Scan(&providerID, &score); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out[providerID] = append(out[providerID], score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}
