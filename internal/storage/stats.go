package storage

import (
	"context"
	"fmt"
	"time"
)

// Stats counts stored rows by status.
type Stats struct {
	Tokens         map[string]int64 `json:"tokens"`         // tokens per status
	Authorizations map[string]int64 `json:"authorizations"` // authorizations per status
	SchemaVersion  uint             `json:"schema_version"`
	CollectedAt    time.Time        `json:"collected_at"`
}

// Stats collects row counts per status.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{CollectedAt: s.clock.Now().UTC()}

	var err error
	if stats.Tokens, err = s.countByStatus(ctx, "tokens"); err != nil {
		return nil, err
	}
	if stats.Authorizations, err = s.countByStatus(ctx, "authorizations"); err != nil {
		return nil, err
	}

	status, err := GetMigrationStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = status.Version
	return stats, nil
}

func (s *SQLiteStore) countByStatus(ctx context.Context, table string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", table, err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
