package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Backup writes a consistent copy of the database to backupPath and checks
// that the copy holds the same rows. backupPath must not exist.
func (s *SQLiteStore) Backup(ctx context.Context, backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("%w: backup path cannot be empty", ErrInvalidInput)
	}
	if _, err := os.Stat(backupPath); err == nil {
		return fmt.Errorf("%w: backup file %s already exists", ErrInvalidInput, backupPath)
	}

	// Ensure backup directory exists
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, backupPath); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}

	if err := s.verifyBackup(ctx, backupPath); err != nil {
		// If verification fails, try to remove the corrupted backup
		os.Remove(backupPath)
		return fmt.Errorf("backup verification failed: %w", err)
	}
	return nil
}

// verifyBackup compares row counts and schema version between the database
// and the backup.
func (s *SQLiteStore) verifyBackup(ctx context.Context, backupPath string) error {
	backupDB, err := sql.Open("sqlite3", backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup database: %w", err)
	}
	defer backupDB.Close()

	for _, table := range []string{"authorizations", "tokens"} {
		var sourceCount, backupCount int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&sourceCount); err != nil {
			return fmt.Errorf("failed to get source count for table %s: %w", table, err)
		}
		if err := backupDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&backupCount); err != nil {
			return fmt.Errorf("failed to get backup count for table %s: %w", table, err)
		}
		if sourceCount != backupCount {
			return fmt.Errorf("row count mismatch for table %s: source=%d, backup=%d",
				table, sourceCount, backupCount)
		}
	}

	source, err := GetMigrationStatus(ctx, s.db)
	if err != nil {
		return err
	}
	backup, err := GetMigrationStatus(ctx, backupDB)
	if err != nil {
		return err
	}
	if source != backup {
		return fmt.Errorf("schema mismatch: source=%d, backup=%d", source.Version, backup.Version)
	}
	return nil
}
