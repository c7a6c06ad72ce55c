package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type OptionRepository struct {
	db *DB
}

func NewOptionRepository(db *DB) *OptionRepository {
	return &OptionRepository{db: db}
}

// Get reports whether the option exists alongside its value.
func (r *OptionRepository) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return value, true, nil
}

func (r *OptionRepository) Set(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO options (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

func (r *OptionRepository) Delete(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name); err != nil {
			return fmt.Errorf("failed to delete option %s: %w", name, err)
		}
	}
	return nil
}
