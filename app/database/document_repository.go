package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Get(ctx context.Context, key string) (*Document, error) {
	var doc Document
	var builtAt int64

	err := r.db.QueryRowContext(ctx, `
		SELECT key, year, month, day, entity_type, entity_key, xml, entry_count, built_at
		FROM sitemap_documents
		WHERE key = ?
	`, key).Scan(&doc.Key, &doc.Year, &doc.Month, &doc.Day, &doc.EntityType, &doc.EntityKey,
		&doc.XML, &doc.EntryCount, &builtAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.BuiltAt = time.Unix(builtAt, 0).UTC()
	return &doc, nil
}

// Upsert overwrites any existing document stored under doc.Key.
func (r *DocumentRepository) Upsert(ctx context.Context, doc Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sitemap_documents (key, year, month, day, entity_type, entity_key, xml, entry_count, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			year = excluded.year,
			month = excluded.month,
			day = excluded.day,
			entity_type = excluded.entity_type,
			entity_key = excluded.entity_key,
			xml = excluded.xml,
			entry_count = excluded.entry_count,
			built_at = excluded.built_at
	`, doc.Key, doc.Year, doc.Month, doc.Day, doc.EntityType, doc.EntityKey,
		doc.XML, doc.EntryCount, doc.BuiltAt.Unix())

	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// Delete reports whether a document was removed.
func (r *DocumentRepository) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sitemap_documents WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *DocumentRepository) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM sitemap_documents ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list document keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan document key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document keys: %w", err)
	}

	return keys, nil
}

// ListDocuments returns document metadata without the XML body: date
// documents newest first, then entity documents by key.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, year, month, day, entity_type, entity_key, entry_count, built_at
		FROM sitemap_documents
		ORDER BY entity_type != '' ASC, year DESC, month DESC, day DESC, key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var builtAt int64
		err := rows.Scan(&doc.Key, &doc.Year, &doc.Month, &doc.Day, &doc.EntityType, &doc.EntityKey,
			&doc.EntryCount, &builtAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc.BuiltAt = time.Unix(builtAt, 0).UTC()
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// FindDocumentMonths returns the months of year that hold at least one date document, descending.
func (r *DocumentRepository) FindDocumentMonths(ctx context.Context, year int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT month FROM sitemap_documents
		WHERE entity_type = '' AND year = ?
		ORDER BY month DESC
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to find document months: %w", err)
	}
	defer rows.Close()

	var months []int
	for rows.Next() {
		var month int
		if err := rows.Scan(&month); err != nil {
			return nil, fmt.Errorf("failed to scan month row: %w", err)
		}
		months = append(months, month)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating month rows: %w", err)
	}

	return months, nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sitemap_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
