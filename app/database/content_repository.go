package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ContentRepository reads the content store on behalf of providers and the
// detector, and accepts content writes from the admin API.
type ContentRepository struct {
	db       *DB
	location *time.Location
}

type ContentRepositoryOption func(*ContentRepository)

// WithLocation sets the timezone that decides an item's calendar day.
// It must match the clock the engine uses for today.
func WithLocation(loc *time.Location) ContentRepositoryOption {
	return func(r *ContentRepository) {
		if loc != nil {
			r.location = loc
		}
	}
}

// NewContentRepository defaults to time.Local, which cfg.Load sets from
// the configured timezone.
func NewContentRepository(db *DB, opts ...ContentRepositoryOption) *ContentRepository {
	r := &ContentRepository{db: db, location: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const contentColumns = `c.id, c.type, c.status, c.path, c.title, c.author_id,
	c.published_date, c.published_at, c.modified_at,
	c.image_url, c.image_caption, c.image_title, c.noindex`

// filter renders q as additional WHERE conditions on the content_items
// table aliased as c.
func (q ContentQuery) filter() (string, []any) {
	var sb strings.Builder
	var args []any

	if q.Status != "" {
		sb.WriteString(" AND c.status = ?")
		args = append(args, q.Status)
	}

	if len(q.Types) > 0 {
		sb.WriteString(" AND c.type IN (")
		for i, t := range q.Types {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, t)
		}
		sb.WriteString(")")
	}

	return sb.String(), args
}

func (r *ContentRepository) GetEarliestContentDate(ctx context.Context, q ContentQuery) (*time.Time, error) {
	cond, args := q.filter()

	var earliest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MIN(c.published_date) FROM content_items c WHERE 1 = 1`+cond, args...).Scan(&earliest)
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest content date: %w", err)
	}

	if !earliest.Valid || earliest.String == "" {
		return nil, nil
	}

	date, err := time.Parse(dateLayout, earliest.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse earliest content date %q: %w", earliest.String, err)
	}

	return &date, nil
}

// FindContentMonths returns the months of year holding qualifying content, descending.
func (r *ContentRepository) FindContentMonths(ctx context.Context, q ContentQuery, year int) ([]int, error) {
	cond, args := q.filter()
	args = append([]any{fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)}, args...)

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(substr(c.published_date, 6, 2) AS INTEGER) AS month
		FROM content_items c
		WHERE c.published_date >= ? AND c.published_date <= ?`+cond+`
		ORDER BY month DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find content months: %w", err)
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

// FindContentDates returns the distinct days in [from, to] holding qualifying content, ascending.
func (r *ContentRepository) FindContentDates(ctx context.Context, q ContentQuery, from, to time.Time) ([]time.Time, error) {
	cond, args := q.filter()
	args = append([]any{from.Format(dateLayout), to.Format(dateLayout)}, args...)

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT c.published_date
		FROM content_items c
		WHERE c.published_date >= ? AND c.published_date <= ?`+cond+`
		ORDER BY c.published_date ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find content dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan date row: %w", err)
		}
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse content date %q: %w", raw, err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating date rows: %w", err)
	}

	return dates, nil
}

func (r *ContentRepository) CountContentForDate(ctx context.Context, q ContentQuery, date time.Time) (int, error) {
	cond, args := q.filter()
	args = append([]any{date.Format(dateLayout)}, args...)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items c WHERE c.published_date = ?`+cond, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content for date: %w", err)
	}

	return count, nil
}

// FindRecentlyModified returns every item touched since the given instant,
// whatever its status, newest first.
func (r *ContentRepository) FindRecentlyModified(ctx context.Context, since time.Time) ([]ModifiedContent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, published_date, modified_at
		FROM content_items
		WHERE modified_at >= ?
		ORDER BY modified_at DESC, id ASC
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to find recently modified content: %w", err)
	}
	defer rows.Close()

	var modified []ModifiedContent
	for rows.Next() {
		var m ModifiedContent
		var publishedDate string
		var modifiedAt int64
		if err := rows.Scan(&m.ID, &m.Type, &m.Status, &publishedDate, &modifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan modified content row: %w", err)
		}
		date, err := time.Parse(dateLayout, publishedDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse content date %q: %w", publishedDate, err)
		}
		m.PublishedDate = date
		m.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
		modified = append(modified, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modified content rows: %w", err)
	}

	return modified, nil
}

func (r *ContentRepository) GetItemsForDate(ctx context.Context, q ContentQuery, date time.Time) ([]ContentItem, error) {
	cond, args := q.filter()
	args = append([]any{date.Format(dateLayout)}, args...)

	return r.queryItems(ctx, `
		SELECT `+contentColumns+`
		FROM content_items c
		WHERE c.published_date = ?`+cond+`
		ORDER BY c.published_at DESC, c.id ASC
	`, args...)
}

func (r *ContentRepository) GetItems(ctx context.Context, q ContentQuery) ([]ContentItem, error) {
	cond, args := q.filter()

	return r.queryItems(ctx, `
		SELECT `+contentColumns+`
		FROM content_items c
		WHERE 1 = 1`+cond+`
		ORDER BY c.published_at DESC, c.id ASC
	`, args...)
}

// GetContentItem returns nil, nil when no item has the given id.
func (r *ContentRepository) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	items, err := r.queryItems(ctx, `
		SELECT `+contentColumns+`
		FROM content_items c
		WHERE c.id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *ContentRepository) queryItems(ctx context.Context, query string, args ...any) ([]ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get content items: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		var item ContentItem
		var publishedDate string
		var publishedAt, modifiedAt int64
		var noIndex int
		err := rows.Scan(
			&item.ID, &item.Type, &item.Status, &item.Path, &item.Title, &item.AuthorID,
			&publishedDate, &publishedAt, &modifiedAt,
			&item.ImageURL, &item.ImageCaption, &item.ImageTitle, &noIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item row: %w", err)
		}

		item.PublishedDate, err = time.Parse(dateLayout, publishedDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse content date %q: %w", publishedDate, err)
		}
		item.PublishedAt = time.Unix(publishedAt, 0).UTC()
		item.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
		item.NoIndex = noIndex != 0

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content item rows: %w", err)
	}

	return items, nil
}

// GetTermsWithContent returns the terms of taxonomy assigned to at least one qualifying item.
func (r *ContentRepository) GetTermsWithContent(ctx context.Context, q ContentQuery, taxonomy string) ([]Term, error) {
	cond, args := q.filter()
	args = append([]any{taxonomy}, args...)

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.taxonomy, t.slug, t.name, t.path, t.modified_at
		FROM terms t
		WHERE t.taxonomy = ?
		  AND EXISTS (
			SELECT 1 FROM content_terms ct
			JOIN content_items c ON c.id = ct.content_id
			WHERE ct.term_id = t.id`+cond+`
		  )
		ORDER BY t.slug ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var term Term
		var modifiedAt int64
		if err := rows.Scan(&term.ID, &term.Taxonomy, &term.Slug, &term.Name, &term.Path, &modifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		term.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
		terms = append(terms, term)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating term rows: %w", err)
	}

	return terms, nil
}

// GetAuthorsWithContent returns authors of at least one qualifying item.
func (r *ContentRepository) GetAuthorsWithContent(ctx context.Context, q ContentQuery) ([]Author, error) {
	cond, args := q.filter()

	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.path, a.modified_at
		FROM authors a
		WHERE EXISTS (
			SELECT 1 FROM content_items c
			WHERE c.author_id = a.id`+cond+`
		)
		ORDER BY a.id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var author Author
		var modifiedAt int64
		if err := rows.Scan(&author.ID, &author.Name, &author.Path, &modifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author row: %w", err)
		}
		author.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating author rows: %w", err)
	}

	return authors, nil
}

func (r *ContentRepository) GetItemsLastModified(ctx context.Context, types []string) (*time.Time, error) {
	cond, args := ContentQuery{Types: types}.filter()
	return r.lastModified(ctx, `SELECT MAX(c.modified_at) FROM content_items c WHERE 1 = 1`+cond, args...)
}

func (r *ContentRepository) GetTaxonomyLastModified(ctx context.Context, taxonomy string) (*time.Time, error) {
	return r.lastModified(ctx, `
		SELECT MAX(m) FROM (
			SELECT modified_at AS m FROM terms WHERE taxonomy = ?
			UNION ALL
			SELECT c.modified_at FROM content_items c
			JOIN content_terms ct ON ct.content_id = c.id
			JOIN terms t ON t.id = ct.term_id
			WHERE t.taxonomy = ?
		)
	`, taxonomy, taxonomy)
}

func (r *ContentRepository) GetAuthorsLastModified(ctx context.Context) (*time.Time, error) {
	return r.lastModified(ctx, `
		SELECT MAX(m) FROM (
			SELECT modified_at AS m FROM authors
			UNION ALL
			SELECT modified_at FROM content_items WHERE author_id != ''
		)
	`)
}

func (r *ContentRepository) lastModified(ctx context.Context, query string, args ...any) (*time.Time, error) {
	var ts sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ts); err != nil {
		return nil, fmt.Errorf("failed to get last modified time: %w", err)
	}

	if !ts.Valid {
		return nil, nil
	}

	t := time.Unix(ts.Int64, 0).UTC()
	return &t, nil
}

// UpsertContentItem stores item. PublishedDate defaults to the calendar day
// of PublishedAt in the repository location, ModifiedAt to PublishedAt.
func (r *ContentRepository) UpsertContentItem(ctx context.Context, item ContentItem) error {
	publishedDate := item.PublishedAt.In(r.location).Format(dateLayout)
	if !item.PublishedDate.IsZero() {
		publishedDate = item.PublishedDate.Format(dateLayout)
	}

	modifiedAt := item.ModifiedAt
	if modifiedAt.IsZero() {
		modifiedAt = item.PublishedAt
	}

	status := item.Status
	if status == "" {
		status = "publish"
	}

	noIndex := 0
	if item.NoIndex {
		noIndex = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_items (
			id, type, status, path, title, author_id,
			published_date, published_at, modified_at,
			image_url, image_caption, image_title, noindex
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			status = excluded.status,
			path = excluded.path,
			title = excluded.title,
			author_id = excluded.author_id,
			published_date = excluded.published_date,
			published_at = excluded.published_at,
			modified_at = excluded.modified_at,
			image_url = excluded.image_url,
			image_caption = excluded.image_caption,
			image_title = excluded.image_title,
			noindex = excluded.noindex
	`, item.ID, item.Type, status, item.Path, item.Title, item.AuthorID,
		publishedDate, item.PublishedAt.Unix(), modifiedAt.Unix(),
		item.ImageURL, item.ImageCaption, item.ImageTitle, noIndex)

	if err != nil {
		return fmt.Errorf("failed to upsert content item: %w", err)
	}

	return nil
}

func (r *ContentRepository) DeleteContentItem(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete content item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *ContentRepository) UpsertTerm(ctx context.Context, term Term) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO terms (id, taxonomy, slug, name, path, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			taxonomy = excluded.taxonomy,
			slug = excluded.slug,
			name = excluded.name,
			path = excluded.path,
			modified_at = excluded.modified_at
	`, term.ID, term.Taxonomy, term.Slug, term.Name, term.Path, term.ModifiedAt.Unix())

	if err != nil {
		return fmt.Errorf("failed to upsert term: %w", err)
	}

	return nil
}

// SetItemTerms replaces the term assignments of one item.
func (r *ContentRepository) SetItemTerms(ctx context.Context, itemID string, termIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_terms WHERE content_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to clear item terms: %w", err)
	}

	for _, termID := range termIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO content_terms (content_id, term_id) VALUES (?, ?)`, itemID, termID); err != nil {
			return fmt.Errorf("failed to assign term %s: %w", termID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item terms: %w", err)
	}

	return nil
}

func (r *ContentRepository) UpsertAuthor(ctx context.Context, author Author) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authors (id, name, path, modified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			modified_at = excluded.modified_at
	`, author.ID, author.Name, author.Path, author.ModifiedAt.Unix())

	if err != nil {
		return fmt.Errorf("failed to upsert author: %w", err)
	}

	return nil
}
