package database

import (
	"context"
	"time"
)

// ContentStore is the content store queried by providers and the detector.
type ContentStore interface {
	GetEarliestContentDate(ctx context.Context, q ContentQuery) (*time.Time, error)
	FindContentMonths(ctx context.Context, q ContentQuery, year int) ([]int, error)
	FindContentDates(ctx context.Context, q ContentQuery, from, to time.Time) ([]time.Time, error)
	CountContentForDate(ctx context.Context, q ContentQuery, date time.Time) (int, error)
	FindRecentlyModified(ctx context.Context, since time.Time) ([]ModifiedContent, error)

	GetItemsForDate(ctx context.Context, q ContentQuery, date time.Time) ([]ContentItem, error)
	GetItems(ctx context.Context, q ContentQuery) ([]ContentItem, error)
	GetTermsWithContent(ctx context.Context, q ContentQuery, taxonomy string) ([]Term, error)
	GetAuthorsWithContent(ctx context.Context, q ContentQuery) ([]Author, error)
	GetItemsLastModified(ctx context.Context, types []string) (*time.Time, error)
	GetTaxonomyLastModified(ctx context.Context, taxonomy string) (*time.Time, error)
	GetAuthorsLastModified(ctx context.Context) (*time.Time, error)

	GetContentItem(ctx context.Context, id string) (*ContentItem, error)
	UpsertContentItem(ctx context.Context, item ContentItem) error
	DeleteContentItem(ctx context.Context, id string) (bool, error)
	UpsertTerm(ctx context.Context, term Term) error
	SetItemTerms(ctx context.Context, itemID string, termIDs []string) error
	UpsertAuthor(ctx context.Context, author Author) error
}

// DocumentStore persists one rendered sitemap document per key. Get returns
// nil, nil when no document exists.
type DocumentStore interface {
	Get(ctx context.Context, key string) (*Document, error)
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	FindDocumentMonths(ctx context.Context, year int) ([]int, error)
	Count(ctx context.Context) (int, error)
}

// OptionStore is a flat key-value store for process-wide settings.
type OptionStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, names ...string) error
}
