package content

import (
	"context"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Item is one unit of indexable content offered by a provider.
type Item struct {
	ID          string
	Type        string
	Loc         string
	Title       string
	AuthorID    string
	PublishedAt time.Time
	ModifiedAt  time.Time
	Images      []Image
	NoIndex     bool
}

type Image struct {
	URL     string
	Caption string
	Title   string
}

// Provider returns candidate content for the sitemap documents it covers.
type Provider interface {
	Name() string
	Covers(key sitemap.Key) bool
	Candidates(ctx context.Context, key sitemap.Key) ([]Item, error)
}

// EntityProvider serves entity documents, which are not tied to a calendar
// day and have to be enumerated and checked for changes explicitly.
type EntityProvider interface {
	Provider
	Keys(ctx context.Context) ([]sitemap.Key, error)
	LastModified(ctx context.Context, key sitemap.Key) (*time.Time, error)
}
