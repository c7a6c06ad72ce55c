package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

const (
	EntityPage     = "page"
	EntityTaxonomy = "taxonomy"
	EntityAuthor   = "author"

	allKey = "all"
)

// resolveLoc joins a stored path onto baseURL. Absolute URLs pass through.
func resolveLoc(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}

func itemFromRow(baseURL string, row database.ContentItem, images bool) Item {
	item := Item{
		ID:          row.ID,
		Type:        row.Type,
		Loc:         resolveLoc(baseURL, row.Path),
		Title:       row.Title,
		AuthorID:    row.AuthorID,
		PublishedAt: row.PublishedAt,
		ModifiedAt:  row.ModifiedAt,
		NoIndex:     row.NoIndex,
	}

	if images && row.ImageURL != "" {
		item.Images = []Image{{
			URL:     resolveLoc(baseURL, row.ImageURL),
			Caption: row.ImageCaption,
			Title:   row.ImageTitle,
		}}
	}

	return item
}

// PostsByDay lists qualifying content published on one calendar day.
type PostsByDay struct {
	store   database.ContentStore
	query   database.ContentQuery
	baseURL string
	images  bool
}

func NewPostsByDay(store database.ContentStore, query database.ContentQuery, baseURL string, images bool) *PostsByDay {
	return &PostsByDay{store: store, query: query, baseURL: baseURL, images: images}
}

func (p *PostsByDay) Name() string {
	return "posts-by-day"
}

func (p *PostsByDay) Covers(key sitemap.Key) bool {
	return key.IsDate()
}

func (p *PostsByDay) Candidates(ctx context.Context, key sitemap.Key) ([]Item, error) {
	rows, err := p.store.GetItemsForDate(ctx, p.query, key.Date())
	if err != nil {
		return nil, fmt.Errorf("failed to get items for %s: %w", key, err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(p.baseURL, row, p.images))
	}
	return items, nil
}

// Pages serves the single page-all document.
type Pages struct {
	store   database.ContentStore
	query   database.ContentQuery
	baseURL string
	images  bool
}

func NewPages(store database.ContentStore, query database.ContentQuery, baseURL string, images bool) *Pages {
	return &Pages{store: store, query: query, baseURL: baseURL, images: images}
}

func (p *Pages) Name() string {
	return "pages"
}

func (p *Pages) Covers(key sitemap.Key) bool {
	return key.EntityType == EntityPage && key.EntityKey == allKey
}

func (p *Pages) Candidates(ctx context.Context, key sitemap.Key) ([]Item, error) {
	rows, err := p.store.GetItems(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(p.baseURL, row, p.images))
	}
	return items, nil
}

func (p *Pages) Keys(ctx context.Context) ([]sitemap.Key, error) {
	return []sitemap.Key{sitemap.EntityDocKey(EntityPage, allKey)}, nil
}

func (p *Pages) LastModified(ctx context.Context, key sitemap.Key) (*time.Time, error) {
	return p.store.GetItemsLastModified(ctx, p.query.Types)
}

// Taxonomy serves one document listing the archive of every term of a
// taxonomy that has qualifying content.
type Taxonomy struct {
	store    database.ContentStore
	query    database.ContentQuery
	baseURL  string
	taxonomy string
}

func NewTaxonomy(store database.ContentStore, query database.ContentQuery, baseURL, taxonomy string) *Taxonomy {
	return &Taxonomy{store: store, query: query, baseURL: baseURL, taxonomy: taxonomy}
}

func (p *Taxonomy) Name() string {
	return "taxonomy-" + p.taxonomy
}

func (p *Taxonomy) Covers(key sitemap.Key) bool {
	return key.EntityType == EntityTaxonomy && key.EntityKey == p.taxonomy
}

func (p *Taxonomy) Candidates(ctx context.Context, key sitemap.Key) ([]Item, error) {
	terms, err := p.store.GetTermsWithContent(ctx, p.query, p.taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s terms: %w", p.taxonomy, err)
	}

	items := make([]Item, 0, len(terms))
	for _, term := range terms {
		items = append(items, Item{
			ID:         term.ID,
			Type:       p.taxonomy,
			Loc:        resolveLoc(p.baseURL, term.Path),
			Title:      term.Name,
			ModifiedAt: term.ModifiedAt,
		})
	}
	return items, nil
}

func (p *Taxonomy) Keys(ctx context.Context) ([]sitemap.Key, error) {
	return []sitemap.Key{sitemap.EntityDocKey(EntityTaxonomy, p.taxonomy)}, nil
}

func (p *Taxonomy) LastModified(ctx context.Context, key sitemap.Key) (*time.Time, error) {
	return p.store.GetTaxonomyLastModified(ctx, p.taxonomy)
}

// Authors serves the author-all document of author archive pages.
type Authors struct {
	store   database.ContentStore
	query   database.ContentQuery
	baseURL string
}

func NewAuthors(store database.ContentStore, query database.ContentQuery, baseURL string) *Authors {
	return &Authors{store: store, query: query, baseURL: baseURL}
}

func (p *Authors) Name() string {
	return "authors"
}

func (p *Authors) Covers(key sitemap.Key) bool {
	return key.EntityType == EntityAuthor && key.EntityKey == allKey
}

func (p *Authors) Candidates(ctx context.Context, key sitemap.Key) ([]Item, error) {
	authors, err := p.store.GetAuthorsWithContent(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("failed to get authors: %w", err)
	}

	items := make([]Item, 0, len(authors))
	for _, author := range authors {
		items = append(items, Item{
			ID:         author.ID,
			Type:       EntityAuthor,
			Loc:        resolveLoc(p.baseURL, author.Path),
			Title:      author.Name,
			AuthorID:   author.ID,
			ModifiedAt: author.ModifiedAt,
		})
	}
	return items, nil
}

func (p *Authors) Keys(ctx context.Context) ([]sitemap.Key, error) {
	return []sitemap.Key{sitemap.EntityDocKey(EntityAuthor, allKey)}, nil
}

func (p *Authors) LastModified(ctx context.Context, key sitemap.Key) (*time.Time, error) {
	return p.store.GetAuthorsLastModified(ctx)
}
