package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/sitemap-comb/app/config"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

type fakeStore struct {
	database.ContentStore

	items        []database.ContentItem
	terms        []database.Term
	lastModified *time.Time
	err          error
	gotQuery     database.ContentQuery
	gotDate      time.Time
}

func (s *fakeStore) GetItemsForDate(ctx context.Context, q database.ContentQuery, date time.Time) ([]database.ContentItem, error) {
	s.gotQuery = q
	s.gotDate = date
	return s.items, s.err
}

func (s *fakeStore) GetItems(ctx context.Context, q database.ContentQuery) ([]database.ContentItem, error) {
	s.gotQuery = q
	return s.items, s.err
}

func (s *fakeStore) GetTermsWithContent(ctx context.Context, q database.ContentQuery, taxonomy string) ([]database.Term, error) {
	return s.terms, s.err
}

func (s *fakeStore) GetTaxonomyLastModified(ctx context.Context, taxonomy string) (*time.Time, error) {
	return s.lastModified, s.err
}

func (s *fakeStore) GetItemsLastModified(ctx context.Context, types []string) (*time.Time, error) {
	return s.lastModified, s.err
}

func TestResolveLoc(t *testing.T) {
	assert.Equal(t, "https://example.com/a/b", resolveLoc("https://example.com/", "/a/b"))
	assert.Equal(t, "https://example.com/a", resolveLoc("https://example.com", "a"))
	assert.Equal(t, "https://cdn.example.com/x.jpg", resolveLoc("https://example.com", "https://cdn.example.com/x.jpg"))
}

func TestPostsByDayCandidates(t *testing.T) {
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{items: []database.ContentItem{
		{ID: "1", Type: "post", Path: "/hello", PublishedAt: published, ImageURL: "/img/a.jpg", ImageCaption: "A"},
		{ID: "2", Type: "post", Path: "/world", PublishedAt: published, NoIndex: true},
	}}
	query := database.ContentQuery{Status: "publish", Types: []string{"post"}}
	provider := NewPostsByDay(store, query, "https://example.com", true)

	key, err := sitemap.NewDateKey(2024, 3, 1)
	require.NoError(t, err)
	require.True(t, provider.Covers(key))
	require.False(t, provider.Covers(sitemap.EntityDocKey("page", "all")))

	items, err := provider.Candidates(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.com/hello", items[0].Loc)
	require.Len(t, items[0].Images, 1)
	assert.Equal(t, "https://example.com/img/a.jpg", items[0].Images[0].URL)
	assert.True(t, items[1].NoIndex)
	assert.Equal(t, query, store.gotQuery)
	assert.Equal(t, key.Date(), store.gotDate)
}

func TestPostsByDayWithoutImages(t *testing.T) {
	store := &fakeStore{items: []database.ContentItem{{ID: "1", Path: "/a", ImageURL: "/img/a.jpg"}}}
	provider := NewPostsByDay(store, database.ContentQuery{}, "https://example.com", false)

	items, err := provider.Candidates(context.Background(), sitemap.Key{Year: 2024, Month: 1, Day: 1})
	require.NoError(t, err)
	assert.Empty(t, items[0].Images)
}

func TestPostsByDayPropagatesStoreErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("database is locked")}
	provider := NewPostsByDay(store, database.ContentQuery{}, "https://example.com", true)

	_, err := provider.Candidates(context.Background(), sitemap.Key{Year: 2024, Month: 1, Day: 1})
	assert.ErrorContains(t, err, "database is locked")
}

func TestTaxonomyProvider(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		terms:        []database.Term{{ID: "t1", Taxonomy: "category", Slug: "news", Name: "News", Path: "/category/news", ModifiedAt: ts}},
		lastModified: &ts,
	}
	provider := NewTaxonomy(store, database.ContentQuery{}, "https://example.com", "category")

	key := sitemap.EntityDocKey(EntityTaxonomy, "category")
	assert.True(t, provider.Covers(key))
	assert.False(t, provider.Covers(sitemap.EntityDocKey(EntityTaxonomy, "post_tag")))

	items, err := provider.Candidates(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/category/news", items[0].Loc)

	keys, err := provider.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sitemap.Key{key}, keys)
}

func TestRegistry(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{}
	registry := NewRegistry(
		NewPostsByDay(store, database.ContentQuery{}, "https://example.com", true),
		NewTaxonomy(&fakeStore{lastModified: &older}, database.ContentQuery{}, "https://example.com", "category"),
		NewTaxonomy(&fakeStore{lastModified: &newer}, database.ContentQuery{}, "https://example.com", "category"),
		NewPages(&fakeStore{}, database.ContentQuery{Types: []string{"page"}}, "https://example.com", true),
	)

	assert.Len(t, registry.For(sitemap.Key{Year: 2024, Month: 3, Day: 1}), 1)
	assert.Len(t, registry.For(sitemap.EntityDocKey(EntityTaxonomy, "category")), 2)
	assert.Empty(t, registry.For(sitemap.EntityDocKey(EntityAuthor, "all")))

	keys, err := registry.EntityKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sitemap.Key{
		sitemap.EntityDocKey(EntityTaxonomy, "category"),
		sitemap.EntityDocKey(EntityPage, "all"),
	}, keys)

	last, err := registry.LastModified(context.Background(), sitemap.EntityDocKey(EntityTaxonomy, "category"))
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, newer, *last)

	last, err = registry.LastModified(context.Background(), sitemap.Key{Year: 2024, Month: 3, Day: 1})
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestBuildRegistry(t *testing.T) {
	images := true
	site := &config.SiteConfig{
		Site: config.SiteInfo{BaseURL: "https://example.com", Status: "publish", DateTypes: []string{"post"}, Images: &images},
		Entities: config.EntitySettings{
			Pages:      config.PageSettings{Enabled: true, Types: []string{"page"}},
			Taxonomies: []string{"category", "post_tag"},
			Authors:    true,
		},
	}

	registry := BuildRegistry(&fakeStore{}, site)

	var names []string
	for _, p := range registry.Providers() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"posts-by-day", "pages", "taxonomy-category", "taxonomy-post_tag", "authors"}, names)
}
