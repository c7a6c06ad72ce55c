package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/sitemap-comb/app/aggregator"
	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/detector"
	"github.com/lysyi3m/sitemap-comb/app/engine"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

const (
	testAPIKey  = "secret"
	testBaseURL = "https://example.com"
)

type testServer struct {
	router    *gin.Engine
	handler   *Handler
	content   *database.ContentRepository
	documents *database.DocumentRepository
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "sitemap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	contentRepo := database.NewContentRepository(db, database.WithLocation(time.UTC))
	documentRepo := database.NewDocumentRepository(db)
	optionRepo := database.NewOptionRepository(db)

	query := database.ContentQuery{Status: "publish", Types: []string{"post"}}
	registry := content.NewRegistry(content.NewPostsByDay(contentRepo, query, testBaseURL, true))

	agg, err := aggregator.New(registry)
	require.NoError(t, err)

	det := detector.New(detector.Config{
		Content:   contentRepo,
		Documents: documentRepo,
		Options:   optionRepo,
		Registry:  registry,
		Query:     query,
	})

	eng := engine.New(engine.Config{
		Aggregator:       agg,
		Content:          contentRepo,
		Documents:        documentRepo,
		Options:          optionRepo,
		Detector:         det,
		Registry:         registry,
		Query:            query,
		DefaultFrequency: "@every 1m",
	})

	handler := NewHandler(eng, documentRepo, contentRepo, testBaseURL)

	return &testServer{
		router:    NewServer(handler, testAPIKey, rateLimit),
		handler:   handler,
		content:   contentRepo,
		documents: documentRepo,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/api/") {
		req.Header.Set("X-API-Key", testAPIKey)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) addDoc(t *testing.T, key string, year, month, day int, builtAt time.Time) {
	t.Helper()
	require.NoError(t, s.documents.Upsert(context.Background(), database.Document{
		Key: key, Year: year, Month: month, Day: day, XML: "<urlset/>", EntryCount: 3, BuiltAt: builtAt,
	}))
}

func TestGetSitemap(t *testing.T) {
	s := newTestServer(t, 0)
	builtAt := time.Date(2024, 3, 2, 4, 5, 6, 0, time.UTC)
	s.addDoc(t, "2024-03-01", 2024, 3, 1, builtAt)

	w := s.do(t, http.MethodGet, "/sitemaps/2024-03-01.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<urlset/>", w.Body.String())
	assert.Equal(t, "3", w.Header().Get("X-Sitemap-Entries"))
	assert.Equal(t, "Sat, 02 Mar 2024 04:05:06 GMT", w.Header().Get("Last-Modified"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	req := httptest.NewRequest(http.MethodGet, "/sitemaps/2024-03-01.xml", nil)
	req.Header.Set("If-Modified-Since", "Sat, 02 Mar 2024 04:05:06 GMT")
	cached := httptest.NewRecorder()
	s.router.ServeHTTP(cached, req)
	assert.Equal(t, http.StatusNotModified, cached.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/sitemaps/2024-03-02.xml", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/sitemaps/2024-03-01", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/sitemaps/garbage.xml", nil).Code)
}

func TestGetSitemapIndex(t *testing.T) {
	s := newTestServer(t, 0)
	builtAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	s.addDoc(t, "2023-01-01", 2023, 1, 1, builtAt)
	s.addDoc(t, "2024-03-01", 2024, 3, 1, builtAt)
	require.NoError(t, s.documents.Upsert(context.Background(), database.Document{
		Key: "page-all", EntityType: "page", EntityKey: "all", XML: "<urlset/>", EntryCount: 1, BuiltAt: builtAt,
	}))

	w := s.do(t, http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-Sitemap-Documents"))

	body := w.Body.String()
	assert.Contains(t, body, "<sitemapindex")
	newest := strings.Index(body, "https://example.com/sitemaps/2024-03-01.xml")
	oldest := strings.Index(body, "https://example.com/sitemaps/2023-01-01.xml")
	pages := strings.Index(body, "https://example.com/sitemaps/page-all.xml")
	require.True(t, newest >= 0 && oldest >= 0 && pages >= 0, body)
	assert.Less(t, newest, oldest)
	assert.Less(t, oldest, pages)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/status", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/status", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/api/status", nil).Code)

	// Public documents are not limited.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/sitemap.xml", nil).Code)
}

func TestGenerationEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	require.NoError(t, s.content.UpsertContentItem(context.Background(), database.ContentItem{
		ID: "p1", Type: "post", Path: "/hello", PublishedAt: time.Now().UTC().AddDate(-1, 0, 0),
	}))

	w := s.do(t, http.MethodPost, "/api/generation/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	years := decode(t, w)["pending_years"].([]any)
	assert.Len(t, years, 2)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/generation/start", nil).Code)

	w = s.do(t, http.MethodPost, "/api/generation/tick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "year", decode(t, w)["action"])

	assert.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/api/generation/halt", nil).Code)

	w = s.do(t, http.MethodPost, "/api/generation/tick", nil)
	assert.Equal(t, "halted", decode(t, w)["action"])

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/generation/halt", nil).Code)

	w = s.do(t, http.MethodGet, "/api/status", nil)
	status := decode(t, w)
	assert.Equal(t, true, status["halted"])
	assert.Equal(t, false, status["in_progress"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/generation/reset", nil).Code)

	w = s.do(t, http.MethodGet, "/api/status", nil)
	assert.Equal(t, false, decode(t, w)["halted"])
}

func TestContentIngestionLifecycle(t *testing.T) {
	s := newTestServer(t, 0)
	published := time.Now().UTC().AddDate(0, 0, -3)
	key := published.Format("2006-01-02")

	w := s.do(t, http.MethodPut, "/api/content/p1", map[string]any{
		"type":         "post",
		"path":         "/hello-world",
		"title":        "Hello",
		"published_at": published,
		"image":        map[string]any{"url": "https://example.com/a.jpg", "caption": "<b>Caption</b>"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["created"])

	w = s.do(t, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["dates_to_generate"], key)

	w = s.do(t, http.MethodPost, "/api/incremental", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["generated"], key)

	w = s.do(t, http.MethodGet, "/sitemaps/"+key+".xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://example.com/hello-world</loc>")
	assert.Contains(t, w.Body.String(), "<image:caption>Caption</image:caption>")

	w = s.do(t, http.MethodDelete, "/api/content/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", decode(t, w)["outcome"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/sitemaps/"+key+".xml", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/content/p1", nil).Code)
}

func TestUpsertContentMovedDayRegeneratesOldDay(t *testing.T) {
	s := newTestServer(t, 0)
	first := time.Now().UTC().AddDate(0, 0, -5)
	second := time.Now().UTC().AddDate(0, 0, -2)

	body := map[string]any{"type": "post", "path": "/moving", "published_at": first}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/content/m1", body).Code)

	w := s.do(t, http.MethodPost, "/api/sitemaps/"+first.Format("2006-01-02")+"/regenerate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "written", decode(t, w)["outcome"])

	body["published_at"] = second
	w = s.do(t, http.MethodPut, "/api/content/m1", body)
	require.Equal(t, http.StatusOK, w.Code)
	regenerated := decode(t, w)["regenerated"].(map[string]any)
	assert.Equal(t, first.Format("2006-01-02"), regenerated["key"])
	assert.Equal(t, "deleted", regenerated["outcome"])
}

type failingRegenerate struct {
	EngineInterface
}

func (f *failingRegenerate) Regenerate(ctx context.Context, key sitemap.Key) (engine.Outcome, error) {
	return "", errors.New("database is locked")
}

func TestDeleteContentReportsFailedRegeneration(t *testing.T) {
	s := newTestServer(t, 0)
	published := time.Now().UTC().AddDate(0, 0, -3)
	key := published.Format("2006-01-02")

	body := map[string]any{"type": "post", "path": "/gone", "published_at": published}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/content/g1", body).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/sitemaps/"+key+"/regenerate", nil).Code)

	working := s.handler.engine
	s.handler.engine = &failingRegenerate{EngineInterface: working}

	w := s.do(t, http.MethodDelete, "/api/content/g1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	out := decode(t, w)
	assert.Equal(t, key, out["regenerate_failed"])
	assert.Equal(t, true, out["stored"])

	// The stale document is still served until the client retries.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/sitemaps/"+key+".xml", nil).Code)

	s.handler.engine = working
	w = s.do(t, http.MethodPost, out["retry"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", decode(t, w)["outcome"])
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/sitemaps/"+key+".xml", nil).Code)
}

func TestUpsertContentMovedDayReportsFailedRegeneration(t *testing.T) {
	s := newTestServer(t, 0)
	first := time.Now().UTC().AddDate(0, 0, -5)

	body := map[string]any{"type": "post", "path": "/moving", "published_at": first}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/content/m1", body).Code)

	s.handler.engine = &failingRegenerate{EngineInterface: s.handler.engine}

	body["published_at"] = first.AddDate(0, 0, 2)
	w := s.do(t, http.MethodPut, "/api/content/m1", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, first.Format("2006-01-02"), decode(t, w)["regenerate_failed"])

	item, err := s.content.GetContentItem(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, first.AddDate(0, 0, 2).Format("2006-01-02"), item.PublishedDate.Format("2006-01-02"))
}

func TestUpsertContentValidation(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(t, http.MethodPut, "/api/content/p1", map[string]any{"type": "post", "path": "/x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/content/p1", map[string]any{"path": "/x", "published_at": time.Now()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/content/p1", map[string]any{
		"type": "post", "path": "/x", "published_at": time.Now(), "image": map[string]any{"url": "not a url"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/terms/t1", map[string]any{"taxonomy": "category", "slug": "news", "path": "/category/news"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/api/authors/u1", map[string]any{"path": "/author/u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCron(t *testing.T) {
	s := newTestServer(t, 0)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/cron", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/cron", map[string]any{"frequency": "sometimes"}).Code)

	w := s.do(t, http.MethodPut, "/api/cron", map[string]any{"frequency": "*/5 * * * *", "enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, "*/5 * * * *", status["frequency"])
	assert.Equal(t, false, status["enabled"])
}

func TestRegenerateInvalidKey(t *testing.T) {
	s := newTestServer(t, 0)

	w := s.do(t, http.MethodPost, "/api/sitemaps/nonsense/regenerate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
