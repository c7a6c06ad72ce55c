package api

import (
	"context"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/detector"
	"github.com/lysyi3m/sitemap-comb/app/engine"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

type EngineInterface interface {
	GetStatus(ctx context.Context) (*engine.Status, error)
	Detect(ctx context.Context) (*detector.Report, error)
	StartFullGeneration(ctx context.Context) (*engine.GenerationState, error)
	HaltGeneration(ctx context.Context) error
	ResetAllState(ctx context.Context) error
	Tick(ctx context.Context) (*engine.TickResult, error)
	RunIncrementalPass(ctx context.Context) (*engine.PassResult, error)
	Regenerate(ctx context.Context, key sitemap.Key) (engine.Outcome, error)
	SetCronEnabled(ctx context.Context, enabled bool) error
	SetCronFrequency(ctx context.Context, spec string) error
}

var _ EngineInterface = (*engine.Engine)(nil)

type RendererInterface interface {
	RunIndex(entries []sitemap.IndexEntry) (string, error)
}

var _ RendererInterface = (*sitemap.Renderer)(nil)

type Handler struct {
	engine    EngineInterface
	documents database.DocumentStore
	content   database.ContentStore
	renderer  RendererInterface
	baseURL   string
}

type ContentItemRequest struct {
	Type        string        `json:"type" binding:"required,max=64"`
	Status      string        `json:"status" binding:"omitempty,max=32"`
	Path        string        `json:"path" binding:"required,max=2048"`
	Title       string        `json:"title"`
	AuthorID    string        `json:"author_id"`
	PublishedAt time.Time     `json:"published_at"`
	ModifiedAt  *time.Time    `json:"modified_at"`
	Image       *ImageRequest `json:"image"`
	NoIndex     bool          `json:"noindex"`
	Terms       []string      `json:"terms"`
}

type ImageRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Caption string `json:"caption"`
	Title   string `json:"title"`
}

type TermRequest struct {
	Taxonomy   string     `json:"taxonomy" binding:"required,max=64"`
	Slug       string     `json:"slug" binding:"required,max=200"`
	Name       string     `json:"name"`
	Path       string     `json:"path" binding:"required,max=2048"`
	ModifiedAt *time.Time `json:"modified_at"`
}

type AuthorRequest struct {
	Name       string     `json:"name" binding:"required"`
	Path       string     `json:"path" binding:"required,max=2048"`
	ModifiedAt *time.Time `json:"modified_at"`
}

type CronRequest struct {
	Enabled   *bool   `json:"enabled"`
	Frequency *string `json:"frequency"`
}
