package content

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/config"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Registry is the fixed set of providers an aggregator consults.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

func (r *Registry) Providers() []Provider {
	return r.providers
}

// For returns the providers whose scope includes key, in registration order.
func (r *Registry) For(key sitemap.Key) []Provider {
	var matched []Provider
	for _, p := range r.providers {
		if p.Covers(key) {
			matched = append(matched, p)
		}
	}
	return matched
}

// EntityKeys lists every entity document key, deduplicated, in registration order.
func (r *Registry) EntityKeys(ctx context.Context) ([]sitemap.Key, error) {
	seen := make(map[sitemap.Key]bool)
	var keys []sitemap.Key

	for _, p := range r.providers {
		ep, ok := p.(EntityProvider)
		if !ok {
			continue
		}

		providerKeys, err := ep.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list keys of provider %s: %w", p.Name(), err)
		}

		for _, key := range providerKeys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}

	return keys, nil
}

// LastModified returns the latest modification reported by the entity
// providers covering key, or nil when none reports one.
func (r *Registry) LastModified(ctx context.Context, key sitemap.Key) (*time.Time, error) {
	var latest *time.Time

	for _, p := range r.For(key) {
		ep, ok := p.(EntityProvider)
		if !ok {
			continue
		}

		ts, err := ep.LastModified(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get last modified of %s from %s: %w", key, p.Name(), err)
		}

		if ts != nil && (latest == nil || ts.After(*latest)) {
			latest = ts
		}
	}

	return latest, nil
}

// BuildRegistry wires the built-in providers enabled by the site configuration.
func BuildRegistry(store database.ContentStore, site *config.SiteConfig) *Registry {
	baseURL := site.Site.BaseURL
	images := site.Site.ImagesEnabled()
	dated := database.ContentQuery{Status: site.Site.Status, Types: site.Site.DateTypes}

	providers := []Provider{NewPostsByDay(store, dated, baseURL, images)}

	if site.Entities.Pages.Enabled {
		pages := database.ContentQuery{Status: site.Site.Status, Types: site.Entities.Pages.Types}
		providers = append(providers, NewPages(store, pages, baseURL, images))
	}

	for _, taxonomy := range site.Entities.Taxonomies {
		providers = append(providers, NewTaxonomy(store, dated, baseURL, taxonomy))
	}

	if site.Entities.Authors {
		providers = append(providers, NewAuthors(store, dated, baseURL))
	}

	return NewRegistry(providers...)
}
