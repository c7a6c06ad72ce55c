package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "site.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	content := `
site:
  base_url: "https://example.com/"
  status: "publish"
  date_types: ["post", "recipe"]
  max_entries: 1000
  images: false

entities:
  pages:
    enabled: true
  taxonomies: ["category", "post_tag"]
  authors: true

frequency:
  today:
    changefreq: "daily"
    priority: 1.0
  default:
    changefreq: "yearly"
    priority: 0.3

filters:
  - field: "path"
    excludes:
      - "/private/"

exclude_ids: ["42"]
`

	config, err := NewLoader(writeConfig(t, content), "").Load()
	if err != nil {
		t.Fatal(err)
	}

	if config.Site.BaseURL != "https://example.com" {
		t.Errorf("Expected trailing slash to be trimmed, got '%s'", config.Site.BaseURL)
	}
	if len(config.Site.DateTypes) != 2 {
		t.Errorf("Expected 2 date types, got %d", len(config.Site.DateTypes))
	}
	if config.Site.MaxEntries != 1000 {
		t.Errorf("Expected max entries 1000, got %d", config.Site.MaxEntries)
	}
	if config.Site.ImagesEnabled() {
		t.Error("Expected images to be disabled")
	}
	if len(config.Entities.Pages.Types) != 1 || config.Entities.Pages.Types[0] != "page" {
		t.Errorf("Expected default page types, got %v", config.Entities.Pages.Types)
	}
	if got := config.Entities.EntityTypes(); len(got) != 3 {
		t.Errorf("Expected 3 entity types, got %v", got)
	}
	if config.Frequency.Today.ChangeFreq != "daily" || *config.Frequency.Today.Priority != 1.0 {
		t.Errorf("Unexpected today frequency: %+v", config.Frequency.Today)
	}
	if len(config.Filters) != 1 || len(config.ExcludeIDs) != 1 {
		t.Errorf("Expected 1 filter and 1 excluded id, got %d and %d", len(config.Filters), len(config.ExcludeIDs))
	}
}

func TestLoadConfigWithDefaults(t *testing.T) {
	config, err := NewLoader(writeConfig(t, "site:\n  base_url: https://example.com\n"), "").Load()
	if err != nil {
		t.Fatal(err)
	}

	if config.Site.Status != "publish" {
		t.Errorf("Expected default status 'publish', got '%s'", config.Site.Status)
	}
	if len(config.Site.DateTypes) != 1 || config.Site.DateTypes[0] != "post" {
		t.Errorf("Expected default date types [post], got %v", config.Site.DateTypes)
	}
	if config.Site.MaxEntries != sitemap.MaxEntries {
		t.Errorf("Expected default max entries %d, got %d", sitemap.MaxEntries, config.Site.MaxEntries)
	}
	if !config.Site.ImagesEnabled() {
		t.Error("Expected images to be enabled by default")
	}
	if config.Frequency.Today.ChangeFreq != "hourly" || *config.Frequency.Today.Priority != 0.9 {
		t.Errorf("Unexpected default today frequency: %+v", config.Frequency.Today)
	}
	if config.Frequency.Default.ChangeFreq != "monthly" || *config.Frequency.Default.Priority != 0.7 {
		t.Errorf("Unexpected default frequency: %+v", config.Frequency.Default)
	}
}

func TestLoadAcceptsEveryProtocolChangeFreq(t *testing.T) {
	freqs := []sitemap.ChangeFreq{
		sitemap.ChangeFreqAlways, sitemap.ChangeFreqHourly, sitemap.ChangeFreqDaily, sitemap.ChangeFreqWeekly,
		sitemap.ChangeFreqMonthly, sitemap.ChangeFreqYearly, sitemap.ChangeFreqNever,
	}

	for _, freq := range freqs {
		content := fmt.Sprintf("site:\n  base_url: https://example.com\n  max_entries: %d\nfrequency:\n  default:\n    changefreq: %s\n",
			sitemap.MaxEntries, freq)
		config, err := NewLoader(writeConfig(t, content), "").Load()
		if err != nil {
			t.Fatalf("changefreq %s: %v", freq, err)
		}
		if config.Frequency.Default.ChangeFreq != string(freq) {
			t.Errorf("Expected changefreq %s, got %s", freq, config.Frequency.Default.ChangeFreq)
		}
	}
}

func TestLoadMissingFileUsesOverride(t *testing.T) {
	config, err := NewLoader(filepath.Join(t.TempDir(), "missing.yml"), "https://blog.example.org").Load()
	if err != nil {
		t.Fatal(err)
	}

	if config.Site.BaseURL != "https://blog.example.org" {
		t.Errorf("Expected base URL override, got '%s'", config.Site.BaseURL)
	}
}

func TestLoadInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "missing base url",
			content: "site:\n  status: publish\n",
			errPart: "base URL is required",
		},
		{
			name:    "relative base url",
			content: "site:\n  base_url: example.com\n",
			errPart: "absolute http(s) URL",
		},
		{
			name:    "max entries above ceiling",
			content: "site:\n  base_url: https://example.com\n  max_entries: 60000\n",
			errPart: "max entries",
		},
		{
			name:    "bad changefreq",
			content: "site:\n  base_url: https://example.com\nfrequency:\n  today:\n    changefreq: sometimes\n",
			errPart: "invalid today changefreq",
		},
		{
			name:    "priority out of range",
			content: "site:\n  base_url: https://example.com\nfrequency:\n  default:\n    priority: 1.5\n",
			errPart: "default priority",
		},
		{
			name:    "unknown filter field",
			content: "site:\n  base_url: https://example.com\nfilters:\n  - field: body\n    excludes: [x]\n",
			errPart: "invalid filter field",
		},
		{
			name:    "filter without excludes",
			content: "site:\n  base_url: https://example.com\nfilters:\n  - field: title\n",
			errPart: "at least one exclude",
		},
		{
			name:    "malformed yaml",
			content: "site: [",
			errPart: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.content), "").Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}
