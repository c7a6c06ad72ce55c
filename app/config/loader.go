package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

var validFilterFields = map[string]bool{
	"path":   true,
	"title":  true,
	"type":   true,
	"author": true,
}

// Loader handles loading and validation of the site configuration
type Loader struct {
	path    string
	baseURL string
}

// NewLoader creates a loader for the YAML file at path. A non-empty baseURL
// overrides site.base_url from the file.
func NewLoader(path, baseURL string) *Loader {
	return &Loader{path: path, baseURL: baseURL}
}

// Load reads, defaults and validates the site configuration. A missing file
// yields the defaults.
func (l *Loader) Load() (*SiteConfig, error) {
	config, err := l.loadFile()
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", l.path, err)
	}

	if l.baseURL != "" {
		config.Site.BaseURL = l.baseURL
	}

	l.setDefaults(config)

	if err := l.validate(config); err != nil {
		return nil, fmt.Errorf("invalid site config %s: %w", l.path, err)
	}

	slog.Info("Loaded site configuration", "path", l.path, "base_url", config.Site.BaseURL,
		"date_types", config.Site.DateTypes, "taxonomies", config.Entities.Taxonomies)

	return config, nil
}

func (l *Loader) loadFile() (*SiteConfig, error) {
	var config SiteConfig

	if l.path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		slog.Warn("Site configuration not found, using defaults", "path", l.path)
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(config *SiteConfig) {
	config.Site.BaseURL = strings.TrimRight(config.Site.BaseURL, "/")

	if config.Site.Status == "" {
		config.Site.Status = "publish"
	}
	if len(config.Site.DateTypes) == 0 {
		config.Site.DateTypes = []string{"post"}
	}
	if config.Site.MaxEntries == 0 {
		config.Site.MaxEntries = sitemap.MaxEntries
	}
	if config.Site.Images == nil {
		enabled := true
		config.Site.Images = &enabled
	}
	if config.Entities.Pages.Enabled && len(config.Entities.Pages.Types) == 0 {
		config.Entities.Pages.Types = []string{"page"}
	}

	if config.Frequency.Today.ChangeFreq == "" {
		config.Frequency.Today.ChangeFreq = "hourly"
	}
	if config.Frequency.Today.Priority == nil {
		p := 0.9
		config.Frequency.Today.Priority = &p
	}
	if config.Frequency.Default.ChangeFreq == "" {
		config.Frequency.Default.ChangeFreq = "monthly"
	}
	if config.Frequency.Default.Priority == nil {
		p := 0.7
		config.Frequency.Default.Priority = &p
	}
}

// validate validates the configuration
func (l *Loader) validate(config *SiteConfig) error {
	if config.Site.BaseURL == "" {
		return fmt.Errorf("site base URL is required")
	}
	u, err := url.Parse(config.Site.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("site base URL must be an absolute http(s) URL: %s", config.Site.BaseURL)
	}

	if config.Site.MaxEntries < 0 || config.Site.MaxEntries > sitemap.MaxEntries {
		return fmt.Errorf("max entries must be between 1 and %d", sitemap.MaxEntries)
	}

	for _, t := range config.Site.DateTypes {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("date types must not contain empty values")
		}
	}

	for _, taxonomy := range config.Entities.Taxonomies {
		if strings.TrimSpace(taxonomy) == "" || strings.Contains(taxonomy, "/") {
			return fmt.Errorf("invalid taxonomy name: %q", taxonomy)
		}
	}

	for name, rule := range map[string]Frequency{"today": config.Frequency.Today, "default": config.Frequency.Default} {
		if !sitemap.ChangeFreq(rule.ChangeFreq).Valid() {
			return fmt.Errorf("invalid %s changefreq: %s", name, rule.ChangeFreq)
		}
		if *rule.Priority < 0 || *rule.Priority > 1 {
			return fmt.Errorf("%s priority must be between 0 and 1", name)
		}
	}

	for i, filter := range config.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one exclude rule", i)
		}
	}

	return nil
}
