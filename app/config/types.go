package config

// SiteConfig is the per-site sitemap configuration loaded from YAML.
type SiteConfig struct {
	Site       SiteInfo       `yaml:"site"`
	Entities   EntitySettings `yaml:"entities"`
	Frequency  FrequencyRules `yaml:"frequency"`
	Filters    []Filter       `yaml:"filters"`
	ExcludeIDs []string       `yaml:"exclude_ids"`
}

type SiteInfo struct {
	BaseURL    string   `yaml:"base_url"`
	Status     string   `yaml:"status"`     // qualifying content status
	DateTypes  []string `yaml:"date_types"` // content types listed in per-day documents
	MaxEntries int      `yaml:"max_entries"`
	Images     *bool    `yaml:"images"`
}

// EntitySettings selects which entity documents are generated.
type EntitySettings struct {
	Pages      PageSettings `yaml:"pages"`
	Taxonomies []string     `yaml:"taxonomies"`
	Authors    bool         `yaml:"authors"`
}

type PageSettings struct {
	Enabled bool     `yaml:"enabled"`
	Types   []string `yaml:"types"`
}

type FrequencyRules struct {
	Today   Frequency `yaml:"today"`
	Default Frequency `yaml:"default"`
}

type Frequency struct {
	ChangeFreq string   `yaml:"changefreq"`
	Priority   *float64 `yaml:"priority"`
}

// Filter excludes content whose field contains any of the listed values.
type Filter struct {
	Field    string   `yaml:"field"`
	Excludes []string `yaml:"excludes"`
}
