package config

// ImagesEnabled reports whether image entries are attached to URL entries.
func (s *SiteInfo) ImagesEnabled() bool {
	return s.Images == nil || *s.Images
}

// EntityTypes lists the entity document types enabled for the site.
func (e *EntitySettings) EntityTypes() []string {
	var types []string
	if e.Pages.Enabled {
		types = append(types, "page")
	}
	if len(e.Taxonomies) > 0 {
		types = append(types, "taxonomy")
	}
	if e.Authors {
		types = append(types, "author")
	}
	return types
}
