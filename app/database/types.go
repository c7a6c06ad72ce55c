package database

import (
	"time"
)

const dateLayout = "2006-01-02"

// ContentItem is one row of the content store. PublishedDate is the
// calendar day the item is listed under, as midnight UTC.
type ContentItem struct {
	ID            string
	Type          string // post, page, ...
	Status        string // publish, draft, trash, ...
	Path          string
	Title         string
	AuthorID      string
	PublishedDate time.Time
	PublishedAt   time.Time
	ModifiedAt    time.Time
	ImageURL      string
	ImageCaption  string
	ImageTitle    string
	NoIndex       bool
}

type Term struct {
	ID         string
	Taxonomy   string
	Slug       string
	Name       string
	Path       string
	ModifiedAt time.Time
}

type Author struct {
	ID         string
	Name       string
	Path       string
	ModifiedAt time.Time
}

// ModifiedContent is a lightweight row returned by the recently-modified query.
type ModifiedContent struct {
	ID            string
	Type          string
	Status        string
	PublishedDate time.Time
	ModifiedAt    time.Time
}

// ContentQuery narrows content-store queries to qualifying items.
type ContentQuery struct {
	Status string
	Types  []string
}

// Document is a stored sitemap document. Year/Month/Day are zero for
// entity documents, EntityType/EntityKey are empty for date documents.
type Document struct {
	Key        string
	Year       int
	Month      int
	Day        int
	EntityType string
	EntityKey  string
	XML        string
	EntryCount int
	BuiltAt    time.Time
}

func (d Document) IsDate() bool {
	return d.EntityType == ""
}

// Date returns the calendar day of a date document as midnight UTC.
func (d Document) Date() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}
