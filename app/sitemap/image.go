package sitemap

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type imageFields struct {
	Loc         string `validate:"required,http_url,max=2048"`
	Caption     string `validate:"max=2048"`
	Title       string `validate:"max=2048"`
	GeoLocation string `validate:"max=2048"`
	License     string `validate:"omitempty,http_url,max=2048"`
}

type ImageOption func(*imageFields)

func WithCaption(caption string) ImageOption {
	return func(f *imageFields) {
		f.Caption = caption
	}
}

func WithTitle(title string) ImageOption {
	return func(f *imageFields) {
		f.Title = title
	}
}

func WithGeoLocation(geo string) ImageOption {
	return func(f *imageFields) {
		f.GeoLocation = geo
	}
}

func WithLicense(license string) ImageOption {
	return func(f *imageFields) {
		f.License = strings.TrimSpace(license)
	}
}

// ImageEntry is an <image:image> element nested in a URLEntry. All fields
// are strings, so values compare with ==.
type ImageEntry struct {
	loc         string
	caption     string
	title       string
	geoLocation string
	license     string
}

// NewImageEntry stores the free-text fields exactly as given. Their length
// is measured on the NFC form so that composed and decomposed input count
// the same.
func NewImageEntry(loc string, opts ...ImageOption) (ImageEntry, error) {
	fields := imageFields{Loc: strings.TrimSpace(loc)}
	for _, opt := range opts {
		opt(&fields)
	}

	measured := fields
	measured.Caption = norm.NFC.String(fields.Caption)
	measured.Title = norm.NFC.String(fields.Title)
	measured.GeoLocation = norm.NFC.String(fields.GeoLocation)

	if err := validate.Struct(measured); err != nil {
		return ImageEntry{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return ImageEntry{
		loc:         fields.Loc,
		caption:     fields.Caption,
		title:       fields.Title,
		geoLocation: fields.GeoLocation,
		license:     fields.License,
	}, nil
}

func (i ImageEntry) Loc() string {
	return i.loc
}

func (i ImageEntry) Caption() string {
	return i.caption
}

func (i ImageEntry) Title() string {
	return i.title
}

func (i ImageEntry) GeoLocation() string {
	return i.geoLocation
}

func (i ImageEntry) License() string {
	return i.license
}
