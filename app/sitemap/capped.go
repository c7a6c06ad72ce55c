package sitemap

import (
	"errors"
	"fmt"
	"slices"
)

// MaxEntries is the sitemap protocol ceiling for one urlset or sitemapindex.
const MaxEntries = 50000

var ErrCeilingExceeded = errors.New("maximum exceeds sitemap protocol ceiling")

// CappedSet is an ordered collection that stops accepting entries once it
// holds max of them. Adding to a full set drops the entry silently.
type CappedSet[T any] struct {
	max     int
	entries []T
}

// NewCappedSet uses MaxEntries when max <= 0 and refuses anything above it.
func NewCappedSet[T any](max int) (*CappedSet[T], error) {
	if max <= 0 {
		max = MaxEntries
	}
	if max > MaxEntries {
		return nil, fmt.Errorf("%w: %d > %d", ErrCeilingExceeded, max, MaxEntries)
	}
	return &CappedSet[T]{max: max}, nil
}

// Add reports whether the entry was stored.
func (s *CappedSet[T]) Add(entry T) bool {
	if s.IsFull() {
		return false
	}
	s.entries = append(s.entries, entry)
	return true
}

func (s *CappedSet[T]) Len() int {
	return len(s.entries)
}

func (s *CappedSet[T]) Max() int {
	return s.max
}

func (s *CappedSet[T]) IsFull() bool {
	return len(s.entries) >= s.max
}

func (s *CappedSet[T]) IsEmpty() bool {
	return len(s.entries) == 0
}

func (s *CappedSet[T]) Entries() []T {
	return slices.Clone(s.entries)
}
