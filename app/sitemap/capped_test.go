package sitemap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCappedSetDefaults(t *testing.T) {
	set, err := NewCappedSet[int](0)
	require.NoError(t, err)
	assert.Equal(t, MaxEntries, set.Max())
	assert.True(t, set.IsEmpty())
}

func TestNewCappedSetRejectsAboveCeiling(t *testing.T) {
	_, err := NewCappedSet[int](MaxEntries + 1)
	assert.ErrorIs(t, err, ErrCeilingExceeded)
}

func TestCappedSetDropsWhenFull(t *testing.T) {
	set, err := NewCappedSet[string](2)
	require.NoError(t, err)

	assert.True(t, set.Add("a"))
	assert.True(t, set.Add("b"))
	assert.True(t, set.IsFull())
	assert.False(t, set.Add("c"))

	assert.Equal(t, []string{"a", "b"}, set.Entries())
}

func TestCappedSetProtocolCeiling(t *testing.T) {
	set, err := NewCappedSet[URLEntry](0)
	require.NoError(t, err)

	for i := 0; i < MaxEntries+10; i++ {
		entry, err := NewURLEntry(fmt.Sprintf("https://example.com/p/%d", i))
		require.NoError(t, err)
		set.Add(entry)
	}

	assert.Equal(t, MaxEntries, set.Len())

	extra, err := NewURLEntry("https://example.com/one-more")
	require.NoError(t, err)
	assert.False(t, set.Add(extra))
	assert.Equal(t, MaxEntries, set.Len())
	assert.Equal(t, "https://example.com/p/49999", set.Entries()[MaxEntries-1].Loc())
}
