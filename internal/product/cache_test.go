package product

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadsOncePerVersion(t *testing.T) {
	c := NewCache(2)
	calls := 0
	load := func() (*Definition, error) {
		calls++
		return Validate(chainPoints())
	}

	a, err := c.Get("v1", load)
	require.NoError(t, err)
	b, err := c.Get("v1", load)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)

	c.Invalidate("v1")
	_, err = c.Get("v1", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCache_EvictsOldest(t *testing.T) {
	c := NewCache(2)
	load := func() (*Definition, error) { return Validate(chainPoints()) }

	for _, v := range []string{"v1", "v2", "v3"} {
		_, err := c.Get(v, load)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	calls := 0
	_, err := c.Get("v1", func() (*Definition, error) { calls++; return load() })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCache_ErrorNotCached(t *testing.T) {
	c := NewCache(0)
	_, err := c.Get("bad", func() (*Definition, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
