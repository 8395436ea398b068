package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gauge/internal/testutil"
)

func TestPutProduct_NewAndRepeated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	def := testutil.MustDefinition(t, testutil.ChainPoints())

	inserted, err := s.PutProduct(ctx, "bracket", "Bracket", def, testutil.Epoch)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.PutProduct(ctx, "bracket", "Bracket", def, testutil.Epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, inserted, "same definition is not a new version")

	p, err := s.ReadProduct(ctx, "bracket")
	require.NoError(t, err)
	assert.Equal(t, "Bracket", p.Name)
	assert.Equal(t, def.Version, p.Version)
	assert.True(t, p.CreatedAt.Equal(testutil.Epoch))
	assert.True(t, p.UpdatedAt.Equal(testutil.Epoch.Add(time.Minute)))
}

func TestPutProduct_NewVersionBecomesCurrent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	v1 := createTestProduct(t, s, "bracket")

	points := append(testutil.ChainPoints(), testutil.RawPoint("extra_len", 2))
	v2 := testutil.MustDefinition(t, points)
	require.NotEqual(t, v1.Version, v2.Version)

	inserted, err := s.PutProduct(ctx, "bracket", "Bracket", v2, testutil.Epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, inserted)

	p, err := s.ReadProduct(ctx, "bracket")
	require.NoError(t, err)
	assert.Equal(t, v2.Version, p.Version)

	versions, err := s.ListVersions(ctx, "bracket")
	require.NoError(t, err)
	assert.Equal(t, []string{v1.Version, v2.Version}, versions)

	// The old version stays readable for records pinned to it.
	old, err := s.ReadDefinition(ctx, "bracket", v1.Version)
	require.NoError(t, err)
	assert.Equal(t, v1.NameIDs(), old.NameIDs())
}

func TestReadDefinition_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	def := createTestProduct(t, s, "bracket")

	got, err := s.ReadDefinition(context.Background(), "bracket", def.Version)
	require.NoError(t, err)
	assert.Equal(t, def.Version, got.Version)
	assert.Equal(t, def.NameIDs(), got.NameIDs())
	assert.Equal(t, def.Graph().Edges(), got.Graph().Edges())
}

func TestReadProduct_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadProduct(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.ReadDefinition(context.Background(), "missing", "v")
	assert.True(t, errors.Is(err, ErrNotFound))
}
