package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct registers the chain definition under id.
func createTestProduct(t *testing.T, s *Store, id string) *product.Definition {
	t.Helper()
	def := testutil.MustDefinition(t, testutil.ChainPoints())
	if _, err := s.PutProduct(context.Background(), id, "Test "+id, def, testutil.Epoch); err != nil {
		t.Fatalf("PutProduct() failed: %v", err)
	}
	return def
}

// createTestRecord inserts a TODO record pinned to def.
func createTestRecord(t *testing.T, s *Store, id, productID string, def *product.Definition) *record.Record {
	t.Helper()
	rec := record.New(id, productID, def.Version, testutil.Epoch)
	if err := s.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
