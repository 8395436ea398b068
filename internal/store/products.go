package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/gauge/internal/product"
)

// Product is a registered product and the definition version new records
// are pinned to.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"product_name"`
	Version   string    `json:"definition_version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PutProduct makes def the current definition of product id, creating the
// product on first use. It reports whether def is a version this product
// has not had before. Existing records keep the version they were created
// with.
func (s *Store) PutProduct(ctx context.Context, id, name string, def *product.Definition, now time.Time) (bool, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return false, fmt.Errorf("put product %s: %w", id, err)
	}
	ts := formatTime(now)

	var inserted bool
	err = s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO products (id, name, current_version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				current_version = excluded.current_version,
				updated_at = excluded.updated_at
		`, id, name, def.Version, ts, ts)
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}

		res, err := tx.q.ExecContext(ctx, `
			INSERT INTO product_versions (product_id, version, definition, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(product_id, version) DO NOTHING
		`, id, def.Version, string(data), ts)
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		inserted = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("put product %s: %w", id, err)
	}
	return inserted, nil
}

// ReadProduct returns the product row. Returns ErrNotFound if it does not
// exist.
func (s *Store) ReadProduct(ctx context.Context, id string) (Product, error) {
	return s.tx().ReadProduct(ctx, id)
}

// ReadProduct returns the product row.
func (tx *Tx) ReadProduct(ctx context.Context, id string) (Product, error) {
	var (
		p                    Product
		createdAt, updatedAt string
	)
	err := tx.q.QueryRowContext(ctx, `
		SELECT id, name, current_version, created_at, updated_at
		FROM products
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("read product %s: %w", id, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Product{}, fmt.Errorf("read product %s: %w", id, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Product{}, fmt.Errorf("read product %s: %w", id, err)
	}
	return p, nil
}

// ReadDefinition decodes one stored definition version of a product.
// Returns ErrNotFound if the version was never registered.
func (s *Store) ReadDefinition(ctx context.Context, productID, version string) (*product.Definition, error) {
	return s.tx().ReadDefinition(ctx, productID, version)
}

// ReadDefinition decodes one stored definition version of a product.
func (tx *Tx) ReadDefinition(ctx context.Context, productID, version string) (*product.Definition, error) {
	var data string
	err := tx.q.QueryRowContext(ctx, `
		SELECT definition
		FROM product_versions
		WHERE product_id = ? AND version = ?
	`, productID, version).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s version %s: %w", productID, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", productID, err)
	}

	var def product.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("read definition %s: %w", productID, err)
	}
	return &def, nil
}

// ListVersions returns every registered version of a product, oldest first.
func (s *Store) ListVersions(ctx context.Context, productID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version
		FROM product_versions
		WHERE product_id = ?
		ORDER BY created_at ASC, version COLLATE BINARY ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
