package engine

import (
	"context"
	"fmt"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/store"
)

// ProductView is a registered product with its current normalized points.
type ProductView struct {
	store.Product

	// NewVersion is set by PutProduct when the points differ from every
	// version registered before.
	NewVersion bool `json:"new_version"`

	MeasurementPoints []product.Point `json:"measurement_points"`
}

// ValidateAndNormalizeProduct validates points and returns the normalized
// definition. Nothing is stored. All issues are reported at once in a
// *product.ValidationError.
func (e *Engine) ValidateAndNormalizeProduct(points []product.Point) (*product.Definition, error) {
	def, err := product.Validate(points)
	if err != nil {
		e.metrics.product(outcomeRejected)
		e.logger.Info("product definition rejected",
			"code", Code(err),
			"error", err,
		)
		return nil, err
	}
	e.metrics.product(outcomeOK)
	return def, nil
}

// PutProduct validates doc and registers it as the current definition of
// product doc.ID. Records created earlier stay pinned to their version.
func (e *Engine) PutProduct(ctx context.Context, doc *product.Document) (*ProductView, error) {
	if doc.ID == "" {
		return nil, &Error{Code: ErrCodeInvalidFile, Message: "product id is required"}
	}
	def, err := e.ValidateAndNormalizeProduct(doc.MeasurementPoints)
	if err != nil {
		return nil, err
	}

	inserted, err := e.store.PutProduct(ctx, doc.ID, doc.Name, def, e.clock.Now())
	if err != nil {
		return nil, err
	}
	view, err := e.ShowProduct(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	view.NewVersion = inserted

	e.logger.Info("product registered",
		"product_id", doc.ID,
		"version", def.Version,
		"items", len(def.Items),
		"new_version", inserted,
	)
	return view, nil
}

// ShowProduct returns a product and its current definition.
func (e *Engine) ShowProduct(ctx context.Context, id string) (*ProductView, error) {
	p, err := e.store.ReadProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, productNotFound(id))
	}
	def, err := e.cache.Get(p.Version, func() (*product.Definition, error) {
		return e.store.ReadDefinition(ctx, id, p.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("show product %s: %w", id, notFound(err, productNotFound(id)))
	}
	return &ProductView{Product: p, MeasurementPoints: def.Points()}, nil
}

// ProductVersions lists every definition version registered for a
// product, oldest first.
func (e *Engine) ProductVersions(ctx context.Context, id string) ([]string, error) {
	if _, err := e.store.ReadProduct(ctx, id); err != nil {
		return nil, notFound(err, productNotFound(id))
	}
	return e.store.ListVersions(ctx, id)
}
