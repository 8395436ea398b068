package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// RecordView is a record with its progress against the pinned definition.
type RecordView struct {
	*record.Record

	Progress        float64  `json:"progress"`
	SavedItems      []string `json:"saved_items"`
	TotalSavedItems int      `json:"total_saved_items"`
	TotalItems      int      `json:"total_items"`
}

func newRecordView(rec *record.Record, def *product.Definition) *RecordView {
	saved := rec.SavedItems()
	if saved == nil {
		saved = []string{}
	}
	return &RecordView{
		Record:          rec,
		Progress:        roundPercent(rec.Progress(len(def.Items))),
		SavedItems:      saved,
		TotalSavedItems: len(saved),
		TotalItems:      len(def.Items),
	}
}

func roundPercent(p float64) float64 {
	return math.Round(p*100) / 100
}

// CreateRecord starts a TODO record for a product, pinned to the product's
// current definition version.
func (e *Engine) CreateRecord(ctx context.Context, productID string) (*RecordView, error) {
	var view *RecordView
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.ReadProduct(ctx, productID)
		if err != nil {
			return notFound(err, productNotFound(productID))
		}
		rec := record.New(e.ids.Generate(), productID, p.Version, e.clock.Now())
		if err := tx.CreateRecord(ctx, rec); err != nil {
			return err
		}
		def, err := e.definition(ctx, tx, rec)
		if err != nil {
			return err
		}
		view = newRecordView(rec, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("record created",
		"measurement_id", view.ID,
		"product_id", productID,
		"version", view.DefinitionVersion,
	)
	return view, nil
}

// BeginRecord assigns the batch number. The record becomes IN_PROGRESS on
// its first check or save.
func (e *Engine) BeginRecord(ctx context.Context, id, batch string) (*RecordView, error) {
	var view *RecordView
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		rec, def, err := e.readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := rec.AssignBatch(batch, e.clock.Now()); err != nil {
			return err
		}
		if err := writeRecord(ctx, tx, rec); err != nil {
			return err
		}
		view = newRecordView(rec, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("record batch assigned", "measurement_id", id, "batch_number", view.BatchNumber)
	return view, nil
}

// ShowRecord returns a record.
func (e *Engine) ShowRecord(ctx context.Context, id string) (*RecordView, error) {
	var view *RecordView
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		rec, def, err := e.readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		view = newRecordView(rec, def)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListRecords returns the records of a product, oldest first. An empty
// status lists every record.
func (e *Engine) ListRecords(ctx context.Context, productID string, status record.Status) ([]*RecordView, error) {
	if _, err := e.store.ReadProduct(ctx, productID); err != nil {
		return nil, notFound(err, productNotFound(productID))
	}
	recs, err := e.store.ListRecords(ctx, productID, status)
	if err != nil {
		return nil, err
	}
	views := make([]*RecordView, 0, len(recs))
	for _, rec := range recs {
		def, err := e.cache.Get(rec.DefinitionVersion, func() (*product.Definition, error) {
			return e.store.ReadDefinition(ctx, rec.ProductID, rec.DefinitionVersion)
		})
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		views = append(views, newRecordView(rec, def))
	}
	return views, nil
}
