package engine

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
	"github.com/roach88/gauge/internal/store"
)

// DefaultCacheSize is the number of decoded definition versions kept in
// memory.
const DefaultCacheSize = 64

// Engine runs product validation, item checks and record saves against a
// store.
//
// Every operation reads the record, decides, and writes it back inside one
// store transaction, so a rejected request leaves the record untouched.
// Engine is safe for concurrent use; the store serializes writers and the
// record version column rejects lost updates.
type Engine struct {
	store    *store.Store
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
	metrics  *Metrics
	cache    *product.Cache
	validate *validator.Validate
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the record id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics enables counters. Without it no metrics are recorded.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCacheSize bounds the definition cache.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cache = product.NewCache(n)
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		cache:    product.NewCache(DefaultCacheSize),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// definition returns the definition a record is pinned to.
func (e *Engine) definition(ctx context.Context, tx *store.Tx, rec *record.Record) (*product.Definition, error) {
	return e.cache.Get(rec.DefinitionVersion, func() (*product.Definition, error) {
		def, err := tx.ReadDefinition(ctx, rec.ProductID, rec.DefinitionVersion)
		if err != nil {
			return nil, notFound(err, productNotFound(rec.ProductID))
		}
		return def, nil
	})
}

// readRecord reads a record inside tx and the definition it is pinned to.
func (e *Engine) readRecord(ctx context.Context, tx *store.Tx, id string) (*record.Record, *product.Definition, error) {
	rec, err := tx.ReadRecord(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, recordNotFound(id))
	}
	def, err := e.definition(ctx, tx, rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, def, nil
}

// writeRecord stores rec, translating a version clash.
func writeRecord(ctx context.Context, tx *store.Tx, rec *record.Record) error {
	err := tx.UpdateRecord(ctx, rec)
	switch Code(err) {
	case "":
		return nil
	case ErrCodeConflict:
		return &Error{
			Code:    ErrCodeConflict,
			Message: "measurement record was modified by another request, reload and retry",
			Details: map[string]any{"measurement_id": rec.ID, "version": rec.Version},
		}
	default:
		return notFound(err, recordNotFound(rec.ID))
	}
}
