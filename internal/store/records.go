package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/gauge/internal/record"
)

const recordColumns = `id, product_id, definition_version, batch_number, status, sample_status,
	overall_result, results, last_check, version, created_at, updated_at, measured_at`

// CreateRecord inserts a new record. The product and its pinned definition
// version must exist.
func (s *Store) CreateRecord(ctx context.Context, rec *record.Record) error {
	return s.tx().CreateRecord(ctx, rec)
}

// ReadRecord returns a record by id. Returns ErrNotFound if it does not
// exist.
func (s *Store) ReadRecord(ctx context.Context, id string) (*record.Record, error) {
	return s.tx().ReadRecord(ctx, id)
}

// UpdateRecord writes rec outside an explicit transaction.
func (s *Store) UpdateRecord(ctx context.Context, rec *record.Record) error {
	return s.tx().UpdateRecord(ctx, rec)
}

// ListRecords returns the records of a product ordered by creation. An
// empty status matches every status.
func (s *Store) ListRecords(ctx context.Context, productID string, status record.Status) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE product_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, productID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	recs := []*record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}

// CreateRecord inserts a new record.
func (tx *Tx) CreateRecord(ctx context.Context, rec *record.Record) error {
	cols, err := recordValues(rec)
	if err != nil {
		return fmt.Errorf("create record %s: %w", rec.ID, err)
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	_, err = tx.q.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.ProductID,
		rec.DefinitionVersion,
		rec.BatchNumber,
		string(rec.Status),
		string(rec.SampleStatus),
		cols.overall,
		cols.results,
		cols.lastCheck,
		rec.Version,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		cols.measuredAt,
	)
	if err != nil {
		return fmt.Errorf("create record %s: %w", rec.ID, err)
	}
	return nil
}

// ReadRecord returns a record by id.
func (tx *Tx) ReadRecord(ctx context.Context, id string) (*record.Record, error) {
	row := tx.q.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// UpdateRecord overwrites the mutable columns of rec if the stored version
// still equals rec.Version, then increments rec.Version. Returns
// ErrConflict when someone else wrote the record first and ErrNotFound
// when it does not exist.
func (tx *Tx) UpdateRecord(ctx context.Context, rec *record.Record) error {
	cols, err := recordValues(rec)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	res, err := tx.q.ExecContext(ctx, `
		UPDATE records SET
			batch_number = ?,
			status = ?,
			sample_status = ?,
			overall_result = ?,
			results = ?,
			last_check = ?,
			version = version + 1,
			updated_at = ?,
			measured_at = ?
		WHERE id = ? AND version = ?
	`,
		rec.BatchNumber,
		string(rec.Status),
		string(rec.SampleStatus),
		cols.overall,
		cols.results,
		cols.lastCheck,
		formatTime(rec.UpdatedAt),
		cols.measuredAt,
		rec.ID,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %s: rows affected: %w", rec.ID, err)
	}
	if n == 0 {
		var exists int
		err := tx.q.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, rec.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record %s: %w", rec.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update record %s: %w", rec.ID, err)
		}
		return fmt.Errorf("record %s at version %d: %w", rec.ID, rec.Version, ErrConflict)
	}
	rec.Version++
	return nil
}

type recordCols struct {
	overall    sql.NullBool
	results    string
	lastCheck  string
	measuredAt sql.NullString
}

func recordValues(rec *record.Record) (recordCols, error) {
	var cols recordCols
	results := rec.Results
	if results == nil {
		results = record.Results{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return cols, fmt.Errorf("marshal results: %w", err)
	}
	cols.results = string(data)

	snaps := rec.LastCheck
	if snaps == nil {
		snaps = record.Snapshots{}
	}
	data, err = json.Marshal(snaps)
	if err != nil {
		return cols, fmt.Errorf("marshal last check: %w", err)
	}
	cols.lastCheck = string(data)

	if rec.OverallResult != nil {
		cols.overall = sql.NullBool{Bool: *rec.OverallResult, Valid: true}
	}
	if rec.MeasuredAt != nil {
		cols.measuredAt = sql.NullString{String: formatTime(*rec.MeasuredAt), Valid: true}
	}
	return cols, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		rec                  record.Record
		status, sampleStatus string
		overall              sql.NullBool
		results, lastCheck   string
		createdAt, updatedAt string
		measuredAt           sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.ProductID,
		&rec.DefinitionVersion,
		&rec.BatchNumber,
		&status,
		&sampleStatus,
		&overall,
		&results,
		&lastCheck,
		&rec.Version,
		&createdAt,
		&updatedAt,
		&measuredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	rec.Status = record.Status(status)
	rec.SampleStatus = record.SampleStatus(sampleStatus)
	if overall.Valid {
		v := overall.Bool
		rec.OverallResult = &v
	}
	if err := json.Unmarshal([]byte(results), &rec.Results); err != nil {
		return nil, fmt.Errorf("record %s: unmarshal results: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(lastCheck), &rec.LastCheck); err != nil {
		return nil, fmt.Errorf("record %s: unmarshal last check: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if measuredAt.Valid {
		t, err := parseTime(measuredAt.String)
		if err != nil {
			return nil, err
		}
		rec.MeasuredAt = &t
	}
	return &rec, nil
}
