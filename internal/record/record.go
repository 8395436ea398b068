package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the record lifecycle state.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// SampleStatus summarises every judged sample of the record.
type SampleStatus string

const (
	SampleNotComplete SampleStatus = "NOT_COMPLETE"
	SampleOK          SampleStatus = "OK"
	SampleNG          SampleStatus = "NG"
)

// Record is one measurement run against a product.
type Record struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	DefinitionVersion string `json:"definition_version"`
	BatchNumber       string `json:"batch_number,omitempty"`

	Status        Status       `json:"status"`
	SampleStatus  SampleStatus `json:"sample_status"`
	OverallResult *bool        `json:"overall_result"`

	Results   Results   `json:"measurement_results"`
	LastCheck Snapshots `json:"last_check_data"`

	// Version increases on every write and guards concurrent updates.
	Version int64 `json:"version"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
}

// New returns a TODO record pinned to a definition version.
func New(id, productID, definitionVersion string, now time.Time) *Record {
	return &Record{
		ID:                id,
		ProductID:         productID,
		DefinitionVersion: definitionVersion,
		Status:            StatusTodo,
		SampleStatus:      SampleNotComplete,
		Results:           Results{},
		LastCheck:         Snapshots{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TransitionError reports an operation not allowed in the current state.
type TransitionError struct {
	ID     string
	Status Status
	Op     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("record %s: cannot %s while %s: %s", e.ID, e.Op, e.Status, e.Reason)
}

// IsTransitionError reports whether err wraps a *TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// AssignBatch sets the batch number. The record stays TODO until the first
// check or save.
func (r *Record) AssignBatch(batch string, now time.Time) error {
	batch = strings.TrimSpace(batch)
	if r.Status == StatusCompleted {
		return &TransitionError{ID: r.ID, Status: r.Status, Op: "assign batch", Reason: "record is completed"}
	}
	if batch == "" {
		return &TransitionError{ID: r.ID, Status: r.Status, Op: "assign batch", Reason: "batch number is empty"}
	}
	r.BatchNumber = batch
	r.UpdatedAt = now
	return nil
}

// Start moves the record into IN_PROGRESS for op (check, save or submit).
// It fails without a batch number or once completed.
func (r *Record) Start(op string, now time.Time) error {
	switch {
	case r.Status == StatusCompleted:
		return &TransitionError{ID: r.ID, Status: r.Status, Op: op, Reason: "record is completed"}
	case r.BatchNumber == "":
		return &TransitionError{ID: r.ID, Status: r.Status, Op: op, Reason: "no batch number assigned"}
	}
	r.Status = StatusInProgress
	r.UpdatedAt = now
	return nil
}

// Complete finalizes a submitted record.
func (r *Record) Complete(overall bool, sampleStatus SampleStatus, now time.Time) error {
	if r.Status != StatusInProgress {
		return &TransitionError{ID: r.ID, Status: r.Status, Op: "complete", Reason: "record is not in progress"}
	}
	r.Status = StatusCompleted
	r.OverallResult = &overall
	r.SampleStatus = sampleStatus
	r.MeasuredAt = &now
	r.UpdatedAt = now
	return nil
}

// Progress is the percentage of totalItems that hold data. A completed
// record is always 100.
func (r *Record) Progress(totalItems int) float64 {
	if r.Status == StatusCompleted {
		return 100
	}
	if totalItems == 0 {
		return 0
	}
	saved := 0
	for _, res := range r.Results {
		if res.Saved() {
			saved++
		}
	}
	return float64(saved) / float64(totalItems) * 100
}

// SavedItems returns the name_ids that hold data, sorted.
func (r *Record) SavedItems() []string {
	var ids []string
	for id, res := range r.Results {
		if res.Saved() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
