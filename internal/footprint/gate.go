package footprint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/gauge/internal/product"
	"github.com/roach88/gauge/internal/record"
)

// Code is the error code of a rejected save or submit.
const Code = "VALIDATION_REQUIRED"

// Level is the severity of a warning.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelWarning  Level = "WARNING"
)

// Warning types.
const (
	TypeRawDataChanged    = "RAW_DATA_CHANGED_NOT_VALIDATED"
	TypeDependencyChanged = "DEPENDENCY_CHANGED"
)

// Warning describes one item blocked by the gate.
type Warning struct {
	NameID string `json:"measurement_item_name_id"`
	Level  Level  `json:"level"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Action string `json:"action"`

	// Set for CRITICAL warnings.
	LastCheckValues []record.Sample `json:"last_check_values,omitempty"`
	CurrentValues   []record.Sample `json:"current_values,omitempty"`
	LastCheckedAt   *time.Time      `json:"last_checked_at,omitempty"`

	// Set for WARNING warnings: the CRITICAL items this one depends on.
	DependenciesChanged []string `json:"dependencies_changed,omitempty"`
}

// StalenessError rejects a save or submit.
type StalenessError struct {
	Warnings        []Warning `json:"warnings"`
	CriticalCount   int       `json:"critical_count"`
	DependencyCount int       `json:"dependency_count"`
}

func (e *StalenessError) Error() string {
	var critical []string
	for _, w := range e.Warnings {
		if w.Level == LevelCritical {
			critical = append(critical, w.NameID)
		}
	}
	msg := fmt.Sprintf("%s: %d item(s) changed since their last check", Code, e.CriticalCount)
	if len(critical) > 0 {
		msg += " (" + strings.Join(critical, ", ") + ")"
	}
	if e.DependencyCount > 0 {
		msg += fmt.Sprintf(", %d dependent item(s) affected", e.DependencyCount)
	}
	return msg
}

// IsStalenessError reports whether err wraps a *StalenessError.
func IsStalenessError(err error) bool {
	var se *StalenessError
	return errors.As(err, &se)
}

// Gate compares the incoming samples of every raw-input item in payload
// with its last check snapshot. It returns nil when nothing changed, and a
// *StalenessError listing CRITICAL items first, then WARNING items, each in
// definition order.
func Gate(def *product.Definition, payload map[string][]record.Sample, lastCheck record.Snapshots) error {
	var (
		critical []Warning
		roots    []string
	)
	for _, it := range def.Items {
		samples, present := payload[it.NameID]
		if !present || !it.IsRawInput() {
			continue
		}
		snap := lastCheck[it.NameID]
		state, err := StateOf(snap, samples)
		if err != nil {
			return fmt.Errorf("gate %s: %w", it.NameID, err)
		}
		if state != Stale {
			continue
		}
		checkedAt := snap.CheckedAt
		critical = append(critical, Warning{
			NameID:          it.NameID,
			Level:           LevelCritical,
			Type:            TypeRawDataChanged,
			Reason:          "raw data changed after the last check",
			Action:          "check this item again before saving",
			LastCheckValues: record.RawSamples(snap.Samples),
			CurrentValues:   record.RawSamples(samples),
			LastCheckedAt:   &checkedAt,
		})
		roots = append(roots, it.NameID)
	}

	var dependents []Warning
	if len(roots) > 0 {
		reached := def.Graph().TransitiveDependents(roots...)
		for _, it := range def.Items {
			changed, ok := reached[it.NameID]
			if !ok {
				continue
			}
			if _, present := payload[it.NameID]; !present || isRoot(roots, it.NameID) {
				continue
			}
			dependents = append(dependents, Warning{
				NameID:              it.NameID,
				Level:               LevelWarning,
				Type:                TypeDependencyChanged,
				Reason:              "depends on items changed since their last check: " + strings.Join(changed, ", "),
				Action:              "check the changed items again before saving",
				DependenciesChanged: changed,
			})
		}
	}

	if len(critical) == 0 && len(dependents) == 0 {
		return nil
	}
	return &StalenessError{
		Warnings:        append(critical, dependents...),
		CriticalCount:   len(critical),
		DependencyCount: len(dependents),
	}
}

func isRoot(roots []string, id string) bool {
	for _, r := range roots {
		if r == id {
			return true
		}
	}
	return false
}
