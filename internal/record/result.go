package record

import (
	"time"
)

// ItemResult is the stored outcome for one measurement item.
type ItemResult struct {
	NameID string `json:"measurement_item_name_id"`

	// Status is nil for SKIP_CHECK items and for items that could not be
	// judged yet.
	Status *bool `json:"status"`

	Samples                   []Sample     `json:"samples"`
	VariableValues            []NamedValue `json:"variable_values,omitempty"`
	JointSettingFormulaValues []NamedValue `json:"joint_setting_formula_values,omitempty"`
	FinalValues               []NamedValue `json:"final_values,omitempty"`
}

// Saved reports whether the item holds data: samples, or for an
// auto-calculated item at least one final value.
func (r *ItemResult) Saved() bool {
	return r != nil && (len(r.Samples) > 0 || len(r.FinalValues) > 0)
}

// Variable returns a reported variable value.
func (r *ItemResult) Variable(name string) (float64, bool) {
	return lookup(r.VariableValues, name)
}

// Stage returns a reported joint stage value.
func (r *ItemResult) Stage(name string) (float64, bool) {
	return lookup(r.JointSettingFormulaValues, name)
}

func lookup(values []NamedValue, name string) (float64, bool) {
	for _, nv := range values {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return 0, false
}

// Results maps name_id to the item's result.
type Results map[string]*ItemResult

// Snapshot is the footprint written by an explicit check.
type Snapshot struct {
	CheckedAt   time.Time `json:"checked_at"`
	Samples     []Sample  `json:"samples"`
	Fingerprint string    `json:"fingerprint"`
}

// Snapshots maps name_id to the last check snapshot.
type Snapshots map[string]*Snapshot
