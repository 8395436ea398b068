package footprint

import (
	"fmt"
	"time"

	"github.com/roach88/gauge/internal/canon"
	"github.com/roach88/gauge/internal/record"
)

// Fingerprint hashes the raw samples in sample_index order. Evaluation
// fields are ignored.
func Fingerprint(samples []record.Sample) (string, error) {
	fp, err := canon.Hash(canon.DomainFootprint, record.Canonical(samples))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fp, nil
}

// Take builds the snapshot written by a check.
func Take(samples []record.Sample, now time.Time) (*record.Snapshot, error) {
	fp, err := Fingerprint(samples)
	if err != nil {
		return nil, err
	}
	return &record.Snapshot{
		CheckedAt:   now.UTC(),
		Samples:     record.RawSamples(samples),
		Fingerprint: fp,
	}, nil
}

// State is the check state of one item.
type State string

const (
	Unchecked State = "UNCHECKED"
	Checked   State = "CHECKED"
	Stale     State = "STALE"
)

// StateOf compares samples with the item's snapshot.
func StateOf(snap *record.Snapshot, samples []record.Sample) (State, error) {
	if snap == nil {
		return Unchecked, nil
	}
	want, err := snapshotFingerprint(snap)
	if err != nil {
		return "", err
	}
	got, err := Fingerprint(samples)
	if err != nil {
		return "", err
	}
	if got != want {
		return Stale, nil
	}
	return Checked, nil
}

// snapshotFingerprint returns the stored fingerprint, recomputing it for
// snapshots written without one.
func snapshotFingerprint(snap *record.Snapshot) (string, error) {
	if snap.Fingerprint != "" {
		return snap.Fingerprint, nil
	}
	return Fingerprint(snap.Samples)
}
