// Package footprint detects raw measurement data that changed after it was
// explicitly checked.
//
// A check stores a Snapshot of an item's raw samples with a canonical
// fingerprint. Save and submit never write snapshots; they compare the
// incoming samples of every raw-input item with its snapshot. A mismatch
// is CRITICAL, and every item in the same request that transitively
// depends on a CRITICAL item gets a WARNING. Any warning rejects the whole
// request with a *StalenessError.
package footprint
