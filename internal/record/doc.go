// Package record models one measurement run against a product: the
// submitted samples and evaluated results per measurement item, the
// snapshots written by explicit checks, and the TODO -> IN_PROGRESS ->
// COMPLETED lifecycle.
//
// Everything here round-trips through JSON without loss. Sample order is
// by sample_index, and numbers stay numbers.
package record
