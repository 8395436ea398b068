// Package engine runs the quality-inspection operations against the store.
//
// The operations are:
//
//   - ValidateAndNormalizeProduct / PutProduct: validate measurement points,
//     normalize formulas and register the definition as a new version.
//   - CreateRecord / BeginRecord: start a measurement record pinned to the
//     product's current definition and assign its batch number.
//   - CheckItem: confirm one item's samples. This is the only operation
//     that writes the item's last-check snapshot.
//   - SubmitOrSave: validate a payload, run the staleness gate, evaluate
//     formulas in definition order and store the results.
//
// Each operation reads the record, decides and writes inside one store
// transaction. A rejected request writes nothing.
//
// Failures carry a wire code; Code, Details and Describe map any returned
// error to the envelope used by the CLI.
package engine
