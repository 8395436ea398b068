// Package canon produces RFC 8785 canonical JSON and content hashes.
//
// Canonical bytes are the only serialization used for fingerprints and
// definition versions. Two values that are structurally equal serialize to
// identical bytes regardless of map iteration order, process, or session.
//
// Differences from encoding/json:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping, U+2028/U+2029 emitted literally
//   - strings NFC normalized
//   - numbers in ECMAScript shortest form (10, 2.5, 1e+21, 1.5e-7)
//   - NaN, Inf and null rejected
package canon
