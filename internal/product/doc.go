// Package product holds measurement-item definitions and validates them.
//
// A product definition is an ordered list of measurement points. Validate
// turns the wire form (Point) into a typed Definition: enum axes become
// closed variant types (Source, Nature, Evaluation), every formula is
// parsed once and normalized, and a dependency Graph is built from the
// cross-item references.
//
// Scope is positional. A formula may reference measurement items declared
// earlier in the list and local names declared earlier in the same item.
// Forward and self references are rejected. All problems are collected in
// a single *ValidationError rather than stopping at the first one.
package product
