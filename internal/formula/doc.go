// Package formula parses, normalizes and evaluates measurement formulas.
//
// A formula is a small arithmetic language: numeric literals, references to
// measurement items or local names, an optional "item.name" dot form, the
// operators + - * / % ^, comparisons, and calls into a closed function
// library (see Lookup). Parsing produces a typed tree (Literal, Reference,
// Call, Unary, Binary) that is cached on the Formula alongside its
// normalized text, so evaluation never re-parses.
//
// Normalization strips the leading "=" and rewrites every function name to
// its lowercase canonical spelling. The rest of the authored text, including
// whitespace, is preserved. Normalize is idempotent:
//
//	Normalize("=AVG(x)+SIN(y)") // "avg(x)+sin(y)"
//	Normalize("avg(x)+sin(y)")  // "avg(x)+sin(y)"
//
// Evaluation is pure. Names are resolved through an Env supplied by the
// caller, which decides what a reference means (a raw sample series, a
// variable, an earlier joint stage).
package formula
