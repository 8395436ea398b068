// Package evaluator computes measurement results from submitted samples.
//
// One item is evaluated in a fixed order: its variables in declaration
// order, then its pre-processing formulas per sample, then its evaluation
// strategy (PER_SAMPLE judges every sample, JOINT runs its stages and
// judges the final values, SKIP_CHECK judges nothing). Cross-item
// references read the results already present in the evaluation context,
// so items are always evaluated in definition order.
package evaluator
