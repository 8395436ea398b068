package formula

import (
	"errors"
	"fmt"
	"math"
)

// Env resolves references during evaluation.
//
// Value returns the scalar bound to ref. Series returns the sample series
// for the argument of an aggregate call. Implementations report absent data
// with *MissingDataError and misuse (a series in scalar position) with
// *EvalError.
type Env interface {
	Value(ref Reference) (float64, error)
	Series(ref Reference) ([]float64, error)
}

// Eval evaluates the formula against env. Errors from the tree are
// annotated with the formula text.
func (f *Formula) Eval(env Env) (float64, error) {
	v, err := Eval(f.Root, env)
	if err != nil {
		var ee *EvalError
		if errors.As(err, &ee) && ee.Formula == "" {
			return 0, &EvalError{Formula: f.Normalized, Message: ee.Message}
		}
		return 0, err
	}
	return v, nil
}

// Eval evaluates n against env. Division by zero and non-finite results
// are errors, never Inf or NaN.
func Eval(n Node, env Env) (float64, error) {
	v, err := eval(n, env)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Message: fmt.Sprintf("non-finite result in %s", n)}
	}
	return v, nil
}

func eval(n Node, env Env) (float64, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil
	case *Reference:
		return env.Value(*v)
	case *Unary:
		x, err := eval(v.X, env)
		if err != nil {
			return 0, err
		}
		if v.Op == "-" {
			return -x, nil
		}
		return x, nil
	case *Binary:
		x, err := evalBinary(v, env)
		return finite(v, x, err)
	case *Call:
		x, err := evalCall(v, env)
		return finite(v, x, err)
	}
	return 0, &EvalError{Message: fmt.Sprintf("unsupported node %T", n)}
}

// finite rejects Inf and NaN from n so an overflow cannot be absorbed by an
// enclosing expression.
func finite(n Node, v float64, err error) (float64, error) {
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Message: fmt.Sprintf("non-finite result in %s", n)}
	}
	return v, nil
}

func evalBinary(b *Binary, env Env) (float64, error) {
	l, err := eval(b.Left, env)
	if err != nil {
		return 0, err
	}
	r, err := eval(b.Right, env)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, &EvalError{Message: fmt.Sprintf("division by zero in %s", b)}
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, &EvalError{Message: fmt.Sprintf("modulo by zero in %s", b)}
		}
		return math.Mod(l, r), nil
	case "^":
		return math.Pow(l, r), nil
	case "<":
		return boolValue(l < r), nil
	case "<=":
		return boolValue(l <= r), nil
	case ">":
		return boolValue(l > r), nil
	case ">=":
		return boolValue(l >= r), nil
	case "==":
		return boolValue(l == r), nil
	case "!=":
		return boolValue(l != r), nil
	}
	return 0, &EvalError{Message: fmt.Sprintf("unknown operator %q", b.Op)}
}

func evalCall(c *Call, env Env) (float64, error) {
	fn, ok := Lookup(c.Name)
	if !ok {
		return 0, &EvalError{Message: fmt.Sprintf("unknown function %q", c.Name)}
	}

	if IsAggregateCall(c.Name, len(c.Args)) {
		ref, ok := c.Args[0].(*Reference)
		if !ok || !ref.IsBare() {
			return 0, &EvalError{Message: fmt.Sprintf("%s() takes a measurement item reference, got %s", c.Name, c.Args[0])}
		}
		xs, err := env.Series(*ref)
		if err != nil {
			return 0, err
		}
		v, err := fn.aggregate(xs)
		if err != nil {
			return 0, &EvalError{Message: fmt.Sprintf("%s(%s): %v", c.Name, ref, err)}
		}
		return v, nil
	}

	if c.Name == "if" {
		cond, err := eval(c.Args[0], env)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return eval(c.Args[1], env)
		}
		return eval(c.Args[2], env)
	}

	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := eval(a, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v, err := fn.scalar(args)
	if err != nil {
		return 0, &EvalError{Message: fmt.Sprintf("%s: %v", c.Name, err)}
	}
	return v, nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// MapEnv is an Env backed by maps keyed by the reference's String form.
// Missing names are *MissingDataError.
type MapEnv struct {
	Values  map[string]float64
	Samples map[string][]float64
}

// Value implements Env.
func (m MapEnv) Value(ref Reference) (float64, error) {
	v, ok := m.Values[ref.String()]
	if !ok {
		return 0, &MissingDataError{Item: ref.Name, Name: ref.Field, Reason: ReasonNoValue}
	}
	return v, nil
}

// Series implements Env.
func (m MapEnv) Series(ref Reference) ([]float64, error) {
	xs, ok := m.Samples[ref.String()]
	if !ok {
		return nil, &MissingDataError{Item: ref.Name, Reason: ReasonNotSubmitted}
	}
	return xs, nil
}
