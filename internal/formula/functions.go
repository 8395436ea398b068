package formula

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Function is one entry in the formula function library.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic

	// scalar evaluates already-evaluated arguments. Nil for pure aggregates.
	scalar func(args []float64) (float64, error)

	// aggregate folds a sample series. Nil for pure scalars.
	aggregate func(xs []float64) (float64, error)
}

// IsAggregate reports whether the function can fold a sample series.
func (f *Function) IsAggregate() bool {
	return f.aggregate != nil
}

var library = map[string]*Function{}

func register(f *Function) {
	library[f.Name] = f
}

func scalar1(name string, fn func(float64) float64) {
	register(&Function{Name: name, MinArgs: 1, MaxArgs: 1, scalar: func(a []float64) (float64, error) {
		return fn(a[0]), nil
	}})
}

func scalar2(name string, fn func(float64, float64) float64) {
	register(&Function{Name: name, MinArgs: 2, MaxArgs: 2, scalar: func(a []float64) (float64, error) {
		return fn(a[0], a[1]), nil
	}})
}

func aggregate(name string, fn func([]float64) (float64, error)) {
	register(&Function{Name: name, MinArgs: 1, MaxArgs: 1, aggregate: fn})
}

func init() {
	aggregate("avg", mean)
	aggregate("average", mean)
	aggregate("sum", func(xs []float64) (float64, error) {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s, nil
	})
	aggregate("count", func(xs []float64) (float64, error) {
		return float64(len(xs)), nil
	})
	aggregate("median", median)
	aggregate("mode", mode)
	aggregate("stdev", func(xs []float64) (float64, error) {
		v, err := variance(xs)
		if err != nil {
			return 0, err
		}
		return math.Sqrt(v), nil
	})
	aggregate("variance", variance)

	// min and max fold a series with one argument and compare scalars with more.
	register(&Function{Name: "min", MinArgs: 1, MaxArgs: -1, aggregate: extreme(math.Min), scalar: func(a []float64) (float64, error) {
		return extreme(math.Min)(a)
	}})
	register(&Function{Name: "max", MinArgs: 1, MaxArgs: -1, aggregate: extreme(math.Max), scalar: func(a []float64) (float64, error) {
		return extreme(math.Max)(a)
	}})

	scalar1("sin", math.Sin)
	scalar1("cos", math.Cos)
	scalar1("tan", math.Tan)
	scalar1("cot", func(x float64) float64 { return 1 / math.Tan(x) })
	scalar1("sec", func(x float64) float64 { return 1 / math.Cos(x) })
	scalar1("csc", func(x float64) float64 { return 1 / math.Sin(x) })
	scalar1("asin", math.Asin)
	scalar1("acos", math.Acos)
	scalar1("atan", math.Atan)
	scalar2("atan2", math.Atan2)
	scalar1("sinh", math.Sinh)
	scalar1("cosh", math.Cosh)
	scalar1("tanh", math.Tanh)
	scalar1("asinh", math.Asinh)
	scalar1("acosh", math.Acosh)
	scalar1("atanh", math.Atanh)

	scalar1("ceil", math.Ceil)
	scalar1("floor", math.Floor)
	scalar1("trunc", math.Trunc)
	register(&Function{Name: "round", MinArgs: 1, MaxArgs: 2, scalar: func(a []float64) (float64, error) {
		if len(a) == 1 {
			return math.Round(a[0]), nil
		}
		p := math.Pow(10, math.Trunc(a[1]))
		return math.Round(a[0]*p) / p, nil
	}})

	scalar1("sqrt", math.Sqrt)
	scalar1("abs", math.Abs)
	scalar1("sign", func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	})
	register(&Function{Name: "fmod", MinArgs: 2, MaxArgs: 2, scalar: func(a []float64) (float64, error) {
		if a[1] == 0 {
			return 0, fmt.Errorf("fmod by zero")
		}
		return math.Mod(a[0], a[1]), nil
	}})
	scalar2("hypot", math.Hypot)

	register(&Function{Name: "log", MinArgs: 1, MaxArgs: 2, scalar: func(a []float64) (float64, error) {
		if len(a) == 1 {
			return math.Log(a[0]), nil
		}
		return math.Log(a[0]) / math.Log(a[1]), nil
	}})
	scalar1("log10", math.Log10)
	scalar1("log2", math.Log2)
	scalar1("ln", math.Log)
	scalar1("exp", math.Exp)
	scalar2("pow", math.Pow)
	scalar2("power", math.Pow)

	scalar1("deg2rad", func(x float64) float64 { return x * math.Pi / 180 })
	scalar1("radians", func(x float64) float64 { return x * math.Pi / 180 })
	scalar1("rad2deg", func(x float64) float64 { return x * 180 / math.Pi })
	scalar1("degrees", func(x float64) float64 { return x * 180 / math.Pi })

	register(&Function{Name: "pi", scalar: func([]float64) (float64, error) { return math.Pi, nil }})
	register(&Function{Name: "e", scalar: func([]float64) (float64, error) { return math.E, nil }})

	// if is evaluated lazily by the evaluator; the scalar form is only
	// used for arity checks.
	register(&Function{Name: "if", MinArgs: 3, MaxArgs: 3, scalar: func(a []float64) (float64, error) {
		if a[0] != 0 {
			return a[1], nil
		}
		return a[2], nil
	}})
}

// Lookup finds a function by name, case-insensitively.
func Lookup(name string) (*Function, bool) {
	f, ok := library[strings.ToLower(name)]
	return f, ok
}

// IsAggregateCall reports whether a call to name with nargs arguments folds a
// sample series rather than combining scalars.
func IsAggregateCall(name string, nargs int) bool {
	f, ok := Lookup(name)
	if !ok || f.aggregate == nil {
		return false
	}
	return f.scalar == nil || nargs == 1
}

// Functions returns the sorted names of every library function.
func Functions() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var errNoSamples = fmt.Errorf("no samples")

func mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errNoSamples
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs)), nil
}

func median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errNoSamples
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// mode returns the most frequent value, the smallest one on ties.
func mode(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errNoSamples
	}
	counts := make(map[float64]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	best, bestN := 0.0, 0
	for x, n := range counts {
		if n > bestN || (n == bestN && x < best) {
			best, bestN = x, n
		}
	}
	return best, nil
}

// variance is the sample variance (n-1 denominator).
func variance(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, fmt.Errorf("variance needs at least 2 samples, got %d", len(xs))
	}
	m, _ := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs)-1), nil
}

func extreme(pick func(a, b float64) float64) func([]float64) (float64, error) {
	return func(xs []float64) (float64, error) {
		if len(xs) == 0 {
			return 0, errNoSamples
		}
		v := xs[0]
		for _, x := range xs[1:] {
			v = pick(v, x)
		}
		return v, nil
	}
}
