package expr

import (
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// builtins are available to every expression unless the environment defines
// a variable of the same name.
var builtins = map[string]Func{
	"upper":      caseFunc(func() cases.Caser { return cases.Upper(language.Und) }),
	"lower":      caseFunc(func() cases.Caser { return cases.Lower(language.Und) }),
	"capitalize": caseFunc(func() cases.Caser { return cases.Title(language.English) }),
	"length": func(args []Value) (Value, error) {
		if err := arity("length", args, 1); err != nil {
			return Undefined, err
		}
		return Number(float64(utf8.RuneCountInString(args[0].String()))), nil
	},
	"string": func(args []Value) (Value, error) {
		if err := arity("string", args, 1); err != nil {
			return Undefined, err
		}
		return String(args[0].String()), nil
	},
	"number": func(args []Value) (Value, error) {
		if err := arity("number", args, 1); err != nil {
			return Undefined, err
		}
		n, _ := args[0].toNumber()
		return Number(n), nil
	},
	"boolean": func(args []Value) (Value, error) {
		if err := arity("boolean", args, 1); err != nil {
			return Undefined, err
		}
		return Bool(args[0].Truthy()), nil
	},
	"abs":   mathFunc("abs", math.Abs),
	"floor": mathFunc("floor", math.Floor),
	"ceil":  mathFunc("ceil", math.Ceil),
	"round": mathFunc("round", func(f float64) float64 { return math.Floor(f + 0.5) }),
	"min":   foldFunc("min", math.Min),
	"max":   foldFunc("max", math.Max),
}

func arity(name string, args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// caseFunc builds a fresh Caser per call; Casers are not safe to share
// between goroutines.
func caseFunc(newCaser func() cases.Caser) Func {
	return func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Undefined, fmt.Errorf("expects 1 argument, got %d", len(args))
		}
		c := newCaser()
		return String(c.String(args[0].String())), nil
	}
}

func mathFunc(name string, f func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		if err := arity(name, args, 1); err != nil {
			return Undefined, err
		}
		n, ok := args[0].toNumber()
		if !ok {
			return Undefined, fmt.Errorf("%s expects a number, got %s", name, args[0].Kind())
		}
		return Number(f(n)), nil
	}
}

func foldFunc(name string, f func(a, b float64) float64) Func {
	return func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Undefined, fmt.Errorf("%s expects at least 1 argument", name)
		}
		acc, ok := args[0].toNumber()
		if !ok {
			return Undefined, fmt.Errorf("%s expects numbers, got %s", name, args[0].Kind())
		}
		for _, a := range args[1:] {
			n, ok := a.toNumber()
			if !ok {
				return Undefined, fmt.Errorf("%s expects numbers, got %s", name, a.Kind())
			}
			acc = f(acc, n)
		}
		return Number(acc), nil
	}
}
