package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunc:
		return "function"
	default:
		return "unknown"
	}
}

// Func is a callable exposed to expressions, either a built-in or a binding
// supplied by the environment (goToScene, reset, ...).
type Func func(args []Value) (Value, error)

// Value is a dynamically typed expression value. The zero Value is undefined.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	fn   Func
}

// Undefined is the value of an identifier missing from the environment.
var Undefined = Value{}

// Null is the explicit null literal.
var Null = Value{kind: KindNull}

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Function(f Func) Value  { return Value{kind: KindFunc, fn: f} }

func (v Value) Kind() Kind         { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// Num returns the number held by v and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the string held by v and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Boolean returns the bool held by v and whether v is a bool.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Truthy applies JavaScript truthiness: 0, NaN, "", null, undefined and false
// are falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	case KindFunc:
		return true
	default:
		return false
	}
}

// String renders v the way JavaScript's String() would.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindFunc:
		return "function"
	default:
		return "undefined"
	}
}

// GoString makes test failure output readable.
func (v Value) GoString() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	return v.String()
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == math.Trunc(n) && math.Abs(n) < 1e21:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}

// toNumber coerces v for arithmetic. Undefined reads as NaN and null as 0.
// ok is false when v has no numeric reading.
func (v Value) toNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindUndefined:
		return math.NaN(), true
	case KindNull:
		return 0, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		s := strings.TrimSpace(v.str)
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), false
		}
		return n, true
	default:
		return math.NaN(), false
	}
}

// Equal reports strict equality; undefined and null are equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		nullish := func(k Kind) bool { return k == KindNull || k == KindUndefined }
		return nullish(v.kind) && nullish(o.kind)
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindFunc:
		return false
	default:
		return true
	}
}

// FromAny converts a decoded JSON/YAML scalar into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Undefined, err
		}
		return Number(n), nil
	default:
		return Undefined, fmt.Errorf("unsupported value type %T", x)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	val, err := FromAny(x)
	if err != nil {
		return err
	}
	*v = val
	return nil
}
