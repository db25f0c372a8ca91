package expr

import (
	"errors"
	"math"
	"strings"
)

// Env is the variable environment expressions read from and assign into.
// Get reports false for names that are not defined; Set may refuse a write
// (for example a read-only field) by returning an error.
type Env interface {
	Get(name string) (Value, bool)
	Set(name string, v Value) error
}

// MapEnv is the simplest Env: a flat map of variables.
type MapEnv map[string]Value

func (m MapEnv) Get(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapEnv) Set(name string, v Value) error {
	m[name] = v
	return nil
}

// Evaluate parses and evaluates expression against env. Statements separated
// by ';' run left to right and the value of the last one is returned.
// Identifiers missing from env evaluate to Undefined.
func Evaluate(expression string, env Env) (Value, error) {
	n, err := parse(expression)
	if err != nil {
		return Undefined, err
	}
	v, err := eval(n, env)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Expression == "" {
			e.Expression = expression
		}
		return Undefined, err
	}
	return v, nil
}

// Check reports a syntax error in expression without evaluating it.
func Check(expression string) error {
	_, err := parse(expression)
	return err
}

// EvaluateAll conjoins every expression into a single "(a)and(b)" expression
// and evaluates it once.
func EvaluateAll(expressions []string, env Env) (Value, error) {
	return Evaluate(Conjoin(expressions), env)
}

// Conjoin builds the combined guard expression used by EvaluateAll.
func Conjoin(expressions []string) string {
	parts := make([]string, len(expressions))
	for i, e := range expressions {
		parts[i] = "(" + e + ")"
	}
	return strings.Join(parts, "and")
}

func eval(n node, env Env) (Value, error) {
	switch n := n.(type) {
	case *literalNode:
		return n.val, nil
	case *identNode:
		if v, ok := env.Get(n.name); ok {
			return v, nil
		}
		if fn, ok := builtins[n.name]; ok {
			return Function(fn), nil
		}
		return Undefined, nil
	case *sequenceNode:
		var last Value
		for _, item := range n.items {
			v, err := eval(item, env)
			if err != nil {
				return Undefined, err
			}
			last = v
		}
		return last, nil
	case *assignNode:
		v, err := eval(n.value, env)
		if err != nil {
			return Undefined, err
		}
		if err := env.Set(n.name, v); err != nil {
			return Undefined, runtimeErrorf(n.at, "cannot assign %s: %v", n.name, err)
		}
		return v, nil
	case *ternaryNode:
		cond, err := eval(n.cond, env)
		if err != nil {
			return Undefined, err
		}
		if cond.Truthy() {
			return eval(n.then, env)
		}
		return eval(n.other, env)
	case *unaryNode:
		return evalUnary(n, env)
	case *binaryNode:
		return evalBinary(n, env)
	case *callNode:
		return evalCall(n, env)
	default:
		return Undefined, runtimeErrorf(n.pos(), "unknown expression node %T", n)
	}
}

func evalUnary(n *unaryNode, env Env) (Value, error) {
	v, err := eval(n.operand, env)
	if err != nil {
		return Undefined, err
	}
	switch n.op {
	case "not":
		return Bool(!v.Truthy()), nil
	case "-", "+":
		f, ok := v.toNumber()
		if !ok {
			return Undefined, runtimeErrorf(n.at, "invalid operand for unary %s: %s", n.op, v.Kind())
		}
		if n.op == "-" {
			f = -f
		}
		return Number(f), nil
	default:
		return Undefined, runtimeErrorf(n.at, "unknown unary operator %q", n.op)
	}
}

func evalBinary(n *binaryNode, env Env) (Value, error) {
	left, err := eval(n.left, env)
	if err != nil {
		return Undefined, err
	}

	switch n.op {
	case "and", "&&":
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := eval(n.right, env)
		if err != nil {
			return Undefined, err
		}
		return Bool(right.Truthy()), nil
	case "or":
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := eval(n.right, env)
		if err != nil {
			return Undefined, err
		}
		return Bool(right.Truthy()), nil
	case "||":
		// Two strings concatenate; anything else is a logical or.
		if left.Kind() != KindString && left.Truthy() {
			return Bool(true), nil
		}
		right, err := eval(n.right, env)
		if err != nil {
			return Undefined, err
		}
		if left.Kind() == KindString && right.Kind() == KindString {
			return String(left.str + right.str), nil
		}
		return Bool(left.Truthy() || right.Truthy()), nil
	}

	right, err := eval(n.right, env)
	if err != nil {
		return Undefined, err
	}

	switch n.op {
	case "==":
		return Bool(left.Equal(right)), nil
	case "!=":
		return Bool(!left.Equal(right)), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, left, right), nil
	case "+":
		if left.Kind() == KindString || right.Kind() == KindString {
			return String(left.String() + right.String()), nil
		}
		return arithmetic(n, left, right)
	case "-", "*", "/", "%":
		return arithmetic(n, left, right)
	default:
		return Undefined, runtimeErrorf(n.at, "unknown operator %q", n.op)
	}
}

func compare(op string, left, right Value) Value {
	if left.Kind() == KindString && right.Kind() == KindString {
		c := strings.Compare(left.str, right.str)
		switch op {
		case "<":
			return Bool(c < 0)
		case "<=":
			return Bool(c <= 0)
		case ">":
			return Bool(c > 0)
		default:
			return Bool(c >= 0)
		}
	}
	// Operands without a numeric reading become NaN, which compares false.
	a, _ := left.toNumber()
	b, _ := right.toNumber()
	switch op {
	case "<":
		return Bool(a < b)
	case "<=":
		return Bool(a <= b)
	case ">":
		return Bool(a > b)
	default:
		return Bool(a >= b)
	}
}

func arithmetic(n *binaryNode, left, right Value) (Value, error) {
	a, ok := left.toNumber()
	if !ok {
		return Undefined, runtimeErrorf(n.at, "invalid left operand for %s: %s %s", n.op, left.Kind(), left.GoString())
	}
	b, ok := right.toNumber()
	if !ok {
		return Undefined, runtimeErrorf(n.at, "invalid right operand for %s: %s %s", n.op, right.Kind(), right.GoString())
	}
	switch n.op {
	case "+":
		return Number(a + b), nil
	case "-":
		return Number(a - b), nil
	case "*":
		return Number(a * b), nil
	case "/":
		return Number(a / b), nil
	default:
		return Number(math.Mod(a, b)), nil
	}
}

func evalCall(n *callNode, env Env) (Value, error) {
	callee, ok := env.Get(n.name)
	if !ok {
		if fn, found := builtins[n.name]; found {
			callee = Function(fn)
		}
	}
	if callee.Kind() != KindFunc {
		return Undefined, runtimeErrorf(n.at, "%s is not a function", n.name)
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		v, err := eval(a, env)
		if err != nil {
			return Undefined, err
		}
		args[i] = v
	}
	v, err := callee.fn(args)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return Undefined, err
		}
		return Undefined, runtimeErrorf(n.at, "%s: %v", n.name, err)
	}
	return v, nil
}
