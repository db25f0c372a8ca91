package expr

import "fmt"

// Error is returned for both malformed expressions and failures while
// evaluating them.
type Error struct {
	Expression string
	Offset     int // byte offset into Expression, -1 when unknown
	Msg        string
	Syntax     bool
}

func (e *Error) Error() string {
	kind := "runtime error"
	if e.Syntax {
		kind = "syntax error"
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %s", kind, e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s: %s", kind, e.Msg)
}

func syntaxErrorf(src string, offset int, format string, args ...any) *Error {
	return &Error{Expression: src, Offset: offset, Msg: fmt.Sprintf(format, args...), Syntax: true}
}

func runtimeErrorf(offset int, format string, args ...any) *Error {
	return &Error{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
