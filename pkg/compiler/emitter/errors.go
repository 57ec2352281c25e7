package emitter

import (
	"errors"
	"fmt"
)

var (
	ErrMissingElse     = errors.New("conditional in value position has no else branch")
	ErrNoValue         = errors.New("statement has no value")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnsupportedNode = errors.New("unsupported node")
	ErrMalformedNode   = errors.New("malformed node")
)

// CompileError aborts a compilation. Err is one of the sentinels above or
// a vm label error.
type CompileError struct {
	Line int
	Err  error
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("compile error: %v", e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
