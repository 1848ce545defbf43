package mumcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConstructionError reports a fatal failure while building a
// BoundedSequence or a sparsesa.Index: truncated index files, a
// sequence too long for the chosen cell width, or an invalid option
// combination. Construction errors always abort the operation; §7
// requires the caller to surface them, not the core.
type ConstructionError struct {
	Op  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("mumcore: construction failed during %s: %s", e.Op, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// NewConstructionError wraps err with the operation that failed, using
// github.com/pkg/errors so the original call stack's context survives
// as the error is passed up through several layers (index load ->
// option validation -> pipeline setup).
func NewConstructionError(op string, err error) error {
	return &ConstructionError{Op: op, Err: errors.Wrap(err, op)}
}

// InputError reports a fatal failure locating a reference or query
// record, or a malformed on-disk header. Like ConstructionError, this
// always aborts; it is distinguished only so callers can tell "my
// index is broken" apart from "my input is broken".
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("mumcore: input failed during %s: %s", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func NewInputError(op string, err error) error {
	return &InputError{Op: op, Err: errors.Wrapf(err, "input: %s", op)}
}

// AssertInvariant panics if cond is false. It exists to mark the
// debug-only invariant checks called out in §7 and §8 (SA identity,
// LCP bounds, alignment-validates-matches): firing one is a bug
// report, not a recoverable condition, so it is never wrapped as an
// error.
func AssertInvariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("mumcore: invariant violated: "+format, args...))
	}
}
