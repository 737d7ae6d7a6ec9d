package lexparse

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCapacity is matched by every deliberate refusal to build a chart
	ErrCapacity = errors.New("chart capacity exceeded")

	// ErrOutOfMemory means the runtime could not satisfy a table allocation
	// that passed the capacity check
	ErrOutOfMemory = errors.New("out of memory while allocating chart")

	// ErrInterrupted is returned when the context given to Parse is done
	ErrInterrupted = errors.New("parse interrupted")

	// ErrNotImplemented is returned by every alternate-parse operation
	ErrNotImplemented = errors.New("not implemented: only the single best parse is supported")

	// ErrSumInsideDisabled is returned by SumScore when summed inside scores
	// were not computed
	ErrSumInsideDisabled = errors.New("summed inside scores not computed: enable Config.SumInside")

	// ErrSumInsideNotComputed is returned by SumScore when no parse has
	// completed since the last Parse call
	ErrSumInsideNotComputed = errors.New("summed inside scores not computed: no completed parse")

	ErrNilOracle     = errors.New("lexicon and grammar oracles are required")
	ErrInvalidConfig = errors.New("invalid parser config")
)

// CapacityError describes a chart the parser refused to allocate. The refusal
// is a policy decision taken before any allocation
type CapacityError struct {
	Length    int
	MaxLength int
	Bytes     uint64
	MaxBytes  uint64
}

func (e *CapacityError) Error() string {
	if e.MaxLength > 0 && e.Length > e.MaxLength {
		return fmt.Sprintf(
			"refusing to parse %d-token sentence: max length is %d (deliberate capacity limit, not a platform out-of-memory)",
			e.Length, e.MaxLength)
	}
	return fmt.Sprintf(
		"refusing to allocate %d bytes of chart for %d-token sentence: limit is %d bytes (deliberate capacity limit, not a platform out-of-memory)",
		e.Bytes, e.Length, e.MaxBytes)
}

// Is makes errors.Is(err, ErrCapacity) hold for a *CapacityError
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// interruptError carries the context error that stopped a parse
type interruptError struct {
	cause error
}

func (e *interruptError) Error() string {
	return ErrInterrupted.Error() + ": " + e.cause.Error()
}

func (e *interruptError) Is(target error) bool {
	return target == ErrInterrupted
}

func (e *interruptError) Unwrap() error {
	return e.cause
}
