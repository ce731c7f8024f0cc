// Package errs defines the core's internal error taxonomy.
//
// The pipeline never panics on bad input or transient resource pressure; it
// returns one of these kinds instead, following Go's errors.Is/errors.As
// idiom rather than a C-style sentinel-int esp_err_t.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure. Callers should test for a kind with
// Is(err, kind) below, not by inspecting Error.Kind directly.
type Kind int

const (
	// InvalidArgument means a caller passed nil or an out-of-range value.
	InvalidArgument Kind = iota
	// InvalidState means the lifecycle was used out of order.
	InvalidState
	// UnknownLayout means no layout row matched a raw CSI buffer.
	UnknownLayout
	// LayoutMismatch means a matched layout row does not fit the raw buffer
	// it was matched against.
	LayoutMismatch
	// BaselineNotReady means the gain normaliser has not yet seen 50 samples.
	BaselineNotReady
	// NoTrainingData means train_stop was called with no exemplars collected.
	NoTrainingData
	// NotInitialised means the requested data was never set up, e.g. an LTF
	// region that a FilteredFrame does not carry.
	NotInitialised
	// OutOfMemory means a bounded allocation retry loop gave up.
	OutOfMemory
	// PcaDivergence means power iteration did not converge within the
	// iteration budget.
	PcaDivergence
	// UnsafeGain means a force-gain request would leave the AGC at a level
	// that prevents packets from being sent out properly (agc <= 25).
	UnsafeGain
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case InvalidState:
		return "invalid_state"
	case UnknownLayout:
		return "unknown_layout"
	case LayoutMismatch:
		return "layout_mismatch"
	case BaselineNotReady:
		return "baseline_not_ready"
	case NoTrainingData:
		return "no_training_data"
	case NotInitialised:
		return "not_initialised"
	case OutOfMemory:
		return "out_of_memory"
	case PcaDivergence:
		return "pca_divergence"
	case UnsafeGain:
		return "unsafe_gain"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned throughout the pipeline.
type Error struct {
	Kind Kind
	Op   string // component/operation that produced the error, e.g. "layout.Classify"
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Kind is not itself an error, so errors.Is(err, SomeKind) does not apply;
// call sites use Is(err, kind) below instead.

// New constructs an *Error for the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
