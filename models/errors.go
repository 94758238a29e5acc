package models

import "fmt"

// FailureKind tags why a generation run failed
type FailureKind int

const (
	FailurePlacementExhausted FailureKind = iota + 1
	FailureConnectionUnsatisfied
	FailureIllegalTransition
	FailureInvalidInput
	FailureContentAborted
)

func (k FailureKind) String() string {
	switch k {
	case FailurePlacementExhausted:
		return "placement exhausted"
	case FailureConnectionUnsatisfied:
		return "connection unsatisfied"
	case FailureIllegalTransition:
		return "illegal transition"
	case FailureInvalidInput:
		return "invalid input"
	case FailureContentAborted:
		return "content aborted"
	}
	return "generation failure"
}

// GenerationError is the single error type of the map generator.
// Match kinds with errors.Is against the sentinel values below.
type GenerationError struct {
	Kind FailureKind
	Msg  string
}

// Sentinels for errors.Is
var (
	ErrPlacementExhausted    = &GenerationError{Kind: FailurePlacementExhausted}
	ErrConnectionUnsatisfied = &GenerationError{Kind: FailureConnectionUnsatisfied}
	ErrIllegalTransition     = &GenerationError{Kind: FailureIllegalTransition}
	ErrInvalidInput          = &GenerationError{Kind: FailureInvalidInput}
	ErrContentAborted        = &GenerationError{Kind: FailureContentAborted}
)

// NewGenerationError builds a failure of the given kind
func NewGenerationError(kind FailureKind, format string, args ...interface{}) *GenerationError {
	return &GenerationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *GenerationError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is a GenerationError of the same kind
func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether rerunning with another seed may succeed
func (e *GenerationError) Retryable() bool {
	return e.Kind == FailurePlacementExhausted || e.Kind == FailureConnectionUnsatisfied
}
