package deg

import "errors"

// Sentinel errors for the preconditions spec.md §7 classifies as
// "fail the operation; graph unchanged".
var (
	ErrDuplicateLabel    = errors.New("deg: label already exists")
	ErrUnknownLabel      = errors.New("deg: label not found")
	ErrDimensionMismatch = errors.New("deg: feature length does not match space data size")
	ErrGraphFull         = errors.New("deg: graph at capacity")
	ErrEdgeNotFound      = errors.New("deg: neighbor not present on vertex")
)

// InvariantError reports a corrupted-graph condition that spec.md §7
// classifies as fatal: "log and abort. These indicate graph corruption or
// programmer error and are not recoverable." A library cannot itself abort
// the process, so it logs at ERROR severity through the caller-supplied
// logger (see pkg/observability) and returns the error; the embedding
// application decides whether to terminate.
type InvariantError struct {
	Invariant string // e.g. "I1", "I2"
	Detail    string
}

func (e *InvariantError) Error() string {
	return "deg: invariant " + e.Invariant + " violated: " + e.Detail
}

func newInvariantError(invariant, detail string) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: detail}
}
