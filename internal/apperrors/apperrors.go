// Package apperrors holds the sentinel error taxonomy shared across
// components, checked with errors.Is at package boundaries and mapped onto
// JSON-RPC error codes at the tool-server boundary.
package apperrors

import "errors"

// JSON-RPC 2.0 error codes these sentinels map onto at the tool-server
// boundary (§4.9, §7). Defined here (not in internal/toolserver) so every
// component that returns a typed error can be mapped without importing the
// tool server.
const (
	CodeInvalidParams = -32602
	CodeInternalError = -32603
)

var (
	// ErrNotConnected indicates the graph store has no live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrQueryFailed indicates a graph query failed to execute.
	ErrQueryFailed = errors.New("query failed")
	// ErrSerializationFailed indicates a record could not be encoded or decoded.
	ErrSerializationFailed = errors.New("serialization failed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a caller-fixable state conflict (duplicate name,
	// illegal reference).
	ErrConflict = errors.New("conflict")
	// ErrInvariantViolation indicates an internal invariant was about to be
	// broken (illegal state transition, TTL arithmetic underflow). The
	// operation is refused rather than corrupting state.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidArgument indicates caller-supplied input failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueueFull indicates the pending-signal queue has exceeded its hard
	// cap; the caller must surface this but must not retry automatically.
	ErrQueueFull = errors.New("pending signal queue full")
	// ErrNotEligible indicates a domain lacks enough data (patterns,
	// calibration history) for the requested derived artifact to be
	// generated; this is a normal "nothing to do yet" outcome, not a
	// failure.
	ErrNotEligible = errors.New("not eligible")
)

// Code maps a component error onto a JSON-RPC 2.0 error code per §7's error
// taxonomy. ErrInvalidArgument is the only validation-shaped sentinel
// (caller should fix and retry, -32602); everything else reaching this
// boundary is an internal error (-32603) even when the underlying cause
// (not found, conflict, not connected) is caller-fixable, since §7 assigns
// all of them the same JSON-RPC code and differentiates by message text.
func Code(err error) int {
	if errors.Is(err, ErrInvalidArgument) {
		return CodeInvalidParams
	}
	return CodeInternalError
}
