// Package eco implements the logical/physical coherence operators:
// disconnect, connect, create_cell, remove_cell
// and create_net, plus the deferred site-pin removal bookkeeping and
// intra-site routing helpers they share.
package eco

import "errors"

// Sentinel error kinds: the four error classes the core
// distinguishes, surfaced as plain errors with %w-wrapping rather
// than a custom error-handling framework.
var (
	// ErrInvalidInput: hierarchical pin/cell not found, unknown net.
	ErrInvalidInput = errors.New("eco: invalid input")

	// ErrPolicyRefusal: shared site-pin carrying a different parent net,
	// or an attempt to add a second source to a non-static net.
	ErrPolicyRefusal = errors.New("eco: policy refusal")

	// ErrStructuralInconsistency: the core refuses to patch a corrupt
	// physical net; surfaced instead of silently continuing.
	ErrStructuralInconsistency = errors.New("eco: structural inconsistency")

	// ErrMissingPhysicalCell: a referenced leaf pin has no placed
	// physical cell backing it.
	ErrMissingPhysicalCell = errors.New("eco: missing physical cell")
)
