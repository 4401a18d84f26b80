package expense

import "errors"

// Failure taxonomy. Lower layers wrap these with context via fmt.Errorf
// and %w; the HTTP boundary discriminates with errors.Is so each kind gets
// its own user-visible message and status.
var (
	// ErrExtractionFailed covers the external vision service being
	// unreachable, timing out, or returning a malformed response.
	// Recoverable by retrying the upload; never retried silently because
	// every call costs money.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoUsableAmount is the validator's single failure mode: no
	// non-negative decimal amount could be derived. Terminal for the
	// upload; the stored image is retained so the user can retry.
	ErrNoUsableAmount = errors.New("no usable amount")

	// ErrNotFound is returned for reads or corrections against an unknown
	// record id.
	ErrNotFound = errors.New("expense not found")

	// ErrStoreUnavailable wraps persistence layer failures. Always
	// surfaced; an expense silently disappearing is a data-loss bug.
	ErrStoreUnavailable = errors.New("expense store unavailable")
)
