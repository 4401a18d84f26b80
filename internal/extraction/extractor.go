package extraction

import "context"

// Result contains the raw field guesses extracted from one receipt image.
// Every field is the untouched text the vision model produced; nothing here
// has been validated or normalized. Results are consumed by the expense
// validator and then discarded, never persisted.
type Result struct {
	Vendor     string  `json:"vendor"`
	Date       string  `json:"date"`
	Amount     string  `json:"amount"`
	Category   string  `json:"category"`
	Currency   string  `json:"currency"`
	Confidence float64 `json:"confidence"`
}

// Extractor defines the interface for receipt extraction providers
type Extractor interface {
	// Extract analyzes a receipt image/PDF and returns the raw field guesses.
	// Exactly one outbound call is made per invocation; callers decide retry
	// policy. The call is bounded by the provider's configured timeout and
	// honors ctx cancellation.
	Extract(ctx context.Context, imageData []byte, contentType string) (*Result, error)
	// Close closes the extractor and releases resources
	Close() error
}
