package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireResult mirrors the JSON the vision models return. Amount arrives as
// either a bare number or a string depending on the model's mood, so it is
// captured raw and stringified afterwards.
type wireResult struct {
	Vendor     string          `json:"vendor"`
	Date       string          `json:"date"`
	Amount     json.RawMessage `json:"amount"`
	Category   string          `json:"category"`
	Currency   string          `json:"currency"`
	Confidence float64         `json:"confidence"`
}

// parseResultJSON parses the JSON response from a vision model into a Result.
// The field values stay raw text; normalization and validation happen in the
// expense package.
func parseResultJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var wire wireResult
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	result := &Result{
		Vendor:     strings.TrimSpace(wire.Vendor),
		Date:       strings.TrimSpace(wire.Date),
		Amount:     rawToString(wire.Amount),
		Category:   strings.TrimSpace(wire.Category),
		Currency:   strings.TrimSpace(wire.Currency),
		Confidence: wire.Confidence,
	}

	return result, nil
}

// rawToString turns a raw JSON value into its text form, stripping quotes
// from strings and dropping JSON null.
func rawToString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err == nil {
			return strings.TrimSpace(unquoted)
		}
	}
	return s
}
