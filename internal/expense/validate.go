package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/expensesnap/internal/extraction"
)

// Validator maps a raw extraction result onto a Record candidate. It is a
// pure mapping with one failure mode: no usable amount. Every other field
// has a safe fallback.
type Validator struct {
	DefaultCurrency string
}

// Candidate builds an unpersisted Record from the extraction result. now is
// the ingestion timestamp, used as the date fallback. ID, ImageRef and the
// created/updated timestamps are the caller's to fill in.
func (v Validator) Candidate(result *extraction.Result, now time.Time) (*Record, error) {
	amount, err := ParseAmount(result.Amount)
	if err != nil {
		return nil, err
	}

	date, ok := ParseDate(result.Date)
	if !ok {
		date = DateOf(now)
	}

	return &Record{
		Vendor:   strings.TrimSpace(result.Vendor),
		Date:     date,
		Amount:   amount,
		Currency: v.currency(result.Currency),
		Category: ParseCategory(result.Category),
		Source:   SourceExtracted,
	}, nil
}

func (v Validator) currency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if supportedCurrencies[code] {
		return code
	}
	return v.DefaultCurrency
}

// ParseAmount parses monetary text into a non-negative decimal with two
// decimal places. It tolerates currency symbols, currency codes, thousands
// separators and comma decimal marks ("$12.50", "USD 9.99", "12,50",
// "1.234,56"). Anything that does not resolve to a non-negative decimal is
// an ErrNoUsableAmount; amounts are never silently coerced to zero.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrNoUsableAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	// Keep digits and separators, dropping symbols and currency codes
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-':
			negative = true
		}
	}
	s = b.String()
	if strings.Trim(s, ".,") == "" {
		return decimal.Zero, fmt.Errorf("%w: no digits in %q", ErrNoUsableAmount, text)
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// European style: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US style: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// A single comma followed by at most two digits is a decimal mark
		// (12,50); anything else is a thousands separator (1,234)
		if strings.Count(s, ",") == 1 && len(s)-comma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: parsing %q", ErrNoUsableAmount, text)
	}
	if negative || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %q", ErrNoUsableAmount, text)
	}
	return d.Round(2), nil
}

// dateFormats are tried in order when parsing extracted date text
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses common receipt date formats into a midnight-UTC calendar
// date. Reports false when nothing matches; the caller picks the fallback.
func ParseDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return DateOf(d), true
		}
	}
	return time.Time{}, false
}

// DateOf truncates a timestamp to its midnight-UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
