package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed spending categories
type Category string

const (
	CategoryFoodDining     Category = "food_dining"
	CategoryGroceries      Category = "groceries"
	CategoryAirTravel      Category = "air_travel"
	CategoryRideshare      Category = "rideshare"
	CategoryHotel          Category = "hotel"
	CategoryShopping       Category = "shopping"
	CategoryUtilities      Category = "utilities"
	CategoryEntertainment  Category = "entertainment"
	CategoryOfficeSupplies Category = "office_supplies"
	CategoryHealthcare     Category = "healthcare"
	CategoryFuelParking    Category = "fuel_parking"

	// CategoryUncategorized is the fallback when nothing matches
	CategoryUncategorized Category = "uncategorized"
)

// Categories lists every valid category, fallback included, in a stable order
var Categories = []Category{
	CategoryFoodDining,
	CategoryGroceries,
	CategoryAirTravel,
	CategoryRideshare,
	CategoryHotel,
	CategoryShopping,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryOfficeSupplies,
	CategoryHealthcare,
	CategoryFuelParking,
	CategoryUncategorized,
}

// ParseCategory matches free text against the category enumeration,
// case-insensitively and tolerant of spaces, hyphens and ampersands.
// Anything that does not match resolves to CategoryUncategorized.
func ParseCategory(s string) Category {
	key := normalizeCategoryKey(s)
	for _, c := range Categories {
		if key == string(c) {
			return c
		}
	}
	return CategoryUncategorized
}

// normalizeCategoryKey lowercases and squashes separators so that
// "Office Supplies", "office-supplies" and "office_supplies" all compare equal
func normalizeCategoryKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Source tracks whether a human has overridden the extracted output
type Source string

const (
	SourceExtracted Source = "extracted"
	SourceCorrected Source = "corrected"
)

// supportedCurrencies are the currency codes the validator accepts
var supportedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"INR": true,
	"JPY": true,
	"CHF": true,
}

// SupportedCurrency reports whether code is an accepted currency code
func SupportedCurrency(code string) bool {
	return supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
}

// Record is the durable expense unit extracted from one receipt image
type Record struct {
	ID        string          `json:"id"`
	ImageRef  string          `json:"image_ref,omitempty"`
	Vendor    string          `json:"vendor"`
	Date      time.Time       `json:"date"` // calendar date, midnight UTC
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Category  Category        `json:"category"`
	Source    Source          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"` // changes only on correction
	Version   int             `json:"version"`    // bumped on every applied write
}

// Month returns the record's date bucket in YYYY-MM form
func (r *Record) Month() string {
	return r.Date.Format("2006-01")
}
