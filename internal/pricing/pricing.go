// Package pricing converts between currency-formatted display strings and
// numeric prices. All functions are pure and never fail: malformed input
// degrades to 0 or a best-effort partial parse.
package pricing

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
)

// DefaultCurrency is the symbol used when none is given or detected.
const DefaultCurrency = "₹"

// rangeSeparator is the padded " - ", the range form rendered by FormatPriceRange.
const rangeSeparator = " - "

var (
	numberPattern = regexp.MustCompile(`-?(?:\d+(?:\.\d+)?|\.\d+)`)
	// A dash only separates a range when a digit precedes it.
	dashPattern = regexp.MustCompile(`\d\s*([-–—])\s*`)
)

// ExtractSinglePrice parses the first numeric token of text after stripping
// thousands separators. It returns 0 when no numeric token is present, so a
// 0 result is a valid but possibly wrong value rather than an error sentinel.
func ExtractSinglePrice(text string) float64 {
	cleaned := strings.ReplaceAll(text, ",", "")
	token := numberPattern.FindString(cleaned)
	if token == "" {
		return 0
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// FormatPrice renders value fixed to two decimals behind the currency symbol,
// without thousands separators. An empty currency falls back to DefaultCurrency.
func FormatPrice(value float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return currency + toDecimal(value).StringFixed(2)
}

// ExtractPriceRange parses "<currency><min> - <currency><max>". Each side is
// parsed with ExtractSinglePrice. Text without a range separator yields a
// degenerate range where min equals max.
func ExtractPriceRange(text string) model.PriceRange {
	currency := DetectCurrency(text)

	loc := dashPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		price := ExtractSinglePrice(text)
		return model.PriceRange{Min: price, Max: price, Currency: currency}
	}

	// loc[2]:loc[3] is the dash itself; the leading digit belongs to the left side.
	left := text[:loc[2]]
	right := text[loc[3]:]
	return model.PriceRange{
		Min:      ExtractSinglePrice(left),
		Max:      ExtractSinglePrice(right),
		Currency: currency,
	}
}

// FormatPriceRange is the inverse of ExtractPriceRange.
func FormatPriceRange(r model.PriceRange) string {
	return FormatPrice(r.Min, r.Currency) + rangeSeparator + FormatPrice(r.Max, r.Currency)
}

// DetectCurrency returns the symbol preceding the first digit of text, or
// DefaultCurrency when there is none.
func DetectCurrency(text string) string {
	trimmed := strings.TrimSpace(text)
	end := strings.IndexFunc(trimmed, unicode.IsDigit)
	if end < 0 {
		return DefaultCurrency
	}
	symbol := strings.TrimSpace(strings.TrimRight(trimmed[:end], "- "))
	if symbol == "" {
		return DefaultCurrency
	}
	return symbol
}

// Round rounds value half away from zero to two decimals.
func Round(value float64) float64 {
	return toDecimal(value).Round(2).InexactFloat64()
}

// toDecimal converts value, mapping NaN and infinities to zero.
func toDecimal(value float64) decimal.Decimal {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(value)
}
