package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/coupon-discount-engine/internal/model"
)

func TestExtractSinglePrice(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  float64
	}{
		{"rupee_two_decimals", "₹300.00", 300},
		{"thousands_separator", "₹1,234.56", 1234.56},
		{"no_symbol", "49.99", 49.99},
		{"integer", "₹75", 75},
		{"first_token_wins", "₹100.00 - ₹200.00", 100},
		{"negative", "₹-5.25", -5.25},
		{"leading_dot", "₹.50", 0.5},
		{"surrounding_text", "Now only ₹89.10!", 89.1},
		{"empty", "", 0},
		{"no_number", "Free", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractSinglePrice(tc.input))
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "₹30.00", FormatPrice(30, "₹"))
	assert.Equal(t, "₹1234.50", FormatPrice(1234.5, "₹"), "no thousands separators")
	assert.Equal(t, "$0.10", FormatPrice(0.1, "$"))
	assert.Equal(t, "₹19.99", FormatPrice(19.99, ""), "empty currency uses default")
	assert.Equal(t, "₹2.35", FormatPrice(2.345, "₹"), "rounds to two decimals")
}

func TestFormatPrice_ExtractSinglePrice_RoundTrip(t *testing.T) {
	values := []float64{0, 0.01, 0.1, 1, 9.99, 30, 100.5, 270, 1234.56, 99999.99, -12.34}
	for _, v := range values {
		assert.Equal(t, v, ExtractSinglePrice(FormatPrice(v, DefaultCurrency)), "round trip for %v", v)
	}
}

func TestExtractPriceRange(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  model.PriceRange
	}{
		{
			name:  "standard",
			input: "₹100.00 - ₹200.00",
			want:  model.PriceRange{Min: 100, Max: 200, Currency: "₹"},
		},
		{
			name:  "dollar",
			input: "$5.50 - $7.25",
			want:  model.PriceRange{Min: 5.5, Max: 7.25, Currency: "$"},
		},
		{
			name:  "unpadded_dash",
			input: "₹100-₹200",
			want:  model.PriceRange{Min: 100, Max: 200, Currency: "₹"},
		},
		{
			name:  "en_dash",
			input: "₹1,000.00 – ₹2,500.00",
			want:  model.PriceRange{Min: 1000, Max: 2500, Currency: "₹"},
		},
		{
			name:  "single_price_degenerates",
			input: "₹150.00",
			want:  model.PriceRange{Min: 150, Max: 150, Currency: "₹"},
		},
		{
			name:  "garbage",
			input: "call for price",
			want:  model.PriceRange{Min: 0, Max: 0, Currency: "₹"},
		},
		{
			name:  "missing_max",
			input: "₹100.00 - ",
			want:  model.PriceRange{Min: 100, Max: 0, Currency: "₹"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractPriceRange(tc.input))
		})
	}
}

func TestFormatPriceRange_RoundTrip(t *testing.T) {
	inputs := []string{"₹100.00 - ₹200.00", "₹80.00 - ₹160.00", "$0.99 - $1.99"}
	for _, in := range inputs {
		assert.Equal(t, in, FormatPriceRange(ExtractPriceRange(in)))
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "₹", DetectCurrency("₹10"))
	assert.Equal(t, "€", DetectCurrency("  € 10"))
	assert.Equal(t, "₹", DetectCurrency("₹-5.00"))
	assert.Equal(t, DefaultCurrency, DetectCurrency("10.00"))
	assert.Equal(t, DefaultCurrency, DetectCurrency("n/a"))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33.33, Round(33.333333))
	assert.Equal(t, 0.3, Round(0.1+0.2))
	assert.Equal(t, 2.35, Round(2.345))
}
