package model

// PriceRange is a min-max price pair sharing one currency symbol.
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// DiscountCalculationResult is the outcome of applying a coupon to one price.
// DiscountedPrice always equals OriginalPrice minus DiscountAmount.
type DiscountCalculationResult struct {
	OriginalPrice   float64 `json:"originalPrice"`
	DiscountedPrice float64 `json:"discountedPrice"`
	DiscountAmount  float64 `json:"discountAmount"`
	DiscountPercent float64 `json:"discountPercent"`
	IsDiscounted    bool    `json:"isDiscounted"`
	Savings         string  `json:"savings"`
}

// RangeDiscount summarizes the per-endpoint savings of a range discount.
type RangeDiscount struct {
	Percent    float64 `json:"percent"`
	MinSavings float64 `json:"minSavings"`
	MaxSavings float64 `json:"maxSavings"`
}

// DiscountedPriceRange is the outcome of applying a coupon to a price range.
// When IsDiscounted is false, Discounted equals Original and savings are zero.
type DiscountedPriceRange struct {
	Original     PriceRange    `json:"original"`
	Discounted   PriceRange    `json:"discounted"`
	Discount     RangeDiscount `json:"discount"`
	IsDiscounted bool          `json:"isDiscounted"`
}

// PriceQuoteRequest prices a single value against a stored coupon.
// Price takes precedence over PriceText when both are set.
type PriceQuoteRequest struct {
	Code      string   `json:"code" validate:"required,notblank,max=64"`
	Price     *float64 `json:"price"`
	PriceText string   `json:"priceText" validate:"max=64"`
}

// PriceQuoteResponse is the result of a single-price quote.
type PriceQuoteResponse struct {
	Code     string                    `json:"code"`
	Discount DiscountCalculationResult `json:"discount"`
	Badge    string                    `json:"badge"`
}

// RangeQuoteRequest prices a formatted range against a stored coupon.
type RangeQuoteRequest struct {
	Code  string `json:"code" validate:"required,notblank,max=64"`
	Range string `json:"range" validate:"required,notblank,max=128"`
}

// RangeQuoteResponse carries both the structured and display form of a range discount.
type RangeQuoteResponse struct {
	DiscountedPriceRange
	OriginalText   string `json:"originalText"`
	DiscountedText string `json:"discountedText"`
	Badge          string `json:"badge"`
}
