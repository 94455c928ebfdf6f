package entity

import "github.com/shopspring/decimal"

// TokenHolding is a balance joined with its price quote.
type TokenHolding struct {
	Balance Balance     `json:"balance"`
	Quote   *PriceQuote `json:"quote,omitempty"`
	Value   float64     `json:"valueUSD"`
}

// NewTokenHolding computes value = amount * price, or 0 when there is no quote.
func NewTokenHolding(b Balance, q *PriceQuote) TokenHolding {
	h := TokenHolding{Balance: b, Quote: q}
	if q != nil {
		h.Value = b.HumanAmount.Mul(decimal.NewFromFloat(q.Price)).InexactFloat64()
	}
	return h
}

// HasRealPrice is true when a quote exists and is not an emergency placeholder.
func (h TokenHolding) HasRealPrice() bool {
	return h.Quote != nil && h.Quote.IsReal()
}
