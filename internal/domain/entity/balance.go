package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Balance is the amount of a token held by a wallet.
type Balance struct {
	Token       Token           `json:"token"`
	RawAmount   *big.Int        `json:"-"`
	HumanAmount decimal.Decimal `json:"amount"`
	// Error is set when the read degraded, e.g. the native balance could not be fetched.
	Error string `json:"error,omitempty"`
}

// NewBalance builds a Balance and derives the human amount as raw / 10^decimals.
func NewBalance(token Token, raw *big.Int) Balance {
	if raw == nil {
		raw = new(big.Int)
	}
	return Balance{
		Token:       token,
		RawAmount:   raw,
		HumanAmount: HumanAmount(raw, token.Decimals),
	}
}

// HumanAmount converts an integer amount in the token's smallest unit.
func HumanAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// IsZero reports whether the wallet holds nothing of this token.
func (b Balance) IsZero() bool {
	return b.RawAmount == nil || b.RawAmount.Sign() == 0
}
