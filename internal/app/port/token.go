package port

import (
	"context"

	"nadfolio/internal/domain/entity"
)

// TokenProvider returns the static token table.
type TokenProvider interface {
	GetTokens() ([]entity.Token, error)
}

// PriceRequest identifies the token a price is wanted for.
type PriceRequest struct {
	Symbol   string
	Address  string
	Decimals uint8
	IsNative bool
}

// PriceRequestFor builds a PriceRequest from a token definition.
func PriceRequestFor(t entity.Token) PriceRequest {
	return PriceRequest{Symbol: t.Symbol, Address: t.Address, Decimals: t.Decimals, IsNative: t.IsNative}
}

// PriceSource is one pricing tier. A tier that can not price the token
// returns an error or a quote with a non-positive price; both count as a miss.
type PriceSource interface {
	Name() string
	Source() entity.PriceSource
	Attempt(ctx context.Context, req PriceRequest) (entity.PriceQuote, error)
}

// PriceResolver turns tokens into USD quotes. It never fails: the last tier is total.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, req PriceRequest) entity.PriceQuote
	// ResolveMany prices a set of tokens, keyed by lower-cased symbol.
	ResolveMany(ctx context.Context, reqs []PriceRequest) map[string]entity.PriceQuote
}
