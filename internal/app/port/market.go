package port

import (
	"context"

	dex_types "nadfolio/internal/entity"
)

// CoinGeckoClient reads spot prices from CoinGecko.
type CoinGeckoClient interface {
	// SimplePrice returns price per coin id in vsCurrency. Ids missing upstream are absent from the map.
	SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error)
}

// DEXScreenerClient reads trading pairs from DEX Screener.
type DEXScreenerClient interface {
	GetTokenPairsByAddresses(ctx context.Context, chainID string, tokenAddresses []string) ([]dex_types.PairData, error)
}
