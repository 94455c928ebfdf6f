package port

import (
	"context"

	"nadfolio/internal/domain/entity"
)

// BalanceFetcher reads every tracked balance of a wallet.
type BalanceFetcher interface {
	// GetBalances returns native and non-zero token balances. Only
	// entity.ErrRPCUnavailable is reported as an error; other failures degrade.
	GetBalances(ctx context.Context, wallet string) ([]entity.Balance, error)
}

// NFTResolver lists and values a wallet's NFT collections.
type NFTResolver interface {
	GetUserCollections(ctx context.Context, wallet string) ([]entity.NFTCollection, error)
}

// PortfolioService builds a full valuation snapshot.
type PortfolioService interface {
	BuildPortfolio(ctx context.Context, wallet string) (*entity.PortfolioSnapshot, error)
}
