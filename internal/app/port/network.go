package port

import (
	"context"
	"math/big"

	"nadfolio/internal/domain/entity"
)

// ChainReader is the read-only view of the chain used by the pipeline.
// Implementations own endpoint failover; every method honours ctx.
type ChainReader interface {
	// BlockNumber is used as a liveness check.
	BlockNumber(ctx context.Context) (uint64, error)

	// NativeBalance returns the wallet's balance of the chain's native asset in wei.
	NativeBalance(ctx context.Context, wallet string) (*big.Int, error)

	// TokenBalance calls ERC-20 balanceOf(wallet) on token.
	TokenBalance(ctx context.Context, token, wallet string) (*big.Int, error)

	// AmountsOut calls getAmountsOut(tokenIn, tokenOut, amountIn) on a swap router.
	AmountsOut(ctx context.Context, router, tokenIn, tokenOut string, amountIn *big.Int) ([]*big.Int, error)

	// TokenOfOwnerByIndex calls ERC-721 tokenOfOwnerByIndex(owner, index) on collection.
	TokenOfOwnerByIndex(ctx context.Context, collection, owner string, index int64) (*big.Int, error)
}

// NetworkDefinitionProvider exposes the tracked network.
type NetworkDefinitionProvider interface {
	Tracked() entity.NetworkDefinition
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}
