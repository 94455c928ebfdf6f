package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/pkg/batch"
	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/retry"
)

// BalanceFetcherOptions tunes RPC pacing for balance reads.
type BalanceFetcherOptions struct {
	BatchSize   int
	BatchDelay  time.Duration
	CallTimeout time.Duration
	NativeRetry retry.Policy
}

// BalanceFetcher reads the native balance and every ERC-20 balance of a wallet.
type BalanceFetcher struct {
	chain   port.ChainReader
	tokens  port.TokenProvider
	network entity.NetworkDefinition
	clock   clock.Clock
	logger  port.Logger
	opts    BalanceFetcherOptions
}

// NewBalanceFetcher creates a BalanceFetcher for the given network.
func NewBalanceFetcher(chain port.ChainReader, tokens port.TokenProvider, network entity.NetworkDefinition, clk clock.Clock, logger port.Logger, opts BalanceFetcherOptions) *BalanceFetcher {
	return &BalanceFetcher{chain: chain, tokens: tokens, network: network, clock: clk, logger: logger, opts: opts}
}

// GetBalances implements port.BalanceFetcher. The native balance is always
// present (0 with Error set when it could not be read); tokens with a zero or
// unreadable balance are omitted.
func (f *BalanceFetcher) GetBalances(ctx context.Context, wallet string) ([]entity.Balance, error) {
	if err := entity.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	tokens, err := f.tokens.GetTokens()
	if err != nil {
		return nil, fmt.Errorf("failed to load token list: %w", err)
	}

	nativeToken, erc20 := f.splitTokens(tokens)

	native, err := f.nativeBalance(ctx, nativeToken, wallet)
	if err != nil {
		return nil, err
	}
	balances := []entity.Balance{native}

	outcomes := batch.Process(ctx, erc20, f.opts.BatchSize, f.opts.BatchDelay, f.clock,
		func(ctx context.Context, token entity.Token) (*big.Int, error) {
			callCtx, cancel := f.callContext(ctx)
			defer cancel()
			return f.chain.TokenBalance(callCtx, token.Address, wallet)
		})

	for _, o := range outcomes {
		if !o.OK() {
			if errors.Is(o.Err, entity.ErrRPCUnavailable) {
				return nil, o.Err
			}
			f.logger.Warn("Failed to read token balance, skipping", "wallet", wallet, "token", o.Item.Symbol, "error", o.Err)
			continue
		}
		b := entity.NewBalance(o.Item, o.Value)
		if b.IsZero() {
			continue
		}
		balances = append(balances, b)
	}

	f.logger.Debug("Balances fetched", "wallet", wallet, "tokens", len(erc20), "nonZero", len(balances)-1)
	return balances, nil
}

func (f *BalanceFetcher) nativeBalance(ctx context.Context, token entity.Token, wallet string) (entity.Balance, error) {
	var raw *big.Int
	err := f.opts.NativeRetry.Do(ctx, f.clock,
		func(err error) bool { return !errors.Is(err, entity.ErrRPCUnavailable) },
		func(ctx context.Context) error {
			callCtx, cancel := f.callContext(ctx)
			defer cancel()
			v, err := f.chain.NativeBalance(callCtx, wallet)
			if err != nil {
				return err
			}
			raw = v
			return nil
		})
	switch {
	case errors.Is(err, entity.ErrRPCUnavailable):
		return entity.Balance{}, err
	case err != nil:
		f.logger.Warn("Native balance unavailable, reporting 0", "wallet", wallet, "error", err)
		b := entity.NewBalance(token, nil)
		b.Error = err.Error()
		return b, nil
	}
	return entity.NewBalance(token, raw), nil
}

// splitTokens separates the native asset from ERC-20 tokens. A token list
// without a native entry gets one derived from the network definition.
func (f *BalanceFetcher) splitTokens(tokens []entity.Token) (entity.Token, []entity.Token) {
	native := entity.Token{
		Symbol:   f.network.NativeSymbol,
		Name:     f.network.Name,
		Address:  entity.ZeroAddress,
		Decimals: f.network.Decimals,
		IsNative: true,
	}
	erc20 := make([]entity.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsNative {
			native = t
			continue
		}
		erc20 = append(erc20, t)
	}
	return native, erc20
}

func (f *BalanceFetcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.opts.CallTimeout)
}
