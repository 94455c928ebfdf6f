package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	dex_types "nadfolio/internal/entity"
	"nadfolio/internal/pkg/clock"

	"github.com/shopspring/decimal"
)

var errNoPrice = errors.New("no price available")

// healthChecker is implemented by live tiers that can be checked by HealthCheck.
type healthChecker interface {
	HealthRequest() port.PriceRequest
}

// RouterOptions configures the on-chain router tier.
type RouterOptions struct {
	RouterAddress        string
	ReferenceSymbol      string
	ReferenceAddress     string
	ReferenceDecimals    uint8
	WrappedNativeAddress string
	Timeout              time.Duration
}

// OnChainRouterSource quotes a token by asking the DEX router how much of the
// reference stablecoin one whole token buys.
type OnChainRouterSource struct {
	chain port.ChainReader
	opts  RouterOptions
	clock clock.Clock
}

// NewOnChainRouterSource creates the router tier.
func NewOnChainRouterSource(chain port.ChainReader, opts RouterOptions, clk clock.Clock) *OnChainRouterSource {
	return &OnChainRouterSource{chain: chain, opts: opts, clock: clk}
}

func (s *OnChainRouterSource) Name() string               { return "kuru" }
func (s *OnChainRouterSource) Source() entity.PriceSource { return entity.SourceOnChainRouter }

// HealthRequest quotes the native asset.
func (s *OnChainRouterSource) HealthRequest() port.PriceRequest {
	return port.PriceRequest{Symbol: "MON", Address: entity.ZeroAddress, Decimals: 18, IsNative: true}
}

// Attempt implements port.PriceSource.
func (s *OnChainRouterSource) Attempt(ctx context.Context, req port.PriceRequest) (entity.PriceQuote, error) {
	if s.isReference(req) {
		return entity.PriceQuote{
			Symbol:     req.Symbol,
			Price:      1,
			Source:     entity.SourceOnChainRouter,
			Provider:   s.Name(),
			Confidence: entity.ConfidenceReferenceToken,
			Timestamp:  s.clock.Now(),
		}, nil
	}

	tokenIn := req.Address
	if req.IsNative || strings.EqualFold(tokenIn, entity.ZeroAddress) {
		tokenIn = s.opts.WrappedNativeAddress
	}
	if tokenIn == "" {
		return entity.PriceQuote{}, fmt.Errorf("%s: no address to quote %s", s.Name(), req.Symbol)
	}

	amountIn := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(req.Decimals)), nil)

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	amounts, err := s.chain.AmountsOut(callCtx, s.opts.RouterAddress, tokenIn, s.opts.ReferenceAddress, amountIn)
	if err != nil {
		return entity.PriceQuote{}, fmt.Errorf("%s quote for %s: %w", s.Name(), req.Symbol, err)
	}
	if len(amounts) == 0 || amounts[len(amounts)-1] == nil {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s returned no amounts for %s", entity.ErrDataShape, s.Name(), req.Symbol)
	}

	price := decimal.NewFromBigInt(amounts[len(amounts)-1], -int32(s.opts.ReferenceDecimals)).InexactFloat64()
	return entity.PriceQuote{
		Symbol:     req.Symbol,
		Price:      price,
		Source:     entity.SourceOnChainRouter,
		Provider:   s.Name(),
		Confidence: entity.ConfidenceOnChainRouter,
		Timestamp:  s.clock.Now(),
	}, nil
}

func (s *OnChainRouterSource) isReference(req port.PriceRequest) bool {
	if s.opts.ReferenceAddress != "" && strings.EqualFold(req.Address, s.opts.ReferenceAddress) {
		return true
	}
	return s.opts.ReferenceSymbol != "" && strings.EqualFold(req.Symbol, s.opts.ReferenceSymbol)
}

// MarketOptions configures the market aggregator tier.
type MarketOptions struct {
	CoinIDs              map[string]string
	VsCurrency           string
	DEXScreenerChainID   string
	WrappedNativeAddress string
}

// MarketAggregatorSource asks CoinGecko for symbols it knows and falls back
// to DEX Screener pairs for everything else.
type MarketAggregatorSource struct {
	coingecko port.CoinGeckoClient
	dex       port.DEXScreenerClient
	coinIDs   map[string]string
	opts      MarketOptions
	logger    port.Logger
	clock     clock.Clock
}

// NewMarketAggregatorSource creates the market tier. Either client may be nil to disable it.
func NewMarketAggregatorSource(cg port.CoinGeckoClient, dex port.DEXScreenerClient, opts MarketOptions, logger port.Logger, clk clock.Clock) *MarketAggregatorSource {
	ids := make(map[string]string, len(opts.CoinIDs))
	for symbol, id := range opts.CoinIDs {
		ids[strings.ToLower(symbol)] = id
	}
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	return &MarketAggregatorSource{coingecko: cg, dex: dex, coinIDs: ids, opts: opts, logger: logger, clock: clk}
}

func (s *MarketAggregatorSource) Name() string               { return "market" }
func (s *MarketAggregatorSource) Source() entity.PriceSource { return entity.SourceMarketAggregator }

// HealthRequest quotes WBTC, which CoinGecko always lists.
func (s *MarketAggregatorSource) HealthRequest() port.PriceRequest {
	return port.PriceRequest{Symbol: "WBTC", Decimals: 8}
}

// Attempt implements port.PriceSource.
func (s *MarketAggregatorSource) Attempt(ctx context.Context, req port.PriceRequest) (entity.PriceQuote, error) {
	var misses []error

	if id, ok := s.coinIDs[strings.ToLower(req.Symbol)]; ok && s.coingecko != nil {
		prices, err := s.coingecko.SimplePrice(ctx, []string{id}, s.opts.VsCurrency)
		switch {
		case err != nil:
			misses = append(misses, fmt.Errorf("coingecko: %w", err))
		case prices[id] > 0:
			return s.quote(req.Symbol, prices[id], "coingecko"), nil
		default:
			misses = append(misses, fmt.Errorf("coingecko: no price for %s", id))
		}
	}

	address := req.Address
	if req.IsNative || strings.EqualFold(address, entity.ZeroAddress) {
		address = s.opts.WrappedNativeAddress
	}
	if s.dex != nil && address != "" && s.opts.DEXScreenerChainID != "" {
		pairs, err := s.dex.GetTokenPairsByAddresses(ctx, s.opts.DEXScreenerChainID, []string{address})
		if err != nil {
			misses = append(misses, fmt.Errorf("dexscreener: %w", err))
		} else if price := s.selectBestPriceFromPairs(pairs, address); price > 0 {
			return s.quote(req.Symbol, price, "dexscreener"), nil
		} else {
			misses = append(misses, fmt.Errorf("dexscreener: no usable pair for %s", req.Symbol))
		}
	}

	if len(misses) == 0 {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s is not listed on any market source", errNoPrice, req.Symbol)
	}
	return entity.PriceQuote{}, errors.Join(misses...)
}

func (s *MarketAggregatorSource) quote(symbol string, price float64, provider string) entity.PriceQuote {
	return entity.PriceQuote{
		Symbol:     symbol,
		Price:      price,
		Source:     entity.SourceMarketAggregator,
		Provider:   provider,
		Confidence: entity.ConfidenceMarket,
		Timestamp:  s.clock.Now(),
	}
}

var stablecoinSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

// selectBestPriceFromPairs prefers the deepest stablecoin-quoted pair and
// otherwise the deepest pair overall. Pairs where the token is not the base
// side, or without a USD price, are ignored.
func (s *MarketAggregatorSource) selectBestPriceFromPairs(pairs []dex_types.PairData, baseTokenAddress string) float64 {
	var bestOverall, bestStable *dex_types.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) || pair.PriceUSD() <= 0 {
			continue
		}
		if _, ok := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; ok {
			if bestStable == nil || pair.LiquidityUSD() > bestStable.LiquidityUSD() {
				bestStable = pair
			}
		}
		if bestOverall == nil || pair.LiquidityUSD() > bestOverall.LiquidityUSD() {
			bestOverall = pair
		}
	}

	switch {
	case bestStable != nil:
		s.logger.Debug("Selected stablecoin pair", "baseTokenAddress", baseTokenAddress, "pairAddress", bestStable.PairAddress, "liquidityUsd", bestStable.LiquidityUSD())
		return bestStable.PriceUSD()
	case bestOverall != nil:
		s.logger.Debug("Selected highest liquidity pair", "baseTokenAddress", baseTokenAddress, "pairAddress", bestOverall.PairAddress, "liquidityUsd", bestOverall.LiquidityUSD())
		return bestOverall.PriceUSD()
	}
	return 0
}

// TableSource serves prices from a fixed symbol table. It backs both the
// static and the emergency tier; only the emergency one is total.
type TableSource struct {
	name       string
	source     entity.PriceSource
	confidence float64
	prices     map[string]float64
	total      bool
	clock      clock.Clock
}

// NewStaticFallbackSource creates the static snapshot tier.
func NewStaticFallbackSource(prices map[string]float64, clk clock.Clock) *TableSource {
	return newTableSource("static", entity.SourceStaticFallback, entity.ConfidenceStatic, prices, false, clk)
}

// NewEmergencyFallbackSource creates the last-resort tier. It answers for
// every symbol, with 0 when the symbol is unknown.
func NewEmergencyFallbackSource(prices map[string]float64, clk clock.Clock) *TableSource {
	return newTableSource("emergency", entity.SourceEmergencyFallback, entity.ConfidenceEmergency, prices, true, clk)
}

func newTableSource(name string, src entity.PriceSource, confidence float64, prices map[string]float64, total bool, clk clock.Clock) *TableSource {
	lowered := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		lowered[strings.ToLower(symbol)] = price
	}
	return &TableSource{name: name, source: src, confidence: confidence, prices: lowered, total: total, clock: clk}
}

func (s *TableSource) Name() string               { return s.name }
func (s *TableSource) Source() entity.PriceSource { return s.source }

// Attempt implements port.PriceSource.
func (s *TableSource) Attempt(_ context.Context, req port.PriceRequest) (entity.PriceQuote, error) {
	price, ok := s.prices[strings.ToLower(req.Symbol)]
	if !ok && !s.total {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s not in %s table", errNoPrice, req.Symbol, s.name)
	}
	return entity.PriceQuote{
		Symbol:     req.Symbol,
		Price:      max(price, 0),
		Source:     s.source,
		Provider:   s.name,
		Confidence: s.confidence,
		Timestamp:  s.clock.Now(),
	}, nil
}
