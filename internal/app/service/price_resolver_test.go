package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	dex_types "nadfolio/internal/entity"
	"nadfolio/internal/infrastructure/cache"
	"nadfolio/internal/pkg/clock"
)

const (
	testRouter = "0xc816865f172d640d93712C68a7E1F83F3fA63235"
	testUSDC   = "0xf817257fed379853cde0fa4f97ab987181b1e5ea"
	testWMON   = "0x760afe86e5de5fa0ee542fc7b7b713e1c5425701"
	testDAK    = "0x0F0BDEbF0F83cD1EE3974779Bcb7315f9808c714"
)

func newTestResolver(clk *clock.Fake, sources ...port.PriceSource) *PriceResolver {
	return NewPriceResolver(sources, cache.New(clk, 0).Namespace("price:"), clk, nopLogger{}, PriceResolverOptions{
		CacheTTL:   2 * time.Minute,
		BatchSize:  3,
		BatchDelay: 200 * time.Millisecond,
	})
}

func TestResolvePriceFallsThroughTiers(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	router := &mockSource{name: "kuru", source: entity.SourceOnChainRouter, err: errors.New("reverted")}
	market := &mockSource{name: "market", source: entity.SourceMarketAggregator, prices: map[string]float64{"dak": 0}}
	static := &mockSource{name: "static", source: entity.SourceStaticFallback, prices: map[string]float64{"dak": 0.095}}
	emergency := &mockSource{name: "emergency", source: entity.SourceEmergencyFallback, prices: map[string]float64{"dak": 0.09}}
	r := newTestResolver(clk, router, market, static, emergency)

	q := r.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "DAK", Address: testDAK, Decimals: 18})
	if q.Source != entity.SourceStaticFallback || q.Price != 0.095 {
		t.Fatalf("quote = %+v, want static 0.095", q)
	}
	if !q.Timestamp.Equal(clk.Now()) {
		t.Errorf("timestamp = %v, want %v", q.Timestamp, clk.Now())
	}
	if emergency.callCount() != 0 {
		t.Errorf("emergency tier consulted %d times after a static hit", emergency.callCount())
	}
}

func TestResolvePriceCachesRealQuotes(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	market := &mockSource{name: "market", source: entity.SourceMarketAggregator, prices: map[string]float64{"wbtc": 108000}}
	r := newTestResolver(clk, market)
	req := port.PriceRequest{Symbol: "WBTC", Decimals: 8}

	r.ResolvePrice(context.Background(), req)
	clk.Advance(time.Minute)
	r.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "wbtc", Decimals: 8})
	if market.callCount() != 1 {
		t.Fatalf("calls within TTL = %d, want 1", market.callCount())
	}

	r.ResolvePrice(cache.WithRefresh(context.Background()), req)
	if market.callCount() != 2 {
		t.Fatalf("calls after refresh = %d, want 2", market.callCount())
	}

	clk.Advance(2 * time.Minute)
	r.ResolvePrice(context.Background(), req)
	if market.callCount() != 3 {
		t.Fatalf("calls after expiry = %d, want 3", market.callCount())
	}
}

func TestResolvePriceNeverCachesEmergency(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	emergency := &mockSource{name: "emergency", source: entity.SourceEmergencyFallback, prices: map[string]float64{"pingu": 0}}
	r := newTestResolver(clk, emergency)

	for i := 0; i < 2; i++ {
		q := r.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "PINGU"})
		if q.Source != entity.SourceEmergencyFallback || q.Price != 0 {
			t.Fatalf("quote = %+v", q)
		}
	}
	if emergency.callCount() != 2 {
		t.Errorf("emergency calls = %d, want 2", emergency.callCount())
	}
}

func TestResolvePriceWithoutAnyTier(t *testing.T) {
	r := newTestResolver(clock.NewFake(time.Unix(0, 0)))
	q := r.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "XYZ"})
	if q.Source != entity.SourceEmergencyFallback || q.Price != 0 || q.Confidence != entity.ConfidenceEmergency {
		t.Errorf("quote = %+v", q)
	}
}

func TestResolveManyBatchesUniqueSymbols(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	static := &mockSource{name: "static", source: entity.SourceStaticFallback, prices: map[string]float64{
		"mon": 3.8, "usdc": 1, "dak": 0.095, "chog": 0.185, "wbtc": 108714,
	}}
	r := newTestResolver(clk, static)

	reqs := []port.PriceRequest{
		{Symbol: "MON"}, {Symbol: "USDC"}, {Symbol: "mon"}, {Symbol: "DAK"}, {Symbol: "CHOG"}, {Symbol: "WBTC"},
	}
	quotes := r.ResolveMany(context.Background(), reqs)

	if len(quotes) != 5 {
		t.Fatalf("len(quotes) = %d, want 5", len(quotes))
	}
	if quotes["chog"].Price != 0.185 {
		t.Errorf("chog = %+v", quotes["chog"])
	}
	if static.callCount() != 5 {
		t.Errorf("tier calls = %d, want 5", static.callCount())
	}
	if got := clk.Sleeps(); len(got) != 1 || got[0] != 200*time.Millisecond {
		t.Errorf("sleeps = %v, want [200ms]", got)
	}
}

func TestHealthCheckGrades(t *testing.T) {
	healthReq := &port.PriceRequest{Symbol: "MON"}
	healthy := func(name string) port.PriceSource {
		return checkableSource{&mockSource{name: name, source: entity.SourceOnChainRouter, prices: map[string]float64{"mon": 3.8}, health: healthReq}}
	}
	broken := func(name string) port.PriceSource {
		return checkableSource{&mockSource{name: name, source: entity.SourceMarketAggregator, err: errors.New("down"), health: healthReq}}
	}
	static := &mockSource{name: "static", source: entity.SourceStaticFallback}

	tests := []struct {
		name    string
		sources []port.PriceSource
		want    string
	}{
		{"all healthy", []port.PriceSource{healthy("a"), healthy("b"), static}, HealthExcellent},
		{"half healthy", []port.PriceSource{healthy("a"), broken("b"), static}, HealthGood},
		{"none healthy", []port.PriceSource{broken("a"), broken("b"), static}, HealthDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newTestResolver(clock.NewFake(time.Unix(0, 0)), tt.sources...).HealthCheck(context.Background())
			if report.Overall != tt.want {
				t.Errorf("overall = %s, want %s", report.Overall, tt.want)
			}
			if len(report.Tiers) != 2 {
				t.Errorf("checked tiers = %d, want 2", len(report.Tiers))
			}
		})
	}
}

func TestOnChainRouterSource(t *testing.T) {
	chain := newMockChain()
	chain.amountsOut[testWMON] = []*big.Int{big.NewInt(1e18), big.NewInt(3_672_200)}
	src := NewOnChainRouterSource(chain, RouterOptions{
		RouterAddress:        testRouter,
		ReferenceSymbol:      "USDC",
		ReferenceAddress:     testUSDC,
		ReferenceDecimals:    6,
		WrappedNativeAddress: testWMON,
	}, clock.NewFake(time.Unix(0, 0)))

	q, err := src.Attempt(context.Background(), port.PriceRequest{Symbol: "MON", Address: entity.ZeroAddress, Decimals: 18, IsNative: true})
	if err != nil {
		t.Fatalf("Attempt(MON): %v", err)
	}
	if q.Price != 3.6722 || q.Confidence != entity.ConfidenceOnChainRouter {
		t.Errorf("MON quote = %+v", q)
	}

	q, err = src.Attempt(context.Background(), port.PriceRequest{Symbol: "USDC", Address: testUSDC, Decimals: 6})
	if err != nil || q.Price != 1 || q.Confidence != entity.ConfidenceReferenceToken {
		t.Errorf("USDC quote = %+v, err = %v", q, err)
	}
	if chain.quoteCalls != 1 {
		t.Errorf("router calls = %d, want 1", chain.quoteCalls)
	}

	if _, err := src.Attempt(context.Background(), port.PriceRequest{Symbol: "DAK", Address: testDAK, Decimals: 18}); err == nil {
		t.Error("expected an error for an unroutable token")
	}
}

func TestMarketAggregatorSource(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	opts := MarketOptions{CoinIDs: map[string]string{"WBTC": "wrapped-bitcoin"}, DEXScreenerChainID: "monad-testnet", WrappedNativeAddress: testWMON}

	t.Run("coingecko", func(t *testing.T) {
		src := NewMarketAggregatorSource(&mockCoinGecko{prices: map[string]float64{"wrapped-bitcoin": 108000}}, &mockDEX{}, opts, nopLogger{}, clk)
		q, err := src.Attempt(context.Background(), port.PriceRequest{Symbol: "WBTC"})
		if err != nil || q.Price != 108000 || q.Provider != "coingecko" {
			t.Errorf("quote = %+v, err = %v", q, err)
		}
	})

	t.Run("dexscreener prefers stable pair", func(t *testing.T) {
		pairs := []dex_types.PairData{
			{BaseToken: dex_types.DEXToken{Address: testDAK}, QuoteToken: dex_types.DEXToken{Symbol: "WMON"}, PriceUsd: "0.2", Liquidity: &dex_types.DEXLiquidity{Usd: 90000}},
			{BaseToken: dex_types.DEXToken{Address: testDAK}, QuoteToken: dex_types.DEXToken{Symbol: "USDC"}, PriceUsd: "0.1", Liquidity: &dex_types.DEXLiquidity{Usd: 5000}},
			{BaseToken: dex_types.DEXToken{Address: testWMON}, QuoteToken: dex_types.DEXToken{Symbol: "USDC"}, PriceUsd: "3.5", Liquidity: &dex_types.DEXLiquidity{Usd: 999999}},
		}
		src := NewMarketAggregatorSource(&mockCoinGecko{err: errors.New("429")}, &mockDEX{pairs: pairs}, opts, nopLogger{}, clk)
		q, err := src.Attempt(context.Background(), port.PriceRequest{Symbol: "DAK", Address: testDAK})
		if err != nil || q.Price != 0.1 || q.Provider != "dexscreener" {
			t.Errorf("quote = %+v, err = %v", q, err)
		}
	})

	t.Run("miss", func(t *testing.T) {
		src := NewMarketAggregatorSource(nil, &mockDEX{err: entity.ErrTimeout}, opts, nopLogger{}, clk)
		if _, err := src.Attempt(context.Background(), port.PriceRequest{Symbol: "DAK", Address: testDAK}); !errors.Is(err, entity.ErrTimeout) {
			t.Errorf("err = %v, want ErrTimeout", err)
		}
	})
}

func TestTableSources(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	static := NewStaticFallbackSource(map[string]float64{"sMON": 3.825}, clk)
	emergency := NewEmergencyFallbackSource(map[string]float64{"MON": 3.8275}, clk)

	if q, err := static.Attempt(context.Background(), port.PriceRequest{Symbol: "SMON"}); err != nil || q.Price != 3.825 {
		t.Errorf("static smon = %+v, %v", q, err)
	}
	if _, err := static.Attempt(context.Background(), port.PriceRequest{Symbol: "XYZ"}); !errors.Is(err, errNoPrice) {
		t.Errorf("static unknown err = %v", err)
	}
	q, err := emergency.Attempt(context.Background(), port.PriceRequest{Symbol: "XYZ"})
	if err != nil || q.Price != 0 || q.Confidence != entity.ConfidenceEmergency {
		t.Errorf("emergency unknown = %+v, %v", q, err)
	}
}

func TestResolvePriceNeverNegative(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))

	table := newTestResolver(clk, NewEmergencyFallbackSource(map[string]float64{"FOO": -2}, clk))
	if q := table.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "FOO"}); q.Price != 0 || q.Source != entity.SourceEmergencyFallback {
		t.Errorf("table quote = %+v, want price 0 from the emergency tier", q)
	}

	custom := &mockSource{name: "last", source: entity.SourceEmergencyFallback, prices: map[string]float64{"bar": -5}}
	r := newTestResolver(clk, custom)
	if q := r.ResolvePrice(context.Background(), port.PriceRequest{Symbol: "BAR"}); q.Price != 0 {
		t.Errorf("emergency tier quote = %+v, want price clamped to 0", q)
	}
}
