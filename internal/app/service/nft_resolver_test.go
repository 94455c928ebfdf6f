package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/cache"
	networkdefinition "nadfolio/internal/infrastructure/network/definition"
	"nadfolio/internal/pkg/clock"
)

const (
	colDaks  = "0x78ed9a576519024357ab06d9834266a04c9634b7"
	colChogs = "0xe8f0635591190fb626f9d13c49b60626561ed145"
	colOther = "0x3a9454c1b4c84d1861bb1209a647c834d137b442"
)

func monResolver() *mockResolver {
	return &mockResolver{prices: map[string]entity.PriceQuote{
		"mon": {Symbol: "MON", Price: 3.5, Source: entity.SourceOnChainRouter},
	}}
}

func newTestNFTResolver(market port.NFTMarketplace, chain port.ChainReader, clk *clock.Fake) *NFTResolver {
	responses := cache.New(clk, 0)
	return NewNFTResolver(market, chain, monResolver(), NewFloorEstimator(networkdefinition.KnownCollections()),
		responses.Namespace("nft:"), responses.Namespace("floor:"), clk, nopLogger{}, NFTResolverOptions{
			PageLimit:           2,
			MaxPages:            10,
			SampleTokenIDs:      3,
			CacheTTL:            2 * time.Minute,
			SampleBatchSize:     4,
			SampleBatchDelay:    300 * time.Millisecond,
			FloorBatchSize:      3,
			FloorBatchDelay:     500 * time.Millisecond,
			FloorCacheTTL:       5 * time.Minute,
			NativeSymbol:        "MON",
			WrappedNativeSymbol: "WMON",
		})
}

func TestFloorEstimatorDeterministicAndBounded(t *testing.T) {
	est := NewFloorEstimator(networkdefinition.KnownCollections())
	for i := 0; i < 200; i++ {
		addr := fmt.Sprintf("0x%040x", i*7919)
		a := est.Estimate(addr, fmt.Sprintf("collection %d", i))
		b := est.Estimate(addr, fmt.Sprintf("collection %d", i))
		if a != b {
			t.Fatalf("estimate for %s not deterministic: %v vs %v", addr, a, b)
		}
		if a < 0.005 || a > 1.0 {
			t.Fatalf("estimate %v out of [0.005, 1.0]", a)
		}
	}

	// Known names vary by at most 15% around their base.
	got := est.Estimate(colDaks, "The Daks")
	if got < 0.08*0.85 || got > 0.08*1.15 {
		t.Errorf("The Daks estimate = %v, want within 15%% of 0.08", got)
	}
	// Unknown names land in the generic 0.02-0.10 band, +/-15%.
	got = est.Estimate(colOther, "Never Heard Of It")
	if got < 0.02*0.85 || got > 0.10*1.15 {
		t.Errorf("unknown estimate = %v", got)
	}
}

func TestGetUserCollectionsPaginatesAndGroups(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {
			Collections: []port.OwnedCollection{
				{Address: colDaks, Name: "The Daks", OwnedCount: 2, FloorAmount: 0.5, FloorCurrency: "MON"},
				{Address: colChogs, Name: "Chog Chest", OwnedCount: 1, FloorAmount: 1, FloorCurrency: "USDC"},
			},
			NextOffset: intPtr(2),
		},
		2: {
			Collections: []port.OwnedCollection{
				{Address: "0x78ED9A576519024357AB06D9834266A04C9634B7", Name: "the daks", OwnedCount: 1, TokenIDs: []string{"7"}},
			},
		},
	}}
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))

	got, err := newTestNFTResolver(market, nil, clk).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.offsets) != 2 || market.offsets[1] != 2 {
		t.Errorf("offsets = %v, want [0 2]", market.offsets)
	}
	if len(got) != 2 {
		t.Fatalf("collections = %+v, want 2 after grouping", got)
	}

	daks := got[0]
	if daks.Name != "The Daks" || daks.OwnedCount != 3 {
		t.Fatalf("first = %+v, want The Daks x3", daks)
	}
	if daks.FloorPrice.Source != entity.FloorFromMarketplace || daks.CurrencyRate != 3.5 {
		t.Errorf("daks floor = %+v rate = %v", daks.FloorPrice, daks.CurrencyRate)
	}
	if want := 3 * 0.5 * 3.5; daks.TotalValue != want {
		t.Errorf("daks value = %v, want %v", daks.TotalValue, want)
	}
	if got[1].CurrencyRate != 1 || got[1].TotalValue != 1 {
		t.Errorf("usdc-floored collection = %+v", got[1])
	}
}

func TestGetUserCollectionsStopsOnNonAdvancingOffset(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {Collections: []port.OwnedCollection{{Address: colDaks, Name: "The Daks", OwnedCount: 1}}, NextOffset: intPtr(0)},
	}}
	if _, err := newTestNFTResolver(market, nil, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet); err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.offsets) != 1 {
		t.Errorf("pages fetched = %d, want 1", len(market.offsets))
	}
}

func TestGetUserCollectionsRespectsMaxPages(t *testing.T) {
	pages := map[int]port.CollectionPage{}
	for i := 0; i < 50; i++ {
		pages[i] = port.CollectionPage{
			Collections: []port.OwnedCollection{{Address: fmt.Sprintf("0x%040x", i+1), Name: fmt.Sprintf("c%d", i), OwnedCount: 1}},
			NextOffset:  intPtr(i + 1),
		}
	}
	market := &mockMarketplace{pages: pages}
	got, err := newTestNFTResolver(market, nil, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.offsets) != 10 || len(got) != 10 {
		t.Errorf("pages = %d collections = %d, want 10 each", len(market.offsets), len(got))
	}
}

func TestGetUserCollectionsRateLimitedPageIsPartial(t *testing.T) {
	market := &mockMarketplace{
		pages: map[int]port.CollectionPage{
			0: {Collections: []port.OwnedCollection{{Address: colDaks, Name: "The Daks", OwnedCount: 1, FloorAmount: 1}}, NextOffset: intPtr(2)},
		},
		errs: map[int]error{2: fmt.Errorf("%w: magic eden", entity.ErrRateLimited)},
	}
	clk := clock.NewFake(time.Unix(0, 0))
	r := newTestNFTResolver(market, nil, clk)

	got, err := r.GetUserCollections(context.Background(), testWallet)
	if !entity.IsPartial(err) || !errors.Is(err, entity.ErrRateLimited) {
		t.Fatalf("err = %v, want partial rate-limited error", err)
	}
	if len(got) != 1 {
		t.Errorf("collections = %d, want the first page kept", len(got))
	}

	// Partial results are not cached.
	r.GetUserCollections(context.Background(), testWallet)
	if len(market.offsets) != 4 {
		t.Errorf("marketplace calls = %d, want 4", len(market.offsets))
	}
}

func TestGetUserCollectionsFirstPageFailure(t *testing.T) {
	market := &mockMarketplace{errs: map[int]error{0: entity.ErrTimeout}}
	got, err := newTestNFTResolver(market, nil, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet)
	if !entity.IsPartial(err) {
		t.Fatalf("err = %v, want partial", err)
	}
	if len(got) != 0 {
		t.Errorf("collections = %+v, want none", got)
	}
}

func TestGetUserCollectionsSyntheticFloorAndSampling(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {Collections: []port.OwnedCollection{{Address: colChogs, Name: "Chog Chest", OwnedCount: 5}}},
	}}
	chain := newMockChain()
	chain.ownedTokens[colChogs] = []*big.Int{big.NewInt(11), big.NewInt(42), big.NewInt(99), big.NewInt(100)}

	got, err := newTestNFTResolver(market, chain, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	c := got[0]
	if c.FloorPrice.Source != entity.FloorSynthetic || c.FloorPrice.Currency != "MON" {
		t.Errorf("floor = %+v, want synthetic MON", c.FloorPrice)
	}
	want := NewFloorEstimator(networkdefinition.KnownCollections()).Estimate(colChogs, "Chog Chest")
	if c.FloorPrice.Amount != want {
		t.Errorf("floor amount = %v, want %v", c.FloorPrice.Amount, want)
	}
	if len(c.TokenIDs) != 3 || c.TokenIDs[0] != "11" || c.TokenIDs[2] != "99" {
		t.Errorf("token ids = %v, want first three", c.TokenIDs)
	}
}

func TestGetUserCollectionsSamplingFailureIgnored(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {Collections: []port.OwnedCollection{{Address: colChogs, Name: "Chog Chest", OwnedCount: 2, FloorAmount: 0.1}}},
	}}
	chain := newMockChain()
	chain.ownerErrs[colChogs] = errors.New("execution reverted")

	got, err := newTestNFTResolver(market, chain, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(got[0].TokenIDs) != 0 {
		t.Errorf("token ids = %v, want none", got[0].TokenIDs)
	}
}

func TestGetUserCollectionsSamplesInBatches(t *testing.T) {
	var owned []port.OwnedCollection
	chain := newMockChain()
	for i := 0; i < 10; i++ {
		addr := fmt.Sprintf("0x%040x", i+1)
		owned = append(owned, port.OwnedCollection{Address: addr, Name: fmt.Sprintf("c%d", i), OwnedCount: 3, FloorAmount: 1})
		chain.ownedTokens[addr] = []*big.Int{big.NewInt(int64(i)), big.NewInt(int64(i + 100)), big.NewInt(int64(i + 200))}
	}
	market := &mockMarketplace{pages: map[int]port.CollectionPage{0: {Collections: owned, RawCount: len(owned)}}}
	clk := clock.NewFake(time.Unix(0, 0))

	got, err := newTestNFTResolver(market, chain, clk).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	for _, c := range got {
		if len(c.TokenIDs) != 3 {
			t.Errorf("%s token ids = %v, want 3", c.Name, c.TokenIDs)
		}
	}
	// Ten collections in chunks of four pause twice.
	sleeps := clk.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 pauses", sleeps)
	}
	for _, d := range sleeps {
		if d != 300*time.Millisecond {
			t.Errorf("pause = %v, want 300ms", d)
		}
	}
	if len(market.floorCalls) != 0 {
		t.Errorf("floor lookups = %v, want none for listed floors", market.floorCalls)
	}
}

func TestGetUserCollectionsMarketplaceFloorBeforeSynthetic(t *testing.T) {
	market := &mockMarketplace{
		pages: map[int]port.CollectionPage{
			0: {Collections: []port.OwnedCollection{
				{Address: colDaks, Name: "The Daks", OwnedCount: 1, FloorAmount: 0.5, FloorCurrency: "MON"},
				{Address: colChogs, Name: "Chog Chest", OwnedCount: 2},
				{Address: colOther, Name: "Never Heard Of It", OwnedCount: 1},
			}, RawCount: 3},
		},
		floors:    map[string]float64{colChogs: 1.2},
		floorErrs: map[string]error{colOther: entity.ErrTimeout},
	}
	clk := clock.NewFake(time.Unix(0, 0))
	r := newTestNFTResolver(market, nil, clk)

	got, err := r.GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	byAddr := make(map[string]entity.NFTCollection, len(got))
	for _, c := range got {
		byAddr[c.Address] = c
	}
	chogs := byAddr[colChogs]
	if chogs.FloorPrice.Source != entity.FloorFromMarketplace || chogs.FloorPrice.Amount != 1.2 || chogs.FloorPrice.Currency != "MON" {
		t.Errorf("chogs floor = %+v, want 1.2 MON from the marketplace", chogs.FloorPrice)
	}
	if want := 2 * 1.2 * 3.5; chogs.TotalValue != want {
		t.Errorf("chogs value = %v, want %v", chogs.TotalValue, want)
	}
	if byAddr[colOther].FloorPrice.Source != entity.FloorSynthetic {
		t.Errorf("failed lookup floor = %+v, want synthetic", byAddr[colOther].FloorPrice)
	}
	if len(market.floorCalls) != 2 {
		t.Fatalf("floor lookups = %v, want chogs and other only", market.floorCalls)
	}

	// Past the collections TTL the floors are still cached.
	clk.Advance(3 * time.Minute)
	if _, err := r.GetUserCollections(context.Background(), testWallet); err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	// The failed lookup is not cached and is asked again.
	if len(market.floorCalls) != 3 || market.floorCalls[2] != colOther {
		t.Errorf("floor lookups = %v, want only the failed one repeated", market.floorCalls)
	}

	if _, err := r.GetUserCollections(cache.WithRefresh(context.Background()), testWallet); err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.floorCalls) != 5 {
		t.Errorf("floor lookups after refresh = %d, want 5", len(market.floorCalls))
	}
}

func TestGetUserCollectionsFloorLookupsBatched(t *testing.T) {
	var owned []port.OwnedCollection
	for i := 0; i < 7; i++ {
		owned = append(owned, port.OwnedCollection{Address: fmt.Sprintf("0x%040x", i+1), Name: fmt.Sprintf("c%d", i), OwnedCount: 1})
	}
	market := &mockMarketplace{pages: map[int]port.CollectionPage{0: {Collections: owned, RawCount: len(owned)}}}
	clk := clock.NewFake(time.Unix(0, 0))

	if _, err := newTestNFTResolver(market, nil, clk).GetUserCollections(context.Background(), testWallet); err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.floorCalls) != 7 {
		t.Errorf("floor lookups = %d, want 7", len(market.floorCalls))
	}
	// Seven lookups in chunks of three pause twice.
	sleeps := clk.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 500*time.Millisecond || sleeps[1] != 500*time.Millisecond {
		t.Errorf("sleeps = %v, want two 500ms pauses", sleeps)
	}
}

func TestGetUserCollectionsSkipsPageOfIncompleteRecords(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {RawCount: 2, NextOffset: intPtr(2)},
		2: {Collections: []port.OwnedCollection{{Address: colDaks, Name: "The Daks", OwnedCount: 1, FloorAmount: 1}}, RawCount: 1},
	}}
	got, err := newTestNFTResolver(market, nil, clock.NewFake(time.Unix(0, 0))).GetUserCollections(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("GetUserCollections: %v", err)
	}
	if len(market.offsets) != 2 || market.offsets[1] != 2 {
		t.Errorf("offsets = %v, want [0 2]", market.offsets)
	}
	if len(got) != 1 || got[0].Address != colDaks {
		t.Errorf("collections = %+v, want the second page's record", got)
	}
}

func TestGetUserCollectionsCached(t *testing.T) {
	market := &mockMarketplace{pages: map[int]port.CollectionPage{
		0: {Collections: []port.OwnedCollection{{Address: colDaks, Name: "The Daks", OwnedCount: 1, FloorAmount: 1}}},
	}}
	clk := clock.NewFake(time.Unix(0, 0))
	r := newTestNFTResolver(market, nil, clk)

	r.GetUserCollections(context.Background(), testWallet)
	r.GetUserCollections(context.Background(), testWallet)
	if len(market.offsets) != 1 {
		t.Fatalf("calls within TTL = %d, want 1", len(market.offsets))
	}
	r.GetUserCollections(cache.WithRefresh(context.Background()), testWallet)
	if len(market.offsets) != 2 {
		t.Fatalf("calls after refresh = %d, want 2", len(market.offsets))
	}
	clk.Advance(2 * time.Minute)
	r.GetUserCollections(context.Background(), testWallet)
	if len(market.offsets) != 3 {
		t.Fatalf("calls after expiry = %d, want 3", len(market.offsets))
	}
}

func TestSortCollectionsAndStats(t *testing.T) {
	cols := []entity.NFTCollection{
		{Name: "b", OwnedCount: 1, FloorPrice: entity.FloorPrice{Amount: 1}, CurrencyRate: 2, TotalValue: 2},
		{Name: "a", OwnedCount: 2, FloorPrice: entity.FloorPrice{Amount: 0.5}, CurrencyRate: 2, TotalValue: 2},
		{Name: "c", OwnedCount: 4, FloorPrice: entity.FloorPrice{Amount: 1}, CurrencyRate: 2, TotalValue: 8},
	}
	SortCollections(cols)
	if cols[0].Name != "c" || cols[1].Name != "a" || cols[2].Name != "b" {
		t.Errorf("order = %s %s %s, want c a b", cols[0].Name, cols[1].Name, cols[2].Name)
	}

	stats := Stats(cols)
	if stats.TotalCollections != 3 || stats.TotalNFTs != 7 || stats.TotalValue != 12 {
		t.Errorf("stats = %+v", stats)
	}
	if want := (2.0 + 1.0 + 2.0) / 3; stats.AverageFloorUSD != want {
		t.Errorf("average floor = %v, want %v", stats.AverageFloorUSD, want)
	}
	if Stats(nil).AverageFloorUSD != 0 {
		t.Error("empty stats must have a zero average")
	}
}
