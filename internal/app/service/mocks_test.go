package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	dex_types "nadfolio/internal/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// lookup matches addresses case-insensitively.
func lookup[V any](m map[string]V, key string) (V, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// mockChain is a ChainReader backed by in-memory tables keyed by address.
type mockChain struct {
	mu sync.Mutex

	native      map[string]*big.Int
	nativeErrs  []error
	tokens      map[string]*big.Int
	tokenErrs   map[string]error
	amountsOut  map[string][]*big.Int
	ownedTokens map[string][]*big.Int
	ownerErrs   map[string]error

	nativeCalls int
	tokenCalls  int
	quoteCalls  int
}

func newMockChain() *mockChain {
	return &mockChain{
		native:      map[string]*big.Int{},
		tokens:      map[string]*big.Int{},
		tokenErrs:   map[string]error{},
		amountsOut:  map[string][]*big.Int{},
		ownedTokens: map[string][]*big.Int{},
		ownerErrs:   map[string]error{},
	}
}

func (m *mockChain) BlockNumber(context.Context) (uint64, error) { return 1, nil }

func (m *mockChain) NativeBalance(ctx context.Context, wallet string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nativeCalls++
	if len(m.nativeErrs) > 0 {
		err := m.nativeErrs[0]
		m.nativeErrs = m.nativeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if v, ok := lookup(m.native, wallet); ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (m *mockChain) TokenBalance(ctx context.Context, token, wallet string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCalls++
	if err, ok := lookup(m.tokenErrs, token); ok {
		return nil, err
	}
	if v, ok := lookup(m.tokens, token); ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (m *mockChain) AmountsOut(ctx context.Context, router, tokenIn, tokenOut string, amountIn *big.Int) ([]*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls++
	if v, ok := lookup(m.amountsOut, tokenIn); ok {
		return v, nil
	}
	return nil, errors.New("execution reverted")
}

func (m *mockChain) TokenOfOwnerByIndex(ctx context.Context, collection, owner string, index int64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := lookup(m.ownerErrs, collection); ok {
		return nil, err
	}
	ids, _ := lookup(m.ownedTokens, collection)
	if index >= int64(len(ids)) {
		return nil, errors.New("execution reverted: index out of bounds")
	}
	return ids[index], nil
}

// mockSource is a scripted pricing tier.
type mockSource struct {
	name   string
	source entity.PriceSource
	prices map[string]float64
	err    error
	health *port.PriceRequest

	mu    sync.Mutex
	calls int
}

func (s *mockSource) Name() string               { return s.name }
func (s *mockSource) Source() entity.PriceSource { return s.source }

func (s *mockSource) Attempt(_ context.Context, req port.PriceRequest) (entity.PriceQuote, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return entity.PriceQuote{}, s.err
	}
	price, ok := s.prices[strings.ToLower(req.Symbol)]
	if !ok {
		return entity.PriceQuote{}, errNoPrice
	}
	return entity.PriceQuote{Symbol: req.Symbol, Price: price, Source: s.source, Provider: s.name}, nil
}

func (s *mockSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// checkableSource adds HealthRequest to a mockSource.
type checkableSource struct {
	*mockSource
}

func (s checkableSource) HealthRequest() port.PriceRequest {
	return *s.health
}

type mockCoinGecko struct {
	prices map[string]float64
	err    error
}

func (m *mockCoinGecko) SimplePrice(_ context.Context, ids []string, _ string) (map[string]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]float64{}
	for _, id := range ids {
		if p, ok := m.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockDEX struct {
	pairs []dex_types.PairData
	err   error
}

func (m *mockDEX) GetTokenPairsByAddresses(context.Context, string, []string) ([]dex_types.PairData, error) {
	return m.pairs, m.err
}

// mockResolver prices by symbol and never fails.
type mockResolver struct {
	prices map[string]entity.PriceQuote
}

func (m *mockResolver) quote(symbol string) entity.PriceQuote {
	if q, ok := m.prices[strings.ToLower(symbol)]; ok {
		return q
	}
	return entity.PriceQuote{Symbol: symbol, Source: entity.SourceEmergencyFallback, Confidence: entity.ConfidenceEmergency}
}

func (m *mockResolver) ResolvePrice(_ context.Context, req port.PriceRequest) entity.PriceQuote {
	return m.quote(req.Symbol)
}

func (m *mockResolver) ResolveMany(_ context.Context, reqs []port.PriceRequest) map[string]entity.PriceQuote {
	out := make(map[string]entity.PriceQuote, len(reqs))
	for _, r := range reqs {
		out[strings.ToLower(r.Symbol)] = m.quote(r.Symbol)
	}
	return out
}

// mockMarketplace serves pages keyed by offset and floors keyed by collection.
type mockMarketplace struct {
	mu      sync.Mutex
	pages   map[int]port.CollectionPage
	errs    map[int]error
	offsets []int

	floors     map[string]float64
	floorErrs  map[string]error
	floorCalls []string
}

func (m *mockMarketplace) CollectionFloor(_ context.Context, collection string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floorCalls = append(m.floorCalls, collection)
	if err, ok := lookup(m.floorErrs, collection); ok {
		return 0, err
	}
	floor, _ := lookup(m.floors, collection)
	return floor, nil
}

func (m *mockMarketplace) UserCollections(_ context.Context, _ string, offset, _ int) (port.CollectionPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets = append(m.offsets, offset)
	if err := m.errs[offset]; err != nil {
		return port.CollectionPage{}, err
	}
	return m.pages[offset], nil
}

func intPtr(v int) *int { return &v }
