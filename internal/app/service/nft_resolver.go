package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/cache"
	"nadfolio/internal/pkg/batch"
	"nadfolio/internal/pkg/clock"

	"github.com/samber/lo"
)

// NFTResolverOptions tunes pagination, sampling and caching.
type NFTResolverOptions struct {
	PageLimit      int
	MaxPages       int
	SampleTokenIDs int
	CacheTTL       time.Duration
	// Token id sampling runs over collections in chunks of SampleBatchSize
	// with SampleBatchDelay between chunks.
	SampleBatchSize  int
	SampleBatchDelay time.Duration
	// Per-collection floor lookups for collections listed without a floor.
	FloorBatchSize  int
	FloorBatchDelay time.Duration
	FloorCacheTTL   time.Duration
	// NativeSymbol is the currency synthetic floors are expressed in.
	NativeSymbol string
	// WrappedNativeSymbol is priced like the native currency.
	WrappedNativeSymbol string
}

// NFTResolver lists the collections a wallet holds and values each one at
// owned count x floor x currency rate.
type NFTResolver struct {
	market     port.NFTMarketplace
	chain      port.ChainReader
	prices     port.PriceResolver
	floors     *FloorEstimator
	cache      *cache.Namespace
	floorCache *cache.Namespace
	clock      clock.Clock
	logger     port.Logger
	opts       NFTResolverOptions
}

// NewNFTResolver creates an NFTResolver. chain may be nil to disable token id
// sampling; floorCache may be nil to look collection floors up every time.
func NewNFTResolver(market port.NFTMarketplace, chain port.ChainReader, prices port.PriceResolver, floors *FloorEstimator, nfts, floorCache *cache.Namespace, clk clock.Clock, logger port.Logger, opts NFTResolverOptions) *NFTResolver {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 20
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if opts.NativeSymbol == "" {
		opts.NativeSymbol = "MON"
	}
	if opts.SampleBatchSize <= 0 {
		opts.SampleBatchSize = 4
	}
	if opts.FloorBatchSize <= 0 {
		opts.FloorBatchSize = 3
	}
	return &NFTResolver{
		market:     market,
		chain:      chain,
		prices:     prices,
		floors:     floors,
		cache:      nfts,
		floorCache: floorCache,
		clock:      clk,
		logger:     logger,
		opts:       opts,
	}
}

// GetUserCollections implements port.NFTResolver. When pagination stops on a
// failing page the collections gathered so far are returned together with an
// *entity.PartialResultError; such results are not cached.
func (r *NFTResolver) GetUserCollections(ctx context.Context, wallet string) ([]entity.NFTCollection, error) {
	if err := entity.ValidateAddress(wallet); err != nil {
		return nil, err
	}
	key := strings.ToLower(wallet)

	if r.cache != nil && !cache.IsRefresh(ctx) {
		if cached, ok := r.cache.Get(key); ok {
			return slices.Clone(cached.([]entity.NFTCollection)), nil
		}
	}

	records, pageErr := r.fetchAllPages(ctx, wallet)
	collections := r.group(records)

	r.marketFloors(ctx, collections)
	for i := range collections {
		r.applyFloor(&collections[i])
	}
	r.sampleTokenIDs(ctx, wallet, collections)
	r.applyCurrencyRates(ctx, collections)
	SortCollections(collections)

	if pageErr != nil {
		return collections, &entity.PartialResultError{Err: pageErr}
	}
	if r.cache != nil {
		r.cache.Set(key, slices.Clone(collections), r.opts.CacheTTL)
	}
	r.logger.Info("NFT collections resolved", "wallet", wallet, "collections", len(collections))
	return collections, nil
}

// fetchAllPages follows the marketplace pagination. A failing page ends the
// loop; what was gathered before it is kept.
func (r *NFTResolver) fetchAllPages(ctx context.Context, wallet string) ([]port.OwnedCollection, error) {
	var records []port.OwnedCollection
	offset := 0

	for page := 0; page < r.opts.MaxPages; page++ {
		res, err := r.market.UserCollections(ctx, wallet, offset, r.opts.PageLimit)
		if err != nil {
			r.logger.Warn("NFT page failed, treating as empty", "wallet", wallet, "offset", offset, "error", err)
			return records, fmt.Errorf("collections page at offset %d: %w", offset, err)
		}
		// A page whose records were all dropped as incomplete is not the end.
		if len(res.Collections) == 0 && res.RawCount == 0 {
			break
		}
		records = append(records, res.Collections...)

		if res.NextOffset == nil || *res.NextOffset <= offset {
			break
		}
		offset = *res.NextOffset
	}
	return records, nil
}

// group merges records of the same collection, identified by lower-cased
// address and name. The first record seen supplies the metadata.
func (r *NFTResolver) group(records []port.OwnedCollection) []entity.NFTCollection {
	type groupKey struct{ address, name string }
	index := make(map[groupKey]int, len(records))
	var out []entity.NFTCollection

	for _, rec := range records {
		k := groupKey{strings.ToLower(rec.Address), strings.ToLower(rec.Name)}
		if i, ok := index[k]; ok {
			c := &out[i]
			c.OwnedCount += rec.OwnedCount
			c.OnSaleCount += rec.OnSaleCount
			c.TokenIDs = lo.Uniq(append(c.TokenIDs, rec.TokenIDs...))
			if c.FloorPrice.Amount <= 0 && rec.FloorAmount > 0 {
				c.FloorPrice = entity.FloorPrice{Amount: rec.FloorAmount, Currency: rec.FloorCurrency, Source: entity.FloorFromMarketplace}
			}
			continue
		}
		index[k] = len(out)
		c := entity.NFTCollection{
			Address:     rec.Address,
			Name:        rec.Name,
			Symbol:      rec.Symbol,
			Image:       rec.Image,
			Verified:    rec.Verified,
			OwnedCount:  rec.OwnedCount,
			OnSaleCount: rec.OnSaleCount,
			OwnerCount:  rec.OwnerCount,
			TotalSupply: rec.TotalSupply,
			TokenIDs:    lo.Uniq(rec.TokenIDs),
		}
		if rec.FloorAmount > 0 {
			c.FloorPrice = entity.FloorPrice{Amount: rec.FloorAmount, Currency: rec.FloorCurrency, Source: entity.FloorFromMarketplace}
		}
		out = append(out, c)
	}
	return out
}

// marketFloors asks the marketplace for the floor of every collection that
// was listed without one. Lookups run in small batches and are cached per
// collection address.
func (r *NFTResolver) marketFloors(ctx context.Context, collections []entity.NFTCollection) {
	targets := lo.Filter(lo.Range(len(collections)), func(i int, _ int) bool {
		return collections[i].FloorPrice.Amount <= 0
	})
	if len(targets) == 0 {
		return
	}

	outcomes := batch.Process(ctx, targets, r.opts.FloorBatchSize, r.opts.FloorBatchDelay, r.clock, func(ctx context.Context, i int) (float64, error) {
		return r.collectionFloor(ctx, collections[i].Address)
	})
	for _, o := range outcomes {
		if !o.OK() {
			r.logger.Debug("Collection floor lookup failed", "collection", collections[o.Item].Address, "error", o.Err)
			continue
		}
		if o.Value > 0 {
			collections[o.Item].FloorPrice = entity.FloorPrice{Amount: o.Value, Currency: r.opts.NativeSymbol, Source: entity.FloorFromMarketplace}
		}
	}
}

func (r *NFTResolver) collectionFloor(ctx context.Context, address string) (float64, error) {
	key := strings.ToLower(address)
	if r.floorCache != nil && !cache.IsRefresh(ctx) {
		if cached, ok := r.floorCache.Get(key); ok {
			return cached.(float64), nil
		}
	}
	floor, err := r.market.CollectionFloor(ctx, address)
	if err != nil {
		return 0, err
	}
	floor = max(floor, 0)
	if r.floorCache != nil {
		r.floorCache.Set(key, floor, r.opts.FloorCacheTTL)
	}
	return floor, nil
}

func (r *NFTResolver) applyFloor(c *entity.NFTCollection) {
	switch {
	case c.FloorPrice.Amount > 0:
		if c.FloorPrice.Currency == "" {
			c.FloorPrice.Currency = r.opts.NativeSymbol
		}
	case r.floors != nil:
		c.FloorPrice = entity.FloorPrice{
			Amount:   r.floors.Estimate(c.Address, c.Name),
			Currency: r.opts.NativeSymbol,
			Source:   entity.FloorSynthetic,
		}
	default:
		c.FloorPrice = entity.FloorPrice{Currency: r.opts.NativeSymbol, Source: entity.FloorNone}
	}
}

// sampleTokenIDs reads up to SampleTokenIDs ids per collection through
// ERC-721 enumeration. Collections that already carry ids, or whose contract
// does not support enumeration, are left alone.
func (r *NFTResolver) sampleTokenIDs(ctx context.Context, wallet string, collections []entity.NFTCollection) {
	if r.chain == nil || r.opts.SampleTokenIDs <= 0 {
		return
	}
	targets := lo.Filter(lo.Range(len(collections)), func(i int, _ int) bool {
		return len(collections[i].TokenIDs) == 0 && collections[i].OwnedCount > 0
	})

	outcomes := batch.Process(ctx, targets, r.opts.SampleBatchSize, r.opts.SampleBatchDelay, r.clock, func(ctx context.Context, i int) ([]string, error) {
		c := collections[i]
		n := min(c.OwnedCount, r.opts.SampleTokenIDs)
		ids := make([]string, 0, n)
		for idx := 0; idx < n; idx++ {
			id, err := r.chain.TokenOfOwnerByIndex(ctx, c.Address, wallet, int64(idx))
			if err != nil {
				r.logger.Debug("Token id sampling stopped", "collection", c.Address, "index", idx, "error", err)
				break
			}
			ids = append(ids, id.String())
		}
		return ids, nil
	})
	for _, o := range outcomes {
		if o.OK() && len(o.Value) > 0 {
			collections[o.Item].TokenIDs = o.Value
		}
	}
}

// applyCurrencyRates converts every floor currency to USD once and revalues
// the collections.
func (r *NFTResolver) applyCurrencyRates(ctx context.Context, collections []entity.NFTCollection) {
	rates := make(map[string]float64)
	for i := range collections {
		c := &collections[i]
		cur := strings.ToUpper(c.FloorPrice.Currency)
		rate, ok := rates[cur]
		if !ok {
			rate = r.currencyRate(ctx, cur)
			rates[cur] = rate
		}
		c.CurrencyRate = rate
		c.Revalue()
	}
}

func (r *NFTResolver) currencyRate(ctx context.Context, currency string) float64 {
	native := strings.ToUpper(r.opts.NativeSymbol)
	switch currency {
	case "USD", "USDC", "USDT":
		return 1
	case "", native, strings.ToUpper(r.opts.WrappedNativeSymbol):
		return r.nativeRate(ctx)
	}
	if r.prices != nil {
		if q := r.prices.ResolvePrice(ctx, port.PriceRequest{Symbol: currency}); q.Price > 0 {
			return q.Price
		}
	}
	r.logger.Warn("Unknown floor currency, valuing as native", "currency", currency)
	return r.nativeRate(ctx)
}

func (r *NFTResolver) nativeRate(ctx context.Context) float64 {
	if r.prices == nil {
		return 0
	}
	q := r.prices.ResolvePrice(ctx, port.PriceRequest{Symbol: r.opts.NativeSymbol, Address: entity.ZeroAddress, Decimals: 18, IsNative: true})
	return q.Price
}

// SortCollections orders collections by total value, highest first, then by name.
func SortCollections(collections []entity.NFTCollection) {
	slices.SortStableFunc(collections, func(a, b entity.NFTCollection) int {
		if c := cmp.Compare(b.TotalValue, a.TotalValue); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// Stats summarises collections: counts, total value and the mean floor in USD.
func Stats(collections []entity.NFTCollection) entity.NFTStats {
	stats := entity.NFTStats{
		TotalCollections: len(collections),
		TotalNFTs:        lo.SumBy(collections, func(c entity.NFTCollection) int { return c.OwnedCount }),
		TotalValue:       lo.SumBy(collections, func(c entity.NFTCollection) float64 { return c.TotalValue }),
	}
	if len(collections) > 0 {
		floors := lo.SumBy(collections, func(c entity.NFTCollection) float64 { return c.FloorPrice.Amount * c.CurrencyRate })
		stats.AverageFloorUSD = floors / float64(len(collections))
	}
	return stats
}
