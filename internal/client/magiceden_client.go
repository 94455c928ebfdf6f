package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"nadfolio/internal/app/port"
	dex_types "nadfolio/internal/entity"
	"nadfolio/internal/infrastructure/httpclient"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MagicEdenEndpoints are the API roots the client talks to. Collections
// serves user collections; Stats and Legacy serve per-collection stats, and
// Legacy also serves listings.
type MagicEdenEndpoints struct {
	Collections string
	Stats       string
	Legacy      string
}

type magicEdenClientImpl struct {
	http      *httpclient.Client
	endpoints MagicEdenEndpoints
	chain     string
	apiKey    string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewMagicEdenClient creates a client for the Magic Eden collections APIs.
func NewMagicEdenClient(http *httpclient.Client, endpoints MagicEdenEndpoints, chain, apiKey string, timeout time.Duration, logger *zap.Logger) port.NFTMarketplace {
	endpoints.Collections = strings.TrimRight(endpoints.Collections, "/")
	endpoints.Stats = strings.TrimRight(endpoints.Stats, "/")
	endpoints.Legacy = strings.TrimRight(endpoints.Legacy, "/")
	return &magicEdenClientImpl{
		http:      http,
		endpoints: endpoints,
		chain:     chain,
		apiKey:    apiKey,
		timeout:   timeout,
		logger:    logger.Named("MagicEdenClient"),
	}
}

func (c *magicEdenClientImpl) headers() map[string]string {
	headers := map[string]string{}
	if c.apiKey != "" {
		// Magic Eden expects the bare key, without a Bearer prefix.
		headers["Authorization"] = c.apiKey
	}
	return headers
}

// UserCollections implements port.NFTMarketplace. Records without a
// collection id or ownership block are dropped.
func (c *magicEdenClientImpl) UserCollections(ctx context.Context, owner string, offset, limit int) (port.CollectionPage, error) {
	query := url.Values{}
	query.Set("includeTopBid", "false")
	query.Set("includeLiquidCount", "false")
	query.Set("offset", fmt.Sprint(offset))
	query.Set("limit", fmt.Sprint(limit))
	requestURL := fmt.Sprintf("%s/%s/users/%s/collections/v3?%s", c.endpoints.Collections, c.chain, owner, query.Encode())

	var payload dex_types.MEUserCollectionsResponse
	if err := c.http.GetJSON(ctx, requestURL, c.headers(), c.timeout, &payload); err != nil {
		return port.CollectionPage{}, err
	}

	page := port.CollectionPage{
		Collections: make([]port.OwnedCollection, 0, len(payload.Collections)),
		RawCount:    len(payload.Collections),
	}
	for _, item := range payload.Collections {
		if item.Collection == nil || item.Collection.ID == "" || item.Ownership == nil {
			c.logger.Debug("Skipping incomplete collection record", zap.String("owner", owner))
			continue
		}
		page.Collections = append(page.Collections, toOwnedCollection(item))
	}

	page.NextOffset = nextOffset(payload.NextOffset, offset, limit, len(payload.Collections))
	c.logger.Debug("Fetched Magic Eden collections page",
		zap.String("owner", owner),
		zap.Int("offset", offset),
		zap.Int("count", len(page.Collections)))
	return page, nil
}

// CollectionFloor implements port.NFTMarketplace. The stats endpoints are
// asked first, newest version first; the cheapest listing is the last resort.
// An error is returned only when every endpoint failed.
func (c *magicEdenClientImpl) CollectionFloor(ctx context.Context, collection string) (float64, error) {
	var lastErr error
	answered := false

	for _, base := range lo.Compact([]string{c.endpoints.Stats, c.endpoints.Legacy}) {
		var stats dex_types.MECollectionStats
		err := c.http.GetJSON(ctx, fmt.Sprintf("%s/collections/%s/stats", base, collection), c.headers(), c.timeout, &stats)
		if err != nil {
			c.logger.Debug("Collection stats unavailable", zap.String("collection", collection), zap.String("base", base), zap.Error(err))
			lastErr = err
			continue
		}
		answered = true
		if floor := stats.Floor(); floor > 0 {
			return floor, nil
		}
	}

	if c.endpoints.Legacy != "" {
		var listings []dex_types.MEListing
		err := c.http.GetJSON(ctx, fmt.Sprintf("%s/collections/%s/listings?offset=0&limit=1", c.endpoints.Legacy, collection), c.headers(), c.timeout, &listings)
		if err == nil {
			prices := lo.Filter(lo.Map(listings, func(l dex_types.MEListing, _ int) float64 { return l.Amount() }),
				func(p float64, _ int) bool { return p > 0 })
			if len(prices) > 0 {
				return lo.Min(prices), nil
			}
			return 0, nil
		}
		c.logger.Debug("Collection listings unavailable", zap.String("collection", collection), zap.Error(err))
		lastErr = err
	}

	if answered || lastErr == nil {
		return 0, nil
	}
	return 0, lastErr
}

// nextOffset prefers the server-provided index; otherwise a full page implies
// another one may follow.
func nextOffset(server *int, offset, limit, received int) *int {
	if server != nil {
		next := *server
		return &next
	}
	if limit > 0 && received >= limit {
		next := offset + received
		return &next
	}
	return nil
}

func toOwnedCollection(item dex_types.MEUserCollection) port.OwnedCollection {
	col := item.Collection
	owned := port.OwnedCollection{
		Address:     col.ID,
		Name:        col.Name,
		Symbol:      col.Symbol,
		Image:       col.Image,
		Verified:    col.OpenseaVerificationStatus == "verified",
		OwnedCount:  int(item.Ownership.TokenCount),
		OnSaleCount: int(item.Ownership.OnSaleCount),
		OwnerCount:  int(col.OwnerCount),
		TotalSupply: int(col.TokenCount),
		TokenIDs:    col.TokenIDs,
	}
	if owned.Name == "" {
		owned.Name = "Unknown Collection"
	}
	if col.FloorAskPrice != nil {
		if col.FloorAskPrice.Amount != nil {
			owned.FloorAmount = col.FloorAskPrice.Amount.Decimal
		}
		if col.FloorAskPrice.Currency != nil {
			owned.FloorCurrency = col.FloorAskPrice.Currency.Symbol
		}
	}
	return owned
}
