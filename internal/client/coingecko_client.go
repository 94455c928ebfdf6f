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

	"go.uber.org/zap"
)

type coinGeckoClientImpl struct {
	http    *httpclient.Client
	baseURL string
	apiKey  string
	pro     bool
	timeout time.Duration
	logger  *zap.Logger
}

// NewCoinGeckoClient creates a CoinGecko client. With pro set the key is sent
// as a Pro plan key, otherwise as a demo key.
func NewCoinGeckoClient(http *httpclient.Client, baseURL, apiKey string, pro bool, timeout time.Duration, logger *zap.Logger) port.CoinGeckoClient {
	return &coinGeckoClientImpl{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		pro:     pro,
		timeout: timeout,
		logger:  logger.Named("CoinGeckoClient"),
	}
}

// SimplePrice implements port.CoinGeckoClient.
func (c *coinGeckoClientImpl) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	vsCurrency = strings.ToLower(vsCurrency)

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", vsCurrency)
	requestURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, query.Encode())

	headers := map[string]string{}
	if c.apiKey != "" {
		if c.pro {
			headers["x-cg-pro-api-key"] = c.apiKey
		} else {
			headers["x-cg-demo-api-key"] = c.apiKey
		}
	}

	var payload dex_types.CoinGeckoSimplePrice
	if err := c.http.GetJSON(ctx, requestURL, headers, c.timeout, &payload); err != nil {
		c.logger.Warn("CoinGecko simple price request failed", zap.Strings("ids", ids), zap.Error(err))
		return nil, err
	}

	prices := make(map[string]float64, len(payload))
	for id, byCurrency := range payload {
		if price, ok := byCurrency[vsCurrency]; ok {
			prices[id] = price
		}
	}
	c.logger.Debug("CoinGecko prices fetched", zap.Int("requested", len(ids)), zap.Int("returned", len(prices)))
	return prices, nil
}
