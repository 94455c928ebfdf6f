package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	dex_types "nadfolio/internal/entity"
	"nadfolio/internal/infrastructure/httpclient"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// dexScreenerClientImpl is the implementation of port.DEXScreenerClient.
type dexScreenerClientImpl struct {
	http                *httpclient.Client
	baseURL             string
	timeout             time.Duration
	logger              *zap.Logger
	maxTokensPerRequest int
}

// NewDEXScreenerClient creates a DEX Screener client on top of the shared HTTP client.
func NewDEXScreenerClient(http *httpclient.Client, baseURL string, timeout time.Duration, logger *zap.Logger, maxTokensPerRequest int) port.DEXScreenerClient {
	if maxTokensPerRequest <= 0 {
		maxTokensPerRequest = 30
	}
	return &dexScreenerClientImpl{
		http:                http,
		baseURL:             strings.TrimRight(baseURL, "/"),
		timeout:             timeout,
		logger:              logger.Named("DEXScreenerClient"),
		maxTokensPerRequest: maxTokensPerRequest,
	}
}

// GetTokenPairsByAddresses implements port.DEXScreenerClient.
func (c *dexScreenerClientImpl) GetTokenPairsByAddresses(ctx context.Context, chainID string, tokenAddresses []string) ([]dex_types.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, fmt.Errorf("tokenAddresses cannot be empty")
	}
	if len(tokenAddresses) > c.maxTokensPerRequest {
		return nil, fmt.Errorf("number of token addresses (%d) exceeds max tokens per request (%d)", len(tokenAddresses), c.maxTokensPerRequest)
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chainID, strings.Join(tokenAddresses, ","))
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	resp, err := c.http.Do(ctx, httpclient.Request{URL: requestURL, Timeout: c.timeout})
	if err != nil {
		c.logger.Warn("DEX Screener request failed", zap.String("url", requestURL), zap.Error(err))
		return nil, err
	}
	return c.decodePairs(requestURL, resp.Body)
}

// decodePairs accepts both the wrapped {"pairs": [...]} object and a bare array.
func (c *dexScreenerClientImpl) decodePairs(requestURL string, rawBody []byte) ([]dex_types.PairData, error) {
	var wrapper dex_types.DEXTokenPair
	if err := json.Unmarshal(rawBody, &wrapper); err == nil && wrapper.Pairs != nil {
		c.logger.Debug("Decoded DEX Screener response (wrapped object)", zap.Int("pairCount", len(wrapper.Pairs)))
		return wrapper.Pairs, nil
	}

	var directPairs []dex_types.PairData
	if err := json.Unmarshal(rawBody, &directPairs); err != nil {
		c.logger.Error("Failed to decode DEX Screener response",
			zap.String("url", requestURL),
			zap.ByteString("responseBody", rawBody),
			zap.Error(err))
		return nil, fmt.Errorf("%w: DEX Screener response from %s: %v", entity.ErrDataShape, requestURL, err)
	}

	if len(directPairs) == 0 {
		c.logger.Debug("DEX Screener returned no pairs", zap.String("url", requestURL))
	}
	return directPairs, nil
}
