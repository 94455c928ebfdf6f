package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"nadfolio/internal/app/port"
	"nadfolio/internal/app/service"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/cache"

	"github.com/gin-gonic/gin"
)

// PortfolioLoader builds and remembers the current portfolio.
type PortfolioLoader interface {
	Load(ctx context.Context, wallet string, refresh bool) (*entity.PortfolioSnapshot, error)
	Current() *entity.PortfolioSnapshot
}

// WalletsPortfolioFetcher builds portfolios for the configured wallet list.
type WalletsPortfolioFetcher interface {
	FetchAllWalletsPortfolio(ctx context.Context, wallets []string) ([]service.WalletReport, error)
}

// PriceInspector exposes single-token pricing and tier health.
type PriceInspector interface {
	ResolvePrice(ctx context.Context, req port.PriceRequest) entity.PriceQuote
	HealthCheck(ctx context.Context) service.PriceHealth
}

// APIResponse is the envelope of every JSON answer.
type APIResponse struct {
	Data          any                     `json:"data,omitempty"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message"`
}

// NFTsResponse is the payload of the collections endpoint.
type NFTsResponse struct {
	Address     string                 `json:"address"`
	Collections []entity.NFTCollection `json:"collections"`
	Stats       entity.NFTStats        `json:"stats"`
	Partial     bool                   `json:"partial,omitempty"`
}

// PortfolioHandler serves the portfolio, NFT and price endpoints.
type PortfolioHandler struct {
	dashboard PortfolioLoader
	batch     WalletsPortfolioFetcher
	nfts      port.NFTResolver
	prices    PriceInspector
	tokens    port.TokenProvider
	logger    port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(dashboard PortfolioLoader, batch WalletsPortfolioFetcher, nfts port.NFTResolver, prices PriceInspector, tokens port.TokenProvider, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{dashboard: dashboard, batch: batch, nfts: nfts, prices: prices, tokens: tokens, logger: logger}
}

// GetPortfolioHandler answers GET /portfolio/:address[?refresh=true].
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	address := c.Param("address")
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	snapshot, err := h.dashboard.Load(c.Request.Context(), address, refresh)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Data:          snapshot,
		ServiceErrors: snapshot.Errors,
		StatusMessage: snapshotMessage(snapshot),
	})
}

// GetCurrentPortfolioHandler answers GET /portfolio/current.
func (h *PortfolioHandler) GetCurrentPortfolioHandler(c *gin.Context) {
	snapshot := h.dashboard.Current()
	if snapshot == nil {
		c.JSON(http.StatusNotFound, APIResponse{StatusMessage: "No portfolio has been loaded yet."})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: snapshot, ServiceErrors: snapshot.Errors, StatusMessage: snapshotMessage(snapshot)})
}

// GetPortfoliosHandler answers GET /portfolios for every wallet of the wallet file.
func (h *PortfolioHandler) GetPortfoliosHandler(c *gin.Context) {
	if h.batch == nil {
		c.JSON(http.StatusNotImplemented, APIResponse{StatusMessage: "Wallet list is not configured."})
		return
	}
	reports, err := h.batch.FetchAllWalletsPortfolio(c.Request.Context(), nil)
	if err != nil {
		h.fail(c, err)
		return
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	response := APIResponse{Data: gin.H{"portfolios": reports}}
	switch {
	case len(reports) == 0:
		response.StatusMessage = "No portfolio data found. Check the wallet list."
	case failed == len(reports):
		response.StatusMessage = "Failed to retrieve any portfolios."
	case failed > 0:
		response.StatusMessage = "Portfolios retrieved. Some wallets encountered errors."
	default:
		response.StatusMessage = "Portfolios retrieved successfully."
	}
	c.JSON(http.StatusOK, response)
}

// GetNFTsHandler answers GET /nfts/:address[?refresh=true].
func (h *PortfolioHandler) GetNFTsHandler(c *gin.Context) {
	address := c.Param("address")
	if err := entity.ValidateAddress(address); err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false")); refresh {
		ctx = cache.WithRefresh(ctx)
	}

	collections, err := h.nfts.GetUserCollections(ctx, address)
	partial := entity.IsPartial(err)
	if err != nil && !partial {
		h.fail(c, err)
		return
	}

	response := APIResponse{
		Data: NFTsResponse{
			Address:     entity.NormalizeAddress(address),
			Collections: collections,
			Stats:       service.Stats(collections),
			Partial:     partial,
		},
		StatusMessage: "Collections retrieved successfully.",
	}
	if partial {
		response.ServiceErrors = []entity.PortfolioError{{Component: entity.ComponentNFTs, Message: err.Error()}}
		response.StatusMessage = "Collections retrieved. The marketplace answered only partially."
	}
	c.JSON(http.StatusOK, response)
}

// GetPriceHandler answers GET /prices/:symbol for a token of the token list.
func (h *PortfolioHandler) GetPriceHandler(c *gin.Context) {
	symbol := c.Param("symbol")
	tokens, err := h.tokens.GetTokens()
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			quote := h.prices.ResolvePrice(c.Request.Context(), port.PriceRequestFor(t))
			c.JSON(http.StatusOK, APIResponse{Data: quote, StatusMessage: "Price resolved."})
			return
		}
	}
	c.JSON(http.StatusNotFound, APIResponse{StatusMessage: "Unknown token symbol: " + symbol})
}

// GetPriceHealthHandler answers GET /health/prices.
func (h *PortfolioHandler) GetPriceHealthHandler(c *gin.Context) {
	report := h.prices.HealthCheck(c.Request.Context())
	c.JSON(http.StatusOK, APIResponse{Data: report, StatusMessage: "Price services are " + report.Overall + "."})
}

func (h *PortfolioHandler) fail(c *gin.Context, err error) {
	code := StatusForError(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", c.FullPath(), "status", code, "error", err)
	}
	c.JSON(code, APIResponse{StatusMessage: err.Error()})
}

// StatusForError maps pipeline errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrQuerySuperseded):
		return http.StatusConflict
	case errors.Is(err, entity.ErrRPCUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func snapshotMessage(s *entity.PortfolioSnapshot) string {
	switch {
	case s.BalancesUnavailable && s.NFTsUnavailable:
		return "Portfolio built without balances and NFTs; upstream services are unavailable."
	case len(s.Errors) > 0:
		return "Portfolio built. Some components were degraded."
	default:
		return "Portfolio built successfully."
	}
}
