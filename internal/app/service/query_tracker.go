package service

import (
	"context"
	"sync"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/cache"
)

// Dashboard serves the "current wallet" view. Each Load supersedes the one
// before it: the older query is cancelled and its result is never published.
type Dashboard struct {
	portfolio port.PortfolioService
	logger    port.Logger

	mu      sync.Mutex
	queryID uint64
	cancel  context.CancelFunc
	current *entity.PortfolioSnapshot
}

// NewDashboard creates a Dashboard on top of a portfolio service.
func NewDashboard(portfolio port.PortfolioService, logger port.Logger) *Dashboard {
	return &Dashboard{portfolio: portfolio, logger: logger}
}

// Load builds the portfolio of wallet and publishes it as the current one.
// refresh bypasses cached prices and collections. If a newer Load started
// meanwhile, the result is discarded and entity.ErrQuerySuperseded returned.
func (d *Dashboard) Load(ctx context.Context, wallet string, refresh bool) (*entity.PortfolioSnapshot, error) {
	if err := entity.ValidateAddress(wallet); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if refresh {
		queryCtx = cache.WithRefresh(queryCtx)
	}

	d.mu.Lock()
	d.queryID++
	id := d.queryID
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = cancel
	d.mu.Unlock()

	d.logger.Debug("Portfolio query started", "queryId", id, "wallet", wallet, "refresh", refresh)
	snapshot, err := d.portfolio.BuildPortfolio(queryCtx, wallet)

	d.mu.Lock()
	defer d.mu.Unlock()
	if id != d.queryID {
		d.logger.Debug("Discarding superseded portfolio query", "queryId", id, "currentQueryId", d.queryID)
		return nil, entity.ErrQuerySuperseded
	}
	d.cancel = nil
	if err != nil {
		return nil, err
	}
	snapshot.QueryID = id
	d.current = snapshot
	return snapshot, nil
}

// Current returns the last published snapshot, or nil before the first Load.
func (d *Dashboard) Current() *entity.PortfolioSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}
