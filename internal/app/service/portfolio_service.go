package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/metrics"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	balances              port.BalanceFetcher
	nfts                  port.NFTResolver
	prices                port.PriceResolver
	walletProvider        port.WalletProvider
	clock                 clock.Clock
	logger                port.Logger
	maxConcurrentRoutines int
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
// walletProvider is only needed by FetchAllWalletsPortfolio and may be nil.
func NewPortfolioService(
	bf port.BalanceFetcher,
	nr port.NFTResolver,
	pr port.PriceResolver,
	wp port.WalletProvider,
	clk clock.Clock,
	l port.Logger,
	maxRoutines int,
) *PortfolioServiceImpl {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioServiceImpl{
		balances:              bf,
		nfts:                  nr,
		prices:                pr,
		walletProvider:        wp,
		clock:                 clk,
		logger:                l,
		maxConcurrentRoutines: maxRoutines,
	}
}

// BuildPortfolio values every token and NFT collection of wallet. Only an
// invalid address or an unreachable chain fail the call; everything else
// degrades into the snapshot's Errors.
func (s *PortfolioServiceImpl) BuildPortfolio(ctx context.Context, wallet string) (*entity.PortfolioSnapshot, error) {
	if err := entity.ValidateAddress(wallet); err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() { metrics.PortfolioBuildDuration.Observe(time.Since(started).Seconds()) }()

	snapshot := &entity.PortfolioSnapshot{
		Address:         entity.NormalizeAddress(wallet),
		SourceBreakdown: make(map[entity.PriceSource]int),
	}

	var (
		balances    []entity.Balance
		collections []entity.NFTCollection
		nftErr      error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = s.balances.GetBalances(gctx, wallet)
		if errors.Is(err, entity.ErrRPCUnavailable) {
			return err
		}
		if err != nil {
			s.logger.Warn("Balances unavailable", "wallet", wallet, "error", err)
			snapshot.BalancesUnavailable = true
			snapshot.Errors = append(snapshot.Errors, entity.PortfolioError{Component: entity.ComponentBalances, Message: err.Error()})
			balances = nil
		}
		return nil
	})
	g.Go(func() error {
		collections, nftErr = s.nfts.GetUserCollections(gctx, wallet)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build portfolio for %s: %w", wallet, err)
	}

	s.applyNFTResult(snapshot, collections, nftErr)
	s.applyBalances(ctx, snapshot, balances)

	snapshot.TotalTokenValue = lo.SumBy(snapshot.Holdings, func(h entity.TokenHolding) float64 { return h.Value })
	snapshot.TotalNFTValue = lo.SumBy(snapshot.NFTCollections, func(c entity.NFTCollection) float64 { return c.TotalValue })
	snapshot.TotalValue = snapshot.TotalTokenValue + snapshot.TotalNFTValue
	snapshot.FetchedAt = s.clock.Now()

	s.logger.Info("Portfolio built",
		"wallet", snapshot.Address,
		"holdings", len(snapshot.Holdings),
		"collections", len(snapshot.NFTCollections),
		"totalValueUSD", snapshot.TotalValue,
		"degradations", len(snapshot.Errors))
	return snapshot, nil
}

func (s *PortfolioServiceImpl) applyNFTResult(snapshot *entity.PortfolioSnapshot, collections []entity.NFTCollection, err error) {
	switch {
	case err == nil:
	case entity.IsPartial(err):
		s.logger.Warn("NFT collections incomplete", "wallet", snapshot.Address, "error", err)
		snapshot.Errors = append(snapshot.Errors, entity.PortfolioError{Component: entity.ComponentNFTs, Message: err.Error()})
	default:
		s.logger.Warn("NFT collections unavailable", "wallet", snapshot.Address, "error", err)
		snapshot.NFTsUnavailable = true
		snapshot.Errors = append(snapshot.Errors, entity.PortfolioError{Component: entity.ComponentNFTs, Message: err.Error()})
		collections = nil
	}
	snapshot.NFTCollections = slices.Clone(collections)
	if snapshot.NFTCollections == nil {
		snapshot.NFTCollections = []entity.NFTCollection{}
	}
	SortCollections(snapshot.NFTCollections)
}

// applyBalances prices every non-zero balance and fills the holdings.
func (s *PortfolioServiceImpl) applyBalances(ctx context.Context, snapshot *entity.PortfolioSnapshot, balances []entity.Balance) {
	for _, b := range balances {
		if b.Error != "" {
			snapshot.Errors = append(snapshot.Errors, entity.PortfolioError{
				Component:   entity.ComponentBalances,
				TokenSymbol: b.Token.Symbol,
				Message:     b.Error,
			})
		}
	}

	held := lo.Filter(balances, func(b entity.Balance, _ int) bool { return !b.IsZero() })
	reqs := lo.Map(held, func(b entity.Balance, _ int) port.PriceRequest { return port.PriceRequestFor(b.Token) })
	quotes := s.prices.ResolveMany(ctx, reqs)

	snapshot.Holdings = make([]entity.TokenHolding, 0, len(held))
	for _, b := range held {
		var quote *entity.PriceQuote
		if q, ok := quotes[strings.ToLower(b.Token.Symbol)]; ok {
			quote = &q
			snapshot.SourceBreakdown[q.Source]++
		}
		h := entity.NewTokenHolding(b, quote)
		if h.HasRealPrice() {
			snapshot.PricedHoldings++
		} else {
			snapshot.Errors = append(snapshot.Errors, entity.PortfolioError{
				Component:   entity.ComponentPricing,
				TokenSymbol: b.Token.Symbol,
				Message:     "no live or static price, emergency value used",
			})
		}
		snapshot.Holdings = append(snapshot.Holdings, h)
	}
	SortHoldings(snapshot.Holdings)
}

// SortHoldings orders holdings by value, highest first, then by symbol.
func SortHoldings(holdings []entity.TokenHolding) {
	slices.SortStableFunc(holdings, func(a, b entity.TokenHolding) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Balance.Token.Symbol, b.Balance.Token.Symbol)
	})
}

// WalletReport is the outcome of one wallet in a batch run.
type WalletReport struct {
	Wallet   string                    `json:"wallet"`
	Snapshot *entity.PortfolioSnapshot `json:"snapshot,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// FetchAllWalletsPortfolio builds portfolios for wallets, or for every wallet
// of the WalletProvider when wallets is empty. At most maxConcurrentRoutines
// wallets are processed at once; reports keep the input order.
func (s *PortfolioServiceImpl) FetchAllWalletsPortfolio(ctx context.Context, wallets []string) ([]WalletReport, error) {
	if len(wallets) == 0 {
		if s.walletProvider == nil {
			return nil, errors.New("no wallets given and no wallet provider configured")
		}
		var err error
		wallets, err = s.walletProvider.GetWallets()
		if err != nil {
			s.logger.Error("Failed to get wallets", "error", err)
			return nil, fmt.Errorf("failed to load wallets: %w", err)
		}
	}
	s.logger.Debug("Fetching all wallets portfolio", "count", len(wallets))

	reports := make([]WalletReport, len(wallets))
	semaphore := make(chan struct{}, s.maxConcurrentRoutines)
	var wg sync.WaitGroup

	for i, wallet := range wallets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			report := WalletReport{Wallet: wallet}
			snapshot, err := s.BuildPortfolio(ctx, wallet)
			if err != nil {
				s.logger.Error("Failed to build portfolio", "wallet", wallet, "error", err)
				report.Error = err.Error()
			}
			report.Snapshot = snapshot
			reports[i] = report
		}()
	}
	wg.Wait()

	s.logger.Info("Fetched portfolios for all wallets", "count", len(reports))
	return reports, nil
}
