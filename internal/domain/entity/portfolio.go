package entity

import "time"

// PortfolioSnapshot is the valuation of one wallet at one moment.
type PortfolioSnapshot struct {
	Address             string              `json:"address"`
	QueryID             uint64              `json:"queryId"`
	Holdings            []TokenHolding      `json:"holdings"`
	NFTCollections      []NFTCollection     `json:"nftCollections"`
	TotalTokenValue     float64             `json:"totalTokenValueUSD"`
	TotalNFTValue       float64             `json:"totalNftValueUSD"`
	TotalValue          float64             `json:"totalValueUSD"`
	PricedHoldings      int                 `json:"pricedHoldings"`
	SourceBreakdown     map[PriceSource]int `json:"sourceBreakdown"`
	BalancesUnavailable bool                `json:"balancesUnavailable,omitempty"`
	NFTsUnavailable     bool                `json:"nftsUnavailable,omitempty"`
	Errors              []PortfolioError    `json:"errors,omitempty"`
	FetchedAt           time.Time           `json:"fetchedAt"`
}
