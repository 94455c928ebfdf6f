package entity

// FloorSource tells where a collection floor price came from.
type FloorSource string

const (
	FloorFromMarketplace FloorSource = "marketplace"
	FloorSynthetic       FloorSource = "synthetic"
	FloorNone            FloorSource = "none"
)

// FloorPrice is the cheapest listing price of a collection in Currency.
type FloorPrice struct {
	Amount   float64     `json:"amount"`
	Currency string      `json:"currency"`
	Source   FloorSource `json:"source"`
}

// NFTCollection is one collection the wallet owns tokens of.
type NFTCollection struct {
	Address      string     `json:"address"`
	Name         string     `json:"name"`
	Symbol       string     `json:"symbol,omitempty"`
	Image        string     `json:"image,omitempty"`
	Verified     bool       `json:"verified"`
	OwnedCount   int        `json:"ownedCount"`
	TokenIDs     []string   `json:"tokenIds,omitempty"`
	FloorPrice   FloorPrice `json:"floorPrice"`
	CurrencyRate float64    `json:"currencyRateUSD"`
	TotalValue   float64    `json:"totalValueUSD"`
	OwnerCount   int        `json:"ownerCount,omitempty"`
	OnSaleCount  int        `json:"onSaleCount,omitempty"`
	TotalSupply  int        `json:"totalSupply,omitempty"`
}

// Revalue recomputes TotalValue from the owned count, floor and currency rate.
func (c *NFTCollection) Revalue() {
	c.TotalValue = float64(c.OwnedCount) * c.FloorPrice.Amount * c.CurrencyRate
}

// NFTStats summarises a set of collections.
type NFTStats struct {
	TotalCollections int     `json:"totalCollections"`
	TotalNFTs        int     `json:"totalNfts"`
	TotalValue       float64 `json:"totalValueUSD"`
	AverageFloorUSD  float64 `json:"averageFloorUSD"`
}
