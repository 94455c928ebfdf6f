package entity

// Components reported in PortfolioError.
const (
	ComponentBalances = "balances"
	ComponentNFTs     = "nfts"
	ComponentPricing  = "pricing"
)

// PortfolioError describes a degradation that happened while building a snapshot.
// The snapshot is still returned; these let callers tell partial data from complete data.
type PortfolioError struct {
	Component         string `json:"component"`
	TokenSymbol       string `json:"tokenSymbol,omitempty"`
	CollectionAddress string `json:"collectionAddress,omitempty"`
	Message           string `json:"message"`
}
