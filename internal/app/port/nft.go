package port

import "context"

// OwnedCollection is one marketplace record of a collection held by a wallet.
type OwnedCollection struct {
	Address       string
	Name          string
	Symbol        string
	Image         string
	Verified      bool
	OwnedCount    int
	OnSaleCount   int
	OwnerCount    int
	TotalSupply   int
	FloorAmount   float64
	FloorCurrency string
	TokenIDs      []string
}

// CollectionPage is one page of a user's collections. NextOffset is nil when
// the marketplace reports no further pages. RawCount is the number of records
// the marketplace returned before incomplete ones were dropped.
type CollectionPage struct {
	Collections []OwnedCollection
	NextOffset  *int
	RawCount    int
}

// NFTMarketplace lists the collections a wallet owns and looks up floors of
// single collections.
type NFTMarketplace interface {
	UserCollections(ctx context.Context, owner string, offset, limit int) (CollectionPage, error)
	// CollectionFloor returns the floor price of a collection in the native
	// currency, or 0 when the marketplace knows none.
	CollectionFloor(ctx context.Context, collection string) (float64, error)
}
