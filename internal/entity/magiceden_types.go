package entity

import (
	"bytes"
	"strconv"
)

// MEUserCollectionsResponse is the Magic Eden /users/{addr}/collections/v3 answer.
type MEUserCollectionsResponse struct {
	Collections []MEUserCollection `json:"collections"`
	// NextOffset is not always sent; the client derives it from the page size when absent.
	NextOffset *int `json:"nextOffset,omitempty"`
}

// MEUserCollection pairs collection metadata with the user's ownership.
type MEUserCollection struct {
	Collection *MECollection `json:"collection"`
	Ownership  *MEOwnership  `json:"ownership"`
}

// MECollection is the collection metadata block.
type MECollection struct {
	ID                        string      `json:"id"`
	Name                      string      `json:"name"`
	Symbol                    string      `json:"symbol"`
	Image                     string      `json:"image"`
	TokenCount                FlexInt     `json:"tokenCount"`
	OwnerCount                FlexInt     `json:"ownerCount"`
	OpenseaVerificationStatus string      `json:"openseaVerificationStatus"`
	FloorAskPrice             *MEFloorAsk `json:"floorAskPrice"`
	TokenIDs                  []string    `json:"tokenIds,omitempty"`
}

// MEFloorAsk is the cheapest listing of a collection.
type MEFloorAsk struct {
	Currency *MECurrency `json:"currency"`
	Amount   *MEAmount   `json:"amount"`
}

// MECurrency identifies the listing currency.
type MECurrency struct {
	Contract string `json:"contract"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// MEAmount is a price in several representations.
type MEAmount struct {
	Raw     string  `json:"raw"`
	Decimal float64 `json:"decimal"`
	Usd     float64 `json:"usd"`
	Native  float64 `json:"native"`
}

// MEOwnership is how many tokens of the collection the user holds.
type MEOwnership struct {
	TokenCount  FlexInt `json:"tokenCount"`
	OnSaleCount FlexInt `json:"onSaleCount"`
}

// MECollectionStats is the /collections/{addr}/stats answer. Depending on
// the API version the floor arrives camel- or snake-cased.
type MECollectionStats struct {
	FloorPrice      FlexFloat `json:"floorPrice"`
	FloorPriceSnake FlexFloat `json:"floor_price"`
}

// Floor returns whichever floor field is set.
func (s MECollectionStats) Floor() float64 {
	if s.FloorPrice > 0 {
		return float64(s.FloorPrice)
	}
	return float64(s.FloorPriceSnake)
}

// MEListing is one entry of /collections/{addr}/listings.
type MEListing struct {
	Price     FlexFloat `json:"price"`
	PriceInfo *struct {
		Price FlexFloat `json:"price"`
	} `json:"priceInfo"`
}

// Amount returns the listing price, falling back to priceInfo.
func (l MEListing) Amount() float64 {
	if l.Price > 0 || l.PriceInfo == nil {
		return float64(l.Price)
	}
	return float64(l.PriceInfo.Price)
}

// FlexInt decodes integers that the API sends either as numbers or as strings.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = FlexInt(v)
	return nil
}

// FlexFloat decodes decimals sent either as numbers or as strings.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}
