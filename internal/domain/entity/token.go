package entity

import "strings"

// ZeroAddress is the sentinel address of the chain's native asset.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Token holds the static description of a fungible asset tracked on the network.
type Token struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Name        string `json:"name" yaml:"name"`
	Address     string `json:"address" yaml:"address"`
	Decimals    uint8  `json:"decimals" yaml:"decimals"`
	IsNative    bool   `json:"isNative,omitempty" yaml:"isNative,omitempty"`
	CoinGeckoID string `json:"coingeckoId,omitempty" yaml:"coingeckoId,omitempty"`
}

// SymbolKey returns the lower-cased symbol used for cache and table lookups.
func (t Token) SymbolKey() string {
	return strings.ToLower(t.Symbol)
}
