package entity

// CoinGeckoSimplePrice is the /simple/price answer: coin id -> currency -> price.
type CoinGeckoSimplePrice map[string]map[string]float64
