package networkdefinition

// StaticPrices is the last known-good USD snapshot served by the static tier.
func StaticPrices() map[string]float64 {
	return map[string]float64{
		"MON":    3.8275,
		"sMON":   3.825,
		"gMON":   3.854,
		"aprMON": 3.832,
		"WMON":   3.827,
		"fMON":   3.61,
		"USDC":   1.0,
		"wSOL":   205.50,
		"WBTC":   108714,
		"MOYAKI": 0.032,
		"CHOG":   0.185,
		"DAK":    0.095,
		"PINGU":  0.068,
	}
}

// EmergencyPrices is the conservative table of last resort.
func EmergencyPrices() map[string]float64 {
	return map[string]float64{
		"MON":    3.6722,
		"sMON":   3.8558,
		"gMON":   3.4886,
		"aprMON": 3.5988,
		"WMON":   3.6722,
		"fMON":   3.1214,
		"USDC":   1.0,
		"USDT":   1.0,
		"wSOL":   180.50,
		"WBTC":   95000,
		"MOYAKI": 0.025,
		"CHOG":   0.15,
		"DAK":    0.08,
		"PINGU":  0.045,
		"AVAX":   40.50,
		"MATIC":  0.85,
	}
}

// CoinGeckoIDs maps token symbols to CoinGecko coin ids for the market tier.
func CoinGeckoIDs() map[string]string {
	return map[string]string{
		"BTC":  "bitcoin",
		"WBTC": "wrapped-bitcoin",
		"ETH":  "ethereum",
		"SOL":  "solana",
		"wSOL": "solana",
		"USDC": "usd-coin",
	}
}
