package networkdefinition

import "nadfolio/internal/domain/entity"

// Contract addresses used by the pricing tiers.
const (
	KuruRouterAddress       = "0xc816865f172d640d93712C68a7E1F83F3fA63235"
	USDCAddress             = "0xf817257fed379853cde0fa4f97ab987181b1e5ea"
	WMONAddress             = "0x760afe86e5de5fa0ee542fc7b7b713e1c5425701"
	USDCDecimals      uint8 = 6
)

// MonadTestnetTokens is the built-in token table, used when no token file is present.
func MonadTestnetTokens() []entity.Token {
	return []entity.Token{
		{Symbol: "MON", Name: "Monad", Address: entity.ZeroAddress, Decimals: 18, IsNative: true},
		{Symbol: "sMON", Name: "Kintsu Staked MON", Address: "0xe1d2439b75fb9746e7bc6cb777ae10aa7f7ef9c5", Decimals: 18},
		{Symbol: "gMON", Name: "Magma Staked MON", Address: "0xaeef2f6b429cb59c9b2d7bb2141ada993e8571c3", Decimals: 18},
		{Symbol: "aprMON", Name: "aPriori Staked MON", Address: "0xb2f82d0f38dc453d596ad40a37799446cc89274a", Decimals: 18},
		{Symbol: "WMON", Name: "Wrapped MON", Address: WMONAddress, Decimals: 18},
		{Symbol: "USDC", Name: "USD Coin", Address: USDCAddress, Decimals: USDCDecimals, CoinGeckoID: "usd-coin"},
		{Symbol: "wSOL", Name: "Wrapped SOL", Address: "0x5387C85A4965769f6B0Df430638a1388493486F1", Decimals: 9, CoinGeckoID: "solana"},
		{Symbol: "WBTC", Name: "Wrapped BTC", Address: "0xcf5a6076cfa32686c0Df13aBaDa2b40dec133F1d", Decimals: 8, CoinGeckoID: "wrapped-bitcoin"},
		{Symbol: "MOYAKI", Name: "Moyaki", Address: "0xfe140e1dCe99Be9F4F15d657CD9b7BF622270C50", Decimals: 18},
		{Symbol: "CHOG", Name: "Chog", Address: "0xE0590015A873bF326bd645c3E1266d4db41C4E6B", Decimals: 18},
		{Symbol: "DAK", Name: "Molandak", Address: "0x0F0BDEbF0F83cD1EE3974779Bcb7315f9808c714", Decimals: 18},
		{Symbol: "fMON", Name: "FastLane MON", Address: "0x89e4a70de5F2Ae468B18B6B6300B249387f9Adf0", Decimals: 18},
		{Symbol: "PINGU", Name: "Pingu", Address: "0xA2426cD97583939E79Cfc12aC6E9121e37D0904d", Decimals: 18},
	}
}
