package entity

import "time"

// PriceSource identifies which pricing tier produced a quote.
type PriceSource string

const (
	SourceOnChainRouter     PriceSource = "onchain_router"
	SourceMarketAggregator  PriceSource = "market_aggregator"
	SourceStaticFallback    PriceSource = "static_fallback"
	SourceEmergencyFallback PriceSource = "emergency_fallback"
)

// Confidence values attached by each tier. They strictly decrease along the fallback order.
const (
	ConfidenceReferenceToken = 1.0
	ConfidenceOnChainRouter  = 0.9
	ConfidenceMarket         = 0.85
	ConfidenceStatic         = 0.5
	ConfidenceEmergency      = 0.1
)

// PriceQuote is a USD price for a token together with its provenance.
type PriceQuote struct {
	Symbol     string      `json:"symbol"`
	Price      float64     `json:"price"`
	Source     PriceSource `json:"source"`
	Provider   string      `json:"provider"`
	Confidence float64     `json:"confidence"`
	Timestamp  time.Time   `json:"timestamp"`
}

// IsReal reports whether the quote came from something better than the emergency table.
func (q PriceQuote) IsReal() bool {
	return q.Source != SourceEmergencyFallback
}
