package service

import (
	"context"
	"strings"
	"time"

	"nadfolio/internal/app/port"
	"nadfolio/internal/domain/entity"
	"nadfolio/internal/infrastructure/cache"
	"nadfolio/internal/pkg/batch"
	"nadfolio/internal/pkg/clock"
	"nadfolio/internal/pkg/metrics"
)

// PriceResolverOptions tunes caching and batching of price lookups.
type PriceResolverOptions struct {
	CacheTTL   time.Duration
	BatchSize  int
	BatchDelay time.Duration
}

// PriceResolver walks an ordered list of pricing tiers and returns the first
// usable quote. It never fails: if every tier misses, an emergency quote with
// price 0 is returned.
type PriceResolver struct {
	sources []port.PriceSource
	cache   *cache.Namespace
	clock   clock.Clock
	logger  port.Logger
	opts    PriceResolverOptions
}

// NewPriceResolver creates a resolver over sources, tried in the given order.
func NewPriceResolver(sources []port.PriceSource, prices *cache.Namespace, clk clock.Clock, logger port.Logger, opts PriceResolverOptions) *PriceResolver {
	return &PriceResolver{sources: sources, cache: prices, clock: clk, logger: logger, opts: opts}
}

// ResolvePrice implements port.PriceResolver.
func (r *PriceResolver) ResolvePrice(ctx context.Context, req port.PriceRequest) entity.PriceQuote {
	key := strings.ToLower(req.Symbol)

	if r.cache != nil && !cache.IsRefresh(ctx) {
		if cached, ok := r.cache.Get(key); ok {
			return cached.(entity.PriceQuote)
		}
	}

	for _, src := range r.sources {
		quote, err := src.Attempt(ctx, req)
		if err != nil {
			r.logger.Debug("Price tier missed", "tier", src.Name(), "symbol", req.Symbol, "error", err)
			continue
		}
		if quote.Price <= 0 && src.Source() != entity.SourceEmergencyFallback {
			r.logger.Debug("Price tier returned no price", "tier", src.Name(), "symbol", req.Symbol)
			continue
		}
		return r.accept(key, quote)
	}

	r.logger.Warn("Every price tier missed", "symbol", req.Symbol)
	return r.accept(key, entity.PriceQuote{
		Symbol:     req.Symbol,
		Source:     entity.SourceEmergencyFallback,
		Provider:   "none",
		Confidence: entity.ConfidenceEmergency,
	})
}

func (r *PriceResolver) accept(key string, quote entity.PriceQuote) entity.PriceQuote {
	quote.Price = max(quote.Price, 0)
	if quote.Timestamp.IsZero() {
		quote.Timestamp = r.clock.Now()
	}
	metrics.PriceResolutions.WithLabelValues(string(quote.Source)).Inc()
	// Emergency quotes are placeholders; caching them would hide a recovered upstream.
	if r.cache != nil && quote.Source != entity.SourceEmergencyFallback {
		r.cache.Set(key, quote, r.opts.CacheTTL)
	}
	return quote
}

// ResolveMany implements port.PriceResolver. Duplicate symbols are resolved once.
func (r *PriceResolver) ResolveMany(ctx context.Context, reqs []port.PriceRequest) map[string]entity.PriceQuote {
	seen := make(map[string]struct{}, len(reqs))
	unique := make([]port.PriceRequest, 0, len(reqs))
	for _, req := range reqs {
		key := strings.ToLower(req.Symbol)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, req)
	}

	outcomes := batch.Process(ctx, unique, r.opts.BatchSize, r.opts.BatchDelay, r.clock,
		func(ctx context.Context, req port.PriceRequest) (entity.PriceQuote, error) {
			return r.ResolvePrice(ctx, req), nil
		})

	quotes := make(map[string]entity.PriceQuote, len(outcomes))
	for _, o := range outcomes {
		key := strings.ToLower(o.Item.Symbol)
		if o.OK() {
			quotes[key] = o.Value
			continue
		}
		// Only a cancelled context fails an item; price it from the last tier.
		quotes[key] = r.emergencyQuote(o.Item)
	}
	return quotes
}

func (r *PriceResolver) emergencyQuote(req port.PriceRequest) entity.PriceQuote {
	for _, src := range r.sources {
		if src.Source() != entity.SourceEmergencyFallback {
			continue
		}
		if q, err := src.Attempt(context.Background(), req); err == nil {
			return q
		}
	}
	return entity.PriceQuote{Symbol: req.Symbol, Source: entity.SourceEmergencyFallback, Provider: "none", Confidence: entity.ConfidenceEmergency, Timestamp: r.clock.Now()}
}

// Health grades reported by HealthCheck.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthDegraded  = "degraded"
)

// TierHealth is the health result of a single live tier.
type TierHealth struct {
	Name    string             `json:"name"`
	Source  entity.PriceSource `json:"source"`
	Healthy bool               `json:"healthy"`
	Price   float64            `json:"price,omitempty"`
	Latency time.Duration      `json:"latencyNs"`
	Error   string             `json:"error,omitempty"`
}

// PriceHealth summarises the state of the live pricing tiers.
type PriceHealth struct {
	Timestamp time.Time    `json:"timestamp"`
	Tiers     []TierHealth `json:"tiers"`
	Overall   string       `json:"overall"`
}

// HealthCheck queries every live tier directly, bypassing the cache. The
// grade is excellent when all tiers answer, good when at least half do and
// degraded otherwise.
func (r *PriceResolver) HealthCheck(ctx context.Context) PriceHealth {
	report := PriceHealth{Timestamp: r.clock.Now()}

	for _, src := range r.sources {
		checker, ok := src.(healthChecker)
		if !ok {
			continue
		}
		started := r.clock.Now()
		quote, err := src.Attempt(ctx, checker.HealthRequest())
		tier := TierHealth{Name: src.Name(), Source: src.Source(), Latency: r.clock.Now().Sub(started)}
		if err != nil {
			tier.Error = err.Error()
		} else {
			tier.Price = quote.Price
			tier.Healthy = quote.Price > 0
		}
		report.Tiers = append(report.Tiers, tier)
	}

	healthy := 0
	for _, t := range report.Tiers {
		if t.Healthy {
			healthy++
		}
	}
	switch {
	case healthy == len(report.Tiers):
		report.Overall = HealthExcellent
	case float64(healthy) >= float64(len(report.Tiers))*0.5:
		report.Overall = HealthGood
	default:
		report.Overall = HealthDegraded
	}
	r.logger.Info("Price service health check completed", "overall", report.Overall, "healthyTiers", healthy, "tiers", len(report.Tiers))
	return report
}
