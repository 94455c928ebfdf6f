package service

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	minSyntheticFloor = 0.005
	maxSyntheticFloor = 1.0
)

// FloorEstimator produces a deterministic placeholder floor, in the native
// currency, for collections the marketplace has no listing for. The same
// address and name always yield the same value.
type FloorEstimator struct {
	known map[string]float64
}

// NewFloorEstimator creates an estimator seeded with base floors for known
// collection names.
func NewFloorEstimator(known map[string]float64) *FloorEstimator {
	lowered := make(map[string]float64, len(known))
	for name, floor := range known {
		lowered[strings.ToLower(name)] = floor
	}
	return &FloorEstimator{known: lowered}
}

// Estimate returns a floor in [0.005, 1.0].
func (e *FloorEstimator) Estimate(address, name string) float64 {
	key := strings.ToLower(address) + "|" + strings.ToLower(name)
	n := float64(xxhash.Sum64String(key)) / float64(math.MaxUint64)

	base, ok := e.known[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		base = 0.02 + n*0.08
	}
	// +/-15% around the base.
	floor := base * (1 + (n-0.5)*0.3)
	return math.Max(minSyntheticFloor, math.Min(floor, maxSyntheticFloor))
}
