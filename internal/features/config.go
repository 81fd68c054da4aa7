// Package features computes volatility and sentiment analytics over fetched
// trade rows: fixed-interval IV resampling, Black-Scholes Greeks with the
// premium-adjusted delta for inverse options, rolling IV percentile and
// rank, put/call ratios by tenor, term structure slope, and an EGARCH(1,1)
// volatility model.
package features

import (
	"fmt"
	"time"
)

// DTEBucket is one days-to-expiry tenor bucket, inclusive on both ends.
type DTEBucket struct {
	Min int
	Max int
}

// Label returns the bucket's name, e.g. "dte_0_7".
func (b DTEBucket) Label() string {
	return fmt.Sprintf("dte_%d_%d", b.Min, b.Max)
}

// Contains reports whether a days-to-expiry value falls in the bucket.
func (b DTEBucket) Contains(dte int) bool {
	return dte >= b.Min && dte <= b.Max
}

// DefaultDTEBuckets covers the full tenor range including long-dated
// contracts.
var DefaultDTEBuckets = []DTEBucket{
	{0, 7},    // weekly
	{8, 14},   // bi-weekly
	{15, 30},  // monthly
	{31, 60},  // bi-monthly
	{61, 90},  // quarterly
	{91, 999}, // long-dated
}

// Config centralizes the tunable parameters of the analytics.
type Config struct {
	// EGARCH estimation
	MinObservations int

	// Greeks
	RiskFreeRate float64

	// IV features
	IVLookbackDays int
	ResampleEvery  time.Duration

	// Tenor segmentation
	DTEBuckets []DTEBucket
	NearDTEMax int // "near" expiry upper bound for term structure
	FarDTEMin  int // "far" expiry lower bound for term structure

	// Moneyness bucket boundaries, ascending:
	// deep OTM put | OTM put | ATM | OTM call | deep OTM call
	MoneynessThresholds [4]float64
}

// DefaultConfig returns the validated defaults. Crypto volatility cycles
// faster than traditional markets, hence the 90-day lookback rather than
// the 252-day convention.
func DefaultConfig() Config {
	return Config{
		MinObservations:     100,
		RiskFreeRate:        0.02,
		IVLookbackDays:      90,
		ResampleEvery:       15 * time.Minute,
		DTEBuckets:          DefaultDTEBuckets,
		NearDTEMax:          30,
		FarDTEMin:           60,
		MoneynessThresholds: [4]float64{0.90, 0.95, 1.05, 1.10},
	}
}

// PCRDTEBuckets returns the tenor buckets with long-dated contracts
// excluded. Put/call ratio is a near-term sentiment gauge; thin long-dated
// hedge flow distorts it.
func (c Config) PCRDTEBuckets() []DTEBucket {
	var out []DTEBucket
	for _, b := range c.DTEBuckets {
		if b.Max <= 90 {
			out = append(out, b)
		}
	}
	return out
}

// Validate rejects unusable parameter combinations.
func (c Config) Validate() error {
	if c.MinObservations < 10 {
		return fmt.Errorf("features: min observations %d too small", c.MinObservations)
	}
	if c.ResampleEvery <= 0 {
		return fmt.Errorf("features: resample interval must be positive, got %s", c.ResampleEvery)
	}
	if c.IVLookbackDays < 1 {
		return fmt.Errorf("features: iv lookback %d days must be positive", c.IVLookbackDays)
	}
	if c.NearDTEMax >= c.FarDTEMin {
		return fmt.Errorf("features: near max %d must be below far min %d", c.NearDTEMax, c.FarDTEMin)
	}
	for i := 1; i < len(c.MoneynessThresholds); i++ {
		if c.MoneynessThresholds[i] <= c.MoneynessThresholds[i-1] {
			return fmt.Errorf("features: moneyness thresholds must be ascending")
		}
	}
	return nil
}
