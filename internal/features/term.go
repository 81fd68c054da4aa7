package features

import (
	"errors"
	"sort"
	"time"

	"github.com/quantlake/deribit-data/internal/model"
)

// SlopePoint is the term-structure reading for one interval.
//
// Slope = mean(near-term IV) - mean(far-term IV). Positive means near-term
// volatility is elevated (event risk); negative is the typical calm-market
// shape.
type SlopePoint struct {
	Start  time.Time
	NearIV float64
	FarIV  float64
	Slope  float64
	Ratio  float64
}

// TermStructureSlope computes the near-vs-far IV spread per interval.
// Intervals lacking either a near-term or far-term observation are
// omitted. Tenor boundaries come from the config (near: dte <= NearDTEMax,
// far: dte >= FarDTEMin).
func TermStructureSlope(rows []model.TradeRow, cfg Config, interval time.Duration) ([]SlopePoint, error) {
	if len(rows) == 0 {
		return nil, errors.New("features: no rows for term structure")
	}
	if interval <= 0 {
		return nil, errors.New("features: interval must be positive")
	}

	type agg struct {
		nearSum, farSum float64
		nearN, farN     int
	}
	bins := make(map[time.Time]*agg)

	for _, r := range rows {
		if r.IV == nil {
			continue
		}
		dte := DaysToExpiry(r.Expiry, r.Timestamp)
		near := dte <= cfg.NearDTEMax
		far := dte >= cfg.FarDTEMin
		if !near && !far {
			continue
		}

		start := r.Timestamp.Truncate(interval)
		a, ok := bins[start]
		if !ok {
			a = &agg{}
			bins[start] = a
		}
		if near {
			a.nearSum += *r.IV
			a.nearN++
		}
		if far {
			a.farSum += *r.IV
			a.farN++
		}
	}

	var points []SlopePoint
	for start, a := range bins {
		if a.nearN == 0 || a.farN == 0 {
			continue
		}
		nearIV := a.nearSum / float64(a.nearN)
		farIV := a.farSum / float64(a.farN)
		p := SlopePoint{
			Start:  start,
			NearIV: nearIV,
			FarIV:  farIV,
			Slope:  nearIV - farIV,
		}
		if farIV != 0 {
			p.Ratio = nearIV / farIV
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, errors.New("features: no interval has both near and far term data")
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	return points, nil
}
