package features

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/quantlake/deribit-data/internal/model"
)

// PCRMethod selects how put and call activity is measured.
type PCRMethod string

const (
	PCRByVolume PCRMethod = "volume" // sum of traded amount
	PCRByCount  PCRMethod = "count"  // number of trades
)

// PCRPoint is the put/call ratio for one interval. Above 1 puts dominate
// (bearish flow), below 1 calls dominate. A lagging sentiment gauge, not a
// directional predictor.
type PCRPoint struct {
	Start time.Time
	Puts  float64
	Calls float64
	Ratio float64 // NaN when the interval has no call activity
}

// PCRAggregate computes the put/call ratio per interval across all tenors.
func PCRAggregate(rows []model.TradeRow, interval time.Duration, method PCRMethod) ([]PCRPoint, error) {
	return pcrSeries(rows, interval, method, nil)
}

// PCRByTenor computes per-interval ratios for each tenor bucket. Long-dated
// buckets should already be excluded by the caller (Config.PCRDTEBuckets).
func PCRByTenor(rows []model.TradeRow, buckets []DTEBucket, interval time.Duration, method PCRMethod) (map[string][]PCRPoint, error) {
	if len(rows) == 0 {
		return nil, errors.New("features: no rows for put/call ratio")
	}

	out := make(map[string][]PCRPoint, len(buckets))
	for _, b := range buckets {
		var sub []model.TradeRow
		for _, r := range rows {
			if b.Contains(DaysToExpiry(r.Expiry, r.Timestamp)) {
				sub = append(sub, r)
			}
		}
		if len(sub) == 0 {
			continue
		}
		points, err := pcrSeries(sub, interval, method, nil)
		if err != nil {
			return nil, err
		}
		out[b.Label()] = points
	}
	return out, nil
}

func pcrSeries(rows []model.TradeRow, interval time.Duration, method PCRMethod, filter func(model.TradeRow) bool) ([]PCRPoint, error) {
	if len(rows) == 0 {
		return nil, errors.New("features: no rows for put/call ratio")
	}
	if interval <= 0 {
		return nil, errors.New("features: interval must be positive")
	}

	type tally struct{ puts, calls float64 }
	bins := make(map[time.Time]*tally)
	for _, r := range rows {
		if filter != nil && !filter(r) {
			continue
		}
		start := r.Timestamp.Truncate(interval)
		t, ok := bins[start]
		if !ok {
			t = &tally{}
			bins[start] = t
		}
		weight := 1.0
		if method == PCRByVolume {
			weight = r.Amount
		}
		switch r.OptionType {
		case "P":
			t.puts += weight
		case "C":
			t.calls += weight
		}
	}

	points := make([]PCRPoint, 0, len(bins))
	for start, t := range bins {
		ratio := math.NaN()
		if t.calls > 0 {
			ratio = t.puts / t.calls
		}
		points = append(points, PCRPoint{Start: start, Puts: t.puts, Calls: t.calls, Ratio: ratio})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	return points, nil
}
