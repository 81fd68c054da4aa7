package features

import (
	"errors"
	"sort"
	"time"

	"github.com/quantlake/deribit-data/internal/model"
)

// Bar is one fixed-interval IV bar with traded volume.
type Bar struct {
	Start   time.Time
	IVOpen  float64
	IVHigh  float64
	IVLow   float64
	IVClose float64
	Volume  float64
	Trades  int
}

// ErrNoIVData is returned when no row in the input carries an implied
// volatility.
var ErrNoIVData = errors.New("features: no rows with implied volatility")

// ResampleIV converts irregular trade-level IV into fixed-interval OHLC
// bars. Rows without an IV are dropped; intervals without any trade are
// omitted rather than forward-filled. Volatility models that need a gap
// free series should interpolate explicitly.
func ResampleIV(rows []model.TradeRow, interval time.Duration) ([]Bar, error) {
	if interval <= 0 {
		return nil, errors.New("features: resample interval must be positive")
	}

	type obs struct {
		ts     time.Time
		iv     float64
		amount float64
	}
	var observations []obs
	for _, r := range rows {
		if r.IV == nil {
			continue
		}
		observations = append(observations, obs{ts: r.Timestamp, iv: *r.IV, amount: r.Amount})
	}
	if len(observations) == 0 {
		return nil, ErrNoIVData
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].ts.Before(observations[j].ts)
	})

	var bars []Bar
	var cur *Bar
	for _, o := range observations {
		start := o.ts.Truncate(interval)
		if cur == nil || !cur.Start.Equal(start) {
			bars = append(bars, Bar{
				Start:  start,
				IVOpen: o.iv,
				IVHigh: o.iv,
				IVLow:  o.iv,
			})
			cur = &bars[len(bars)-1]
		}
		if o.iv > cur.IVHigh {
			cur.IVHigh = o.iv
		}
		if o.iv < cur.IVLow {
			cur.IVLow = o.iv
		}
		cur.IVClose = o.iv
		cur.Volume += o.amount
		cur.Trades++
	}

	return bars, nil
}

// CloseSeries extracts the closing IV of each bar, in bar order.
func CloseSeries(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.IVClose
	}
	return out
}
