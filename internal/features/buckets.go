package features

import "time"

// DaysToExpiry returns whole days between the trade time (normalized to
// midnight UTC) and the option expiry.
func DaysToExpiry(expiry, ts time.Time) int {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(day).Hours() / 24)
}

// BucketForDTE returns the bucket containing dte, if any.
func BucketForDTE(buckets []DTEBucket, dte int) (DTEBucket, bool) {
	for _, b := range buckets {
		if b.Contains(dte) {
			return b, true
		}
	}
	return DTEBucket{}, false
}

// MoneynessBucket labels for smile and skew analysis.
const (
	DeepOTMPut  = "deep_otm_put"
	OTMPut      = "otm_put"
	ATM         = "atm"
	OTMCall     = "otm_call"
	DeepOTMCall = "deep_otm_call"
)

// Moneyness is spot over strike. Above 1 the call side is in the money.
func Moneyness(spot, strike float64) float64 {
	if strike <= 0 {
		return 0
	}
	return spot / strike
}

// MoneynessBucket assigns a moneyness value to one of the five smile
// buckets using the config thresholds.
func (c Config) MoneynessBucket(m float64) string {
	t := c.MoneynessThresholds
	switch {
	case m < t[0]:
		return DeepOTMPut
	case m < t[1]:
		return OTMPut
	case m < t[2]:
		return ATM
	case m < t[3]:
		return OTMCall
	default:
		return DeepOTMCall
	}
}
