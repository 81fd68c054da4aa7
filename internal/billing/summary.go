package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Summary aggregates a daily cost breakdown into period totals and a
// simple run-rate projection.
type Summary struct {
	Days             int
	TotalCompute     decimal.Decimal
	TotalStorage     decimal.Decimal
	TotalEgress      decimal.Decimal
	Total            decimal.Decimal
	DailyAverage     decimal.Decimal
	MonthlyProjected decimal.Decimal // daily average x 30
	PeakDay          UsageCost
}

var daysPerMonth = decimal.NewFromInt(30)

// Summarize folds a daily breakdown into a Summary. The projection is a
// straight-line extrapolation of the daily average, good enough for
// budget alerts but not for invoices.
func Summarize(daily []UsageCost) (Summary, error) {
	if len(daily) == 0 {
		return Summary{}, errors.New("billing: no daily costs to summarize")
	}

	s := Summary{Days: len(daily), PeakDay: daily[0]}
	for _, d := range daily {
		s.TotalCompute = s.TotalCompute.Add(d.Compute)
		s.TotalStorage = s.TotalStorage.Add(d.Storage)
		s.TotalEgress = s.TotalEgress.Add(d.Egress)
		s.Total = s.Total.Add(d.Total)
		if d.Total.GreaterThan(s.PeakDay.Total) {
			s.PeakDay = d
		}
	}
	s.DailyAverage = s.Total.Div(decimal.NewFromInt(int64(len(daily))))
	s.MonthlyProjected = s.DailyAverage.Mul(daysPerMonth)
	return s, nil
}
