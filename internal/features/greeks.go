package features

import (
	"errors"
	"math"
)

// DaysPerYear converts between calendar time and year fractions.
const DaysPerYear = 365.25

// Greeks holds the Black-Scholes sensitivities for one option, plus the
// premium-adjusted delta for inverse-settled contracts.
//
// Deribit options settle in the underlying coin, not in dollars. The plain
// Black-Scholes delta overstates exposure because the premium's dollar
// value moves with spot; the adjustment
//
//	adjusted_delta = bs_delta - price/spot
//
// cuts the error on deep in-the-money contracts substantially
// (Alexander et al. 2023, "Inverse Options", arxiv 2107.12041).
type Greeks struct {
	BSDelta       float64
	AdjustedDelta float64
	Gamma         float64
	Vega          float64 // per one percentage point of IV
	Theta         float64 // per calendar day
}

// GreeksInput describes one option for the closed-form evaluation.
type GreeksInput struct {
	OptionType string  // "C" or "P"
	Spot       float64 // underlying index price
	Strike     float64
	TimeToExp  float64 // years
	IV         float64 // decimal, e.g. 0.65 for 65%
	Price      float64 // option price in underlying units
	Rate       float64 // risk-free rate
}

// ComputeGreeks evaluates closed-form Black-Scholes Greeks. Expired
// contracts and degenerate inputs are rejected rather than mapped to zero.
func ComputeGreeks(in GreeksInput) (Greeks, error) {
	if in.TimeToExp <= 0 {
		return Greeks{}, errors.New("greeks: option expired")
	}
	if in.Spot <= 0 || in.Strike <= 0 || in.IV <= 0 {
		return Greeks{}, errors.New("greeks: spot, strike, and iv must be positive")
	}
	if in.OptionType != "C" && in.OptionType != "P" {
		return Greeks{}, errors.New("greeks: option type must be C or P")
	}

	sqrtT := math.Sqrt(in.TimeToExp)
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+in.IV*in.IV/2)*in.TimeToExp) / (in.IV * sqrtT)
	d2 := d1 - in.IV*sqrtT

	var g Greeks
	discount := math.Exp(-in.Rate * in.TimeToExp)

	if in.OptionType == "C" {
		g.BSDelta = normCDF(d1)
		g.Theta = (-in.Spot*normPDF(d1)*in.IV/(2*sqrtT) -
			in.Rate*in.Strike*discount*normCDF(d2)) / DaysPerYear
	} else {
		g.BSDelta = normCDF(d1) - 1
		g.Theta = (-in.Spot*normPDF(d1)*in.IV/(2*sqrtT) +
			in.Rate*in.Strike*discount*normCDF(-d2)) / DaysPerYear
	}

	g.Gamma = normPDF(d1) / (in.Spot * in.IV * sqrtT)
	g.Vega = in.Spot * normPDF(d1) * sqrtT / 100
	g.AdjustedDelta = g.BSDelta - in.Price/in.Spot

	return g, nil
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// PortfolioGreeks aggregates per-position Greeks weighted by position size.
type PortfolioGreeks struct {
	NetDelta float64
	NetGamma float64
	NetVega  float64
	NetTheta float64
}

// Position pairs computed Greeks with a signed position size.
type Position struct {
	Greeks Greeks
	Size   float64 // positive long, negative short
}

// AggregateGreeks sums position Greeks using the adjusted delta.
func AggregateGreeks(positions []Position) PortfolioGreeks {
	var p PortfolioGreeks
	for _, pos := range positions {
		p.NetDelta += pos.Greeks.AdjustedDelta * pos.Size
		p.NetGamma += pos.Greeks.Gamma * pos.Size
		p.NetVega += pos.Greeks.Vega * pos.Size
		p.NetTheta += pos.Greeks.Theta * pos.Size
	}
	return p
}
