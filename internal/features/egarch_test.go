package features

import (
	"math"
	"math/rand"
	"testing"
)

// simulateVolSeries produces a series with clustering: a calm regime, a
// stressed regime, then calm again. Deterministic via fixed seeds.
func simulateVolSeries(n int) []float64 {
	rng := rand.New(rand.NewSource(42))
	out := make([]float64, n)
	for i := range out {
		sigma := 1.0
		if i > n/3 && i < 2*n/3 {
			sigma = 3.0
		}
		out[i] = 60 + sigma*rng.NormFloat64()
	}
	return out
}

func TestFitEGARCH(t *testing.T) {
	t.Run("fits clustered series", func(t *testing.T) {
		series := simulateVolSeries(300)
		m, err := FitEGARCH(series)
		if err != nil {
			t.Fatalf("FitEGARCH: %v", err)
		}

		if math.Abs(m.Params.Beta) >= 1 {
			t.Errorf("Beta = %v, want |beta| < 1", m.Params.Beta)
		}
		if math.IsNaN(m.LogLikelihood) || math.IsInf(m.LogLikelihood, 0) {
			t.Errorf("LogLikelihood = %v, want finite", m.LogLikelihood)
		}
		if m.AIC <= -2*m.LogLikelihood-1e-9 {
			t.Errorf("AIC = %v inconsistent with log-likelihood %v", m.AIC, m.LogLikelihood)
		}
		if m.BIC <= m.AIC {
			t.Errorf("BIC %v should exceed AIC %v at n=300", m.BIC, m.AIC)
		}

		vol := m.ConditionalVolatility()
		if len(vol) != 300 {
			t.Fatalf("conditional volatility length = %d, want 300", len(vol))
		}
		for i, v := range vol {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("vol[%d] = %v, want positive finite", i, v)
			}
		}

		resid := m.Residuals()
		_, sd := meanStd(resid)
		if sd < 0.5 || sd > 2.0 {
			t.Errorf("standardized residual sd = %v, want near 1", sd)
		}
	})

	t.Run("rejects short series", func(t *testing.T) {
		if _, err := FitEGARCH(make([]float64, 50)); err == nil {
			t.Fatal("want error below minimum observations")
		}
	})

	t.Run("rejects constant series", func(t *testing.T) {
		series := make([]float64, 150)
		for i := range series {
			series[i] = 65
		}
		if _, err := FitEGARCH(series); err == nil {
			t.Fatal("want error for constant series")
		}
	})

	t.Run("drops non finite values", func(t *testing.T) {
		series := simulateVolSeries(200)
		series[10] = math.NaN()
		series[20] = math.Inf(1)
		if _, err := FitEGARCH(series); err != nil {
			t.Fatalf("FitEGARCH with NaN holes: %v", err)
		}
	})
}

func TestEGARCHForecast(t *testing.T) {
	m, err := FitEGARCH(simulateVolSeries(300))
	if err != nil {
		t.Fatalf("FitEGARCH: %v", err)
	}

	t.Run("horizon values positive and finite", func(t *testing.T) {
		f, err := m.Forecast(5)
		if err != nil {
			t.Fatalf("Forecast: %v", err)
		}
		if len(f) != 5 {
			t.Fatalf("got %d values, want 5", len(f))
		}
		for i, v := range f {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("forecast[%d] = %v, want positive finite", i, v)
			}
		}
	})

	t.Run("rejects zero horizon", func(t *testing.T) {
		if _, err := m.Forecast(0); err == nil {
			t.Fatal("want error for horizon 0")
		}
	})
}

func TestVolatilitySpread(t *testing.T) {
	m, err := FitEGARCH(simulateVolSeries(300))
	if err != nil {
		t.Fatalf("FitEGARCH: %v", err)
	}
	spread := m.VolatilitySpread()
	if len(spread) != 300 {
		t.Fatalf("spread length = %d, want 300", len(spread))
	}
	for i, v := range spread {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("spread[%d] = %v, want finite", i, v)
		}
	}
}

func TestNelderMead(t *testing.T) {
	t.Run("minimizes quadratic", func(t *testing.T) {
		f := func(x []float64) float64 {
			dx, dy := x[0]-3, x[1]+1
			return dx*dx + dy*dy
		}
		x, fx, err := nelderMead(f, []float64{0, 0}, 1000, 1e-12)
		if err != nil {
			t.Fatalf("nelderMead: %v", err)
		}
		if math.Abs(x[0]-3) > 1e-3 || math.Abs(x[1]+1) > 1e-3 {
			t.Errorf("minimum at (%v, %v), want (3, -1)", x[0], x[1])
		}
		if fx > 1e-5 {
			t.Errorf("objective at minimum = %v, want ~0", fx)
		}
	})

	t.Run("handles infeasible regions", func(t *testing.T) {
		f := func(x []float64) float64 {
			if x[0] < 0 {
				return math.Inf(1)
			}
			return (x[0] - 2) * (x[0] - 2)
		}
		x, _, err := nelderMead(f, []float64{5}, 1000, 1e-12)
		if err != nil {
			t.Fatalf("nelderMead: %v", err)
		}
		if math.Abs(x[0]-2) > 1e-3 {
			t.Errorf("minimum at %v, want 2", x[0])
		}
	})

	t.Run("rejects empty start", func(t *testing.T) {
		if _, _, err := nelderMead(func([]float64) float64 { return 0 }, nil, 10, 0); err == nil {
			t.Fatal("want error for empty start point")
		}
	})
}
