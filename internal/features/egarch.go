package features

import (
	"errors"
	"fmt"
	"math"
)

// MinEGARCHObservations is the smallest series length accepted for
// estimation. Below this the QMLE estimates are too noisy to act on.
const MinEGARCHObservations = 100

// EGARCHParams hold the fitted EGARCH(1,1) coefficients for the
// log-variance recursion
//
//	log h_t = omega + alpha*(|z| - sqrt(2/pi)) + gamma*z + beta*log h_{t-1}
//
// where z is the standardized innovation. Gamma captures the leverage
// effect: negative shocks raising volatility more than positive ones.
type EGARCHParams struct {
	Mu    float64
	Omega float64
	Alpha float64
	Gamma float64
	Beta  float64
}

// EGARCHModel is a fitted EGARCH(1,1) volatility model.
type EGARCHModel struct {
	Params        EGARCHParams
	LogLikelihood float64
	AIC           float64
	BIC           float64

	series []float64 // original (unscaled) observations
	scale  float64   // rescaling factor applied before estimation
	logH   []float64 // fitted log conditional variance (scaled units)
}

const sqrt2OverPi = 0.7978845608028654

// FitEGARCH estimates an EGARCH(1,1) model on the series by Gaussian
// quasi-maximum likelihood. The series must be a regular, fixed-interval
// sample (resample first). Data is rescaled to unit variance internally
// for numerical stability; reported volatilities are in original units.
func FitEGARCH(series []float64) (*EGARCHModel, error) {
	clean := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	if len(clean) < MinEGARCHObservations {
		return nil, fmt.Errorf("features: insufficient data: %d observations (minimum %d)", len(clean), MinEGARCHObservations)
	}

	mean, sd := meanStd(clean)
	if sd == 0 {
		return nil, errors.New("features: series is constant, cannot fit volatility model")
	}
	scaled := make([]float64, len(clean))
	for i, v := range clean {
		scaled[i] = (v - mean) / sd
	}

	// Parameterize beta through tanh to keep |beta| < 1 during search.
	objective := func(p []float64) float64 {
		params := EGARCHParams{
			Omega: p[0],
			Alpha: p[1],
			Gamma: p[2],
			Beta:  math.Tanh(p[3]),
		}
		ll, _, err := egarchLogLikelihood(scaled, params)
		if err != nil {
			return math.Inf(1)
		}
		return -ll
	}

	start := []float64{0.0, 0.1, -0.05, math.Atanh(0.9)}
	best, negLL, err := nelderMead(objective, start, 2000, 1e-10)
	if err != nil {
		return nil, err
	}
	if math.IsInf(negLL, 1) {
		return nil, errors.New("features: estimation failed to find a feasible parameter set")
	}

	params := EGARCHParams{
		Mu:    mean,
		Omega: best[0],
		Alpha: best[1],
		Gamma: best[2],
		Beta:  math.Tanh(best[3]),
	}
	ll, logH, err := egarchLogLikelihood(scaled, params)
	if err != nil {
		return nil, err
	}

	k := 4.0
	n := float64(len(scaled))
	return &EGARCHModel{
		Params:        params,
		LogLikelihood: ll,
		AIC:           2*k - 2*ll,
		BIC:           k*math.Log(n) - 2*ll,
		series:        clean,
		scale:         sd,
		logH:          logH,
	}, nil
}

// egarchLogLikelihood runs the variance recursion and returns the Gaussian
// log-likelihood together with the fitted log-variance path.
func egarchLogLikelihood(eps []float64, p EGARCHParams) (float64, []float64, error) {
	if math.Abs(p.Beta) >= 1 {
		return 0, nil, errors.New("features: beta outside stationarity region")
	}

	logH := make([]float64, len(eps))
	// Unconditional log variance as the starting value.
	logH[0] = p.Omega / (1 - p.Beta)
	if logH[0] > 50 || logH[0] < -50 {
		return 0, nil, errors.New("features: degenerate initial variance")
	}

	ll := 0.0
	for t := 0; t < len(eps); t++ {
		if t > 0 {
			h := math.Exp(logH[t-1])
			z := eps[t-1] / math.Sqrt(h)
			logH[t] = p.Omega + p.Alpha*(math.Abs(z)-sqrt2OverPi) + p.Gamma*z + p.Beta*logH[t-1]
			if logH[t] > 50 || logH[t] < -50 {
				return 0, nil, errors.New("features: variance recursion diverged")
			}
		}
		h := math.Exp(logH[t])
		ll += -0.5 * (math.Log(2*math.Pi) + logH[t] + eps[t]*eps[t]/h)
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return 0, nil, errors.New("features: likelihood is not finite")
	}
	return ll, logH, nil
}

// ConditionalVolatility returns the model's in-sample volatility estimate
// at each observation, in the units of the original series.
func (m *EGARCHModel) ConditionalVolatility() []float64 {
	out := make([]float64, len(m.logH))
	for i, lh := range m.logH {
		out[i] = math.Sqrt(math.Exp(lh)) * m.scale
	}
	return out
}

// Residuals returns standardized residuals (demeaned observation divided
// by conditional volatility). Values near zero mean with unit variance
// indicate an adequate fit.
func (m *EGARCHModel) Residuals() []float64 {
	out := make([]float64, len(m.series))
	for i, v := range m.series {
		h := math.Exp(m.logH[i])
		out[i] = (v - m.Params.Mu) / m.scale / math.Sqrt(h)
	}
	return out
}

// Forecast projects conditional volatility the given number of periods
// ahead. Beyond one step the expectation of the shock terms is zero under
// the Gaussian assumption, so the log variance decays toward its
// unconditional level at rate beta.
func (m *EGARCHModel) Forecast(horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, errors.New("features: horizon must be at least 1")
	}

	p := m.Params
	lastLogH := m.logH[len(m.logH)-1]
	lastEps := (m.series[len(m.series)-1] - p.Mu) / m.scale
	lastZ := lastEps / math.Sqrt(math.Exp(lastLogH))

	out := make([]float64, horizon)
	logH := p.Omega + p.Alpha*(math.Abs(lastZ)-sqrt2OverPi) + p.Gamma*lastZ + p.Beta*lastLogH
	out[0] = math.Sqrt(math.Exp(logH)) * m.scale
	for t := 1; t < horizon; t++ {
		logH = p.Omega + p.Beta*logH
		out[t] = math.Sqrt(math.Exp(logH)) * m.scale
	}
	return out, nil
}

// VolatilitySpread returns observation minus fitted conditional
// volatility per period. Positive values mean realized IV sits above the
// model's estimate, a mean-reversion signal.
func (m *EGARCHModel) VolatilitySpread() []float64 {
	vol := m.ConditionalVolatility()
	out := make([]float64, len(m.series))
	for i, v := range m.series {
		out[i] = v - vol[i]
	}
	return out
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}
