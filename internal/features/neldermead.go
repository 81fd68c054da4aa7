package features

import (
	"errors"
	"math"
	"sort"
)

// nelderMead minimizes f over len(start) dimensions using the downhill
// simplex method with standard coefficients (reflect 1, expand 2,
// contract 0.5, shrink 0.5). It returns the best vertex found.
//
// The objective may return +Inf to reject infeasible points.
func nelderMead(f func([]float64) float64, start []float64, maxIter int, tol float64) ([]float64, float64, error) {
	n := len(start)
	if n == 0 {
		return nil, 0, errors.New("features: empty start point")
	}
	if maxIter <= 0 {
		maxIter = 200 * n
	}
	if tol <= 0 {
		tol = 1e-8
	}

	type vertex struct {
		x []float64
		f float64
	}

	eval := func(x []float64) float64 {
		v := f(x)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	// Initial simplex: start point plus a perturbation along each axis.
	simplex := make([]vertex, n+1)
	simplex[0] = vertex{x: append([]float64(nil), start...)}
	simplex[0].f = eval(simplex[0].x)
	for i := 0; i < n; i++ {
		x := append([]float64(nil), start...)
		step := 0.05 * math.Abs(x[i])
		if step == 0 {
			step = 0.00025
		}
		x[i] += step
		simplex[i+1] = vertex{x: x, f: eval(x)}
	}

	centroid := make([]float64, n)
	trial := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		sort.Slice(simplex, func(i, j int) bool { return simplex[i].f < simplex[j].f })

		best, worst := simplex[0], simplex[n]
		if math.Abs(worst.f-best.f) <= tol*(math.Abs(best.f)+tol) {
			return best.x, best.f, nil
		}

		// Centroid of all vertices except the worst.
		for j := range centroid {
			centroid[j] = 0
		}
		for i := 0; i < n; i++ {
			for j, xj := range simplex[i].x {
				centroid[j] += xj
			}
		}
		for j := range centroid {
			centroid[j] /= float64(n)
		}

		// Reflection.
		for j := range trial {
			trial[j] = centroid[j] + (centroid[j] - worst.x[j])
		}
		fr := eval(trial)

		switch {
		case fr < best.f:
			// Expansion.
			expanded := make([]float64, n)
			for j := range expanded {
				expanded[j] = centroid[j] + 2*(centroid[j]-worst.x[j])
			}
			fe := eval(expanded)
			if fe < fr {
				simplex[n] = vertex{x: expanded, f: fe}
			} else {
				simplex[n] = vertex{x: append([]float64(nil), trial...), f: fr}
			}
		case fr < simplex[n-1].f:
			simplex[n] = vertex{x: append([]float64(nil), trial...), f: fr}
		default:
			// Contraction toward the centroid.
			for j := range trial {
				trial[j] = centroid[j] + 0.5*(worst.x[j]-centroid[j])
			}
			fc := eval(trial)
			if fc < worst.f {
				simplex[n] = vertex{x: append([]float64(nil), trial...), f: fc}
			} else {
				// Shrink everything toward the best vertex.
				for i := 1; i <= n; i++ {
					for j := range simplex[i].x {
						simplex[i].x[j] = best.x[j] + 0.5*(simplex[i].x[j]-best.x[j])
					}
					simplex[i].f = eval(simplex[i].x)
				}
			}
		}
	}

	sort.Slice(simplex, func(i, j int) bool { return simplex[i].f < simplex[j].f })
	return simplex[0].x, simplex[0].f, nil
}
