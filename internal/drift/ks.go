package drift

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// exactLimit is the largest n·m for which the p-value is computed exactly.
const exactLimit = 10000

// ksTest runs a two-sample Kolmogorov-Smirnov test and returns the D
// statistic and its two-sided p-value. The p-value is exact for small
// samples and asymptotic otherwise. Inputs are not modified.
func ksTest(x, y []float64) (d, p float64) {
	xs := slices.Clone(x)
	ys := slices.Clone(y)
	slices.Sort(xs)
	slices.Sort(ys)

	d = stat.KolmogorovSmirnov(xs, nil, ys, nil)

	if len(xs)*len(ys) <= exactLimit {
		return d, exactP(d, len(xs), len(ys))
	}

	n, m := float64(len(xs)), float64(len(ys))
	en := math.Sqrt(n * m / (n + m))
	// Stephens' small sample correction
	lambda := (en + 0.12 + 0.11/en) * d
	return d, kolmogorovQ(lambda)
}

// exactP returns P(D >= d) for samples of size n and m under the null
// hypothesis. It walks the lattice of merged orderings, i steps along x and
// j along y, and accumulates the probability of paths that never reach
// |i/n - j/m| >= d. Every ordering is equally likely, so from (i, j) the
// next element comes from x with probability (n-i)/(n+m-i-j).
func exactP(d float64, n, m int) float64 {
	if d <= 0 {
		return 1
	}
	// |i/n - j/m| >= d  <=>  |i·m - j·n| >= d·n·m; the left side is an integer.
	limit := d*float64(n*m) - 1e-7
	inside := func(i, j int) bool {
		diff := i*m - j*n
		if diff < 0 {
			diff = -diff
		}
		return float64(diff) < limit
	}

	row := make([]float64, m+1)
	for i := 0; i <= n; i++ {
		for j := 0; j <= m; j++ {
			if !inside(i, j) {
				row[j] = 0
				continue
			}
			if i == 0 && j == 0 {
				row[j] = 1
				continue
			}
			prob := 0.0
			if i > 0 {
				// row[j] still holds (i-1, j)
				prob += row[j] * float64(n-i+1) / float64(n+m-i-j+1)
			}
			if j > 0 {
				prob += row[j-1] * float64(m-j+1) / float64(n+m-i-j+1)
			}
			row[j] = prob
		}
	}
	return math.Max(0, math.Min(1, 1-row[m]))
}

// kolmogorovQ is the survival function of the Kolmogorov distribution,
// Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²).
func kolmogorovQ(lambda float64) float64 {
	if lambda < 0.2 {
		// the alternating series has not converged yet and Q is 1 to double precision
		return 1
	}
	a2 := -2 * lambda * lambda
	fac := 2.0
	sum := 0.0
	prev := 0.0
	for j := 1; j <= 100; j++ {
		jf := float64(j)
		term := fac * math.Exp(a2*jf*jf)
		sum += term
		if math.Abs(term) <= 0.001*prev || math.Abs(term) <= 1e-8*sum {
			return math.Max(0, math.Min(1, sum))
		}
		fac = -fac
		prev = math.Abs(term)
	}
	return 1
}
