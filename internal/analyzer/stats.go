package analyzer

import (
	"math"
	"sort"
)

// usable reports whether v can participate in statistics. NaN and
// infinities are excluded rather than coerced to zero.
func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// centralMoments returns the 2nd, 3rd and 4th central moments.
func centralMoments(values []float64) (m2, m3, m4 float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0, 0
	}
	mu := mean(values)
	for _, v := range values {
		d := v - mu
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	return m2 / n, m3 / n, m4 / n
}

// skewness is the standardized third moment. Constant data yields 0.
func skewness(values []float64) float64 {
	m2, m3, _ := centralMoments(values)
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// kurtosis is the excess kurtosis (normal distribution scores 0).
func kurtosis(values []float64) float64 {
	m2, _, m4 := centralMoments(values)
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}

// percentile computes the p-th percentile (0..100) of sorted values
// using linear interpolation between adjacent ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// countOutliers applies the IQR rule: a value is an outlier iff it lies
// outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func countOutliers(values []float64) int {
	if len(values) < 4 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	count := 0
	for _, v := range values {
		if v < lower || v > upper {
			count++
		}
	}
	return count
}

// pearson computes the Pearson correlation coefficient of two aligned
// samples. Degenerate inputs (short or zero-variance) return 0.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
