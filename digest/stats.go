package digest

import (
	"math"
	"sort"
)

// validValues filters NaN out, returning a sorted copy.
func validValues(values []float64) []float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	sort.Float64s(valid)
	return valid
}

// median returns the NaN-skipping median, NaN when nothing remains.
func median(values []float64) float64 {
	valid := validValues(values)
	n := len(valid)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return valid[n/2]
	}
	return (valid[n/2-1] + valid[n/2]) / 2
}

// quantile returns the q-th quantile with linear interpolation between
// the two nearest ranks, skipping NaN. NaN when nothing remains.
func quantile(values []float64, q float64) float64 {
	valid := validValues(values)
	n := len(valid)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return valid[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return valid[lo]
	}
	return valid[lo] + (h-float64(lo))*(valid[hi]-valid[lo])
}

// mean returns the NaN-skipping mean, NaN when nothing remains.
func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// PctChange returns the percentage change from prev to cur. A zero or
// NaN previous value has no meaningful change and yields NaN.
func PctChange(cur, prev float64) float64 {
	if prev == 0 || math.IsNaN(prev) {
		return math.NaN()
	}
	return (cur - prev) / prev * 100
}

// round2 rounds to two decimals, passing NaN through.
func round2(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}

// round1 rounds to one decimal, passing NaN through.
func round1(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*10) / 10
}
