package hazard

import "sort"

// Interp linearly interpolates y at x over the polyline (xs, ys). xs must
// be non-decreasing. Outside the support the nearest endpoint value is
// returned; an exact hit on equal consecutive xs yields the right-hand value.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	j := sort.Search(n, func(i int) bool { return xs[i] > x }) - 1
	if xs[j] == x {
		return ys[j]
	}
	frac := (x - xs[j]) / (xs[j+1] - xs[j])
	return ys[j] + frac*(ys[j+1]-ys[j])
}

func reversed(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}
