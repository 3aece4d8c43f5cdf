package geometry

import "math"

// Distance is the Euclidean distance between two points of equal dimension.
func Distance(a, b []float64) float64 {
	sum := 0.0
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Dominates reports whether a is no worse than b in every dimension and strictly
// better in at least one. Smaller is better.
func Dominates(a, b []float64) bool {
	strictlyBetter := false
	for d := range a {
		if a[d] > b[d] {
			return false
		}
		if a[d] < b[d] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
