// Package geometry holds the value types the index is built from: one
// dimensional Bounds and n dimensional minimum bounding rectangles.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBounds = errors.New("lower bound is greater than upper bound")

// Bounds is a closed interval [Lower, Upper].
type Bounds struct {
	Lower float64
	Upper float64
}

func NewBounds(lower, upper float64) (Bounds, error) {
	if lower > upper || math.IsNaN(lower) || math.IsNaN(upper) {
		return Bounds{}, fmt.Errorf("%w: [%v, %v]", ErrInvalidBounds, lower, upper)
	}
	return Bounds{Lower: lower, Upper: upper}, nil
}

// MergeBounds returns the smallest interval covering a and b.
func MergeBounds(a, b Bounds) Bounds {
	return Bounds{
		Lower: math.Min(a.Lower, b.Lower),
		Upper: math.Max(a.Upper, b.Upper),
	}
}

func (b Bounds) Length() float64 {
	return b.Upper - b.Lower
}

func (b Bounds) Contains(v float64) bool {
	return b.Lower <= v && v <= b.Upper
}

// intersection returns the length of the overlap of a and b, negative when disjoint.
func intersection(a, b Bounds) float64 {
	return math.Min(a.Upper, b.Upper) - math.Max(a.Lower, b.Lower)
}
