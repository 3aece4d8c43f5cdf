package geometry

import (
	"fmt"
	"math"
	"strings"
)

// MBR is an axis aligned box with one Bounds per dimension. Area, margin and
// center are computed once at construction; an MBR is never mutated afterwards.
type MBR struct {
	bounds []Bounds
	area   float64
	margin float64
	center []float64
}

func NewMBR(bounds []Bounds) MBR {
	m := MBR{bounds: bounds, center: make([]float64, len(bounds))}

	if len(bounds) > 0 {
		m.area = 1
	}
	for d, b := range bounds {
		m.area *= b.Length()
		m.margin += math.Abs(b.Length())
		m.center[d] = (b.Lower + b.Upper) / 2
	}
	m.area = math.Abs(m.area)

	return m
}

// PointMBR is the degenerate box around a single point.
func PointMBR(point []float64) MBR {
	bounds := make([]Bounds, len(point))
	for d, v := range point {
		bounds[d] = Bounds{Lower: v, Upper: v}
	}
	return NewMBR(bounds)
}

// FromCorners builds an MBR from its lower and upper corners.
func FromCorners(lower, upper []float64) (MBR, error) {
	if len(lower) != len(upper) {
		return MBR{}, fmt.Errorf("corner dimensions differ: %d and %d", len(lower), len(upper))
	}

	bounds := make([]Bounds, len(lower))
	for d := range lower {
		b, err := NewBounds(lower[d], upper[d])
		if err != nil {
			return MBR{}, err
		}
		bounds[d] = b
	}
	return NewMBR(bounds), nil
}

// Union returns the smallest box covering a and b.
func Union(a, b MBR) MBR {
	bounds := make([]Bounds, len(a.bounds))
	for d := range a.bounds {
		bounds[d] = MergeBounds(a.bounds[d], b.bounds[d])
	}
	return NewMBR(bounds)
}

// UnionAll returns the component wise min of lowers and max of uppers of mbrs.
func UnionAll(mbrs []MBR) MBR {
	if len(mbrs) == 0 {
		return MBR{}
	}

	bounds := make([]Bounds, len(mbrs[0].bounds))
	copy(bounds, mbrs[0].bounds)
	for _, m := range mbrs[1:] {
		for d := range bounds {
			bounds[d] = MergeBounds(bounds[d], m.bounds[d])
		}
	}
	return NewMBR(bounds)
}

// UnionPoints returns the box covering every point.
func UnionPoints(points [][]float64) MBR {
	if len(points) == 0 {
		return MBR{}
	}

	lower := make([]float64, len(points[0]))
	upper := make([]float64, len(points[0]))
	copy(lower, points[0])
	copy(upper, points[0])
	for _, p := range points[1:] {
		for d, v := range p {
			lower[d] = math.Min(lower[d], v)
			upper[d] = math.Max(upper[d], v)
		}
	}

	bounds := make([]Bounds, len(lower))
	for d := range lower {
		bounds[d] = Bounds{Lower: lower[d], Upper: upper[d]}
	}
	return NewMBR(bounds)
}

func (m MBR) Dimensions() int {
	return len(m.bounds)
}

func (m MBR) IsEmpty() bool {
	return len(m.bounds) == 0
}

func (m MBR) Bound(d int) Bounds {
	return m.bounds[d]
}

// Bounds returns a copy of the per dimension intervals.
func (m MBR) Bounds() []Bounds {
	res := make([]Bounds, len(m.bounds))
	copy(res, m.bounds)
	return res
}

func (m MBR) Area() float64 {
	return m.area
}

// Margin is the sum of the extents over all dimensions.
func (m MBR) Margin() float64 {
	return m.margin
}

// Center must not be modified by the caller.
func (m MBR) Center() []float64 {
	return m.center
}

// LowerCorner returns the point made of every dimension's lower bound.
func (m MBR) LowerCorner() []float64 {
	res := make([]float64, len(m.bounds))
	for d, b := range m.bounds {
		res[d] = b.Lower
	}
	return res
}

// UpperCorner returns the point made of every dimension's upper bound.
func (m MBR) UpperCorner() []float64 {
	res := make([]float64, len(m.bounds))
	for d, b := range m.bounds {
		res[d] = b.Upper
	}
	return res
}

// LowerSum is the optimistic dominance rank used by the skyline search.
func (m MBR) LowerSum() float64 {
	sum := 0.0
	for _, b := range m.bounds {
		sum += b.Lower
	}
	return sum
}

func (m MBR) ContainsPoint(point []float64) bool {
	for d, b := range m.bounds {
		if !b.Contains(point[d]) {
			return false
		}
	}
	return true
}

// MinDistance is the Euclidean distance from point to the nearest point of m,
// zero when point is inside.
func (m MBR) MinDistance(point []float64) float64 {
	sum := 0.0
	for d, b := range m.bounds {
		var nearest float64
		switch {
		case point[d] < b.Lower:
			nearest = b.Lower
		case point[d] > b.Upper:
			nearest = b.Upper
		default:
			nearest = point[d]
		}
		diff := point[d] - nearest
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func (m MBR) Equal(other MBR) bool {
	if len(m.bounds) != len(other.bounds) {
		return false
	}
	for d := range m.bounds {
		if m.bounds[d] != other.bounds[d] {
			return false
		}
	}
	return true
}

func (m MBR) String() string {
	parts := make([]string, len(m.bounds))
	for d, b := range m.bounds {
		parts[d] = fmt.Sprintf("[%v,%v]", b.Lower, b.Upper)
	}
	return strings.Join(parts, "x")
}

// Overlaps reports whether a and b share at least one point. Touching boxes overlap.
func Overlaps(a, b MBR) bool {
	for d := range a.bounds {
		if intersection(a.bounds[d], b.bounds[d]) < 0 {
			return false
		}
	}
	return true
}

// OverlapArea is the volume of the intersection of a and b, 0 when any
// dimension's intersection is empty or degenerate.
func OverlapArea(a, b MBR) float64 {
	if len(a.bounds) == 0 {
		return 0
	}

	value := 1.0
	for d := range a.bounds {
		length := intersection(a.bounds[d], b.bounds[d])
		if length <= 0 {
			return 0
		}
		value *= length
	}
	return value
}

// CenterDistance is the Euclidean distance between the centers of a and b.
func CenterDistance(a, b MBR) float64 {
	return Distance(a.center, b.center)
}
