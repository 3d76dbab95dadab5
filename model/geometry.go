package model

import "math"

// clampEpsilon is the tolerance under which coordinates slightly outside
// [0,1] are snapped back onto the page edge.
const clampEpsilon = 1e-2

// DefaultWithinThreshold is the containment ratio used when callers have no
// stage-specific threshold.
const DefaultWithinThreshold = 0.8

// BBox represents a bounding box normalized to the page: every coordinate is
// in [0,1], the origin is the top-left corner and X0 < X1, Y0 < Y1.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewBBox creates a bounding box from normalized coordinates.
// Values within 1e-2 outside [0,1] are clamped onto the boundary.
// The second return value is false when the box would be out of the page or
// degenerate (x0 >= x1 or y0 >= y1); detector noise of this kind is expected
// and callers simply skip the candidate.
func NewBBox(x0, y0, x1, y1 float64) (BBox, bool) {
	b := BBox{X0: clamp(x0), Y0: clamp(y0), X1: clamp(x1), Y1: clamp(y1)}
	if !b.IsValid() {
		return BBox{}, false
	}
	return b, true
}

// MustBBox is like NewBBox but panics on invalid input. Intended for tests
// and constants.
func MustBBox(x0, y0, x1, y1 float64) BBox {
	b, ok := NewBBox(x0, y0, x1, y1)
	if !ok {
		panic("model: invalid bbox")
	}
	return b
}

func clamp(v float64) float64 {
	if v > 1 && v < 1+clampEpsilon {
		return 1
	}
	if v < 0 && v > -clampEpsilon {
		return 0
	}
	return v
}

// IsValid reports whether the box lies on the page and has a positive area
func (b BBox) IsValid() bool {
	for _, v := range [4]float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return b.X0 < b.X1 && b.Y0 < b.Y1
}

// Width returns the horizontal extent
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Area returns the area of the box
func (b BBox) Area() float64 {
	return (b.X1 - b.X0) * (b.Y1 - b.Y0)
}

// XInterval returns the horizontal interval covered by the box
func (b BBox) XInterval() Interval {
	return Interval{Start: b.X0, End: b.X1}
}

// YInterval returns the vertical interval covered by the box
func (b BBox) YInterval() Interval {
	return Interval{Start: b.Y0, End: b.Y1}
}

// Intersects reports whether the two boxes share a region of positive area
func (b BBox) Intersects(other BBox) bool {
	return b.X0 < other.X1 && other.X0 < b.X1 && b.Y0 < other.Y1 && other.Y0 < b.Y1
}

// IntersectionArea returns the area shared by both boxes
func (b BBox) IntersectionArea(other BBox) float64 {
	if !b.Intersects(other) {
		return 0
	}
	x0, y0 := math.Max(b.X0, other.X0), math.Max(b.Y0, other.Y0)
	x1, y1 := math.Min(b.X1, other.X1), math.Min(b.Y1, other.Y1)
	return math.Max(0, (x1-x0)*(y1-y0))
}

// Union returns the smallest box containing both boxes
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, other.X0),
		Y0: math.Min(b.Y0, other.Y0),
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
	}
}

// Tuple returns the coordinates as (x0, y0, x1, y1)
func (b BBox) Tuple() [4]float64 {
	return [4]float64{b.X0, b.Y0, b.X1, b.Y1}
}

// IsBBoxWithin reports whether at least threshold of a's area lies inside b.
// A zero-area a is never within anything. threshold must be positive;
// anything else is a programming error and panics.
func IsBBoxWithin(a, b BBox, threshold float64) bool {
	if threshold <= 0 {
		panic("model: IsBBoxWithin threshold must be greater than 0")
	}
	area := a.Area()
	if area <= 0 {
		return false
	}
	return a.IntersectionArea(b)/area >= threshold
}

// Interval is a closed range on one axis
type Interval struct {
	Start float64
	End   float64
}

// Len returns the length of the interval
func (i Interval) Len() float64 {
	return i.End - i.Start
}

// Mid returns the middle of the interval
func (i Interval) Mid() float64 {
	return (i.Start + i.End) / 2
}

// MatchInterval reports whether two intervals overlap:
// i1.Start < i2.End and i2.Start <= i1.End.
func MatchInterval(i1, i2 Interval) bool {
	return i1.Start < i2.End && i2.Start <= i1.End
}

// MatchIntervalRatio reports whether the overlap of the two intervals covers
// at least threshold of i1's length.
func MatchIntervalRatio(i1, i2 Interval, threshold float64) bool {
	length := i1.Len()
	if length <= 0 {
		return false
	}
	overlap := math.Max(0, math.Min(i1.End, i2.End)-math.Max(i1.Start, i2.Start))
	return overlap/length >= threshold
}

// Column is a vertical gutter at X that stays free of content between Y0 and
// Y1 on one page.
type Column struct {
	X  float64 `json:"x"`
	Y0 float64 `json:"y0"`
	Y1 float64 `json:"y1"`
}

// YInterval returns the vertical range over which the gutter is free
func (c Column) YInterval() Interval {
	return Interval{Start: c.Y0, End: c.Y1}
}
