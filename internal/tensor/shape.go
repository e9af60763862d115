package tensor

import (
	"slices"

	"github.com/pkg/errors"
)

// Shape lists the dimensions of a tensor, outermost first. An empty Shape
// is a scalar.
type Shape []int

// NumElements is the product of the dimensions, 1 for scalars.
func (s Shape) NumElements() int {
	total := 1
	for _, d := range s {
		total *= d
	}
	return total
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate rejects non-positive dimensions.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d <= 0 }); i >= 0 {
		return errors.Errorf("dimension %d of %v is %d, must be positive", i, []int(s), s[i])
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy that can be modified independently.
func (s Shape) Clone() Shape {
	if s == nil {
		return Shape{}
	}
	return slices.Clone(s)
}

// ComputeStrides returns the row-major strides of s, in elements.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	step := 1
	for axis := len(s) - 1; axis >= 0; axis-- {
		strides[axis] = step
		step *= s[axis]
	}
	return strides
}

// NormalizeAxis maps a possibly negative axis into [0, rank).
func (s Shape) NormalizeAxis(axis int) (int, error) {
	normalized := axis
	if normalized < 0 {
		normalized += len(s)
	}
	if normalized < 0 || normalized >= len(s) {
		return 0, errors.Errorf("axis %d out of range for %dD shape %v", axis, len(s), []int(s))
	}
	return normalized, nil
}

// BroadcastShapes returns the shape both a and b broadcast to, and whether
// any of them has to be broadcast.
//
// Dimensions are matched from the right; a missing dimension counts as 1,
// and a 1 stretches to the other side's size:
//
//	[3 1] with [5]   -> [3 5], true
//	[2 3] with [2 3] -> [2 3], false
//	[3 4] with [3 5] -> error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	rank := max(len(a), len(b))
	out := make(Shape, rank)
	broadcast := len(a) != len(b)
	dimAt := func(s Shape, axis int) int {
		if i := axis - (rank - len(s)); i >= 0 {
			return s[i]
		}
		return 1
	}
	for axis := range out {
		da, db := dimAt(a, axis), dimAt(b, axis)
		switch {
		case da == db:
			out[axis] = da
		case db == 1:
			out[axis], broadcast = da, true
		case da == 1:
			out[axis], broadcast = db, true
		default:
			return nil, false, errors.Errorf("shapes %v and %v do not broadcast: axis %d has %d vs %d",
				[]int(a), []int(b), axis, da, db)
		}
	}
	return out, broadcast, nil
}
