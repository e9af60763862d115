package cpu

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/born-ml/lazytape/internal/tensor"
)

// SumDim sums tensor elements along one dimension.
//
// Parameters:
//   - dim: dimension to reduce (negative values count from the end)
//   - keepDim: keep the reduced dimension with size 1 instead of removing it
//
// Example:
//
//	y := backend.SumDim(x, -1, true)   // [2, 3, 4] -> [2, 3, 1]
//	z := backend.SumDim(x, -1, false)  // [2, 3, 4] -> [2, 3]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	dim, err := shape.NormalizeAxis(dim)
	if err != nil {
		exceptions.Panicf("sumdim: %v", err)
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, len(shape)-1)
		outShape = append(outShape, shape[:dim]...)
		outShape = append(outShape, shape[dim+1:]...)
	}
	result := cpu.newResult("sumdim", outShape, x.DType())

	switch x.DType() {
	case tensor.Float32:
		sumDimKernel(result.AsFloat32(), x.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimKernel(result.AsFloat64(), x.AsFloat64(), shape, dim)
	case tensor.Int32:
		sumDimKernel(result.AsInt32(), x.AsInt32(), shape, dim)
	case tensor.Int64:
		sumDimKernel(result.AsInt64(), x.AsInt64(), shape, dim)
	default:
		exceptions.Panicf("sumdim: unsupported dtype %s", x.DType())
	}
	return result
}

// ReduceSum sums over several dimensions at once. An empty dims reduces
// over every dimension.
func (cpu *CPUBackend) ReduceSum(x *tensor.RawTensor, dims []int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	axes, err := normalizeAxes(shape, dims)
	if err != nil {
		exceptions.Panicf("reducesum: %v", err)
	}

	// Reduce with keepDim so axis numbers stay valid, then drop the axes at the end.
	current := x
	for _, axis := range axes {
		next := cpu.SumDim(current, axis, true)
		if current != x {
			current.Release()
		}
		current = next
	}
	if current == x {
		// Nothing to reduce: return a fresh handle, never the input itself.
		current = x.Clone()
	}
	if keepDim {
		return current
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if !slices.Contains(axes, i) {
			outShape = append(outShape, d)
		}
	}
	reshaped, err := current.Reshape(outShape)
	if err != nil {
		exceptions.Panicf("reducesum: %v", err)
	}
	current.Release()
	return reshaped
}

// Sum sums all elements into a scalar tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.ReduceSum(x, nil, false)
}

// normalizeAxes resolves negative axes, rejects duplicates and returns the
// axes sorted ascending. Empty dims selects all axes.
func normalizeAxes(shape tensor.Shape, dims []int) ([]int, error) {
	if len(dims) == 0 {
		axes := make([]int, len(shape))
		for i := range axes {
			axes[i] = i
		}
		return axes, nil
	}
	axes := make([]int, 0, len(dims))
	for _, d := range dims {
		axis, err := shape.NormalizeAxis(d)
		if err != nil {
			return nil, err
		}
		if slices.Contains(axes, axis) {
			return nil, errors.Errorf("duplicate axis %d in %v", axis, dims)
		}
		axes = append(axes, axis)
	}
	slices.Sort(axes)
	return axes, nil
}

// sumDimKernel views src as [outer, size, inner] and sums the middle axis.
func sumDimKernel[T tensor.Numeric](dst, src []T, shape tensor.Shape, dim int) {
	outer := shape[:dim].NumElements()
	size := shape[dim]
	inner := shape[dim+1:].NumElements()

	for i := range dst {
		dst[i] = 0
	}
	for o := 0; o < outer; o++ {
		for s := 0; s < size; s++ {
			base := (o*size + s) * inner
			row := dst[o*inner : (o+1)*inner]
			for i := range row {
				row[i] += src[base+i]
			}
		}
	}
}
