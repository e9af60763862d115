// Package cpu implements the tensor.Backend math contract on the CPU in pure Go.
package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/parallel"
	"github.com/born-ml/lazytape/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
//
// Kernels always allocate their result; inputs are never modified, since
// they may be shared with the evaluation cache.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend with the default parallel configuration.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend whose row-parallel kernels use cfg.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// newResult allocates a kernel output, panicking on invalid shapes.
func (cpu *CPUBackend) newResult(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		exceptions.Panicf("%s: failed to create result tensor: %v", op, err)
	}
	return result
}

// checkSameDType panics if a and b have different data types.
func checkSameDType(op string, a, b *tensor.RawTensor) {
	if a.DType() != b.DType() {
		exceptions.Panicf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType())
	}
}

// Transpose permutes the tensor dimensions. Without axes it reverses them.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		exceptions.Panicf("transpose: axes length %d != ndim %d", len(axes), ndim)
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			exceptions.Panicf("transpose: invalid axis %d for %dD tensor", ax, ndim)
		}
		if seen[ax] {
			exceptions.Panicf("transpose: duplicate axis %d", ax)
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result := cpu.newResult("transpose", newShape, t.DType())

	switch t.DType() {
	case tensor.Float32:
		transposeKernel(result.AsFloat32(), t.AsFloat32(), shape, newShape, axes)
	case tensor.Float64:
		transposeKernel(result.AsFloat64(), t.AsFloat64(), shape, newShape, axes)
	case tensor.Int32:
		transposeKernel(result.AsInt32(), t.AsInt32(), shape, newShape, axes)
	case tensor.Int64:
		transposeKernel(result.AsInt64(), t.AsInt64(), shape, newShape, axes)
	default:
		exceptions.Panicf("transpose: unsupported dtype %s", t.DType())
	}
	return result
}

func transposeKernel[T tensor.Numeric](dst, src []T, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		rem := i
		srcIdx := 0
		for d := range outStrides {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += coord * inStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}
