package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/tensor"
)

type binaryKind int

const (
	binaryAdd binaryKind = iota
	binaryMul
)

func (k binaryKind) String() string {
	if k == binaryAdd {
		return "add"
	}
	return "mul"
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(binaryAdd, a, b)
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(binaryMul, a, b)
}

func (cpu *CPUBackend) binary(kind binaryKind, a, b *tensor.RawTensor) *tensor.RawTensor {
	op := kind.String()
	checkSameDType(op, a, b)
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		exceptions.Panicf("%s: %v", op, err)
	}
	result := cpu.newResult(op, outShape, a.DType())

	switch a.DType() {
	case tensor.Float32:
		binaryKernel(kind, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape)
	case tensor.Float64:
		binaryKernel(kind, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape)
	case tensor.Int32:
		binaryKernel(kind, result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape)
	case tensor.Int64:
		binaryKernel(kind, result.AsInt64(), a.AsInt64(), b.AsInt64(), a.Shape(), b.Shape(), outShape)
	default:
		exceptions.Panicf("%s: unsupported dtype %s", op, a.DType())
	}
	return result
}

func binaryKernel[T tensor.Numeric](kind binaryKind, dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	apply := func(x, y T) T { return x + y }
	if kind == binaryMul {
		apply = func(x, y T) T { return x * y }
	}

	// Fast path: no broadcasting.
	if aShape.Equal(bShape) {
		for i := range dst {
			dst[i] = apply(a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	for i := range dst {
		dst[i] = apply(a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}
