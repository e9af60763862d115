package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/tensor"
)

// ReLU computes max(x, 0) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newResult("relu", x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		reluKernel(result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		reluKernel(result.AsFloat64(), x.AsFloat64())
	case tensor.Int32:
		reluKernel(result.AsInt32(), x.AsInt32())
	case tensor.Int64:
		reluKernel(result.AsInt64(), x.AsInt64())
	default:
		exceptions.Panicf("relu: unsupported dtype %s", x.DType())
	}
	return result
}

func reluKernel[T tensor.Numeric](dst, src []T) {
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		} else {
			dst[i] = 0
		}
	}
}
