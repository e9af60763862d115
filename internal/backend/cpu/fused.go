package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/parallel"
	"github.com/born-ml/lazytape/internal/tensor"
)

// FusedMLP computes x @ w + b in a single pass, applying ReLU when relu is set.
//
// x is [M, K], w is [K, N] and b must broadcast to [M, N] (typically [N] or [1, N]).
func (cpu *CPUBackend) FusedMLP(x, w, b *tensor.RawTensor, relu bool) *tensor.RawTensor {
	checkSameDType("fused_mlp", x, w)
	checkSameDType("fused_mlp", x, b)
	m, k, n := matmulDims("fused_mlp", x.Shape(), w.Shape())
	outShape := tensor.Shape{m, n}
	if bShape, _, err := tensor.BroadcastShapes(b.Shape(), outShape); err != nil || !bShape.Equal(outShape) {
		exceptions.Panicf("fused_mlp: bias shape %v does not broadcast to %v", b.Shape(), outShape)
	}
	result := cpu.newResult("fused_mlp", outShape, x.DType())
	biasStrides := broadcastStrides(b.Shape(), outShape)

	switch x.DType() {
	case tensor.Float32:
		fusedMLPKernel(result.AsFloat32(), x.AsFloat32(), w.AsFloat32(), b.AsFloat32(), biasStrides, m, k, n, relu, cpu.parallel)
	case tensor.Float64:
		fusedMLPKernel(result.AsFloat64(), x.AsFloat64(), w.AsFloat64(), b.AsFloat64(), biasStrides, m, k, n, relu, cpu.parallel)
	case tensor.Int32:
		fusedMLPKernel(result.AsInt32(), x.AsInt32(), w.AsInt32(), b.AsInt32(), biasStrides, m, k, n, relu, cpu.parallel)
	case tensor.Int64:
		fusedMLPKernel(result.AsInt64(), x.AsInt64(), w.AsInt64(), b.AsInt64(), biasStrides, m, k, n, relu, cpu.parallel)
	default:
		exceptions.Panicf("fused_mlp: unsupported dtype %s", x.DType())
	}
	return result
}

func fusedMLPKernel[T tensor.Numeric](out, x, w, b []T, biasStrides []int, m, k, n int, relu bool, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		row := out[i*n : (i+1)*n]
		for j := range row {
			row[j] = b[i*biasStrides[0]+j*biasStrides[1]]
		}
		for kIdx := 0; kIdx < k; kIdx++ {
			xik := x[i*k+kIdx]
			wRow := w[kIdx*n : (kIdx+1)*n]
			for j := range row {
				row[j] += xik * wRow[j]
			}
		}
		if relu {
			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}
		}
	}, cfg)
}
