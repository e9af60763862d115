package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/parallel"
	"github.com/born-ml/lazytape/internal/tensor"
)

// MatMul performs matrix multiplication of 2D tensors: (M, K) @ (K, N) -> (M, N).
// Output rows are computed in parallel.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	checkSameDType("matmul", a, b)
	m, k, n := matmulDims("matmul", a.Shape(), b.Shape())
	result := cpu.newResult("matmul", tensor.Shape{m, n}, a.DType())

	switch a.DType() {
	case tensor.Float32:
		matmulKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.parallel)
	case tensor.Float64:
		matmulKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.parallel)
	case tensor.Int32:
		matmulKernel(result.AsInt32(), a.AsInt32(), b.AsInt32(), m, k, n, cpu.parallel)
	case tensor.Int64:
		matmulKernel(result.AsInt64(), a.AsInt64(), b.AsInt64(), m, k, n, cpu.parallel)
	default:
		exceptions.Panicf("matmul: unsupported dtype %s", a.DType())
	}
	return result
}

// matmulDims validates 2D operands and returns M, K and N.
func matmulDims(op string, aShape, bShape tensor.Shape) (m, k, n int) {
	if len(aShape) != 2 || len(bShape) != 2 {
		exceptions.Panicf("%s: only 2D tensors supported, got %dD and %dD", op, len(aShape), len(bShape))
	}
	m, k = aShape[0], aShape[1]
	if bShape[0] != k {
		exceptions.Panicf("%s: shape mismatch [%d,%d] @ [%d,%d]", op, m, k, bShape[0], bShape[1])
	}
	return m, k, bShape[1]
}

// matmulKernel computes C[i,j] = sum_k A[i,k] * B[k,j], one goroutine chunk per row range.
func matmulKernel[T tensor.Numeric](c, a, b []T, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kIdx := 0; kIdx < k; kIdx++ {
			aik := a[i*k+kIdx]
			bRow := b[kIdx*n : (kIdx+1)*n]
			for j := range row {
				row[j] += aik * bRow[j]
			}
		}
	}, cfg)
}
