package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/tensor"
)

// Split cuts x along dim into consecutive chunks of splitSize elements.
// The last chunk is smaller when the dimension is not divisible.
//
// Example:
//
//	parts := backend.Split(x, 2, 0) // [5, 3] -> [2, 3], [2, 3], [1, 3]
func (cpu *CPUBackend) Split(x *tensor.RawTensor, splitSize, dim int) []*tensor.RawTensor {
	if splitSize <= 0 {
		exceptions.Panicf("split: split size must be positive, got %d", splitSize)
	}
	shape := x.Shape()
	dim, err := shape.NormalizeAxis(dim)
	if err != nil {
		exceptions.Panicf("split: %v", err)
	}

	dimSize := shape[dim]
	outer := shape[:dim].NumElements()
	innerBytes := shape[dim+1:].NumElements() * x.DType().Size()
	src := x.Data()

	results := make([]*tensor.RawTensor, 0, (dimSize+splitSize-1)/splitSize)
	for start := 0; start < dimSize; start += splitSize {
		length := min(splitSize, dimSize-start)
		chunkShape := shape.Clone()
		chunkShape[dim] = length
		chunk := cpu.newResult("split", chunkShape, x.DType())

		// Layout is dtype independent: copy whole [length, inner] blocks as bytes.
		dst := chunk.Data()
		block := length * innerBytes
		for o := 0; o < outer; o++ {
			from := (o*dimSize + start) * innerBytes
			copy(dst[o*block:(o+1)*block], src[from:from+block])
		}
		results = append(results, chunk)
	}
	return results
}
