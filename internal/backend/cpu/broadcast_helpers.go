package cpu

import (
	"github.com/born-ml/lazytape/internal/tensor"
)

// broadcastStrides returns, for every axis of out, the step to take in a
// tensor of shape in. Axes that in lacks or holds with size 1 step by 0.
func broadcastStrides(in, out tensor.Shape) []int {
	own := in.ComputeStrides()
	pad := len(out) - len(in)
	strides := make([]int, len(out))
	for axis := pad; axis < len(out); axis++ {
		if in[axis-pad] != 1 {
			strides[axis] = own[axis-pad]
		}
	}
	return strides
}

// flatIndex maps a flat output index to the flat index of a broadcast input.
func flatIndex(idx int, outStrides, inStrides []int) int {
	var pos int
	for axis, step := range outStrides {
		pos += idx / step * inStrides[axis]
		idx %= step
	}
	return pos
}
