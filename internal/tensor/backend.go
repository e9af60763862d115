package tensor

// Backend is the math contract the tape executor calls into.
//
// Backends only see materialized inputs, never write them, and report
// invalid shapes or types by panicking; the caller converts panics into
// errors.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MatMul multiplies two 2D tensors: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor
	// Transpose permutes dimensions; no axes reverses them.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// ReLU computes max(x, 0) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	ReduceSum(x *RawTensor, dims []int, keepDim bool) *RawTensor

	// Split cuts x along dim into chunks of splitSize; the last may be smaller.
	Split(x *RawTensor, splitSize, dim int) []*RawTensor

	// FusedMLP computes x @ w + b, followed by ReLU when relu is set.
	FusedMLP(x, w, b *RawTensor, relu bool) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
