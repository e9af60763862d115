// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/lazytape/internal/tensor"

// Backend defines the math operations the tape executor dispatches to.
//
// Backends receive only materialized inputs, must not modify them, and
// report invalid shapes by panicking; the executor turns such panics into
// errors.
//
// Implementations:
//   - backend/cpu: Pure Go with row-parallel kernels
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor              // 2D matrix multiplication.
	Transpose(t *RawTensor, axes ...int) *RawTensor // Permute dimensions.

	// Activation functions.
	ReLU(x *RawTensor) *RawTensor // max(x, 0).

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                                 // Total sum (scalar result).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor       // Sum along dimension.
	ReduceSum(x *RawTensor, dims []int, keepDim bool) *RawTensor // Sum along dimensions, all if none.

	// Manipulation operations.
	Split(x *RawTensor, splitSize, dim int) []*RawTensor // Chunks of splitSize along dim.

	// Fused operations.
	FusedMLP(x, w, b *RawTensor, relu bool) *RawTensor // x @ w + b, optionally followed by ReLU.

	// Metadata.
	Name() string   // Backend name (e.g., "CPU").
	Device() Device // Device type.
}

// Compile-time checks that both interfaces describe the same contract.
var (
	_ Backend        = tensor.Backend(nil)
	_ tensor.Backend = Backend(nil)
)
