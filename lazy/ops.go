// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/tensor"
)

// Constant wraps existing data as an evaluated tensor of c.
func (c *Context) Constant(raw *tensor.RawTensor) *Tensor {
	return c.wrap(graph.Constant(raw))
}

func (c *Context) constant(raw *tensor.RawTensor, err error) (*Tensor, error) {
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create constant")
	}
	return c.Constant(raw), nil
}

// FromFloat32 creates a float32 constant holding a copy of data.
func (c *Context) FromFloat32(data []float32, shape ...int) (*Tensor, error) {
	return c.constant(tensor.FromFloat32(data, shape))
}

// FromFloat64 creates a float64 constant holding a copy of data.
func (c *Context) FromFloat64(data []float64, shape ...int) (*Tensor, error) {
	return c.constant(tensor.FromFloat64(data, shape))
}

// Full creates a float32 constant filled with value.
func (c *Context) Full(value float64, shape ...int) (*Tensor, error) {
	return c.constant(tensor.Full(shape, tensor.Float32, value))
}

// Zeros creates a float32 constant filled with zeros.
func (c *Context) Zeros(shape ...int) (*Tensor, error) {
	return c.Full(0, shape...)
}

// Ones creates a float32 constant filled with ones.
func (c *Context) Ones(shape ...int) (*Tensor, error) {
	return c.Full(1, shape...)
}

// Rand creates a float32 constant with uniform values in [0, 1).
func (c *Context) Rand(rng *rand.Rand, shape ...int) (*Tensor, error) {
	return c.constant(tensor.Rand(rng, shape, tensor.Float32))
}

// node records an operation and returns its outputs. Nothing is computed.
func (c *Context) node(args graph.Args, inputs ...*Tensor) ([]*Tensor, error) {
	values, err := c.values(inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", args.OpName())
	}
	shapes, dtype, err := graph.InferShapes(args, values)
	if err != nil {
		return nil, err
	}
	n, _ := c.store.Node(c.store.CreateNode(values, args, dtype, shapes...))
	outs := make([]*Tensor, n.NumOutputs())
	for i := range outs {
		outs[i] = c.wrap(n.Output(i))
	}
	return outs, nil
}

func (c *Context) single(args graph.Args, inputs ...*Tensor) (*Tensor, error) {
	outs, err := c.node(args, inputs...)
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// MatMul records a @ b for 2D tensors.
func (c *Context) MatMul(a, b *Tensor) (*Tensor, error) {
	return c.single(graph.MatMulArgs{}, a, b)
}

// MatMulT records a @ b, transposing either operand first.
func (c *Context) MatMulT(a, b *Tensor, transposeA, transposeB bool) (*Tensor, error) {
	return c.single(graph.MatMulArgs{TransposeA: transposeA, TransposeB: transposeB}, a, b)
}

// ReLU records max(x, 0).
func (c *Context) ReLU(x *Tensor) (*Tensor, error) {
	return c.single(graph.ReLUArgs{}, x)
}

// Add records a + b with broadcasting.
func (c *Context) Add(a, b *Tensor) (*Tensor, error) {
	return c.single(graph.AddArgs{}, a, b)
}

// Multiply records a * b with broadcasting.
func (c *Context) Multiply(a, b *Tensor) (*Tensor, error) {
	return c.single(graph.MultiplyArgs{}, a, b)
}

// ReduceSum records the sum of x over dims, or over all dimensions when
// none are given.
func (c *Context) ReduceSum(x *Tensor, keepDim bool, dims ...int) (*Tensor, error) {
	return c.single(graph.ReduceArgs{Dims: dims, KeepDim: keepDim}, x)
}

// Split records cutting x along dim into chunks of size; the last chunk may
// be smaller.
func (c *Context) Split(x *Tensor, size, dim int) ([]*Tensor, error) {
	return c.node(graph.SplitArgs{SplitSize: size, Dim: dim}, x)
}

// FusedMLP records x @ w + b in a single operation, followed by ReLU when
// relu is set.
func (c *Context) FusedMLP(x, w, b *Tensor, relu bool) (*Tensor, error) {
	return c.single(graph.FusedMLPArgs{HasReLU: relu}, x, w, b)
}
