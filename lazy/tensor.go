// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/tensor"
)

// Tensor is a node output of a Context's graph, or a constant.
//
// A Tensor starts lazy and becomes evaluated, once, the first time its data
// is requested. Evaluation always goes through the Context's manager.
type Tensor struct {
	ctx     *Context
	value   graph.Tensor
	session uuid.UUID
}

func (c *Context) wrap(value graph.Tensor) *Tensor {
	return &Tensor{ctx: c, value: value, session: c.store.Session()}
}

// Eval materializes t. It is a no-op for evaluated tensors apart from
// counting a cache hit. On failure t stays lazy and Eval may be retried.
func (t *Tensor) Eval() error {
	values, err := t.ctx.values([]*Tensor{t})
	if err != nil {
		return err
	}
	raw, err := t.ctx.manager.Evaluate(values[0])
	if err != nil {
		return err
	}
	t.materialize(raw)
	return nil
}

// materialize takes ownership of raw.
func (t *Tensor) materialize(raw *tensor.RawTensor) {
	if t.value.IsEvaluated() {
		raw.Release()
		return
	}
	t.value = t.value.WithData(raw)
}

// Raw evaluates t and returns its data. The returned tensor is owned by t
// and must not be released.
func (t *Tensor) Raw() (*tensor.RawTensor, error) {
	if err := t.Eval(); err != nil {
		return nil, err
	}
	return t.value.Raw(), nil
}

// Float32s evaluates t and returns a copy of its data.
func (t *Tensor) Float32s() ([]float32, error) {
	raw, err := t.Raw()
	if err != nil {
		return nil, err
	}
	if raw.DType() != tensor.Float32 {
		return nil, errors.Errorf("tensor has dtype %s, not float32", raw.DType())
	}
	return append([]float32(nil), raw.AsFloat32()...), nil
}

// IsLazy reports whether t still waits for evaluation.
func (t *Tensor) IsLazy() bool { return t.value.IsLazy() }

// IsEvaluated reports whether t holds data.
func (t *Tensor) IsEvaluated() bool { return t.value.IsEvaluated() }

// Shape returns the shape of t, known without evaluating.
func (t *Tensor) Shape() tensor.Shape { return t.value.Shape() }

// DType returns the element type of t.
func (t *Tensor) DType() tensor.DataType { return t.value.DType() }

// Producer returns the id of the node computing t, 0 for constants.
func (t *Tensor) Producer() graph.NodeID { return t.value.Producer() }

// String implements fmt.Stringer.
func (t *Tensor) String() string { return t.value.String() }
