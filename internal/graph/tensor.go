package graph

import (
	"fmt"

	"github.com/born-ml/lazytape/internal/tensor"
)

// NodeID identifies a graph node. IDs are assigned from 1 upwards and never
// reused within a store generation; 0 means "no producer".
type NodeID uint64

// ValueKey identifies one output of one node. It is the identity used by
// the evaluation cache.
type ValueKey struct {
	Node   NodeID
	Output uint16
}

// Tensor is a cheap-to-copy value handle. It is either LAZY (refers to a
// future output of a node) or EVALUATED (holds materialized data).
type Tensor struct {
	producer NodeID
	output   uint16
	shape    tensor.Shape
	dtype    tensor.DataType
	raw      *tensor.RawTensor
}

// Lazy returns a handle to output #output of node producer.
func Lazy(producer NodeID, output uint16, shape tensor.Shape, dtype tensor.DataType) Tensor {
	return Tensor{producer: producer, output: output, shape: shape, dtype: dtype}
}

// Constant returns an evaluated handle with no producer.
func Constant(raw *tensor.RawTensor) Tensor {
	return Tensor{shape: raw.Shape(), dtype: raw.DType(), raw: raw}
}

// WithData returns an evaluated copy of t that keeps t's producer identity.
func (t Tensor) WithData(raw *tensor.RawTensor) Tensor {
	t.raw = raw
	return t
}

// IsLazy reports whether t still refers to a not-yet-computed node output.
func (t Tensor) IsLazy() bool {
	return t.raw == nil && t.producer != 0
}

// IsEvaluated reports whether t holds materialized data.
func (t Tensor) IsEvaluated() bool {
	return t.raw != nil
}

// Producer returns the node that produces t, or 0 for constants.
func (t Tensor) Producer() NodeID {
	return t.producer
}

// Output returns which output of the producer t refers to.
func (t Tensor) Output() uint16 {
	return t.output
}

// Key returns the (producer, output) identity of t.
func (t Tensor) Key() ValueKey {
	return ValueKey{Node: t.producer, Output: t.output}
}

// Shape returns the (possibly inferred) shape of t.
func (t Tensor) Shape() tensor.Shape {
	return t.shape
}

// DType returns the data type of t.
func (t Tensor) DType() tensor.DataType {
	return t.dtype
}

// Raw returns the materialized data, nil while t is lazy.
func (t Tensor) Raw() *tensor.RawTensor {
	return t.raw
}

// String implements fmt.Stringer.
func (t Tensor) String() string {
	switch {
	case t.IsLazy():
		return fmt.Sprintf("lazy(#%d:%d %s%v)", t.producer, t.output, t.dtype, t.shape)
	case t.IsEvaluated():
		return fmt.Sprintf("const(%s%v)", t.dtype, t.shape)
	default:
		return "invalid"
	}
}
