package graph

import (
	"github.com/born-ml/lazytape/internal/tensor"
)

// Operation kind names.
const (
	NameMatMul    = "MatMul"
	NameReLU      = "ReLU"
	NameAdd       = "Add"
	NameMultiply  = "Multiply"
	NameReduceSum = "ReduceSum"
	NameSplit     = "Split"
	NameFusedMLP  = "FusedMLP"
)

// Built-in operation kinds.
var (
	OpMatMul    = OpTypeFor(NameMatMul)
	OpReLU      = OpTypeFor(NameReLU)
	OpAdd       = OpTypeFor(NameAdd)
	OpMultiply  = OpTypeFor(NameMultiply)
	OpReduceSum = OpTypeFor(NameReduceSum)
	OpSplit     = OpTypeFor(NameSplit)
	OpFusedMLP  = OpTypeFor(NameFusedMLP)
)

// MatMulArgs configures a 2D matrix multiplication.
type MatMulArgs struct {
	TransposeA bool
	TransposeB bool
}

// ReLUArgs configures a ReLU activation.
type ReLUArgs struct{}

// AddArgs configures a broadcasting element-wise addition.
type AddArgs struct{}

// MultiplyArgs configures a broadcasting element-wise multiplication.
type MultiplyArgs struct{}

// ReduceArgs configures a sum reduction. Empty Dims reduces over all dimensions.
type ReduceArgs struct {
	Dims    []int
	KeepDim bool
}

// SplitArgs configures a split into chunks of SplitSize along Dim.
// The node has one output per chunk.
type SplitArgs struct {
	SplitSize int
	Dim       int
}

// FusedMLPArgs configures input @ weights + bias, optionally followed by ReLU.
type FusedMLPArgs struct {
	HasReLU bool
	Info    string // Human-readable origin, e.g. which ops were fused.
}

func (MatMulArgs) OpName() string   { return NameMatMul }
func (ReLUArgs) OpName() string     { return NameReLU }
func (AddArgs) OpName() string      { return NameAdd }
func (MultiplyArgs) OpName() string { return NameMultiply }
func (ReduceArgs) OpName() string   { return NameReduceSum }
func (SplitArgs) OpName() string    { return NameSplit }
func (FusedMLPArgs) OpName() string { return NameFusedMLP }

// ShapeInferrer is implemented by argument payloads able to compute their
// output shapes from their input shapes.
type ShapeInferrer interface {
	Args
	Arity() int
	InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error)
}

// InferShapes checks arity and dtypes of inputs and returns the output
// shapes and dtype of a node with the given arguments.
func InferShapes(args Args, inputs []Tensor) ([]tensor.Shape, tensor.DataType, error) {
	inferrer, ok := args.(ShapeInferrer)
	if !ok {
		return nil, 0, Errorf(ErrShapeMismatch, 0, args.OpName(), "no shape inference for %T", args)
	}
	if len(inputs) != inferrer.Arity() {
		return nil, 0, Errorf(ErrShapeMismatch, 0, args.OpName(), "expected %d inputs, got %d", inferrer.Arity(), len(inputs))
	}
	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		if in.DType() != inputs[0].DType() {
			return nil, 0, Errorf(ErrShapeMismatch, 0, args.OpName(), "input #%d has dtype %s, input #0 has %s",
				i, in.DType(), inputs[0].DType())
		}
		shapes[i] = in.Shape()
	}
	outputs, err := inferrer.InferShapes(shapes)
	if err != nil {
		return nil, 0, err
	}
	return outputs, inputs[0].DType(), nil
}

func (MatMulArgs) Arity() int   { return 2 }
func (ReLUArgs) Arity() int     { return 1 }
func (AddArgs) Arity() int      { return 2 }
func (MultiplyArgs) Arity() int { return 2 }
func (ReduceArgs) Arity() int   { return 1 }
func (SplitArgs) Arity() int    { return 1 }
func (FusedMLPArgs) Arity() int { return 3 }

// InferShapes implements ShapeInferrer.
func (a MatMulArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	lhs, rhs := inputs[0], inputs[1]
	if lhs.Rank() != 2 || rhs.Rank() != 2 {
		return nil, Errorf(ErrShapeMismatch, 0, NameMatMul, "only 2D operands supported, got %v and %v", lhs, rhs)
	}
	m, k := lhs[0], lhs[1]
	if a.TransposeA {
		m, k = k, m
	}
	k2, n := rhs[0], rhs[1]
	if a.TransposeB {
		k2, n = n, k2
	}
	if k != k2 {
		return nil, Errorf(ErrShapeMismatch, 0, NameMatMul, "inner dimensions differ: %v @ %v (transpose %t/%t)",
			lhs, rhs, a.TransposeA, a.TransposeB)
	}
	return []tensor.Shape{{m, n}}, nil
}

// InferShapes implements ShapeInferrer.
func (ReLUArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	return []tensor.Shape{inputs[0].Clone()}, nil
}

// InferShapes implements ShapeInferrer.
func (AddArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	return broadcastShapes(NameAdd, inputs[0], inputs[1])
}

// InferShapes implements ShapeInferrer.
func (MultiplyArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	return broadcastShapes(NameMultiply, inputs[0], inputs[1])
}

func broadcastShapes(op string, a, b tensor.Shape) ([]tensor.Shape, error) {
	out, _, err := tensor.BroadcastShapes(a, b)
	if err != nil {
		return nil, Errorf(ErrShapeMismatch, 0, op, "%v", err)
	}
	return []tensor.Shape{out}, nil
}

// InferShapes implements ShapeInferrer.
func (a ReduceArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	in := inputs[0]
	reduced := make([]bool, in.Rank())
	if len(a.Dims) == 0 {
		for i := range reduced {
			reduced[i] = true
		}
	}
	for _, d := range a.Dims {
		axis, err := in.NormalizeAxis(d)
		if err != nil {
			return nil, Errorf(ErrShapeMismatch, 0, NameReduceSum, "%v", err)
		}
		if reduced[axis] {
			return nil, Errorf(ErrShapeMismatch, 0, NameReduceSum, "duplicate axis %d in %v", axis, a.Dims)
		}
		reduced[axis] = true
	}

	out := make(tensor.Shape, 0, in.Rank())
	for i, d := range in {
		switch {
		case !reduced[i]:
			out = append(out, d)
		case a.KeepDim:
			out = append(out, 1)
		}
	}
	return []tensor.Shape{out}, nil
}

// InferShapes implements ShapeInferrer.
func (a SplitArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	in := inputs[0]
	if a.SplitSize <= 0 {
		return nil, Errorf(ErrShapeMismatch, 0, NameSplit, "split size must be positive, got %d", a.SplitSize)
	}
	axis, err := in.NormalizeAxis(a.Dim)
	if err != nil {
		return nil, Errorf(ErrShapeMismatch, 0, NameSplit, "%v", err)
	}
	if chunks := (in[axis] + a.SplitSize - 1) / a.SplitSize; chunks > MaxOutputs {
		return nil, Errorf(ErrShapeMismatch, 0, NameSplit, "%d chunks exceed the limit of %d outputs per node", chunks, MaxOutputs)
	}
	var outs []tensor.Shape
	for start := 0; start < in[axis]; start += a.SplitSize {
		chunk := in.Clone()
		chunk[axis] = min(a.SplitSize, in[axis]-start)
		outs = append(outs, chunk)
	}
	return outs, nil
}

// InferShapes implements ShapeInferrer.
func (FusedMLPArgs) InferShapes(inputs []tensor.Shape) ([]tensor.Shape, error) {
	outs, err := MatMulArgs{}.InferShapes(inputs[:2])
	if err != nil {
		return nil, Errorf(ErrShapeMismatch, 0, NameFusedMLP, "%v", err)
	}
	bias, _, err := tensor.BroadcastShapes(inputs[2], outs[0])
	if err != nil || !bias.Equal(outs[0]) {
		return nil, Errorf(ErrShapeMismatch, 0, NameFusedMLP, "bias shape %v does not broadcast to %v", inputs[2], outs[0])
	}
	return outs, nil
}
