package tape

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/internal/tensor"
)

// RegisterDefaultHandlers registers handlers for all built-in operation kinds.
func RegisterDefaultHandlers(ex *Executor) {
	ex.Register(graph.OpMatMul, matMulHandler)
	ex.Register(graph.OpReLU, unaryHandler(func(b tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor {
		return b.ReLU(x)
	}))
	ex.Register(graph.OpAdd, binaryHandler(func(b tensor.Backend, x, y *tensor.RawTensor) *tensor.RawTensor {
		return b.Add(x, y)
	}))
	ex.Register(graph.OpMultiply, binaryHandler(func(b tensor.Backend, x, y *tensor.RawTensor) *tensor.RawTensor {
		return b.Mul(x, y)
	}))
	ex.Register(graph.OpReduceSum, reduceSumHandler)
	ex.Register(graph.OpSplit, splitHandler)
	ex.Register(graph.OpFusedMLP, fusedMLPHandler)
}

// run checks arity, resolves the inputs, calls kernel converting backend
// panics into ErrShapeMismatch, and publishes the outputs.
func run(ex *Executor, op *Operation, arity int, kernel func(b tensor.Backend, inputs []*tensor.RawTensor) []*tensor.RawTensor) error {
	if len(op.Inputs) != arity {
		return graph.Errorf(graph.ErrShapeMismatch, op.NodeID, op.Name(),
			"expected %d inputs, got %d", arity, len(op.Inputs))
	}
	inputs, err := ex.Inputs(op)
	if err != nil {
		return err
	}
	var outs []*tensor.RawTensor
	if err := exceptions.TryCatch[error](func() { outs = kernel(ex.Backend(), inputs) }); err != nil {
		return graph.Errorf(graph.ErrShapeMismatch, op.NodeID, op.Name(), "%v", err)
	}
	ex.Publish(op, outs...)
	return nil
}

// argsOf returns the arguments of op as T.
func argsOf[T graph.Args](op *Operation) (T, error) {
	args, ok := op.Args.(T)
	if !ok {
		var zero T
		return zero, graph.Errorf(graph.ErrShapeMismatch, op.NodeID, op.Name(), "unexpected arguments %T", op.Args)
	}
	return args, nil
}

func unaryHandler(fn func(b tensor.Backend, x *tensor.RawTensor) *tensor.RawTensor) Handler {
	return func(ex *Executor, op *Operation) error {
		return run(ex, op, 1, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
			return []*tensor.RawTensor{fn(b, in[0])}
		})
	}
}

func binaryHandler(fn func(b tensor.Backend, x, y *tensor.RawTensor) *tensor.RawTensor) Handler {
	return func(ex *Executor, op *Operation) error {
		return run(ex, op, 2, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
			return []*tensor.RawTensor{fn(b, in[0], in[1])}
		})
	}
}

func matMulHandler(ex *Executor, op *Operation) error {
	args, err := argsOf[graph.MatMulArgs](op)
	if err != nil {
		return err
	}
	return run(ex, op, 2, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
		lhs, rhs := in[0], in[1]
		if args.TransposeA {
			lhs = b.Transpose(lhs)
			defer lhs.Release()
		}
		if args.TransposeB {
			rhs = b.Transpose(rhs)
			defer rhs.Release()
		}
		return []*tensor.RawTensor{b.MatMul(lhs, rhs)}
	})
}

func reduceSumHandler(ex *Executor, op *Operation) error {
	args, err := argsOf[graph.ReduceArgs](op)
	if err != nil {
		return err
	}
	return run(ex, op, 1, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
		return []*tensor.RawTensor{b.ReduceSum(in[0], args.Dims, args.KeepDim)}
	})
}

func splitHandler(ex *Executor, op *Operation) error {
	args, err := argsOf[graph.SplitArgs](op)
	if err != nil {
		return err
	}
	return run(ex, op, 1, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
		return b.Split(in[0], args.SplitSize, args.Dim)
	})
}

func fusedMLPHandler(ex *Executor, op *Operation) error {
	args, err := argsOf[graph.FusedMLPArgs](op)
	if err != nil {
		return err
	}
	return run(ex, op, 3, func(b tensor.Backend, in []*tensor.RawTensor) []*tensor.RawTensor {
		return []*tensor.RawTensor{b.FusedMLP(in[0], in[1], in[2], args.HasReLU)}
	})
}
