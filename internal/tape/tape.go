// Package tape turns a slice of the lazy graph into a linear program,
// optimizes it and executes it against a tensor.Backend.
package tape

import (
	"fmt"
	"strings"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/internal/tensor"
)

// Input is one ordered argument slot of an Operation: either the output of
// another node (resolved at execution time) or a constant tensor.
type Input struct {
	Node   graph.NodeID
	Output uint16
	Const  *tensor.RawTensor
}

// IsConst reports whether the slot holds a materialized tensor.
func (in Input) IsConst() bool {
	return in.Const != nil
}

// String implements fmt.Stringer.
func (in Input) String() string {
	if in.IsConst() {
		return fmt.Sprintf("const%v", []int(in.Const.Shape()))
	}
	if in.Output != 0 {
		return fmt.Sprintf("#%d:%d", in.Node, in.Output)
	}
	return fmt.Sprintf("#%d", in.Node)
}

// Operation is one step of a Tape.
type Operation struct {
	NodeID      graph.NodeID
	Op          graph.OpType
	Args        graph.Args
	Inputs      []Input        // Ordered argument slots.
	OutputNodes []graph.NodeID // Ids the results are published under, NodeID included.
	Executed    bool
}

// Name returns the operation kind name.
func (op *Operation) Name() string {
	return op.Args.OpName()
}

// InputNodes returns the ids of the lazy inputs, in argument order.
func (op *Operation) InputNodes() []graph.NodeID {
	var ids []graph.NodeID
	for _, in := range op.Inputs {
		if !in.IsConst() {
			ids = append(ids, in.Node)
		}
	}
	return ids
}

// ConstantInputs returns the constant inputs, in argument order.
func (op *Operation) ConstantInputs() []*tensor.RawTensor {
	var consts []*tensor.RawTensor
	for _, in := range op.Inputs {
		if in.IsConst() {
			consts = append(consts, in.Const)
		}
	}
	return consts
}

// Tape is an ordered list of operations with an id index. Every lazy input
// of an operation is produced by an earlier operation.
type Tape struct {
	ops   []*Operation
	index map[graph.NodeID]int
}

// New returns an empty tape.
func New() *Tape {
	return &Tape{index: make(map[graph.NodeID]int)}
}

// Append adds op at the end of the tape.
func (t *Tape) Append(op *Operation) {
	t.ops = append(t.ops, op)
	t.indexOp(len(t.ops) - 1)
}

func (t *Tape) indexOp(i int) {
	op := t.ops[i]
	t.index[op.NodeID] = i
	for _, id := range op.OutputNodes {
		t.index[id] = i
	}
}

// Operations returns the operations in execution order.
func (t *Tape) Operations() []*Operation {
	return t.ops
}

// SetOperations replaces the operation list and rebuilds the index.
func (t *Tape) SetOperations(ops []*Operation) {
	t.ops = ops
	t.index = make(map[graph.NodeID]int, len(ops))
	for i := range t.ops {
		t.indexOp(i)
	}
}

// Len returns the number of operations.
func (t *Tape) Len() int {
	return len(t.ops)
}

// Position returns the index of the operation that runs node id or
// publishes it as one of its output nodes.
func (t *Tape) Position(id graph.NodeID) (int, bool) {
	i, found := t.index[id]
	return i, found
}

// Find returns the operation that runs or publishes node id.
func (t *Tape) Find(id graph.NodeID) (*Operation, bool) {
	i, found := t.index[id]
	if !found {
		return nil, false
	}
	return t.ops[i], true
}

// Dependencies returns the lazy input ids of the operation for id.
func (t *Tape) Dependencies(id graph.NodeID) []graph.NodeID {
	op, found := t.Find(id)
	if !found {
		return nil
	}
	return op.InputNodes()
}

// Validate checks that every lazy input is produced by an earlier operation.
func (t *Tape) Validate() error {
	for i, op := range t.ops {
		for _, dep := range op.InputNodes() {
			pos, found := t.index[dep]
			if !found || pos >= i {
				return graph.Errorf(graph.ErrInvalidTape, op.NodeID, op.Name(),
					"input #%d is not produced by an earlier operation", dep)
			}
		}
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (t *Tape) IsValid() bool {
	return t.Validate() == nil
}

// String lists the operations, one per line.
func (t *Tape) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tape with %d operations:\n", len(t.ops))
	for i, op := range t.ops {
		inputs := make([]string, len(op.Inputs))
		for j, in := range op.Inputs {
			inputs[j] = in.String()
		}
		status := ""
		if op.Executed {
			status = " (executed)"
		}
		fmt.Fprintf(&sb, "  [%d] #%d %s(%s) -> %v%s\n", i, op.NodeID, op.Name(), strings.Join(inputs, ", "), op.OutputNodes, status)
	}
	return sb.String()
}
