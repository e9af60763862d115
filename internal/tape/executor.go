package tape

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/internal/tensor"
)

// Handler executes one operation: it resolves the inputs through the
// executor, calls the backend and publishes the results.
type Handler func(ex *Executor, op *Operation) error

// Executor runs tapes. It owns a registry from operation kind to Handler
// and the results of the operations run so far.
type Executor struct {
	backend  tensor.Backend
	handlers map[graph.OpType]Handler
	results  map[graph.NodeID][]*tensor.RawTensor
	executed int
}

// NewExecutor creates an executor with no handlers registered.
// See RegisterDefaultHandlers.
func NewExecutor(backend tensor.Backend) *Executor {
	return &Executor{
		backend:  backend,
		handlers: make(map[graph.OpType]Handler),
		results:  make(map[graph.NodeID][]*tensor.RawTensor),
	}
}

// Backend returns the math backend handlers should use.
func (ex *Executor) Backend() tensor.Backend {
	return ex.backend
}

// Register sets the handler for an operation kind, replacing any previous one.
func (ex *Executor) Register(op graph.OpType, h Handler) {
	ex.handlers[op] = h
}

// Registered reports whether op has a handler.
func (ex *Executor) Registered(op graph.OpType) bool {
	_, found := ex.handlers[op]
	return found
}

// NumRegistered returns the number of registered operation kinds.
func (ex *Executor) NumRegistered() int {
	return len(ex.handlers)
}

// ExecuteTape runs every not yet executed operation in tape order.
// It stops at the first failure.
func (ex *Executor) ExecuteTape(t *Tape) error {
	for _, op := range t.Operations() {
		if op.Executed {
			continue
		}
		h, found := ex.handlers[op.Op]
		if !found {
			return graph.Errorf(graph.ErrUnregisteredOperation, op.NodeID, op.Op.String(),
				"no handler registered for operation type %d", op.Op)
		}
		klog.V(2).Infof("Executing #%d %s", op.NodeID, op.Name())
		if err := h(ex, op); err != nil {
			return err
		}
		op.Executed = true
		ex.executed++
	}
	return nil
}

// Executed returns the number of operations run since the last ClearResults.
func (ex *Executor) Executed() int {
	return ex.executed
}

// Result returns the outputs published for node id.
func (ex *Executor) Result(id graph.NodeID) ([]*tensor.RawTensor, bool) {
	outs, found := ex.results[id]
	return outs, found
}

// SetResult publishes outputs for node id. The executor takes ownership of
// outs and releases them in ClearResults.
func (ex *Executor) SetResult(id graph.NodeID, outs ...*tensor.RawTensor) {
	ex.results[id] = outs
}

// Publish publishes outputs for every output node of op.
func (ex *Executor) Publish(op *Operation, outs ...*tensor.RawTensor) {
	ex.SetResult(op.NodeID, outs...)
	for _, id := range op.OutputNodes {
		ex.SetResult(id, outs...)
	}
}

// Input resolves argument slot i of op. A lazy slot whose producer has no
// published result fails with ErrMissingDependency.
func (ex *Executor) Input(op *Operation, i int) (*tensor.RawTensor, error) {
	in := op.Inputs[i]
	if in.IsConst() {
		return in.Const, nil
	}
	outs, found := ex.results[in.Node]
	if !found || int(in.Output) >= len(outs) {
		return nil, graph.Errorf(graph.ErrMissingDependency, op.NodeID, op.Name(),
			"missing lazy input #%d:%d for argument %d", in.Node, in.Output, i)
	}
	return outs[in.Output], nil
}

// Inputs resolves all argument slots of op, in order.
func (ex *Executor) Inputs(op *Operation) ([]*tensor.RawTensor, error) {
	inputs := make([]*tensor.RawTensor, len(op.Inputs))
	for i := range op.Inputs {
		in, err := ex.Input(op, i)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}
	return inputs, nil
}

// distinct returns each stored result tensor once; the same outputs may be
// published under several ids.
func (ex *Executor) distinct() []*tensor.RawTensor {
	seen := make(map[*tensor.RawTensor]bool)
	var all []*tensor.RawTensor
	for _, outs := range ex.results {
		for _, r := range outs {
			if !seen[r] {
				seen[r] = true
				all = append(all, r)
			}
		}
	}
	return all
}

// MemoryUsage returns the bytes held by stored results.
func (ex *Executor) MemoryUsage() int64 {
	var total int64
	for _, r := range ex.distinct() {
		total += int64(r.ByteSize())
	}
	return total
}

// ClearResults drops all stored results and resets the executed count.
func (ex *Executor) ClearResults() {
	for _, r := range ex.distinct() {
		r.Release()
	}
	ex.results = make(map[graph.NodeID][]*tensor.RawTensor)
	ex.executed = 0
}
