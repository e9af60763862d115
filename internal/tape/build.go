package tape

import (
	"github.com/born-ml/lazytape/internal/graph"
)

// Build creates one operation per node id, in the given order. Lazy inputs
// become node slots and evaluated inputs become constant slots, keeping the
// argument order.
func Build(store *graph.Store, order []graph.NodeID) (*Tape, error) {
	t := New()
	for _, id := range order {
		node, found := store.Node(id)
		if !found {
			return nil, graph.Errorf(graph.ErrMissingDependency, id, "", "node is not in the graph store")
		}
		op := &Operation{
			NodeID:      id,
			Op:          node.Op,
			Args:        node.Args,
			Inputs:      make([]Input, len(node.Inputs)),
			OutputNodes: []graph.NodeID{id},
		}
		for i, in := range node.Inputs {
			if in.IsLazy() {
				op.Inputs[i] = Input{Node: in.Producer(), Output: in.Output()}
			} else {
				op.Inputs[i] = Input{Const: in.Raw()}
			}
		}
		t.Append(op)
	}
	return t, nil
}
