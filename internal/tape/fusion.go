package tape

import (
	"slices"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/graph"
)

// FusionInfo describes the fused operations created by MLPFusion.
const FusionInfo = "MatMul + Add (fused)"

// MLPFusion merges a MatMul with a later Add consuming its result into one
// FusedMLP operation.
//
// The fused operation gets a new node in Store, takes the MatMul inputs
// followed by the Add's remaining input, runs at the Add's position and
// publishes under the Add's output nodes, so the Add's consumers still
// resolve. A MatMul is left alone when its result has other uses, is a
// requested output, is transposed, or when the Add broadcasts it to a
// larger shape.
//
// Fusing the same Add again, when a tape is regenerated for the same
// outputs, reuses the node created the first time.
type MLPFusion struct {
	Store *graph.Store

	session uuid.UUID
	fusedOf map[graph.NodeID]graph.NodeID // Add node -> FusedMLP node.
}

var _ Pass = (*MLPFusion)(nil)

// Name implements Pass.
func (*MLPFusion) Name() string { return "MLPFusion" }

// Priority implements Pass.
func (*MLPFusion) Priority() int { return 50 }

// Apply implements Pass and returns the number of fused pairs.
func (f *MLPFusion) Apply(t *Tape, outputs []graph.NodeID) int {
	if f.Store == nil {
		klog.Warningf("MLPFusion: no graph store configured, skipping")
		return 0
	}

	uses := make(map[graph.NodeID]int)
	for _, op := range t.Operations() {
		for _, id := range op.InputNodes() {
			uses[id]++
		}
	}

	ops := slices.Clone(t.Operations())
	removed := make([]bool, len(ops))
	fused := 0
	for i, mm := range ops {
		if mm.Op != graph.OpMatMul || !f.fusible(mm, uses, outputs) {
			continue
		}
		j := slices.IndexFunc(ops[i+1:], func(op *Operation) bool {
			return op.Op == graph.OpAdd && len(op.Inputs) == 2 && slices.Contains(op.InputNodes(), mm.NodeID)
		})
		if j < 0 {
			continue
		}
		j += i + 1
		fusedOp, ok := f.fuse(mm, ops[j])
		if !ok {
			continue
		}
		ops[j] = fusedOp
		removed[i] = true
		fused++
		klog.V(2).Infof("MLPFusion: #%d MatMul + #%d Add -> #%d FusedMLP", mm.NodeID, fusedOp.OutputNodes[0], fusedOp.NodeID)
	}
	if fused == 0 {
		return 0
	}

	kept := ops[:0]
	for i, op := range ops {
		if !removed[i] {
			kept = append(kept, op)
		}
	}
	t.SetOperations(kept)
	return fused
}

func (f *MLPFusion) fusible(mm *Operation, uses map[graph.NodeID]int, outputs []graph.NodeID) bool {
	if args, ok := mm.Args.(graph.MatMulArgs); !ok || args.TransposeA || args.TransposeB {
		return false
	}
	for _, id := range mm.OutputNodes {
		if slices.Contains(outputs, id) {
			return false
		}
	}
	return uses[mm.NodeID] == 1
}

// fuse creates the FusedMLP node and operation replacing mm and add.
func (f *MLPFusion) fuse(mm, add *Operation) (*Operation, bool) {
	mmNode, found := f.Store.Node(mm.NodeID)
	if !found {
		return nil, false
	}
	addNode, found := f.Store.Node(add.NodeID)
	if !found || !addNode.Outputs[0].Equal(mmNode.Outputs[0]) {
		return nil, false
	}

	inputs := slices.Clone(mm.Inputs)
	nodeInputs := slices.Clone(mmNode.Inputs)
	for k, in := range add.Inputs {
		if !in.IsConst() && in.Node == mm.NodeID {
			continue
		}
		inputs = append(inputs, in)
		nodeInputs = append(nodeInputs, addNode.Inputs[k])
	}

	args := graph.FusedMLPArgs{Info: FusionInfo}
	id, found := f.reusable(add.NodeID)
	if !found {
		id = f.Store.CreateNode(nodeInputs, args, addNode.DType, addNode.Outputs[0])
		f.fusedOf[add.NodeID] = id
	}
	return &Operation{
		NodeID:      id,
		Op:          graph.TypeOf(args),
		Args:        args,
		Inputs:      inputs,
		OutputNodes: append([]graph.NodeID{id}, add.OutputNodes...),
	}, true
}

// reusable returns the FusedMLP node already created for the Add node
// addID in the current store session.
func (f *MLPFusion) reusable(addID graph.NodeID) (graph.NodeID, bool) {
	if f.fusedOf == nil || f.session != f.Store.Session() {
		f.session = f.Store.Session()
		f.fusedOf = make(map[graph.NodeID]graph.NodeID)
	}
	id, found := f.fusedOf[addID]
	if !found {
		return 0, false
	}
	if n, ok := f.Store.Node(id); !ok || n.Op != graph.OpFusedMLP {
		delete(f.fusedOf, addID)
		return 0, false
	}
	return id, true
}
