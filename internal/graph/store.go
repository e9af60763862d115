package graph

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/tensor"
)

// Node is one operation in the graph.
//
// Nodes are immutable after creation except for Consumers, which grows as
// later nodes take this node's outputs as inputs.
type Node struct {
	ID        NodeID
	Op        OpType
	Inputs    []Tensor // Ordered; may mix lazy and evaluated tensors.
	Args      Args
	Consumers []NodeID
	Outputs   []tensor.Shape
	DType     tensor.DataType
}

// Name returns the operation kind name.
func (n *Node) Name() string {
	return n.Args.OpName()
}

// Output returns a lazy handle to output #i of the node.
func (n *Node) Output(i int) Tensor {
	return Lazy(n.ID, uint16(i), n.Outputs[i], n.DType) //nolint:gosec // CreateNode caps outputs at MaxOutputs
}

// NumOutputs returns how many values the node produces.
func (n *Node) NumOutputs() int {
	return len(n.Outputs)
}

// MaxOutputs is the largest number of outputs a node may have: output
// indices are uint16.
const MaxOutputs = math.MaxUint16 + 1

// Store is the append-only node table backing a graph. It is single-writer.
type Store struct {
	nodes   []*Node
	index   map[NodeID]int
	lastID  atomic.Uint64
	session uuid.UUID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index:   make(map[NodeID]int),
		session: uuid.New(),
	}
}

// CreateNode appends a node and returns its id. Nothing is computed.
// The new id is registered as a consumer of every lazy input's producer.
// It panics if outputs has more than MaxOutputs entries.
func (s *Store) CreateNode(inputs []Tensor, args Args, dtype tensor.DataType, outputs ...tensor.Shape) NodeID {
	if len(outputs) > MaxOutputs {
		exceptions.Panicf("graph: %s node with %d outputs, at most %d are addressable", args.OpName(), len(outputs), MaxOutputs)
	}
	id := NodeID(s.lastID.Add(1))
	node := &Node{
		ID:      id,
		Op:      TypeOf(args),
		Inputs:  slices.Clone(inputs),
		Args:    args,
		Outputs: outputs,
		DType:   dtype,
	}
	s.index[id] = len(s.nodes)
	s.nodes = append(s.nodes, node)

	for _, in := range inputs {
		if !in.IsLazy() {
			continue
		}
		if producer, found := s.Node(in.Producer()); found && !slices.Contains(producer.Consumers, id) {
			producer.Consumers = append(producer.Consumers, id)
		}
	}
	if klog.V(3).Enabled() {
		klog.Infof("graph %s: created node #%d %s with %d inputs", s.session, id, node.Name(), len(inputs))
	}
	return id
}

// Node returns the node with the given id. Unknown or cleared ids return
// false; callers treat that as "node is gone".
func (s *Store) Node(id NodeID) (*Node, bool) {
	idx, found := s.index[id]
	if !found {
		return nil, false
	}
	return s.nodes[idx], true
}

// FindNodesOfType returns all nodes of a kind, in creation order.
func (s *Store) FindNodesOfType(op OpType) []*Node {
	var found []*Node
	for _, n := range s.nodes {
		if n.Op == op {
			found = append(found, n)
		}
	}
	return found
}

// Nodes returns all nodes in creation order.
func (s *Store) Nodes() []*Node {
	return s.nodes
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	return len(s.nodes)
}

// NextID returns the id the next created node will get.
func (s *Store) NextID() NodeID {
	return NodeID(s.lastID.Load() + 1)
}

// Session identifies the current store generation. It changes on Clear.
func (s *Store) Session() uuid.UUID {
	return s.session
}

// Clear drops every node and restarts id allocation at 1. NodeIDs and
// Tensors obtained before Clear must not be used afterwards.
func (s *Store) Clear() {
	klog.V(1).Infof("graph %s: clearing %d nodes", s.session, len(s.nodes))
	s.nodes = nil
	s.index = make(map[NodeID]int)
	s.lastID.Store(0)
	s.session = uuid.New()
}
