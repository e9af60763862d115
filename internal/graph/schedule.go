package graph

import (
	"container/heap"
	"slices"
)

// readyQueue is a min-heap of NodeIDs, giving a deterministic
// lowest-id-first order among ready nodes.
type readyQueue []NodeID

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(NodeID)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// Schedule orders ids so that every node comes after the nodes in ids that
// produce its lazy inputs (Kahn's algorithm). Edges from nodes outside ids
// are ignored.
//
// It returns an ErrGraphCycle error when some nodes can never become ready,
// and ErrMissingDependency when an id is not in the store.
func Schedule(store *Store, ids []NodeID) ([]NodeID, error) {
	inSet := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	inDegree := make(map[NodeID]int, len(inSet))
	dependents := make(map[NodeID][]NodeID, len(inSet))
	for id := range inSet {
		node, found := store.Node(id)
		if !found {
			return nil, Errorf(ErrMissingDependency, id, "", "node is not in the graph store")
		}
		inDegree[id] = 0
		for _, in := range node.Inputs {
			if in.IsLazy() && inSet[in.Producer()] {
				inDegree[id]++
				dependents[in.Producer()] = append(dependents[in.Producer()], id)
			}
		}
	}

	ready := &readyQueue{}
	for id, degree := range inDegree {
		if degree == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]NodeID, 0, len(inSet))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(NodeID)
		order = append(order, id)
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				heap.Push(ready, dep)
			}
		}
	}

	if len(order) != len(inSet) {
		var stuck []NodeID
		for id, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, id)
			}
		}
		slices.Sort(stuck)
		return nil, Errorf(ErrGraphCycle, stuck[0], opName(store, stuck[0]),
			"scheduled %d of %d nodes, nodes %v are part of or depend on a cycle", len(order), len(inSet), stuck)
	}
	return order, nil
}

func opName(store *Store, id NodeID) string {
	if node, found := store.Node(id); found {
		return node.Name()
	}
	return ""
}
