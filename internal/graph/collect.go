package graph

import (
	"slices"
)

// Collect returns, in ascending order, the ids of every node that must run
// to produce the lazy tensors among outputs.
//
// It walks inputs backward depth-first, visiting each node once, so diamonds
// are visited once and cycles do not loop. Evaluated tensors are leaves.
// Ids missing from the store are skipped.
func Collect(store *Store, outputs ...Tensor) []NodeID {
	visited := make(map[NodeID]bool)
	var stack []NodeID
	for _, out := range outputs {
		if out.IsLazy() {
			stack = append(stack, out.Producer())
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		node, found := store.Node(id)
		if !found {
			continue
		}
		visited[id] = true
		for _, in := range node.Inputs {
			if in.IsLazy() && !visited[in.Producer()] {
				stack = append(stack, in.Producer())
			}
		}
	}

	ids := make([]NodeID, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
