package tape

import (
	"cmp"
	"slices"

	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/graph"
)

// Pass rewrites a tape in place and reports how many rewrites it applied.
// Returning 0 is not an error.
type Pass interface {
	Name() string
	// Priority orders passes: lower runs first, ties broken by Name.
	Priority() int
	Apply(t *Tape, outputs []graph.NodeID) int
}

// Passes is an ordered set of optimization passes.
type Passes struct {
	passes []Pass
}

// NewPasses creates a registry holding the given passes.
func NewPasses(passes ...Pass) *Passes {
	r := &Passes{}
	for _, p := range passes {
		r.Register(p)
	}
	return r
}

// DefaultPasses returns dead-code elimination and, if fusion is set,
// MatMul+Add fusion creating its nodes in store.
func DefaultPasses(store *graph.Store, fusion bool) *Passes {
	r := NewPasses(DeadCodeElimination{})
	if fusion {
		r.Register(&MLPFusion{Store: store})
	}
	return r
}

// Register adds a pass.
func (r *Passes) Register(p Pass) {
	r.passes = append(r.passes, p)
}

// Clear removes all passes.
func (r *Passes) Clear() {
	r.passes = nil
}

// Len returns the number of registered passes.
func (r *Passes) Len() int {
	return len(r.passes)
}

// Sorted returns the passes ordered by (priority, name).
func (r *Passes) Sorted() []Pass {
	sorted := slices.Clone(r.passes)
	slices.SortStableFunc(sorted, func(a, b Pass) int {
		if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	return sorted
}

// Run applies every pass in order and returns the total number of rewrites.
func (r *Passes) Run(t *Tape, outputs []graph.NodeID) int {
	sorted := r.Sorted()
	klog.V(1).Infof("Applying %d optimization passes to a tape of %d operations", len(sorted), t.Len())
	total := 0
	for _, p := range sorted {
		n := p.Apply(t, outputs)
		klog.V(1).Infof("Pass %s (priority %d): %d rewrites, %d operations left", p.Name(), p.Priority(), n, t.Len())
		total += n
	}
	return total
}
