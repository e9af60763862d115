package tape

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/graph"
)

// Generator compiles slices of a graph into optimized tapes:
// collect dependencies, schedule, build, then run the passes.
type Generator struct {
	store    *graph.Store
	passes   *Passes
	optimize bool
}

// NewGenerator creates a generator over store with optimizations enabled.
func NewGenerator(store *graph.Store, passes *Passes) *Generator {
	return &Generator{store: store, passes: passes, optimize: true}
}

// Store returns the graph store tapes are generated from.
func (g *Generator) Store() *graph.Store {
	return g.store
}

// Passes returns the optimization pass registry.
func (g *Generator) Passes() *Passes {
	return g.passes
}

// SetOptimize enables or disables the optimization passes.
func (g *Generator) SetOptimize(enabled bool) {
	g.optimize = enabled
}

// Generate returns a validated tape computing the lazy tensors among outputs.
func (g *Generator) Generate(outputs ...graph.Tensor) (*Tape, error) {
	ids := graph.Collect(g.store, outputs...)
	order, err := graph.Schedule(g.store, ids)
	if err != nil {
		return nil, err
	}
	t, err := Build(g.store, order)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Generated tape with %d operations for %d outputs", t.Len(), len(outputs))

	if g.optimize && g.passes != nil {
		var required []graph.NodeID
		for _, out := range outputs {
			if out.IsLazy() {
				required = append(required, out.Producer())
			}
		}
		g.passes.Run(t, required)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
