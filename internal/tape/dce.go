package tape

import (
	"github.com/born-ml/lazytape/internal/graph"
)

// DeadCodeElimination removes operations the requested outputs do not
// depend on. Only lazy inputs create liveness.
type DeadCodeElimination struct{}

var _ Pass = DeadCodeElimination{}

// Name implements Pass.
func (DeadCodeElimination) Name() string { return "DeadCodeElimination" }

// Priority implements Pass.
func (DeadCodeElimination) Priority() int { return 10 }

// Apply implements Pass and returns the number of removed operations.
func (DeadCodeElimination) Apply(t *Tape, outputs []graph.NodeID) int {
	live := make([]bool, t.Len())
	worklist := append([]graph.NodeID(nil), outputs...)
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		pos, found := t.Position(id)
		if !found || live[pos] {
			continue
		}
		live[pos] = true
		worklist = append(worklist, t.Operations()[pos].InputNodes()...)
	}

	kept := make([]*Operation, 0, t.Len())
	for i, op := range t.Operations() {
		if live[i] {
			kept = append(kept, op)
		}
	}
	eliminated := t.Len() - len(kept)
	if eliminated > 0 {
		t.SetOperations(kept)
	}
	return eliminated
}
