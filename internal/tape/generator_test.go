package tape

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazytape/internal/graph"
)

func TestGeneratorRunsPasses(t *testing.T) {
	store := graph.NewStore()
	a := constant(t, 1, 2, 2)
	x := node(t, store, graph.ReLUArgs{}, a)[0]
	node(t, store, graph.ReLUArgs{}, x) // Unrequested consumer.

	gen := NewGenerator(store, DefaultPasses(store, true))
	assert.Same(t, store, gen.Store())
	assert.Equal(t, 2, gen.Passes().Len())

	tp, err := gen.Generate(x)
	require.NoError(t, err)
	assert.Equal(t, 1, tp.Len())
}

func TestGeneratorWithoutOptimizations(t *testing.T) {
	store := graph.NewStore()
	_, _, relu := mlpGraph(t, store)

	gen := NewGenerator(store, DefaultPasses(store, true))
	gen.SetOptimize(false)
	tp, err := gen.Generate(relu)
	require.NoError(t, err)
	assert.Equal(t, 3, tp.Len())
	assert.Equal(t, 3, store.Len(), "no fused node created")
}

func TestGeneratorNothingToDo(t *testing.T) {
	store := graph.NewStore()
	gen := NewGenerator(store, nil)
	tp, err := gen.Generate(constant(t, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, tp.Len())
}

func TestGeneratorCycle(t *testing.T) {
	store := graph.NewStore()
	x := node(t, store, graph.ReLUArgs{}, constant(t, 1, 2))[0]
	y := node(t, store, graph.ReLUArgs{}, x)[0]
	n, _ := store.Node(y.Producer())
	n.Inputs[0] = y

	gen := NewGenerator(store, DefaultPasses(store, true))
	_, err := gen.Generate(y)
	assert.True(t, errors.Is(err, graph.ErrGraphCycle), "got %v", err)
}
