package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/tensor"
)

func init() {
	klog.InitFlags(nil)
}

func constant(t *testing.T, shape ...int) Tensor {
	t.Helper()
	raw, err := tensor.Ones(shape, tensor.Float32)
	require.NoError(t, err)
	return Constant(raw)
}

// addNode creates a node with inferred shapes and returns its first output.
func addNode(t *testing.T, store *Store, args Args, inputs ...Tensor) Tensor {
	t.Helper()
	shapes, dtype, err := InferShapes(args, inputs)
	require.NoError(t, err)
	id := store.CreateNode(inputs, args, dtype, shapes...)
	node, found := store.Node(id)
	require.True(t, found)
	return node.Output(0)
}

func TestStoreCreateNode(t *testing.T) {
	store := NewStore()
	a := constant(t, 2, 2)

	x := addNode(t, store, ReLUArgs{}, a)
	y := addNode(t, store, AddArgs{}, x, a)
	z := addNode(t, store, MultiplyArgs{}, x, y)

	assert.Equal(t, NodeID(1), x.Producer())
	assert.Equal(t, NodeID(2), y.Producer())
	assert.Equal(t, NodeID(3), z.Producer())
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, NodeID(4), store.NextID())

	first, _ := store.Node(x.Producer())
	assert.Equal(t, []NodeID{2, 3}, first.Consumers)
	second, _ := store.Node(y.Producer())
	assert.Equal(t, []NodeID{3}, second.Consumers)
	assert.Equal(t, OpAdd, second.Op)
	assert.Equal(t, NameAdd, second.Name())

	// Inputs keep their positional order.
	third, _ := store.Node(z.Producer())
	assert.Equal(t, x.Key(), third.Inputs[0].Key())
	assert.Equal(t, y.Key(), third.Inputs[1].Key())
}

func TestStoreConsumerRecordedOnce(t *testing.T) {
	store := NewStore()
	x := addNode(t, store, ReLUArgs{}, constant(t, 3))
	addNode(t, store, AddArgs{}, x, x)

	node, _ := store.Node(x.Producer())
	assert.Equal(t, []NodeID{2}, node.Consumers)
}

func TestStoreNodeNotFound(t *testing.T) {
	store := NewStore()
	_, found := store.Node(42)
	assert.False(t, found)
	_, found = store.Node(0)
	assert.False(t, found)
}

func TestStoreFindNodesOfType(t *testing.T) {
	store := NewStore()
	a := constant(t, 2, 2)
	x := addNode(t, store, MatMulArgs{}, a, a)
	addNode(t, store, ReLUArgs{}, x)
	addNode(t, store, MatMulArgs{}, x, a)

	matmuls := store.FindNodesOfType(OpMatMul)
	require.Len(t, matmuls, 2)
	assert.Equal(t, NodeID(1), matmuls[0].ID)
	assert.Equal(t, NodeID(3), matmuls[1].ID)
	assert.Empty(t, store.FindNodesOfType(OpSplit))
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	x := addNode(t, store, ReLUArgs{}, constant(t, 2))
	session := store.Session()

	store.Clear()
	assert.Equal(t, 0, store.Len())
	_, found := store.Node(x.Producer())
	assert.False(t, found)
	assert.NotEqual(t, session, store.Session())

	y := addNode(t, store, ReLUArgs{}, constant(t, 2))
	assert.Equal(t, NodeID(1), y.Producer())
}

func TestOpTypeRegistry(t *testing.T) {
	assert.Equal(t, OpMatMul, OpTypeFor(NameMatMul))
	assert.Equal(t, OpMatMul, TypeOf(MatMulArgs{TransposeA: true}))
	assert.NotEqual(t, OpMatMul, OpReLU)
	assert.Equal(t, NameReduceSum, OpReduceSum.String())

	custom := OpTypeFor("CustomKind")
	assert.Equal(t, custom, OpTypeFor("CustomKind"))
	assert.Equal(t, "CustomKind", custom.String())
	assert.NotEqual(t, OpInvalid, custom)
}

func TestTensorStates(t *testing.T) {
	c := constant(t, 2)
	assert.True(t, c.IsEvaluated())
	assert.False(t, c.IsLazy())
	assert.Equal(t, NodeID(0), c.Producer())

	l := Lazy(5, 1, tensor.Shape{2}, tensor.Float32)
	assert.True(t, l.IsLazy())
	assert.Equal(t, ValueKey{Node: 5, Output: 1}, l.Key())

	e := l.WithData(c.Raw())
	assert.True(t, e.IsEvaluated())
	assert.False(t, e.IsLazy())
	assert.Equal(t, l.Key(), e.Key())

	assert.Equal(t, "invalid", Tensor{}.String())
}
