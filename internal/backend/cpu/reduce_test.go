package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lazytape/internal/tensor"
)

func TestSumDim_1D(t *testing.T) {
	backend := newTestBackend()
	x := mustFloat32(t, []float32{1, 2, 3, 4}, 4)

	result := backend.SumDim(x, 0, true)
	if !result.Shape().Equal(tensor.Shape{1}) {
		t.Errorf("Expected shape [1], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}

	result = backend.SumDim(x, 0, false)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected shape [], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}
}

func TestSumDim_2D(t *testing.T) {
	backend := newTestBackend()
	// Row 0: [1, 2, 3]
	// Row 1: [4, 5, 6]
	x := mustFloat32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	rows := backend.SumDim(x, -1, true)
	assert.True(t, rows.Shape().Equal(tensor.Shape{2, 1}))
	assert.Equal(t, []float32{6, 15}, rows.AsFloat32())

	cols := backend.SumDim(x, 0, false)
	assert.True(t, cols.Shape().Equal(tensor.Shape{3}))
	assert.Equal(t, []float32{5, 7, 9}, cols.AsFloat32())

	assert.Panics(t, func() { backend.SumDim(x, 2, false) })
}

func TestReduceSum(t *testing.T) {
	backend := newTestBackend()
	data := make([]float32, 24)
	for i := range data {
		data[i] = float32(i)
	}
	x := mustFloat32(t, data, 2, 3, 4)

	t.Run("MultipleDims", func(t *testing.T) {
		result := backend.ReduceSum(x, []int{0, 2}, false)
		require.True(t, result.Shape().Equal(tensor.Shape{3}))
		// Slice j sums elements with middle index j: 4 per batch, 2 batches.
		assert.Equal(t, []float32{60, 92, 124}, result.AsFloat32())
	})

	t.Run("KeepDim", func(t *testing.T) {
		result := backend.ReduceSum(x, []int{-1, 0}, true)
		assert.True(t, result.Shape().Equal(tensor.Shape{1, 3, 1}))
	})

	t.Run("AllDims", func(t *testing.T) {
		result := backend.ReduceSum(x, nil, false)
		assert.Empty(t, result.Shape())
		assert.Equal(t, []float32{276}, result.AsFloat32())
		assert.Equal(t, result.AsFloat32(), backend.Sum(x).AsFloat32())
	})

	t.Run("DuplicateAxis", func(t *testing.T) {
		assert.Panics(t, func() { backend.ReduceSum(x, []int{1, -2}, false) })
	})

	t.Run("InputUntouched", func(t *testing.T) {
		assert.Equal(t, 1, x.RefCount())
		assert.Equal(t, data, x.AsFloat32())
	})
}
