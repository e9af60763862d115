package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawZeroFilled(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float32, CPU)
	require.NoError(t, err)

	data := raw.AsFloat32()
	if len(data) != 6 {
		t.Fatalf("AsFloat32 length = %d, want 6", len(data))
	}
	for i, v := range data {
		if v != 0 {
			t.Errorf("data[%d] = %v, want 0", i, v)
		}
	}
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, []int{2, 1}, raw.Strides())
}

func TestNewRawInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32, CPU)
	require.Error(t, err)
}

func TestRawTensorScalar(t *testing.T) {
	raw, err := Full(Shape{}, Float64, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 1, raw.NumElements())
	assert.Equal(t, []float64{2.5}, raw.AsFloat64())
}

func TestRawTensorWrongDTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Int32, CPU)
	assert.Panics(t, func() { raw.AsFloat32() })
}

func TestCloneSharesBuffer(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)

	clone := raw.Clone()
	assert.Equal(t, 2, raw.RefCount())
	assert.Equal(t, raw.AsFloat32(), clone.AsFloat32())

	raw.Release()
	assert.False(t, clone.Released())
	assert.Equal(t, []float32{1, 2, 3, 4}, clone.AsFloat32())

	clone.Release()
	assert.True(t, clone.Released())
}

func TestFromFloat32LengthMismatch(t *testing.T) {
	_, err := FromFloat32([]float32{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
}

func TestFullAndOnes(t *testing.T) {
	for _, dtype := range []DataType{Float32, Float64, Int32, Int64} {
		raw, err := Ones(Shape{2, 3}, dtype)
		require.NoError(t, err, dtype.String())
		for _, v := range raw.Float64s() {
			assert.Equal(t, 1.0, v, dtype.String())
		}
	}
}

func TestRand(t *testing.T) {
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // test data
	raw, err := Rand(rng, Shape{16}, Float32)
	require.NoError(t, err)
	for _, v := range raw.AsFloat32() {
		if v < 0 || v >= 1 {
			t.Errorf("value %v out of [0, 1)", v)
		}
	}

	_, err = Rand(rng, Shape{2}, Int32)
	require.Error(t, err)
}
