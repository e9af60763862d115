package tensor

import (
	"math/rand"

	"github.com/pkg/errors"
)

// FromFloat32 creates a Float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	raw, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// FromFloat64 creates a Float64 tensor holding a copy of data.
func FromFloat64(data []float64, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	raw, err := NewRaw(shape, Float64, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat64(), data)
	return raw, nil
}

// Full creates a tensor of the given type filled with value.
//
// Example:
//
//	t, _ := tensor.Full(tensor.Shape{2, 2}, tensor.Float32, 3)
func Full(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		fill(raw.AsFloat32(), float32(value))
	case Float64:
		fill(raw.AsFloat64(), value)
	case Int32:
		fill(raw.AsInt32(), int32(value))
	case Int64:
		fill(raw.AsInt64(), int64(value))
	}
	return raw, nil
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRaw(shape, dtype, CPU)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) (*RawTensor, error) {
	return Full(shape, dtype, 1)
}

// Rand creates a floating point tensor with values uniform in [0, 1).
// Uses math/rand, which is fine for test inputs and demos.
func Rand(rng *rand.Rand, shape Shape, dtype DataType) (*RawTensor, error) {
	if !dtype.IsFloat() {
		return nil, errors.Errorf("rand: unsupported dtype %s (only float32/float64 supported)", dtype)
	}
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}
	if dtype == Float32 {
		data := raw.AsFloat32()
		for i := range data {
			data[i] = rng.Float32()
		}
	} else {
		data := raw.AsFloat64()
		for i := range data {
			data[i] = rng.Float64()
		}
	}
	return raw, nil
}

func fill[T Numeric](data []T, v T) {
	for i := range data {
		data[i] = v
	}
}
