package tensor

import (
	"fmt"
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Device identifies where a tensor's buffer lives.
type Device int

const (
	CPU Device = iota
)

func (d Device) String() string {
	if d == CPU {
		return "CPU"
	}
	return "Unknown"
}

// buffer is the storage behind one or more RawTensor handles. The bytes are
// dropped when the last handle releases it.
type buffer struct {
	bytes atomic.Pointer[[]byte]
	refs  atomic.Int32
}

func allocate(size int) *buffer {
	b := new(buffer)
	data := make([]byte, size)
	b.bytes.Store(&data)
	b.refs.Store(1)
	return b
}

func (b *buffer) data() []byte {
	if p := b.bytes.Load(); p != nil {
		return *p
	}
	return nil
}

func (b *buffer) unref() {
	if b.refs.Add(-1) == 0 {
		b.bytes.Store(nil)
	}
}

// RawTensor is a materialized, contiguous, row-major tensor.
//
// Handles obtained through Clone or Reshape share the same buffer. Kernels
// never write a buffer after returning it, so sharing needs no copying.
type RawTensor struct {
	buf    *buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid shape")
	}
	return &RawTensor{
		buf:    allocate(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

func (r *RawTensor) Shape() Shape     { return r.shape }
func (r *RawTensor) Strides() []int   { return r.stride }
func (r *RawTensor) DType() DataType  { return r.dtype }
func (r *RawTensor) Device() Device   { return r.device }
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize is the size of the tensor's elements in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the underlying bytes, or nil once the buffer is released.
func (r *RawTensor) Data() []byte {
	return r.buf.data()
}

// Released reports whether the last reference to the buffer was dropped.
func (r *RawTensor) Released() bool {
	return r.buf.data() == nil
}

// view reinterprets the buffer as a slice of E without copying. It panics
// when the tensor does not hold want.
func view[E Numeric](r *RawTensor, want DataType) []E {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	data := r.buf.data()
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // length bounded by the buffer size
	return unsafe.Slice((*E)(unsafe.Pointer(unsafe.SliceData(data))), r.NumElements())
}

// AsFloat32 views the elements as []float32. It panics for other dtypes.
func (r *RawTensor) AsFloat32() []float32 { return view[float32](r, Float32) }

// AsFloat64 views the elements as []float64. It panics for other dtypes.
func (r *RawTensor) AsFloat64() []float64 { return view[float64](r, Float64) }

// AsInt32 views the elements as []int32. It panics for other dtypes.
func (r *RawTensor) AsInt32() []int32 { return view[int32](r, Int32) }

// AsInt64 views the elements as []int64. It panics for other dtypes.
func (r *RawTensor) AsInt64() []int64 { return view[int64](r, Int64) }

func widen[E Numeric](src []E) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

// Float64s returns a copy of the elements converted to float64.
func (r *RawTensor) Float64s() []float64 {
	switch r.dtype {
	case Float32:
		return widen(r.AsFloat32())
	case Float64:
		return slices.Clone(r.AsFloat64())
	case Int32:
		return widen(r.AsInt32())
	case Int64:
		return widen(r.AsInt64())
	}
	return nil
}

// Clone returns a new handle sharing this tensor's buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buf.refs.Add(1)
	c := *r
	c.shape = r.shape.Clone()
	c.stride = slices.Clone(r.stride)
	return &c
}

// Reshape returns a handle sharing this tensor's buffer under a new shape
// with the same number of elements.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid shape")
	}
	if shape.NumElements() != r.NumElements() {
		return nil, errors.Errorf("cannot reshape %v into %v", r.shape, shape)
	}
	v := r.Clone()
	v.shape = shape.Clone()
	v.stride = shape.ComputeStrides()
	return v, nil
}

// Release drops this handle's reference.
func (r *RawTensor) Release() {
	r.buf.unref()
}

// RefCount returns the number of live handles sharing the buffer.
func (r *RawTensor) RefCount() int {
	return int(r.buf.refs.Load())
}

func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%s%v)", r.dtype, r.shape)
}
