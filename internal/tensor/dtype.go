// Package tensor provides the materialized storage layer of lazytape: shared
// buffers, shapes, data types and the math backend contract.
package tensor

// Numeric is the set of Go element types the CPU kernels operate on.
type Numeric interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// DataType identifies the element type of a tensor.
type DataType int

const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

var dtypeInfo = [...]struct {
	name  string
	bytes int
	float bool
}{
	Float32: {"float32", 4, true},
	Float64: {"float64", 8, true},
	Int32:   {"int32", 4, false},
	Int64:   {"int64", 8, false},
}

func (dt DataType) known() bool {
	return dt >= 0 && int(dt) < len(dtypeInfo)
}

// Size is the width of one element in bytes. It panics on an unknown type.
func (dt DataType) Size() int {
	if !dt.known() {
		panic("tensor: unknown data type")
	}
	return dtypeInfo[dt].bytes
}

// IsFloat reports whether dt is Float32 or Float64.
func (dt DataType) IsFloat() bool {
	return dt.known() && dtypeInfo[dt].float
}

func (dt DataType) String() string {
	if !dt.known() {
		return "unknown"
	}
	return dtypeInfo[dt].name
}
