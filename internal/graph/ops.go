package graph

import (
	"fmt"
	"sync"
)

// OpType identifies an operation kind. Values are assigned on first use of a
// kind name and stay stable for the lifetime of the process. 0 is invalid.
type OpType uint32

// OpInvalid is the zero OpType.
const OpInvalid OpType = 0

var opTypes = struct {
	sync.Mutex
	byName map[string]OpType
	names  []string
}{
	byName: map[string]OpType{},
	names:  []string{"Invalid"},
}

// OpTypeFor returns the OpType for an operation kind name, assigning the
// next free value the first time the name is seen.
func OpTypeFor(name string) OpType {
	opTypes.Lock()
	defer opTypes.Unlock()
	if op, found := opTypes.byName[name]; found {
		return op
	}
	op := OpType(len(opTypes.names))
	opTypes.byName[name] = op
	opTypes.names = append(opTypes.names, name)
	return op
}

// String returns the kind name the OpType was assigned for.
func (op OpType) String() string {
	opTypes.Lock()
	defer opTypes.Unlock()
	if int(op) < len(opTypes.names) {
		return opTypes.names[op]
	}
	return fmt.Sprintf("OpType(%d)", uint32(op))
}

// Args is the per-kind argument payload of a node. Each operation kind has
// its own Args type; OpName is the kind's static name.
type Args interface {
	OpName() string
}

// TypeOf returns the OpType of an argument payload.
func TypeOf(args Args) OpType {
	return OpTypeFor(args.OpName())
}
