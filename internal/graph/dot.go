package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes the graph slice needed for outputs in Graphviz DOT format.
// With no lazy outputs the whole store is written. Evaluated inputs are
// drawn as separate constant boxes; requested outputs are double-circled.
func WriteDOT(w io.Writer, store *Store, outputs ...Tensor) error {
	ids := Collect(store, outputs...)
	if len(ids) == 0 {
		for _, n := range store.Nodes() {
			ids = append(ids, n.ID)
		}
	}
	requested := make(map[NodeID]bool)
	for _, out := range outputs {
		if out.IsLazy() {
			requested[out.Producer()] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", "lazytape "+store.Session().String())
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=ellipse, fontname=\"Arial\"];\n")
	sb.WriteString("  edge [fontname=\"Arial\", fontsize=10];\n\n")

	constants := 0
	for _, id := range ids {
		node, found := store.Node(id)
		if !found {
			continue
		}
		shapes := make([]string, len(node.Outputs))
		for i, s := range node.Outputs {
			shapes[i] = fmt.Sprint([]int(s))
		}
		attrs := ""
		if requested[id] {
			attrs = ", peripheries=2, style=filled, fillcolor=lightblue"
		}
		fmt.Fprintf(&sb, "  n%d [label=\"#%d %s\\n%s %s\"%s];\n",
			id, id, node.Name(), node.DType, strings.Join(shapes, " "), attrs)

		for pos, in := range node.Inputs {
			if in.IsLazy() {
				fmt.Fprintf(&sb, "  n%d -> n%d [label=\"%d:%d\"];\n", in.Producer(), id, in.Output(), pos)
				continue
			}
			constants++
			fmt.Fprintf(&sb, "  c%d [shape=box, style=filled, fillcolor=lightgreen, label=\"const\\n%s %v\"];\n",
				constants, in.DType(), []int(in.Shape()))
			fmt.Fprintf(&sb, "  c%d -> n%d [label=\"%d\"];\n", constants, id, pos)
		}
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
