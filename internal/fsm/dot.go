package fsm

import (
	"fmt"
	"strings"
)

// DOT renders the state table in Graphviz DOT. Edges are labelled with their
// evaluation order; the active state is highlighted.
func (m *Machine) DOT() string {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph %q {\n", m.name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for i, s := range m.states {
		attrs := []string{fmt.Sprintf("label=%q", s.Name)}
		if StateID(i) == m.active {
			attrs = append(attrs, "fillcolor=\"#90ee90\"", "shape=doublecircle")
		}
		fmt.Fprintf(&b, "  %q [%s];\n", s.Name, strings.Join(attrs, ", "))
	}
	b.WriteByte('\n')

	for _, s := range m.states {
		for j, tr := range s.Transitions {
			fmt.Fprintf(&b, "  %q -> %q [label=\" %d \"];\n", s.Name, m.states[tr.Target].Name, j)
		}
	}

	b.WriteString("}\n")
	return b.String()
}
