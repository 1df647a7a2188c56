// Package nestedset flattens an aggregated stack tree into Grafana's
// nested set model: a depth-first sequence of rows where nesting level
// plus row order encodes parent/child containment.
package nestedset

import (
	"github.com/profilekit/foldconv/internal/stacktree"
)

type (
	// Row is one flattened tree node.
	Row struct {
		Level int     `json:"level"`
		Label string  `json:"label"`
		Value float64 `json:"value"`
		Self  float64 `json:"self"`
	}
)

// Aggregate builds the stack tree from folded lines and returns its
// nested set rows. This is the whole conversion pipeline minus I/O: it
// never fails, and malformed lines are dropped silently.
func Aggregate(lines []string, separator rune) []Row {
	tree := stacktree.NewTree(separator)
	for _, line := range lines {
		tree.InsertLine(line)
	}
	tree.ComputeTotals()
	return Linearize(tree.Root())
}

// Linearize walks the tree depth-first, parent before children,
// children in descending total order, and emits one row per node
// annotated with its depth. The root is always row 0 at level 0.
//
// The traversal uses an explicit stack rather than recursion so deeply
// nested stacks cannot overflow.
func Linearize(root *stacktree.Node) []Row {
	type frame struct {
		node  *stacktree.Node
		level int
	}

	rows := make([]Row, 0, 64)
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rows = append(rows, Row{
			Level: f.level,
			Label: f.node.Name,
			Value: f.node.TotalValue,
			Self:  f.node.SelfValue,
		})

		// Push in reverse so the highest-total child pops first.
		children := f.node.SortedChildren()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], level: f.level + 1})
		}
	}
	return rows
}
