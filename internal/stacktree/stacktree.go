package stacktree

import (
	"sort"

	"github.com/profilekit/foldconv/internal/folded"
)

// RootName is the label of the synthetic root covering the whole input.
const RootName = "total"

type (
	// Node is one call-stack frame position reached by a unique path
	// from the root. Children are tracked both by name, for insertion,
	// and in creation order, so that sibling sorting can break ties
	// deterministically.
	Node struct {
		Name       string  `json:"name"`
		SelfValue  float64 `json:"self_value"`
		TotalValue float64 `json:"total_value"`

		children map[string]*Node
		order    []*Node
	}

	// Tree aggregates folded-stack samples into a prefix tree keyed by
	// frame names.
	Tree struct {
		root      *Node
		separator rune
	}
)

func newNode(name string) *Node {
	return &Node{
		Name:     name,
		children: make(map[string]*Node),
	}
}

func NewTree(separator rune) *Tree {
	if separator == 0 {
		separator = folded.DefaultSeparator
	}
	return &Tree{
		root:      newNode(RootName),
		separator: separator,
	}
}

func (t *Tree) Root() *Node {
	return t.root
}

// InsertLine parses one folded line and adds its sample count to the
// tree. Lines without a parseable sample are ignored.
func (t *Tree) InsertLine(line string) {
	frames, count, ok := folded.ParseLine(line, t.separator)
	if !ok {
		return
	}
	t.Insert(frames, count)
}

// Insert walks from the root along the given frame path, creating
// nodes on demand, and adds count to the final node's self value. An
// empty path attributes the count to the root itself.
func (t *Tree) Insert(frames []string, count float64) {
	node := t.root
	for _, name := range frames {
		child, exists := node.children[name]
		if !exists {
			child = newNode(name)
			node.children[name] = child
			node.order = append(node.order, child)
		}
		node = child
	}
	node.SelfValue += count
}

// ComputeTotals fills in TotalValue on every node, children before
// parents, and returns the root total. It uses an explicit stack so
// that pathologically deep stacks cannot exhaust goroutine stack
// space.
func (t *Tree) ComputeTotals() float64 {
	type frame struct {
		node    *Node
		visited bool
	}
	stack := []frame{{node: t.root}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if !f.visited {
			f.visited = true
			for _, child := range f.node.order {
				stack = append(stack, frame{node: child})
			}
			continue
		}
		total := f.node.SelfValue
		for _, child := range f.node.order {
			total += child.TotalValue
		}
		f.node.TotalValue = total
		stack = stack[:len(stack)-1]
	}
	return t.root.TotalValue
}

// Child returns the child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	return n.children[name]
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	return len(n.order)
}

// Children returns the direct children in creation order. The slice is
// owned by the node and must not be mutated.
func (n *Node) Children() []*Node {
	return n.order
}

// SortedChildren returns the direct children ordered by descending
// total value. Ties keep creation order.
func (n *Node) SortedChildren() []*Node {
	children := make([]*Node, len(n.order))
	copy(children, n.order)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].TotalValue > children[j].TotalValue
	})
	return children
}
