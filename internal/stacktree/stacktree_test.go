package stacktree

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestInsertAccumulatesSelfValues(t *testing.T) {
	tree := NewTree(';')
	tree.InsertLine("a;b;c 5")
	tree.InsertLine("a;b;d 3")
	tree.InsertLine("a;e 2")
	tree.ComputeTotals()

	root := tree.Root()
	if root.Name != RootName {
		t.Fatalf("root name: got %q, want %q", root.Name, RootName)
	}
	if root.TotalValue != 10 {
		t.Fatalf("root total: got %v, want 10", root.TotalValue)
	}
	if root.SelfValue != 0 {
		t.Fatalf("root self: got %v, want 0", root.SelfValue)
	}

	a := root.Child("a")
	if a == nil {
		t.Fatal("missing node a")
	}
	if a.TotalValue != 10 || a.SelfValue != 0 {
		t.Fatalf("a: got total=%v self=%v, want total=10 self=0", a.TotalValue, a.SelfValue)
	}
	b := a.Child("b")
	if b == nil || b.TotalValue != 8 {
		t.Fatalf("a;b: got %+v, want total=8", b)
	}
	c := b.Child("c")
	if c == nil || c.TotalValue != 5 || c.SelfValue != 5 {
		t.Fatalf("a;b;c: got %+v, want total=5 self=5", c)
	}
	d := b.Child("d")
	if d == nil || d.TotalValue != 3 || d.SelfValue != 3 {
		t.Fatalf("a;b;d: got %+v, want total=3 self=3", d)
	}
	e := a.Child("e")
	if e == nil || e.TotalValue != 2 || e.SelfValue != 2 {
		t.Fatalf("a;e: got %+v, want total=2 self=2", e)
	}
}

func TestInsertEmptyPathGoesToRoot(t *testing.T) {
	tree := NewTree(';')
	tree.Insert(nil, 4)
	tree.InsertLine("a 1")
	tree.ComputeTotals()

	root := tree.Root()
	if root.SelfValue != 4 {
		t.Fatalf("root self: got %v, want 4", root.SelfValue)
	}
	if root.TotalValue != 5 {
		t.Fatalf("root total: got %v, want 5", root.TotalValue)
	}
}

func TestMalformedLinesAreIgnored(t *testing.T) {
	tree := NewTree(';')
	for _, line := range []string{
		"",
		"   ",
		"# comment",
		"no-count-here",
		"a;b;c notanumber",
	} {
		tree.InsertLine(line)
	}
	tree.InsertLine("a 1")
	tree.ComputeTotals()

	if got := tree.Root().TotalValue; got != 1 {
		t.Fatalf("root total: got %v, want 1", got)
	}
	if got := tree.Root().ChildCount(); got != 1 {
		t.Fatalf("root children: got %d, want 1", got)
	}
}

func TestMixedIntAndFloatCounts(t *testing.T) {
	tree := NewTree(';')
	tree.InsertLine("a 1.5")
	tree.InsertLine("a 2")
	tree.ComputeTotals()

	a := tree.Root().Child("a")
	if a == nil || a.SelfValue != 3.5 {
		t.Fatalf("a: got %+v, want self=3.5", a)
	}
}

func TestSortedChildrenStableOnTies(t *testing.T) {
	tree := NewTree(';')
	tree.InsertLine("z 2")
	tree.InsertLine("m 2")
	tree.InsertLine("a 2")
	tree.InsertLine("big 9")
	tree.ComputeTotals()

	var names []string
	for _, child := range tree.Root().SortedChildren() {
		names = append(names, child.Name)
	}
	want := []string{"big", "z", "m", "a"}
	if len(names) != len(want) {
		t.Fatalf("children: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("children: got %v, want %v", names, want)
		}
	}
}

func TestComputeTotalsDeepStack(t *testing.T) {
	// Deep enough that a recursive implementation would be at risk.
	tree := NewTree(';')
	frames := make([]string, 100_000)
	for i := range frames {
		frames[i] = fmt.Sprintf("f%d", i)
	}
	tree.Insert(frames, 1)
	if got := tree.ComputeTotals(); got != 1 {
		t.Fatalf("root total: got %v, want 1", got)
	}
}

func TestConservationProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	tree := NewTree(';')
	names := []string{"a", "b", "c", "d", "e"}
	var sum float64
	for i := 0; i < 1000; i++ {
		depth := r.Intn(6)
		frames := make([]string, depth)
		for j := range frames {
			frames[j] = names[r.Intn(len(names))]
		}
		count := float64(r.Intn(10))
		tree.Insert(frames, count)
		sum += count
	}
	tree.ComputeTotals()

	if got := tree.Root().TotalValue; got != sum {
		t.Fatalf("root total: got %v, want %v", got, sum)
	}

	var check func(n *Node)
	check = func(n *Node) {
		expected := n.SelfValue
		for _, child := range n.Children() {
			expected += child.TotalValue
			check(child)
		}
		if n.TotalValue != expected {
			t.Fatalf("node %q: total=%v, self+children=%v", n.Name, n.TotalValue, expected)
		}
	}
	check(tree.Root())
}
