package nestedset

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/profilekit/foldconv/internal/stacktree"
	"github.com/profilekit/foldconv/internal/testutil"
)

func TestAggregateOrdering(t *testing.T) {
	rows := Aggregate([]string{"a;b;c 5", "a;b;d 3", "a;e 2"}, ';')

	expected := []Row{
		{Level: 0, Label: "total", Value: 10, Self: 0},
		{Level: 1, Label: "a", Value: 10, Self: 0},
		{Level: 2, Label: "b", Value: 8, Self: 0},
		{Level: 3, Label: "c", Value: 5, Self: 5},
		{Level: 3, Label: "d", Value: 3, Self: 3},
		{Level: 2, Label: "e", Value: 2, Self: 2},
	}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestAggregateSlashSeparatedInput(t *testing.T) {
	rows := Aggregate([]string{"x/y/z 1"}, ';')

	expected := []Row{
		{Level: 0, Label: "total", Value: 1, Self: 0},
		{Level: 1, Label: "x", Value: 1, Self: 0},
		{Level: 2, Label: "y", Value: 1, Self: 0},
		{Level: 3, Label: "z", Value: 1, Self: 1},
	}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	rows := Aggregate(nil, ';')

	expected := []Row{{Level: 0, Label: "total", Value: 0, Self: 0}}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestAggregateSkipsJunkAndCollapsesEmptyFrames(t *testing.T) {
	rows := Aggregate([]string{"## note", "", "a;;b 4"}, ';')

	expected := []Row{
		{Level: 0, Label: "total", Value: 4, Self: 0},
		{Level: 1, Label: "a", Value: 4, Self: 0},
		{Level: 2, Label: "b", Value: 4, Self: 4},
	}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestAggregateFractionalCounts(t *testing.T) {
	rows := Aggregate([]string{"a 1.5", "a 2"}, ';')

	expected := []Row{
		{Level: 0, Label: "total", Value: 3.5, Self: 0},
		{Level: 1, Label: "a", Value: 3.5, Self: 3.5},
	}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestLinearizeIsIdempotent(t *testing.T) {
	tree := stacktree.NewTree(';')
	tree.InsertLine("a;b 3")
	tree.InsertLine("a;c 5")
	tree.ComputeTotals()

	first := Linearize(tree.Root())
	second := Linearize(tree.Root())
	if diff := testutil.Diff(first, second); diff != "" {
		t.Fatalf("second linearization differs: %s", diff)
	}
}

func TestLinearizeTieBreakKeepsInsertionOrder(t *testing.T) {
	rows := Aggregate([]string{"z 2", "m 2", "a 2"}, ';')

	expected := []Row{
		{Level: 0, Label: "total", Value: 6, Self: 0},
		{Level: 1, Label: "z", Value: 2, Self: 2},
		{Level: 1, Label: "m", Value: 2, Self: 2},
		{Level: 1, Label: "a", Value: 2, Self: 2},
	}
	if diff := testutil.Diff(expected, rows); diff != "" {
		t.Fatalf("rows mismatch: %s", diff)
	}
}

func TestLinearizeLevelConsistency(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	names := []string{"a", "b", "c", "d"}
	var lines []string
	for i := 0; i < 500; i++ {
		depth := 1 + r.Intn(5)
		stack := ""
		for j := 0; j < depth; j++ {
			if j > 0 {
				stack += ";"
			}
			stack += names[r.Intn(len(names))]
		}
		lines = append(lines, fmt.Sprintf("%s %d", stack, r.Intn(20)))
	}
	rows := Aggregate(lines, ';')

	if rows[0].Level != 0 {
		t.Fatalf("first row level: got %d, want 0", rows[0].Level)
	}
	for i := 1; i < len(rows); i++ {
		// A row may only go one level deeper than its predecessor,
		// or pop back up any number of levels.
		if rows[i].Level > rows[i-1].Level+1 {
			t.Fatalf("row %d jumps from level %d to %d", i, rows[i-1].Level, rows[i].Level)
		}
		if rows[i].Level < 1 {
			t.Fatalf("row %d has level %d, only the root may be at 0", i, rows[i].Level)
		}
	}
}

func TestLinearizeSiblingOrderIsNonIncreasing(t *testing.T) {
	rows := Aggregate([]string{
		"a;x 1",
		"a;y 10",
		"b 4",
		"a;z 3",
	}, ';')

	// Track the previous sibling value per level; reset on descent.
	prev := make(map[int]float64)
	for i := 1; i < len(rows); i++ {
		level := rows[i].Level
		if rows[i-1].Level < level {
			delete(prev, level)
		}
		if last, seen := prev[level]; seen && rows[i].Value > last {
			t.Fatalf("row %d (%q) value %v exceeds earlier sibling value %v",
				i, rows[i].Label, rows[i].Value, last)
		}
		prev[level] = rows[i].Value
	}
}
