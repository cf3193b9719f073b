package dynamo

import (
	"math"
	"testing"
)

type constRHS struct {
	n    int
	rate float64
}

func (c constRHS) Dim() int { return c.n }

func (c constRHS) Derivatives(t float64, y State) State {
	dy := make(State, c.n)
	for i := range dy {
		dy[i] = c.rate
	}
	return dy
}

func TestCompositeDimAndOffsets(t *testing.T) {
	comp := NewComposite(constRHS{n: 2, rate: 1})
	if comp.Dim() != 2 {
		t.Fatalf("bare dim = %d, want 2", comp.Dim())
	}

	if err := comp.AddBlock("a", constRHS{n: 1, rate: -1}); err != nil {
		t.Fatal(err)
	}
	if err := comp.AddBlock("b", constRHS{n: 3, rate: 0.5}); err != nil {
		t.Fatal(err)
	}
	if comp.Dim() != 6 {
		t.Errorf("dim = %d, want 6", comp.Dim())
	}

	off, err := comp.BlockOffset("b")
	if err != nil || off != 3 {
		t.Errorf("offset(b) = %d, %v, want 3", off, err)
	}

	if err := comp.AddBlock("a", constRHS{n: 1}); err == nil {
		t.Error("duplicate block name accepted")
	}
	if _, err := comp.BlockOffset("missing"); err == nil {
		t.Error("offset of missing block succeeded")
	}
}

func TestCompositeDerivativesConcatenate(t *testing.T) {
	comp := NewComposite(constRHS{n: 2, rate: 1})
	comp.AddBlock("fuel", constRHS{n: 1, rate: -0.1})

	dy := comp.Derivatives(0, State{0, 0, 0})
	want := State{1, 1, -0.1}
	for i := range want {
		if math.Abs(dy[i]-want[i]) > 1e-15 {
			t.Errorf("dy[%d] = %v, want %v", i, dy[i], want[i])
		}
	}
}

func TestCompositeExtendAndRemove(t *testing.T) {
	comp := NewComposite(constRHS{n: 1, rate: 1})
	comp.AddBlock("aux", constRHS{n: 2, rate: 0})

	y := comp.Extend(State{5}, State{1, 2})
	if len(y) != 3 || y[0] != 5 || y[2] != 2 {
		t.Errorf("extended state = %v", y)
	}

	if err := comp.RemoveBlock("aux"); err != nil {
		t.Fatal(err)
	}
	if comp.Dim() != 1 {
		t.Errorf("dim after removal = %d, want 1", comp.Dim())
	}
	if err := comp.RemoveBlock("aux"); err == nil {
		t.Error("double removal succeeded")
	}
}
