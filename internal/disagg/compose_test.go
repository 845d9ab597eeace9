package disagg

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

func TestComposeValues(t *testing.T) {
	if got := ComposeValues(0.1, 0.1); math.Abs(got-0.19) > 1e-12 {
		t.Fatalf("compose(0.1, 0.1): got %v want 0.19", got)
	}
	if got := ComposeValues(0.3); got != 0.3 {
		t.Fatalf("single operand must be identity, got %v", got)
	}
	if got := ComposeValues(); got != 0 {
		t.Fatalf("empty composition must be zero, got %v", got)
	}
}

func TestComposeValuesCommutesAndAssociates(t *testing.T) {
	a, b, c := 0.12, 0.4, 0.07
	if ComposeValues(a, b) != ComposeValues(b, a) {
		t.Fatal("composition must commute")
	}
	left := ComposeValues(ComposeValues(a, b), c)
	right := ComposeValues(a, ComposeValues(b, c))
	if math.Abs(left-right) > 1e-12 {
		t.Fatalf("composition must associate: %v vs %v", left, right)
	}
}

func TestComposeMatrices(t *testing.T) {
	a := sparse.ZerosDense(2, 2)
	b := sparse.ZerosDense(2, 2)
	a.Set(0.1, 0, 0)
	b.Set(0.1, 0, 0)
	b.Set(0.5, 1, 1)

	out := Compose(a, b)
	if math.Abs(out.Get(0, 0)-0.19) > 1e-12 {
		t.Fatalf("composed cell: got %v", out.Get(0, 0))
	}
	if out.Get(1, 1) != 0.5 {
		t.Fatalf("cell with single contribution: got %v", out.Get(1, 1))
	}
	if a.Get(0, 0) != 0.1 || b.Get(1, 1) != 0.5 {
		t.Fatal("inputs must not be mutated")
	}
}

func TestComposeAcrossTRT(t *testing.T) {
	t6 := sparse.ZerosDense(2, 3)
	t6.Set(0.1, 0, 0)
	t6.Set(0.2, 0, 1)
	t6.Set(0.1, 1, 0)
	t6.Set(0.5, 1, 2)

	out := ComposeAcrossTRT(t6)
	if len(out.Shape) != 1 || out.Shape[0] != 3 {
		t.Fatalf("unexpected collapsed shape: %v", out.Shape)
	}
	if math.Abs(out.Get(0)-0.19) > 1e-12 {
		t.Fatalf("collapsed cell 0: got %v", out.Get(0))
	}
	if out.Get(1) != 0.2 || out.Get(2) != 0.5 {
		t.Fatalf("collapsed cells: got %v %v", out.Get(1), out.Get(2))
	}
}
