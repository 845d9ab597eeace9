package disagg

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

func matWith(v float64, shape ...int) *sparse.DenseArray {
	m := sparse.ZerosDense(shape...)
	m.Elements[0] = v
	return m
}

func TestAccumulatorStacksRegions(t *testing.T) {
	acc := NewAccumulator(2)
	key := Key{Site: 0, Rlz: 0, PoeID: 0, IMT: "PGA"}

	if err := acc.Add(Partial{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.1, 2, 2)}}); err != nil {
		t.Fatalf("add trt 0: %v", err)
	}
	if err := acc.Add(Partial{TRT: 1, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.3, 2, 2)}}); err != nil {
		t.Fatalf("add trt 1: %v", err)
	}

	t6 := acc.Tensor(key)
	if len(t6.Shape) != 3 || t6.Shape[0] != 2 {
		t.Fatalf("unexpected tensor shape: %v", t6.Shape)
	}
	if t6.Get(0, 0, 0) != 0.1 || t6.Get(1, 0, 0) != 0.3 {
		t.Fatalf("regions not stacked: %v %v", t6.Get(0, 0, 0), t6.Get(1, 0, 0))
	}
}

func TestAccumulatorComposesSameRegion(t *testing.T) {
	acc := NewAccumulator(1)
	key := Key{IMT: "PGA"}

	for i := 0; i < 2; i++ {
		err := acc.Add(Partial{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.1, 2)}})
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	t6 := acc.Tensor(key)
	if math.Abs(t6.Get(0, 0)-0.19) > 1e-12 {
		t.Fatalf("folded cell: got %v want 0.19", t6.Get(0, 0))
	}
}

func TestAccumulatorFoldOrderIndependent(t *testing.T) {
	key := Key{IMT: "PGA"}
	parts := []Partial{
		{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.1, 2)}},
		{TRT: 1, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.4, 2)}},
		{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.2, 2)}},
	}

	forward := NewAccumulator(2)
	for _, p := range parts {
		if err := forward.Add(p); err != nil {
			t.Fatalf("forward add: %v", err)
		}
	}
	backward := NewAccumulator(2)
	for i := len(parts) - 1; i >= 0; i-- {
		if err := backward.Add(parts[i]); err != nil {
			t.Fatalf("backward add: %v", err)
		}
	}

	f, b := forward.Tensor(key), backward.Tensor(key)
	for i := range f.Elements {
		if math.Abs(f.Elements[i]-b.Elements[i]) > 1e-12 {
			t.Fatalf("element %d differs by fold order: %v vs %v", i, f.Elements[i], b.Elements[i])
		}
	}
}

func TestAccumulatorRejectsBadInput(t *testing.T) {
	acc := NewAccumulator(1)
	key := Key{IMT: "PGA"}

	if err := acc.Add(Partial{TRT: 1, Matrices: nil}); err == nil {
		t.Fatal("expected error for trt out of range")
	}
	if err := acc.Add(Partial{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.1, 2)}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := acc.Add(Partial{TRT: 0, Matrices: map[Key]*sparse.DenseArray{key: matWith(0.1, 3)}})
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestAccumulatorKeysCanonicalOrder(t *testing.T) {
	acc := NewAccumulator(1)
	keys := []Key{
		{Site: 1, Rlz: 0, PoeID: 0, IMT: "PGA"},
		{Site: 0, Rlz: 0, PoeID: 1, IMT: "PGA"},
		{Site: 0, Rlz: 0, PoeID: 0, IMT: "SA(0.1)"},
		{Site: 0, Rlz: 0, PoeID: 0, IMT: "PGA"},
	}
	for _, k := range keys {
		err := acc.Add(Partial{TRT: 0, Matrices: map[Key]*sparse.DenseArray{k: matWith(0.1, 1)}})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got := acc.Keys()
	want := []Key{
		{Site: 0, Rlz: 0, PoeID: 0, IMT: "PGA"},
		{Site: 0, Rlz: 0, PoeID: 0, IMT: "SA(0.1)"},
		{Site: 0, Rlz: 0, PoeID: 1, IMT: "PGA"},
		{Site: 1, Rlz: 0, PoeID: 0, IMT: "PGA"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d out of order: got %v want %v", i, got[i], want[i])
		}
	}
	if acc.Len() != 4 {
		t.Fatalf("unexpected key count: %d", acc.Len())
	}
}

func TestAccumulatorTensorMissingKey(t *testing.T) {
	acc := NewAccumulator(1)
	if m := acc.Tensor(Key{IMT: "PGA"}); m != nil {
		t.Fatalf("expected nil tensor for unknown key, got %v", m.Shape)
	}
}
