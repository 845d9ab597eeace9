package disagg

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

// testTensor has axes (trt=2, mag=2, dist=1, lon=1, lat=1, eps=2) with three
// occupied cells.
func testTensor() *sparse.DenseArray {
	t6 := sparse.ZerosDense(2, 2, 1, 1, 1, 2)
	t6.Set(0.1, 0, 0, 0, 0, 0, 0)
	t6.Set(0.2, 0, 1, 0, 0, 0, 1)
	t6.Set(0.3, 1, 0, 0, 0, 0, 0)
	return t6
}

func TestExtractShapes(t *testing.T) {
	pmfs, err := Extract(testTensor(), Kinds())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := map[string][]int{
		"Mag":          {2},
		"Dist":         {1},
		"TRT":          {2},
		"Mag_Dist":     {2, 1},
		"Mag_Dist_Eps": {2, 1, 2},
		"Lon_Lat":      {1, 1},
		"Mag_Lon_Lat":  {2, 1, 1},
		"Lon_Lat_TRT":  {1, 1, 2},
	}
	if len(pmfs) != len(want) {
		t.Fatalf("expected %d pmfs, got %d", len(want), len(pmfs))
	}
	for _, p := range pmfs {
		w, ok := want[p.Kind]
		if !ok {
			t.Fatalf("unexpected kind %q", p.Kind)
		}
		if len(p.Shape) != len(w) {
			t.Fatalf("%s: shape %v want %v", p.Kind, p.Shape, w)
		}
		n := 1
		for i := range w {
			if p.Shape[i] != w[i] {
				t.Fatalf("%s: shape %v want %v", p.Kind, p.Shape, w)
			}
			n *= w[i]
		}
		if len(p.Values) != n {
			t.Fatalf("%s: %d values for shape %v", p.Kind, len(p.Values), p.Shape)
		}
	}
}

func TestExtractMagValues(t *testing.T) {
	pmfs, err := Extract(testTensor(), []Kind{KindMag})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// mag 0 collects compose(0.1, 0.3); mag 1 only 0.2.
	if got := pmfs[0].Values[0]; math.Abs(got-0.37) > 1e-12 {
		t.Fatalf("mag bin 0: got %v want 0.37", got)
	}
	if got := pmfs[0].Values[1]; math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("mag bin 1: got %v want 0.2", got)
	}
}

func TestExtractTRTKeepsRegionsApart(t *testing.T) {
	pmfs, err := Extract(testTensor(), []Kind{KindTRT, KindLonLatTRT})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	trt := pmfs[0]
	if got := trt.Values[0]; math.Abs(got-0.28) > 1e-12 {
		t.Fatalf("trt 0: got %v want 0.28", got)
	}
	if got := trt.Values[1]; math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("trt 1: got %v want 0.3", got)
	}

	// Lon_Lat_TRT ends with the trt axis and must not mix regions.
	llt := pmfs[1]
	if got := llt.Values[0]; math.Abs(got-0.28) > 1e-12 {
		t.Fatalf("lon lat trt 0: got %v want 0.28", got)
	}
	if got := llt.Values[1]; math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("lon lat trt 1: got %v want 0.3", got)
	}
}

func TestAggregateProbabilityConsistentAcrossKinds(t *testing.T) {
	pmfs, err := Extract(testTensor(), Kinds())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// Every marginal partitions the same tensor, so the implied total
	// exceedance probability must agree for all of them.
	want := 1 - 0.9*0.8*0.7
	for _, p := range pmfs {
		got := AggregateProbability(p.Values)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("%s: poe %v want %v", p.Kind, got, want)
		}
	}
}

func TestParseKinds(t *testing.T) {
	all, err := ParseKinds(nil)
	if err != nil || len(all) != 8 {
		t.Fatalf("empty selection must return all kinds: %v %v", all, err)
	}
	got, err := ParseKinds([]string{"Mag", "Lon_Lat_TRT"})
	if err != nil || len(got) != 2 || got[1] != KindLonLatTRT {
		t.Fatalf("unexpected subset: %v %v", got, err)
	}
	if _, err := ParseKinds([]string{"Magnitude"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
