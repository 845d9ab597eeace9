package calc

import "testing"

func TestBlocksize(t *testing.T) {
	cases := []struct {
		total, concurrent, want int
	}{
		{100, 4, 26},
		{10, 1, 11},
		{10, 0, 11},
		{0, 3, 1},
		{7, 100, 1},
	}
	for _, tc := range cases {
		if got := Blocksize(tc.total, tc.concurrent); got != tc.want {
			t.Fatalf("Blocksize(%d, %d) = %d, want %d", tc.total, tc.concurrent, got, tc.want)
		}
	}
}

func TestGenSlicesCoversRange(t *testing.T) {
	slices := GenSlices(10, 4)
	want := []Slice{{0, 4}, {4, 8}, {8, 10}}
	if len(slices) != len(want) {
		t.Fatalf("unexpected slices: %v", slices)
	}
	for i, sl := range slices {
		if sl != want[i] {
			t.Fatalf("slice %d = %v, want %v", i, sl, want[i])
		}
	}
}

func TestGenSlicesContiguous(t *testing.T) {
	slices := GenSlices(23, 5)
	prev := 0
	for _, sl := range slices {
		if sl.Start != prev {
			t.Fatalf("gap before %v", sl)
		}
		if sl.Stop <= sl.Start {
			t.Fatalf("empty slice %v", sl)
		}
		prev = sl.Stop
	}
	if prev != 23 {
		t.Fatalf("slices cover [0, %d), want [0, 23)", prev)
	}
}

func TestGenSlicesDegenerate(t *testing.T) {
	if got := GenSlices(0, 4); got != nil {
		t.Fatalf("expected no slices for empty range, got %v", got)
	}
	if got := GenSlices(3, 0); got != nil {
		t.Fatalf("expected no slices for zero blocksize, got %v", got)
	}
	got := GenSlices(3, 100)
	if len(got) != 1 || got[0] != (Slice{0, 3}) {
		t.Fatalf("expected one covering slice, got %v", got)
	}
}
