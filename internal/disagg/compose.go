package disagg

import "github.com/ctessum/sparse"

// ComposeValues combines independent exceedance probabilities with the
// usual formula 1 - (1-P1)...(1-Pn).
func ComposeValues(probs ...float64) float64 {
	acc := 1.0
	for _, p := range probs {
		acc *= 1 - p
	}
	return 1 - acc
}

// Compose merges two matrices of the same shape into a new one, combining
// cells elementwise. The operation is commutative and associative, so fold
// order never changes the result.
func Compose(a, b *sparse.DenseArray) *sparse.DenseArray {
	out := clone(a)
	composeInto(out, b)
	return out
}

func composeInto(dst, src *sparse.DenseArray) {
	for i, v := range src.Elements {
		dst.Elements[i] = 1 - (1-dst.Elements[i])*(1-v)
	}
}

// ComposeAcrossTRT collapses the leading tectonic region axis of a tensor,
// combining the per-region exceedance estimates cell by cell.
func ComposeAcrossTRT(t6 *sparse.DenseArray) *sparse.DenseArray {
	rest := t6.Shape[1:]
	out := sparse.ZerosDense(rest...)
	n := len(out.Elements)
	for trt := 0; trt < t6.Shape[0]; trt++ {
		block := t6.Elements[trt*n : (trt+1)*n]
		for i, v := range block {
			out.Elements[i] = 1 - (1-out.Elements[i])*(1-v)
		}
	}
	return out
}

func clone(a *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(a.Shape...)
	copy(out.Elements, a.Elements)
	return out
}

func sameShape(a, b *sparse.DenseArray) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}
