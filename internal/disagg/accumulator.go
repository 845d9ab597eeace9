package disagg

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Partial is one task's contribution: matrices for a single tectonic region
// type, keyed by output.
type Partial struct {
	TRT      int
	Matrices map[Key]*sparse.DenseArray
}

// Accumulator folds task partials into per-key stacks of per-region
// matrices. Only the coordinator touches it, so it carries no locking.
type Accumulator struct {
	ntrts int
	byKey map[Key][]*sparse.DenseArray
}

func NewAccumulator(ntrts int) *Accumulator {
	return &Accumulator{ntrts: ntrts, byKey: make(map[Key][]*sparse.DenseArray)}
}

// Add folds one partial in. A region slot seen before composes with the
// stored matrix; a fresh slot takes a copy.
func (a *Accumulator) Add(p Partial) error {
	if p.TRT < 0 || p.TRT >= a.ntrts {
		return fmt.Errorf("trt index %d out of range [0,%d)", p.TRT, a.ntrts)
	}
	for k, m := range p.Matrices {
		slots := a.byKey[k]
		if slots == nil {
			slots = make([]*sparse.DenseArray, a.ntrts)
			a.byKey[k] = slots
		}
		if cur := slots[p.TRT]; cur != nil {
			if !sameShape(cur, m) {
				return fmt.Errorf("shape mismatch while folding %s", k)
			}
			composeInto(cur, m)
		} else {
			slots[p.TRT] = clone(m)
		}
	}
	return nil
}

// Keys returns the accumulated output keys in canonical order.
func (a *Accumulator) Keys() []Key {
	keys := make([]Key, 0, len(a.byKey))
	for k := range a.byKey {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Tensor densifies the stack for one key into a single array with the
// tectonic region type as leading axis. Regions that contributed nothing
// stay zero. Returns nil for a key never folded.
func (a *Accumulator) Tensor(k Key) *sparse.DenseArray {
	slots := a.byKey[k]
	if slots == nil {
		return nil
	}
	var shape []int
	for _, m := range slots {
		if m != nil {
			shape = m.Shape
			break
		}
	}
	out := sparse.ZerosDense(append([]int{a.ntrts}, shape...)...)
	n := 1
	for _, d := range shape {
		n *= d
	}
	for trt, m := range slots {
		if m == nil {
			continue
		}
		copy(out.Elements[trt*n:(trt+1)*n], m.Elements)
	}
	return out
}

func (a *Accumulator) Len() int {
	return len(a.byKey)
}
