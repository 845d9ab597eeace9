package disagg

import (
	"fmt"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"seismos/internal/model"
)

// Kind names one marginal distribution extracted from the full tensor.
// Kinds with a TRT suffix keep the tectonic region axis; the others are
// taken from the tensor collapsed across regions.
type Kind string

const (
	KindMag        Kind = "Mag"
	KindDist       Kind = "Dist"
	KindTRT        Kind = "TRT"
	KindMagDist    Kind = "Mag_Dist"
	KindMagDistEps Kind = "Mag_Dist_Eps"
	KindLonLat     Kind = "Lon_Lat"
	KindMagLonLat  Kind = "Mag_Lon_Lat"
	KindLonLatTRT  Kind = "Lon_Lat_TRT"
)

// Kinds lists every extraction in canonical order.
func Kinds() []Kind {
	return []Kind{
		KindMag, KindDist, KindTRT, KindMagDist,
		KindMagDistEps, KindLonLat, KindMagLonLat, KindLonLatTRT,
	}
}

// ParseKinds validates a configured subset; an empty list selects all.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return Kinds(), nil
	}
	known := make(map[Kind]bool)
	for _, k := range Kinds() {
		known[k] = true
	}
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k := Kind(n)
		if !known[k] {
			return nil, fmt.Errorf("unknown disagg output kind %q", n)
		}
		out = append(out, k)
	}
	return out, nil
}

// Extract computes the requested marginals of a tensor with axes
// (trt, mag, dist, lon, lat, eps).
func Extract(t6 *sparse.DenseArray, kinds []Kind) ([]model.PMF, error) {
	agg := ComposeAcrossTRT(t6)
	out := make([]model.PMF, 0, len(kinds))
	for _, k := range kinds {
		var m *sparse.DenseArray
		switch k {
		case KindMag:
			m = magPMF(agg)
		case KindDist:
			m = distPMF(agg)
		case KindTRT:
			m = trtPMF(t6)
		case KindMagDist:
			m = magDistPMF(agg)
		case KindMagDistEps:
			m = magDistEpsPMF(agg)
		case KindLonLat:
			m = lonLatPMF(agg)
		case KindMagLonLat:
			m = magLonLatPMF(agg)
		case KindLonLatTRT:
			m = lonLatTRTPMF(t6)
		default:
			return nil, fmt.Errorf("unknown disagg output kind %q", k)
		}
		out = append(out, model.PMF{Kind: string(k), Shape: m.Shape, Values: m.Elements})
	}
	return out, nil
}

// AggregateProbability collapses a marginal to the single exceedance
// probability it implies.
func AggregateProbability(values []float64) float64 {
	comp := make([]float64, len(values))
	for i, v := range values {
		comp[i] = 1 - v
	}
	return 1 - floats.Prod(comp)
}

func dims5(m *sparse.DenseArray) (ni, nj, nk, nl, nm int) {
	return m.Shape[0], m.Shape[1], m.Shape[2], m.Shape[3], m.Shape[4]
}

func magPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(ni)
	for i := 0; i < ni; i++ {
		pne := 1.0
		for j := 0; j < nj; j++ {
			for k := 0; k < nk; k++ {
				for l := 0; l < nl; l++ {
					for m := 0; m < nm; m++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
			}
		}
		out.Set(1-pne, i)
	}
	return out
}

func distPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(nj)
	for j := 0; j < nj; j++ {
		pne := 1.0
		for i := 0; i < ni; i++ {
			for k := 0; k < nk; k++ {
				for l := 0; l < nl; l++ {
					for m := 0; m < nm; m++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
			}
		}
		out.Set(1-pne, j)
	}
	return out
}

func trtPMF(t6 *sparse.DenseArray) *sparse.DenseArray {
	ntrts := t6.Shape[0]
	out := sparse.ZerosDense(ntrts)
	n := len(t6.Elements) / ntrts
	for t := 0; t < ntrts; t++ {
		pne := 1.0
		for _, v := range t6.Elements[t*n : (t+1)*n] {
			pne *= 1 - v
		}
		out.Set(1-pne, t)
	}
	return out
}

func magDistPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(ni, nj)
	for i := 0; i < ni; i++ {
		for j := 0; j < nj; j++ {
			pne := 1.0
			for k := 0; k < nk; k++ {
				for l := 0; l < nl; l++ {
					for m := 0; m < nm; m++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
			}
			out.Set(1-pne, i, j)
		}
	}
	return out
}

func magDistEpsPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(ni, nj, nm)
	for i := 0; i < ni; i++ {
		for j := 0; j < nj; j++ {
			for m := 0; m < nm; m++ {
				pne := 1.0
				for k := 0; k < nk; k++ {
					for l := 0; l < nl; l++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
				out.Set(1-pne, i, j, m)
			}
		}
	}
	return out
}

func lonLatPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(nk, nl)
	for k := 0; k < nk; k++ {
		for l := 0; l < nl; l++ {
			pne := 1.0
			for i := 0; i < ni; i++ {
				for j := 0; j < nj; j++ {
					for m := 0; m < nm; m++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
			}
			out.Set(1-pne, k, l)
		}
	}
	return out
}

func magLonLatPMF(m5 *sparse.DenseArray) *sparse.DenseArray {
	ni, nj, nk, nl, nm := dims5(m5)
	out := sparse.ZerosDense(ni, nk, nl)
	for i := 0; i < ni; i++ {
		for k := 0; k < nk; k++ {
			for l := 0; l < nl; l++ {
				pne := 1.0
				for j := 0; j < nj; j++ {
					for m := 0; m < nm; m++ {
						pne *= 1 - m5.Get(i, j, k, l, m)
					}
				}
				out.Set(1-pne, i, k, l)
			}
		}
	}
	return out
}

// lonLatTRTPMF keeps each region separate: the Lon_Lat marginal of every
// region slice, stacked on a trailing trt axis.
func lonLatTRTPMF(t6 *sparse.DenseArray) *sparse.DenseArray {
	ntrts := t6.Shape[0]
	nk, nl := t6.Shape[3], t6.Shape[4]
	out := sparse.ZerosDense(nk, nl, ntrts)
	n := len(t6.Elements) / ntrts
	for t := 0; t < ntrts; t++ {
		slice := sparse.ZerosDense(t6.Shape[1:]...)
		copy(slice.Elements, t6.Elements[t*n:(t+1)*n])
		ll := lonLatPMF(slice)
		for k := 0; k < nk; k++ {
			for l := 0; l < nl; l++ {
				out.Set(ll.Get(k, l), k, l, t)
			}
		}
	}
	return out
}
