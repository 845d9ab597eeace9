package hazard

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"seismos/internal/model"
)

// AllZero reports whether every exceedance probability of the curve is zero.
func AllZero(c model.Curve) bool {
	for _, p := range c.Poes {
		if p != 0 {
			return false
		}
	}
	return true
}

// Usable reports whether a fetched curve set can drive interpolation for
// every requested intensity measure type.
func Usable(byIMT map[string]model.Curve, imts []string) bool {
	for _, imt := range imts {
		c, ok := byIMT[imt]
		if !ok || len(c.Poes) == 0 || AllZero(c) {
			return false
		}
	}
	return true
}

// Infeasibility flags a target exceedance probability a curve cannot reach:
// the largest value on the curve stays below the request.
type Infeasibility struct {
	IMT    string
	Poe    float64
	MaxPoe float64
}

// CheckPoes returns the infeasible (imt, poe) pairs for one curve set.
func CheckPoes(byIMT map[string]model.Curve, imts []string, poes []float64) []Infeasibility {
	var bad []Infeasibility
	for _, imt := range imts {
		c := byIMT[imt]
		if len(c.Poes) == 0 {
			continue
		}
		maxPoe := floats.Max(c.Poes)
		for _, poe := range poes {
			if poe > maxPoe {
				bad = append(bad, Infeasibility{IMT: imt, Poe: poe, MaxPoe: maxPoe})
			}
		}
	}
	return bad
}

// TargetsFromCurves interpolates the intensity matching each requested poe
// on every site's curves. curves[i] belongs to sites[i]; a nil entry leaves
// that site's grid all NaN. Curves carry decreasing poes over increasing
// levels, so both are reversed before interpolation.
func TargetsFromCurves(sites []model.Site, rlzs []int, imts []string, poes []float64, curves []map[string]model.Curve) []model.TargetLevels {
	out := make([]model.TargetLevels, len(sites))
	for i, s := range sites {
		tl := model.TargetLevels{
			Site:   s.ID,
			Rlz:    rlzs[i],
			IMTs:   imts,
			Poes:   poes,
			Levels: nanGrid(len(imts), len(poes)),
		}
		if curves[i] != nil {
			for m, imt := range imts {
				c, ok := curves[i][imt]
				if !ok || len(c.Levels) == 0 {
					continue
				}
				xs := reversed(c.Poes)
				ys := reversed(c.Levels)
				for p, poe := range poes {
					tl.Levels[m][p] = Interp(poe, xs, ys)
				}
			}
		}
		out[i] = tl
	}
	return out
}

// TargetsFromLevels builds direct-intensity targets: a single column per
// site holding the configured intensity of each measure type.
func TargetsFromLevels(sites []model.Site, rlzs []int, imts []string, levels map[string]float64) []model.TargetLevels {
	out := make([]model.TargetLevels, len(sites))
	for i, s := range sites {
		grid := make([][]float64, len(imts))
		for m, imt := range imts {
			grid[m] = []float64{levels[imt]}
		}
		out[i] = model.TargetLevels{Site: s.ID, Rlz: rlzs[i], IMTs: imts, Levels: grid}
	}
	return out
}

func nanGrid(m, p int) [][]float64 {
	g := make([][]float64, m)
	for i := range g {
		row := make([]float64, p)
		for j := range row {
			row[j] = math.NaN()
		}
		g[i] = row
	}
	return g
}
