package binning

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"seismos/internal/model"
)

// MaxMatrixCells bounds the per-site disaggregation tensor, tectonic region
// axis included.
const MaxMatrixCells = 10_000_000

var ErrMatrixTooLarge = errors.New("disaggregation matrix too large")

// Config holds the histogram parameters of a run.
type Config struct {
	MagBinWidth     float64
	DistBinWidth    float64
	CoordBinWidth   float64
	TruncationLevel float64
	NumEpsilonBins  int
}

// Extents summarises the source model: the magnitude range over all rupture
// groups and the largest integration distance in kilometres.
type Extents struct {
	MinMag  float64
	MaxMag  float64
	MaxDist float64
}

// MagEdges covers [minMag, maxMag] with edges at integer multiples of width.
func MagEdges(minMag, maxMag, width float64) []float64 {
	lo := int(math.Floor(minMag / width))
	hi := int(math.Ceil(maxMag / width))
	edges := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		edges = append(edges, width*float64(i))
	}
	return edges
}

// DistEdges covers [0, maxDist] with edges at integer multiples of width.
func DistEdges(maxDist, width float64) []float64 {
	hi := int(math.Ceil(maxDist / width))
	edges := make([]float64, 0, hi+1)
	for i := 0; i <= hi; i++ {
		edges = append(edges, width*float64(i))
	}
	return edges
}

// EpsEdges splits [-truncation, truncation] into equal-width bins.
func EpsEdges(truncation float64, bins int) []float64 {
	edges := make([]float64, bins+1)
	floats.Span(edges, -truncation, truncation)
	return edges
}

// BuildEdges derives every histogram axis of a run. Longitude and latitude
// axes are per site, covering a box that extends MaxDist kilometres around
// the site.
func BuildEdges(cfg Config, ext Extents, sites []model.Site) model.BinEdges {
	edges := model.BinEdges{
		Mag:  MagEdges(ext.MinMag, ext.MaxMag, cfg.MagBinWidth),
		Dist: DistEdges(ext.MaxDist, cfg.DistBinWidth),
		Eps:  EpsEdges(cfg.TruncationLevel, cfg.NumEpsilonBins),
		Lon:  make(map[int][]float64, len(sites)),
		Lat:  make(map[int][]float64, len(sites)),
	}
	for _, s := range sites {
		bb := SiteBoundingBox(s, ext.MaxDist)
		lons, lats := LonLatEdges(bb, cfg.CoordBinWidth)
		edges.Lon[s.ID] = lons
		edges.Lat[s.ID] = lats
	}
	return edges
}

// CheckSize rejects per-site tensors that would not fit in memory.
func CheckSize(edges model.BinEdges, siteID, ntrts int) error {
	cells := ntrts
	for _, n := range edges.Shape(siteID) {
		cells *= n
	}
	if cells > MaxMatrixCells {
		return fmt.Errorf("site %d needs %d cells: %w", siteID, cells, ErrMatrixTooLarge)
	}
	return nil
}
