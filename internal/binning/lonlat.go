package binning

import (
	"math"
	"sort"

	"seismos/internal/model"
)

// kmPerDegree is the mean length of one degree of latitude.
const kmPerDegree = 111.195

const earthRadiusKm = 6371.0

// BoundingBox is a geographic box on an unwrapped longitude axis: West may
// run below -180 and East above 180 near the antimeridian so that
// West < East always holds.
type BoundingBox struct {
	West, South, East, North float64
}

// SiteBoundingBox expands a site by dist kilometres in every direction. The
// longitudinal half-width grows with latitude; the cosine is clamped so the
// box stays finite near the poles.
func SiteBoundingBox(s model.Site, dist float64) BoundingBox {
	dlat := dist / kmPerDegree
	c := math.Cos(s.Lat * math.Pi / 180)
	if c < 0.01 {
		c = 0.01
	}
	dlon := dlat / c
	return BoundingBox{
		West:  s.Lon - dlon,
		South: s.Lat - dlat,
		East:  s.Lon + dlon,
		North: s.Lat + dlat,
	}
}

// LonLatEdges snaps the box outward to multiples of width and splits each
// side into evenly spaced edges. Longitudes stay on the unwrapped axis so
// the sequence is strictly increasing even across the antimeridian.
func LonLatEdges(bb BoundingBox, width float64) (lons, lats []float64) {
	west := width * math.Floor(bb.West/width)
	east := width * math.Ceil(bb.East/width)
	extent := LonExtent(west, east)
	n := int(math.Round(extent / width))
	if n < 1 {
		n = 1
	}
	step := extent / float64(n)
	lons = make([]float64, n+1)
	for i := range lons {
		lons[i] = west + step*float64(i)
	}

	lo := int(math.Floor(bb.South / width))
	hi := int(math.Ceil(bb.North / width))
	lats = make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		lats = append(lats, width*float64(i))
	}
	return lons, lats
}

// LonExtent is the eastward angular distance from west to east in degrees,
// in [0, 360). It tolerates boxes given in normalized coordinates where
// east sits numerically below west.
func LonExtent(west, east float64) float64 {
	d := math.Mod(east-west, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// WrapLon translates lon by whole turns until it lands in [west, west+360),
// mapping it onto the same unwrapped axis as a site's longitude edges.
func WrapLon(lon, west float64) float64 {
	for lon < west {
		lon += 360
	}
	for lon >= west+360 {
		lon -= 360
	}
	return lon
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	const rad = math.Pi / 180
	phi1 := lat1 * rad
	phi2 := lat2 * rad
	dphi := (lat2 - lat1) * rad
	dlmb := (lon2 - lon1) * rad
	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlmb/2)*math.Sin(dlmb/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// FindBin locates v on the axis described by edges. Bins are closed on the
// left; the last bin is closed on both sides. Values outside the axis
// return -1.
func FindBin(v float64, edges []float64) int {
	n := len(edges)
	if n < 2 || v < edges[0] || v > edges[n-1] {
		return -1
	}
	if v == edges[n-1] {
		return n - 2
	}
	i := sort.SearchFloat64s(edges, v)
	if i < n && edges[i] == v {
		return i
	}
	return i - 1
}
