package model

import (
	"fmt"
	"math"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type Site struct {
	ID  int     `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// SiteCollection is the fixed set of locations a calculation runs over.
// OKSites lists the IDs that passed hazard feasibility checks; an empty
// list means no filtering was applied.
type SiteCollection struct {
	VersionedRecord
	Sites   []Site `json:"sites"`
	OKSites []int  `json:"ok_sites,omitempty"`
}

// Filtered returns the sites selected by OKSites, or all sites when no
// filtering was applied.
func (c SiteCollection) Filtered() []Site {
	if len(c.OKSites) == 0 {
		return c.Sites
	}
	ok := make(map[int]bool, len(c.OKSites))
	for _, id := range c.OKSites {
		ok[id] = true
	}
	out := make([]Site, 0, len(c.OKSites))
	for _, s := range c.Sites {
		if ok[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func (c SiteCollection) ByID(id int) (Site, bool) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

// Rupture carries the attributes evaluators and binning consume. Rate is
// the annual occurrence rate of the rupture.
type Rupture struct {
	Mag   float64 `json:"mag"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Depth float64 `json:"depth"`
	Rate  float64 `json:"rate"`
}

// RuptureGroup is a batch of ruptures sharing one tectonic region type.
// GsimRlzs maps each ground motion model name to the realization ordinals
// it is associated with.
type RuptureGroup struct {
	VersionedRecord
	ID       int              `json:"id"`
	TRT      string           `json:"trt"`
	GsimRlzs map[string][]int `json:"gsim_rlzs,omitempty"`
	Ruptures []Rupture        `json:"ruptures"`
}

func (g RuptureGroup) MinMag() float64 {
	m := 0.0
	for i, r := range g.Ruptures {
		if i == 0 || r.Mag < m {
			m = r.Mag
		}
	}
	return m
}

func (g RuptureGroup) MaxMag() float64 {
	m := 0.0
	for i, r := range g.Ruptures {
		if i == 0 || r.Mag > m {
			m = r.Mag
		}
	}
	return m
}

// Curve is one hazard curve: Levels strictly increasing, Poes the matching
// exceedance probabilities (non-increasing).
type Curve struct {
	Levels []float64 `json:"levels"`
	Poes   []float64 `json:"poes"`
}

// SiteCurves holds the hazard curves of one site under one realization,
// keyed by intensity measure type.
type SiteCurves struct {
	VersionedRecord
	Rlz   int              `json:"rlz"`
	Site  int              `json:"site"`
	ByIMT map[string]Curve `json:"by_imt"`
}

// TargetLevels is the resolved intensity grid for one site and realization:
// Levels[m][p] is the intensity of IMTs[m] at Poes[p]. NaN marks a target
// the site's curve cannot reach. In direct-intensity mode Poes is empty and
// the grid has a single column. Never persisted: NaN does not survive JSON.
type TargetLevels struct {
	Site   int
	Rlz    int
	IMTs   []string
	Poes   []float64
	Levels [][]float64
}

// AllNaN reports whether no target on the grid is resolvable.
func (t TargetLevels) AllNaN() bool {
	for _, row := range t.Levels {
		for _, v := range row {
			if !math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}

// BinEdges carries the per-run histogram axes. Mag, Dist and Eps are shared
// across sites; Lon and Lat are keyed by site ID.
type BinEdges struct {
	Mag  []float64
	Dist []float64
	Lon  map[int][]float64
	Lat  map[int][]float64
	Eps  []float64
}

// Shape returns the bin counts (mag, dist, lon, lat, eps) for one site.
func (b BinEdges) Shape(siteID int) []int {
	return []int{
		len(b.Mag) - 1,
		len(b.Dist) - 1,
		len(b.Lon[siteID]) - 1,
		len(b.Lat[siteID]) - 1,
		len(b.Eps) - 1,
	}
}

// BinEdgesRecord is the persisted form of the run's bin edges plus the
// tectonic region type axis.
type BinEdgesRecord struct {
	VersionedRecord
	Mag  []float64         `json:"mag"`
	Dist []float64         `json:"dist"`
	Eps  []float64         `json:"eps"`
	Lon  map[int][]float64 `json:"lon"`
	Lat  map[int][]float64 `json:"lat"`
	TRTs []string          `json:"trts"`
}

// PMF is one named marginal distribution extracted from a disaggregation
// tensor, stored row-major.
type PMF struct {
	Kind   string    `json:"kind"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// DisaggOutput is everything persisted for one (site, rlz, poe, imt)
// combination: the resolved intensity, the axes it was binned on and the
// extracted marginals.
type DisaggOutput struct {
	VersionedRecord
	CalcID    string    `json:"calc_id,omitempty"`
	Site      int       `json:"site"`
	Rlz       int       `json:"rlz"`
	IMT       string    `json:"imt"`
	PoeID     int       `json:"poe_id"`
	Poe       float64   `json:"poe,omitempty"`
	IML       float64   `json:"iml"`
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	MagEdges  []float64 `json:"mag_bin_edges"`
	DistEdges []float64 `json:"dist_bin_edges"`
	LonEdges  []float64 `json:"lon_bin_edges"`
	LatEdges  []float64 `json:"lat_bin_edges"`
	EpsEdges  []float64 `json:"eps_bin_edges"`
	TRTs      []string  `json:"trt_bins"`
	PoeAgg    []float64 `json:"poe_agg"`
	PMFs      []PMF     `json:"pmfs"`
}

// Path returns the store key for this output, one directory-like entry per
// (imt, site, poe) combination.
func (o DisaggOutput) Path() string {
	return DisaggPath(o.IMT, o.Site, o.PoeID)
}

// DisaggPath builds the canonical store key for a disaggregation output.
func DisaggPath(imt string, site, poeID int) string {
	return fmt.Sprintf("disagg/%s-sid-%d-poe-%d", imt, site, poeID)
}

func (o DisaggOutput) PMF(kind string) (PMF, bool) {
	for _, p := range o.PMFs {
		if p.Kind == kind {
			return p, true
		}
	}
	return PMF{}, false
}
