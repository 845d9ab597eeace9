package calc

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"seismos/internal/disagg"
	"seismos/internal/model"
	"seismos/internal/storage"
)

// poeTolerance is the accepted relative deviation between the requested
// probability and the mean aggregate probability of the extracted PMFs.
const poeTolerance = 0.1

// Summary reports what one run produced.
type Summary struct {
	RunID       string   `json:"run_id"`
	OKSites     []int    `json:"ok_sites,omitempty"`
	Tasks       int      `json:"tasks"`
	OutputPaths []string `json:"output_paths,omitempty"`
}

// persistResults walks the accumulated keys in canonical order, extracts
// the requested PMF kinds from each densified tensor, cross-checks the
// aggregate probability against the target and saves one output per key.
func (c *Calculator) persistResults(ctx context.Context, acc *disagg.Accumulator, sc model.SiteCollection, targets []model.TargetLevels, edges model.BinEdges, trts []string) ([]string, error) {
	kinds, err := disagg.ParseKinds(c.cfg.Outputs)
	if err != nil {
		return nil, err
	}

	targetsBySite := make(map[int]model.TargetLevels, len(targets))
	for _, tl := range targets {
		targetsBySite[tl.Site] = tl
	}
	imtIndex := make(map[string]int, len(c.cfg.IMTs))
	for m, imt := range c.cfg.IMTs {
		imtIndex[imt] = m
	}

	keys := acc.Keys()
	c.log.Info("extracting disaggregation outputs", "keys", len(keys), "kinds", len(kinds))

	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		t6 := acc.Tensor(k)
		if t6 == nil {
			continue
		}
		pmfs, err := disagg.Extract(t6, kinds)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", k, err)
		}
		poeAgg := make([]float64, len(pmfs))
		for i, p := range pmfs {
			poeAgg[i] = disagg.AggregateProbability(p.Values)
		}

		var poe float64
		if len(c.cfg.PoesDisagg) > 0 {
			poe = c.cfg.PoesDisagg[k.PoeID]
			mean := stat.Mean(poeAgg, nil)
			if math.Abs(1-mean/poe) > poeTolerance {
				c.log.Warn("aggregate probability deviates from the target; perhaps the number of intensity levels is too small",
					"site", k.Site, "imt", k.IMT, "poe", poe, "mean_poe_agg", mean)
			}
		}

		out := model.DisaggOutput{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			CalcID:    c.cfg.RunID,
			Site:      k.Site,
			Rlz:       k.Rlz,
			IMT:       k.IMT,
			PoeID:     k.PoeID,
			Poe:       poe,
			IML:       resolvedIML(targetsBySite[k.Site], imtIndex, k),
			MagEdges:  edges.Mag,
			DistEdges: edges.Dist,
			LonEdges:  edges.Lon[k.Site],
			LatEdges:  edges.Lat[k.Site],
			EpsEdges:  edges.Eps,
			TRTs:      trts,
			PoeAgg:    poeAgg,
			PMFs:      pmfs,
		}
		if site, ok := sc.ByID(k.Site); ok {
			out.Lon = site.Lon
			out.Lat = site.Lat
		}
		if err := c.store.SaveDisaggOutput(ctx, out); err != nil {
			return nil, fmt.Errorf("save %s: %w", out.Path(), err)
		}
		paths = append(paths, out.Path())
	}
	return paths, nil
}

func resolvedIML(tl model.TargetLevels, imtIndex map[string]int, k disagg.Key) float64 {
	m, ok := imtIndex[k.IMT]
	if !ok || m >= len(tl.Levels) || k.PoeID >= len(tl.Levels[m]) {
		return 0
	}
	return tl.Levels[m][k.PoeID]
}
