package disagg

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctessum/sparse"

	"seismos/internal/model"
	"seismos/internal/storage"
)

// Task is one unit of disaggregation work: a contiguous slice of one
// rupture group evaluated against every eligible site.
type Task struct {
	Group             GroupMeta
	Start             int
	Stop              int
	Targets           []model.TargetLevels
	Edges             model.BinEdges
	TruncationLevel   float64
	InvestigationTime float64
}

// Run opens its own read handle, loads the rupture slice and the site
// collection, closes the handle, and only then evaluates. The store is
// never held open across the compute phase.
func (t Task) Run(ctx context.Context, opener storage.Opener, ev Evaluator) (Partial, error) {
	handle, err := opener.Open(ctx)
	if err != nil {
		return Partial{}, fmt.Errorf("open store: %w", err)
	}
	sc, ok, err := handle.GetSiteCollection(ctx)
	if err == nil && !ok {
		err = errors.New("site collection not found")
	}
	var rups []model.Rupture
	if err == nil {
		rups, err = handle.GetRuptures(ctx, t.Group.Group, t.Start, t.Stop)
	}
	if cerr := storage.CloseIfSupported(handle); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return Partial{}, fmt.Errorf("task group=%d [%d:%d]: %w", t.Group.Group, t.Start, t.Stop, err)
	}

	out := Partial{TRT: t.Group.TRTIndex, Matrices: make(map[Key]*sparse.DenseArray)}
	sites, targets := t.eligible(sc)
	if len(sites) == 0 || len(rups) == 0 {
		return out, nil
	}

	req := EvalRequest{
		Group:             t.Group,
		Ruptures:          rups,
		Sites:             sites,
		Targets:           targets,
		Edges:             t.Edges,
		TruncationLevel:   t.TruncationLevel,
		InvestigationTime: t.InvestigationTime,
	}
	results, err := ev.BuildMatrices(ctx, req)
	if err != nil {
		return Partial{}, fmt.Errorf("evaluate group=%d [%d:%d]: %w", t.Group.Group, t.Start, t.Stop, err)
	}
	for _, sr := range results {
		for ek, m := range sr.Matrices {
			out.Matrices[Key{Site: sr.Site, Rlz: ek.Rlz, PoeID: ek.PoeID, IMT: ek.IMT}] = m
		}
	}
	return out, nil
}

// eligible narrows the targets to validated sites that still have at least
// one resolvable intensity.
func (t Task) eligible(sc model.SiteCollection) ([]model.Site, []model.TargetLevels) {
	ok := make(map[int]bool, len(sc.OKSites))
	for _, id := range sc.OKSites {
		ok[id] = true
	}
	noFilter := len(sc.OKSites) == 0

	var sites []model.Site
	var targets []model.TargetLevels
	for _, tl := range t.Targets {
		if !noFilter && !ok[tl.Site] {
			continue
		}
		if tl.AllNaN() {
			continue
		}
		s, found := sc.ByID(tl.Site)
		if !found {
			continue
		}
		sites = append(sites, s)
		targets = append(targets, tl)
	}
	return sites, targets
}
