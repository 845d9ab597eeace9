package calc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"seismos/internal/binning"
	"seismos/internal/disagg"
	"seismos/internal/hazard"
	"seismos/internal/model"
	"seismos/internal/storage"
)

// ErrNoFeasibleSites signals that every site failed hazard validation, so
// there is nothing to disaggregate.
var ErrNoFeasibleSites = errors.New("no feasible disaggregation: every site failed validation")

// Calculator coordinates one disaggregation run: it resolves targets,
// builds the bin axes, fans rupture tasks out to a worker pool and folds
// the partial tensors into persisted outputs.
type Calculator struct {
	store  storage.Store
	opener storage.Opener
	ev     disagg.Evaluator
	cfg    Config
	log    *slog.Logger
}

func New(store storage.Store, ev disagg.Evaluator, cfg Config) (*Calculator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if ev == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	opener, err := storage.OpenerFor(store)
	if err != nil {
		return nil, err
	}
	return &Calculator{store: store, opener: opener, ev: ev, cfg: cfg, log: cfg.logger()}, nil
}

func (c *Calculator) Run(ctx context.Context) (Summary, error) {
	sc, ok, err := c.store.GetSiteCollection(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !ok || len(sc.Sites) == 0 {
		return Summary{}, fmt.Errorf("site collection not found: seed sites before running")
	}
	if n := len(sc.Sites); n > c.cfg.MaxSitesDisagg {
		return Summary{}, fmt.Errorf("cannot disaggregate %d sites, the limit is %d", n, c.cfg.MaxSitesDisagg)
	}

	groups, err := c.store.ListRuptureGroups(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(groups) == 0 {
		return Summary{}, fmt.Errorf("no rupture groups in the store")
	}
	trts, trtIndex := trtAxis(groups)

	rlzs, err := c.assignRlzs(ctx, len(sc.Sites))
	if err != nil {
		return Summary{}, err
	}

	targets, okSites, err := c.resolveTargets(ctx, sc.Sites, rlzs)
	if err != nil {
		return Summary{}, err
	}
	sc.OKSites = okSites
	if err := c.store.SaveSiteCollection(ctx, sc); err != nil {
		return Summary{}, fmt.Errorf("save site collection: %w", err)
	}

	edges, err := c.buildEdges(ctx, groups, sc.Sites, trts)
	if err != nil {
		return Summary{}, err
	}

	tasks := c.partition(groups, trtIndex, targets, edges)
	acc := disagg.NewAccumulator(len(trts))
	if err := c.dispatch(ctx, tasks, acc); err != nil {
		return Summary{}, err
	}

	paths, err := c.persistResults(ctx, acc, sc, targets, edges, trts)
	if err != nil {
		return Summary{}, err
	}
	c.log.Info("disaggregation finished",
		"run", c.cfg.RunID, "tasks", len(tasks), "outputs", len(paths))
	return Summary{RunID: c.cfg.RunID, OKSites: okSites, Tasks: len(tasks), OutputPaths: paths}, nil
}

// assignRlzs picks the realization disaggregated at each site: a forced
// index when configured, the stored best-realization list when present, and
// realization zero everywhere otherwise.
func (c *Calculator) assignRlzs(ctx context.Context, n int) ([]int, error) {
	if c.cfg.RlzIndex != nil {
		rlzs := make([]int, n)
		for i := range rlzs {
			rlzs[i] = *c.cfg.RlzIndex
		}
		return rlzs, nil
	}
	best, ok, err := c.store.GetBestRlzs(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return make([]int, n), nil
	}
	if len(best) != n {
		return nil, fmt.Errorf("best realization list covers %d sites, want %d", len(best), n)
	}
	return best, nil
}

// resolveTargets builds the per-site intensity grids and the ok-site list.
// In direct intensity mode every site is eligible and the ok list stays
// empty (no filtering). In probability mode a site without a usable curve
// is skipped, and a site whose curve cannot reach a requested probability
// is excluded; the run only fails when no site survives.
func (c *Calculator) resolveTargets(ctx context.Context, sites []model.Site, rlzs []int) ([]model.TargetLevels, []int, error) {
	if len(c.cfg.IMLDisagg) > 0 {
		return hazard.TargetsFromLevels(sites, rlzs, c.cfg.IMTs, c.cfg.IMLDisagg), nil, nil
	}

	curves := make([]map[string]model.Curve, len(sites))
	var okSites []int
	for i, s := range sites {
		stored, ok, err := c.store.GetHazardCurves(ctx, rlzs[i], s.ID)
		if err != nil {
			return nil, nil, err
		}
		if !ok || !hazard.Usable(stored.ByIMT, c.cfg.IMTs) {
			c.log.Info("no usable hazard curve, skipping site", "site", s.ID, "rlz", rlzs[i])
			continue
		}
		if bad := hazard.CheckPoes(stored.ByIMT, c.cfg.IMTs, c.cfg.PoesDisagg); len(bad) > 0 {
			for _, b := range bad {
				c.log.Warn("target probability unreachable for site",
					"site", s.ID, "rlz", rlzs[i], "imt", b.IMT, "poe", b.Poe, "max_poe", b.MaxPoe)
			}
			continue
		}
		curves[i] = stored.ByIMT
		okSites = append(okSites, s.ID)
	}
	if len(okSites) == 0 {
		return nil, nil, ErrNoFeasibleSites
	}
	if len(okSites) < len(sites) {
		c.log.Warn("some sites are excluded from disaggregation",
			"ok", len(okSites), "total", len(sites))
	}
	targets := hazard.TargetsFromCurves(sites, rlzs, c.cfg.IMTs, c.cfg.PoesDisagg, curves)
	return targets, okSites, nil
}

// buildEdges derives the run's bin axes from the rupture extents, enforces
// the matrix size ceiling per site and persists the axes.
func (c *Calculator) buildEdges(ctx context.Context, groups []model.RuptureGroup, sites []model.Site, trts []string) (model.BinEdges, error) {
	ext, err := c.extents(groups)
	if err != nil {
		return model.BinEdges{}, err
	}
	edges := binning.BuildEdges(binning.Config{
		MagBinWidth:     c.cfg.MagBinWidth,
		DistBinWidth:    c.cfg.DistBinWidth,
		CoordBinWidth:   c.cfg.CoordBinWidth,
		TruncationLevel: c.cfg.TruncationLevel,
		NumEpsilonBins:  c.cfg.NumEpsilonBins,
	}, ext, sites)
	for _, s := range sites {
		if err := binning.CheckSize(edges, s.ID, len(trts)); err != nil {
			return model.BinEdges{}, err
		}
	}
	shape := edges.Shape(sites[0].ID)
	c.log.Info("bin axes built", "site", sites[0].ID,
		"mag", shape[0], "dist", shape[1], "lon", shape[2], "lat", shape[3],
		"eps", shape[4], "trt", len(trts))

	rec := model.BinEdgesRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		Mag:  edges.Mag,
		Dist: edges.Dist,
		Eps:  edges.Eps,
		Lon:  edges.Lon,
		Lat:  edges.Lat,
		TRTs: trts,
	}
	if err := c.store.SaveBinEdges(ctx, rec); err != nil {
		return model.BinEdges{}, fmt.Errorf("save bin edges: %w", err)
	}
	return edges, nil
}

func (c *Calculator) extents(groups []model.RuptureGroup) (binning.Extents, error) {
	var ext binning.Extents
	seen := false
	for _, g := range groups {
		if len(g.Ruptures) == 0 {
			continue
		}
		if !seen || g.MinMag() < ext.MinMag {
			ext.MinMag = g.MinMag()
		}
		if !seen || g.MaxMag() > ext.MaxMag {
			ext.MaxMag = g.MaxMag()
		}
		seen = true
		d, err := c.cfg.maxDistFor(g.TRT)
		if err != nil {
			return binning.Extents{}, err
		}
		if d > ext.MaxDist {
			ext.MaxDist = d
		}
	}
	if !seen {
		return binning.Extents{}, fmt.Errorf("all rupture groups are empty")
	}
	return ext, nil
}

// trtAxis assigns each tectonic region type an ordinal by first appearance
// over the groups in ascending ID order.
func trtAxis(groups []model.RuptureGroup) ([]string, map[string]int) {
	index := make(map[string]int)
	var trts []string
	for _, g := range groups {
		if _, ok := index[g.TRT]; !ok {
			index[g.TRT] = len(trts)
			trts = append(trts, g.TRT)
		}
	}
	return trts, index
}

func (c *Calculator) partition(groups []model.RuptureGroup, trtIndex map[string]int, targets []model.TargetLevels, edges model.BinEdges) []disagg.Task {
	total := 0
	for _, g := range groups {
		total += len(g.Ruptures)
	}
	blocksize := Blocksize(total, c.cfg.ConcurrentTasks)

	var tasks []disagg.Task
	for _, g := range groups {
		meta := disagg.GroupMeta{
			Group:    g.ID,
			TRT:      g.TRT,
			TRTIndex: trtIndex[g.TRT],
			GsimRlzs: g.GsimRlzs,
		}
		for _, sl := range GenSlices(len(g.Ruptures), blocksize) {
			tasks = append(tasks, disagg.Task{
				Group:             meta,
				Start:             sl.Start,
				Stop:              sl.Stop,
				Targets:           targets,
				Edges:             edges,
				TruncationLevel:   c.cfg.TruncationLevel,
				InvestigationTime: c.cfg.InvestigationTime,
			})
		}
	}
	return tasks
}

type taskResult struct {
	partial disagg.Partial
	err     error
}

// dispatch fans the tasks out to a worker pool and folds every partial into
// the accumulator on this goroutine. The first failure cancels the run
// context; remaining results are drained and discarded.
func (c *Calculator) dispatch(ctx context.Context, tasks []disagg.Task, acc *disagg.Accumulator) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan disagg.Task)
	results := make(chan taskResult, len(tasks))

	workerCount := c.cfg.ConcurrentTasks
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := ctx.Err(); err != nil {
					results <- taskResult{err: err}
					continue
				}
				partial, err := t.Run(ctx, c.opener, c.ev)
				results <- taskResult{partial: partial, err: err}
			}
		}()
	}

	go func() {
		for _, t := range tasks {
			jobs <- t
		}
		close(jobs)
	}()

	var firstErr error
	for range tasks {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		if err := acc.Add(res.partial); err != nil {
			firstErr = err
			cancel()
		}
	}
	wg.Wait()
	return firstErr
}
