package seismos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"seismos/internal/calc"
	"seismos/internal/disagg"
	"seismos/internal/export"
	"seismos/internal/model"
	"seismos/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "seismos.db"

	DefaultEvaluator = "synthetic"
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
}

type Client struct {
	store      storage.Store
	exportsDir string

	initialized bool

	mu         sync.RWMutex
	evaluators map[string]disagg.Evaluator
}

type RunRequest struct {
	RunID             string
	Evaluator         string
	IMTs              []string
	PoesDisagg        []float64
	IMLDisagg         map[string]float64
	MagBinWidth       float64
	DistBinWidth      float64
	CoordBinWidth     float64
	TruncationLevel   float64
	NumEpsilonBins    int
	MaxSitesDisagg    int
	ConcurrentTasks   int
	MaximumDistance   map[string]float64
	InvestigationTime float64
	Outputs           []string
	RlzIndex          *int
	Logger            *slog.Logger
}

type RunSummary struct {
	RunID       string
	OKSites     []int
	Tasks       int
	OutputPaths []string
}

type ModelInput struct {
	Sites    []model.Site
	Groups   []model.RuptureGroup
	Curves   []model.SiteCurves
	BestRlzs []int
}

type ExportRequest struct {
	Path   string
	All    bool
	OutDir string
}

type ExportSummary struct {
	Directories []string
	BinEdges    string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		exportsDir: exportsDir,
		evaluators: map[string]disagg.Evaluator{
			DefaultEvaluator: disagg.SyntheticEvaluator{},
		},
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureInit(ctx)
}

func (c *Client) RegisterEvaluator(name string, ev disagg.Evaluator) error {
	if ev == nil {
		return errors.New("evaluator is nil")
	}
	if name == "" {
		return errors.New("evaluator name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluators[name] = ev
	return nil
}

func (c *Client) SeedModel(ctx context.Context, in ModelInput) error {
	if len(in.Sites) == 0 {
		return errors.New("at least one site is required")
	}
	siteSeen := make(map[int]bool, len(in.Sites))
	for _, s := range in.Sites {
		if siteSeen[s.ID] {
			return fmt.Errorf("duplicate site id: %d", s.ID)
		}
		siteSeen[s.ID] = true
	}
	groupSeen := make(map[int]bool, len(in.Groups))
	for _, g := range in.Groups {
		if groupSeen[g.ID] {
			return fmt.Errorf("duplicate rupture group id: %d", g.ID)
		}
		groupSeen[g.ID] = true
	}
	for _, curves := range in.Curves {
		if !siteSeen[curves.Site] {
			return fmt.Errorf("hazard curves reference unknown site: %d", curves.Site)
		}
	}
	if len(in.BestRlzs) > 0 && len(in.BestRlzs) != len(in.Sites) {
		return fmt.Errorf("best realization list covers %d sites, want %d", len(in.BestRlzs), len(in.Sites))
	}
	if err := c.ensureInit(ctx); err != nil {
		return err
	}

	versions := model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
	if err := c.store.SaveSiteCollection(ctx, model.SiteCollection{
		VersionedRecord: versions,
		Sites:           in.Sites,
	}); err != nil {
		return fmt.Errorf("save site collection: %w", err)
	}
	for _, g := range in.Groups {
		g.VersionedRecord = versions
		if err := c.store.SaveRuptureGroup(ctx, g); err != nil {
			return fmt.Errorf("save rupture group %d: %w", g.ID, err)
		}
	}
	for _, curves := range in.Curves {
		curves.VersionedRecord = versions
		if err := c.store.SaveHazardCurves(ctx, curves); err != nil {
			return fmt.Errorf("save hazard curves for site %d: %w", curves.Site, err)
		}
	}
	if len(in.BestRlzs) > 0 {
		if err := c.store.SaveBestRlzs(ctx, in.BestRlzs); err != nil {
			return fmt.Errorf("save best realizations: %w", err)
		}
	}
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	ev, err := c.evaluatorFromName(req.Evaluator)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return RunSummary{}, err
	}

	calculator, err := calc.New(c.store, ev, calc.Config{
		RunID:             req.RunID,
		IMTs:              req.IMTs,
		PoesDisagg:        req.PoesDisagg,
		IMLDisagg:         req.IMLDisagg,
		MagBinWidth:       req.MagBinWidth,
		DistBinWidth:      req.DistBinWidth,
		CoordBinWidth:     req.CoordBinWidth,
		TruncationLevel:   req.TruncationLevel,
		NumEpsilonBins:    req.NumEpsilonBins,
		MaxSitesDisagg:    req.MaxSitesDisagg,
		ConcurrentTasks:   req.ConcurrentTasks,
		MaximumDistance:   req.MaximumDistance,
		InvestigationTime: req.InvestigationTime,
		Outputs:           req.Outputs,
		RlzIndex:          req.RlzIndex,
		Logger:            req.Logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	result, err := calculator.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:       result.RunID,
		OKSites:     append([]int(nil), result.OKSites...),
		Tasks:       result.Tasks,
		OutputPaths: append([]string(nil), result.OutputPaths...),
	}, nil
}

func (c *Client) Outputs(ctx context.Context) ([]string, error) {
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	return c.store.ListDisaggOutputs(ctx)
}

func (c *Client) Output(ctx context.Context, path string) (model.DisaggOutput, error) {
	if path == "" {
		return model.DisaggOutput{}, errors.New("output path is required")
	}
	if err := c.ensureInit(ctx); err != nil {
		return model.DisaggOutput{}, err
	}
	out, ok, err := c.store.GetDisaggOutput(ctx, path)
	if err != nil {
		return model.DisaggOutput{}, err
	}
	if !ok {
		return model.DisaggOutput{}, fmt.Errorf("output not found: %s", path)
	}
	return out, nil
}

func (c *Client) BinEdges(ctx context.Context) (model.BinEdgesRecord, error) {
	if err := c.ensureInit(ctx); err != nil {
		return model.BinEdgesRecord{}, err
	}
	rec, ok, err := c.store.GetBinEdges(ctx)
	if err != nil {
		return model.BinEdgesRecord{}, err
	}
	if !ok {
		return model.BinEdgesRecord{}, errors.New("bin edges not found: run a disaggregation first")
	}
	return rec, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.Path != "" && req.All {
		return ExportSummary{}, errors.New("use either an output path or all")
	}
	if req.Path == "" && !req.All {
		return ExportSummary{}, errors.New("export requires an output path or all")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	if err := c.ensureInit(ctx); err != nil {
		return ExportSummary{}, err
	}

	paths := []string{req.Path}
	if req.All {
		stored, err := c.store.ListDisaggOutputs(ctx)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(stored) == 0 {
			return ExportSummary{}, errors.New("no outputs available to export")
		}
		paths = stored
	}

	var summary ExportSummary
	for _, p := range paths {
		out, ok, err := c.store.GetDisaggOutput(ctx, p)
		if err != nil {
			return ExportSummary{}, err
		}
		if !ok {
			return ExportSummary{}, fmt.Errorf("output not found: %s", p)
		}
		dir, err := export.WriteOutput(req.OutDir, out)
		if err != nil {
			return ExportSummary{}, err
		}
		summary.Directories = append(summary.Directories, filepath.Clean(dir))
	}

	rec, ok, err := c.store.GetBinEdges(ctx)
	if err != nil {
		return ExportSummary{}, err
	}
	if ok {
		binsPath, err := export.WriteBinEdges(req.OutDir, rec)
		if err != nil {
			return ExportSummary{}, err
		}
		summary.BinEdges = filepath.Clean(binsPath)
	}
	return summary, nil
}

func (c *Client) evaluatorFromName(name string) (disagg.Evaluator, error) {
	if name == "" {
		name = DefaultEvaluator
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.evaluators[name]
	if !ok {
		return nil, fmt.Errorf("unsupported evaluator: %s", name)
	}
	return ev, nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}
