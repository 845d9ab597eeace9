package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	api "seismos/pkg/seismos"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "outputs":
		return runOutputs(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "bins":
		return runBins(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runSeed(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	modelPath := fs.String("model", "", "model input JSON path")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" {
		return errors.New("seed requires --model")
	}

	in, err := loadModelInput(*modelPath)
	if err != nil {
		return err
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.SeedModel(ctx, in); err != nil {
		return err
	}

	fmt.Printf("seeded sites=%d groups=%d curves=%d\n", len(in.Sites), len(in.Groups), len(in.Curves))
	return nil
}

func runRun(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	jobPath := fs.String("job", "", "optional run spec path (JSON or YAML)")
	modelPath := fs.String("model", "", "optional model input JSON to seed before running")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	evaluator := fs.String("evaluator", api.DefaultEvaluator, "ground motion evaluator name")
	imts := fs.String("imts", "", "comma separated intensity measure types")
	poes := fs.String("poes", "", "comma separated target probabilities of exceedance")
	magBin := fs.Float64("mag-bin-width", 0.5, "magnitude bin width")
	distBin := fs.Float64("dist-bin-width", 10, "distance bin width in km")
	coordBin := fs.Float64("coordinate-bin-width", 1, "lon/lat bin width in degrees")
	truncation := fs.Float64("truncation-level", 3, "ground motion truncation in standard deviations")
	epsBins := fs.Int("epsilon-bins", 4, "epsilon bin count")
	maxSites := fs.Int("max-sites", 0, "maximum sites per run (0 uses the built-in limit)")
	concurrent := fs.Int("concurrent", 4, "concurrent task count")
	maxDist := fs.Float64("max-dist", 300, "default source-to-site distance cutoff in km")
	invTime := fs.Float64("investigation-time", 50, "hazard investigation time in years")
	outputs := fs.String("outputs", "", "comma separated pmf kinds (empty selects all)")
	rlz := fs.Int("rlz", -1, "force one realization index at every site (-1 uses best available)")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var req api.RunRequest
	if *jobPath == "" {
		targetPoes, err := parseFloats(*poes)
		if err != nil {
			return fmt.Errorf("parse --poes: %w", err)
		}
		req = api.RunRequest{
			RunID:             *runID,
			Evaluator:         *evaluator,
			IMTs:              splitList(*imts),
			PoesDisagg:        targetPoes,
			MagBinWidth:       *magBin,
			DistBinWidth:      *distBin,
			CoordBinWidth:     *coordBin,
			TruncationLevel:   *truncation,
			NumEpsilonBins:    *epsBins,
			MaxSitesDisagg:    *maxSites,
			ConcurrentTasks:   *concurrent,
			MaximumDistance:   map[string]float64{"default": *maxDist},
			InvestigationTime: *invTime,
			Outputs:           splitList(*outputs),
		}
		if *rlz >= 0 {
			idx := *rlz
			req.RlzIndex = &idx
		}
	} else {
		spec, err := loadRunSpec(*jobPath)
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		req = spec.toRunRequest()
		err = overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":               *runID,
			"evaluator":            *evaluator,
			"imts":                 *imts,
			"poes":                 *poes,
			"mag-bin-width":        *magBin,
			"dist-bin-width":       *distBin,
			"coordinate-bin-width": *coordBin,
			"truncation-level":     *truncation,
			"epsilon-bins":         *epsBins,
			"max-sites":            *maxSites,
			"concurrent":           *concurrent,
			"max-dist":             *maxDist,
			"investigation-time":   *invTime,
			"outputs":              *outputs,
			"rlz":                  *rlz,
		})
		if err != nil {
			return err
		}
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *modelPath != "" {
		in, err := loadModelInput(*modelPath)
		if err != nil {
			return err
		}
		if err := client.SeedModel(ctx, in); err != nil {
			return err
		}
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s tasks=%d outputs=%d\n", summary.RunID, summary.Tasks, len(summary.OutputPaths))
	if len(summary.OKSites) > 0 {
		fmt.Printf("ok_sites=%v\n", summary.OKSites)
	}
	for _, p := range summary.OutputPaths {
		fmt.Println(p)
	}
	return nil
}

func runOutputs(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("outputs", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit output paths as JSON")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	paths, err := client.Outputs(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("no outputs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(paths)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	path := fs.String("path", "", "stored output path, e.g. disagg/PGA-sid-0-poe-0")
	jsonOut := fs.Bool("json", false, "emit the full output as JSON")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("show requires --path")
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	out, err := client.Output(ctx, *path)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("path=%s site=%d rlz=%d imt=%s poe_id=%d\n", out.Path(), out.Site, out.Rlz, out.IMT, out.PoeID)
	if out.Poe > 0 {
		fmt.Printf("poe=%g iml=%g\n", out.Poe, out.IML)
	} else {
		fmt.Printf("iml=%g\n", out.IML)
	}
	fmt.Printf("location lon=%g lat=%g\n", out.Lon, out.Lat)
	fmt.Printf("trt_bins=%v\n", out.TRTs)
	for _, p := range out.PMFs {
		fmt.Printf("pmf kind=%s shape=%v\n", p.Kind, p.Shape)
	}
	return nil
}

func runBins(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("bins", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit bin edges as JSON")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rec, err := client.BinEdges(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Printf("mag=%v\n", rec.Mag)
	fmt.Printf("dist=%v\n", rec.Dist)
	fmt.Printf("eps=%v\n", rec.Eps)
	fmt.Printf("trts=%v\n", rec.TRTs)
	sids := make([]int, 0, len(rec.Lon))
	for sid := range rec.Lon {
		sids = append(sids, sid)
	}
	sort.Ints(sids)
	for _, sid := range sids {
		fmt.Printf("site=%d lon=%v lat=%v\n", sid, rec.Lon[sid], rec.Lat[sid])
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	envCfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	path := fs.String("path", "", "stored output path to export")
	all := fs.Bool("all", false, "export every stored output")
	outDir := fs.String("out", envCfg.ExportsDir, "export output directory")
	storeKind := fs.String("store", envCfg.Store, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", envCfg.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path != "" && *all {
		return errors.New("use either --path or --all, not both")
	}
	if *path == "" && !*all {
		return errors.New("export requires --path or --all")
	}

	client, err := api.New(api.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ExportsDir: envCfg.ExportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, api.ExportRequest{Path: *path, All: *all, OutDir: *outDir})
	if err != nil {
		return err
	}
	for _, dir := range summary.Directories {
		fmt.Printf("exported to=%s\n", dir)
	}
	if summary.BinEdges != "" {
		fmt.Printf("bin_edges=%s\n", summary.BinEdges)
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: seismosctl <init|seed|run|outputs|show|bins|export> [flags]", msg)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	items := splitList(s)
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
