package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"seismos/internal/model"
	"seismos/internal/storage"
	api "seismos/pkg/seismos"
)

type envConfig struct {
	Store      string `env:"SEISMOSCTL_STORE"`
	DBPath     string `env:"SEISMOSCTL_DB_PATH" envDefault:"seismos.db"`
	ExportsDir string `env:"SEISMOSCTL_EXPORTS_DIR" envDefault:"exports"`
}

func loadEnvConfig() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Store == "" {
		cfg.Store = storage.DefaultStoreKind()
	}
	return cfg, nil
}

// runSpec is the on-disk job description, decoded from JSON or YAML by file
// extension. Field names follow the job vocabulary rather than Go names.
type runSpec struct {
	RunID             string             `json:"run_id" yaml:"run_id"`
	Evaluator         string             `json:"evaluator" yaml:"evaluator"`
	IMTs              []string           `json:"imts" yaml:"imts"`
	PoesDisagg        []float64          `json:"poes_disagg" yaml:"poes_disagg"`
	IMLDisagg         map[string]float64 `json:"iml_disagg" yaml:"iml_disagg"`
	MagBinWidth       float64            `json:"mag_bin_width" yaml:"mag_bin_width"`
	DistBinWidth      float64            `json:"dist_bin_width" yaml:"dist_bin_width"`
	CoordBinWidth     float64            `json:"coordinate_bin_width" yaml:"coordinate_bin_width"`
	TruncationLevel   float64            `json:"truncation_level" yaml:"truncation_level"`
	NumEpsilonBins    int                `json:"num_epsilon_bins" yaml:"num_epsilon_bins"`
	MaxSitesDisagg    int                `json:"max_sites_disagg" yaml:"max_sites_disagg"`
	ConcurrentTasks   int                `json:"concurrent_tasks" yaml:"concurrent_tasks"`
	MaximumDistance   map[string]float64 `json:"maximum_distance" yaml:"maximum_distance"`
	InvestigationTime float64            `json:"investigation_time" yaml:"investigation_time"`
	Outputs           []string           `json:"disagg_outputs" yaml:"disagg_outputs"`
	RlzIndex          *int               `json:"rlz_index" yaml:"rlz_index"`
}

func loadRunSpec(path string) (runSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runSpec{}, err
	}
	var spec runSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return runSpec{}, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return runSpec{}, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}
	return spec, nil
}

func (s runSpec) toRunRequest() api.RunRequest {
	return api.RunRequest{
		RunID:             s.RunID,
		Evaluator:         s.Evaluator,
		IMTs:              s.IMTs,
		PoesDisagg:        s.PoesDisagg,
		IMLDisagg:         s.IMLDisagg,
		MagBinWidth:       s.MagBinWidth,
		DistBinWidth:      s.DistBinWidth,
		CoordBinWidth:     s.CoordBinWidth,
		TruncationLevel:   s.TruncationLevel,
		NumEpsilonBins:    s.NumEpsilonBins,
		MaxSitesDisagg:    s.MaxSitesDisagg,
		ConcurrentTasks:   s.ConcurrentTasks,
		MaximumDistance:   s.MaximumDistance,
		InvestigationTime: s.InvestigationTime,
		Outputs:           s.Outputs,
		RlzIndex:          s.RlzIndex,
	}
}

func overrideFromFlags(req *api.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "evaluator":
			req.Evaluator = v.(string)
		case "imts":
			req.IMTs = splitList(v.(string))
		case "poes":
			poes, err := parseFloats(v.(string))
			if err != nil {
				return fmt.Errorf("parse --poes: %w", err)
			}
			req.PoesDisagg = poes
		case "mag-bin-width":
			req.MagBinWidth = v.(float64)
		case "dist-bin-width":
			req.DistBinWidth = v.(float64)
		case "coordinate-bin-width":
			req.CoordBinWidth = v.(float64)
		case "truncation-level":
			req.TruncationLevel = v.(float64)
		case "epsilon-bins":
			req.NumEpsilonBins = v.(int)
		case "max-sites":
			req.MaxSitesDisagg = v.(int)
		case "concurrent":
			req.ConcurrentTasks = v.(int)
		case "max-dist":
			req.MaximumDistance = map[string]float64{"default": v.(float64)}
		case "investigation-time":
			req.InvestigationTime = v.(float64)
		case "outputs":
			req.Outputs = splitList(v.(string))
		case "rlz":
			rlz := v.(int)
			req.RlzIndex = &rlz
		}
	}
	return nil
}

// modelSpec is the on-disk seed input. Best realizations are optional and
// must be parallel to the site list when present.
type modelSpec struct {
	Sites    []model.Site         `json:"sites"`
	Groups   []model.RuptureGroup `json:"groups"`
	Curves   []model.SiteCurves   `json:"curves"`
	BestRlzs []int                `json:"best_rlzs"`
}

func loadModelInput(path string) (api.ModelInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.ModelInput{}, err
	}
	var spec modelSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return api.ModelInput{}, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return api.ModelInput{
		Sites:    spec.Sites,
		Groups:   spec.Groups,
		Curves:   spec.Curves,
		BestRlzs: spec.BestRlzs,
	}, nil
}
