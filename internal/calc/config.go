package calc

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"seismos/internal/disagg"
)

// DefaultMaxSites bounds how many sites a single run may disaggregate.
const DefaultMaxSites = 10

// Config drives one disaggregation run. Exactly one of PoesDisagg
// (probability mode) and IMLDisagg (direct intensity mode) must be set.
type Config struct {
	RunID             string
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

func (c Config) normalize() (Config, error) {
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.MagBinWidth <= 0 {
		return c, fmt.Errorf("mag_bin_width must be positive")
	}
	if c.DistBinWidth <= 0 {
		return c, fmt.Errorf("dist_bin_width must be positive")
	}
	if c.CoordBinWidth <= 0 {
		return c, fmt.Errorf("coordinate_bin_width must be positive")
	}
	if c.TruncationLevel <= 0 {
		return c, fmt.Errorf("truncation_level must be positive")
	}
	if c.NumEpsilonBins < 1 {
		return c, fmt.Errorf("num_epsilon_bins must be at least 1")
	}
	if c.InvestigationTime <= 0 {
		return c, fmt.Errorf("investigation_time must be positive")
	}
	if c.MaxSitesDisagg <= 0 {
		c.MaxSitesDisagg = DefaultMaxSites
	}
	if c.ConcurrentTasks <= 0 {
		c.ConcurrentTasks = 1
	}

	probability := len(c.PoesDisagg) > 0
	direct := len(c.IMLDisagg) > 0
	if probability == direct {
		return c, fmt.Errorf("exactly one of poes_disagg and iml_disagg must be set")
	}
	if direct {
		if len(c.IMTs) > 0 {
			return c, fmt.Errorf("imts are derived from iml_disagg in direct intensity mode")
		}
		for imt, iml := range c.IMLDisagg {
			if iml <= 0 {
				return c, fmt.Errorf("iml_disagg value for %s must be positive", imt)
			}
			c.IMTs = append(c.IMTs, imt)
		}
		sort.Strings(c.IMTs)
	} else {
		if len(c.IMTs) == 0 {
			return c, fmt.Errorf("at least one imt is required")
		}
		c.IMTs = append([]string(nil), c.IMTs...)
		sort.Strings(c.IMTs)
		for i := 1; i < len(c.IMTs); i++ {
			if c.IMTs[i] == c.IMTs[i-1] {
				return c, fmt.Errorf("duplicate imt: %s", c.IMTs[i])
			}
		}
		c.PoesDisagg = append([]float64(nil), c.PoesDisagg...)
		sort.Float64s(c.PoesDisagg)
		for _, poe := range c.PoesDisagg {
			if poe <= 0 || poe >= 1 {
				return c, fmt.Errorf("poes_disagg values must be inside (0, 1), got %v", poe)
			}
		}
	}

	if len(c.MaximumDistance) == 0 {
		return c, fmt.Errorf("maximum_distance is required")
	}
	for trt, d := range c.MaximumDistance {
		if d <= 0 {
			return c, fmt.Errorf("maximum_distance for %q must be positive", trt)
		}
	}
	if _, err := disagg.ParseKinds(c.Outputs); err != nil {
		return c, err
	}
	return c, nil
}

// maxDistFor resolves the source-to-site distance cutoff for one tectonic
// region type, falling back to the "default" entry.
func (c Config) maxDistFor(trt string) (float64, error) {
	if d, ok := c.MaximumDistance[trt]; ok {
		return d, nil
	}
	if d, ok := c.MaximumDistance["default"]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("no maximum_distance for tectonic region type %q", trt)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
