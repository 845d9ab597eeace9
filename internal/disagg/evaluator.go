package disagg

import (
	"context"

	"github.com/ctessum/sparse"

	"seismos/internal/model"
)

// GroupMeta identifies a rupture group and the evaluator configuration tied
// to its tectonic region type.
type GroupMeta struct {
	Group    int
	TRT      string
	TRTIndex int
	GsimRlzs map[string][]int
}

// EvalRequest is the unit of work handed to an evaluator: a batch of
// ruptures from one group, judged against each site's target intensities on
// the shared axes. Targets is parallel to Sites.
type EvalRequest struct {
	Group             GroupMeta
	Ruptures          []model.Rupture
	Sites             []model.Site
	Targets           []model.TargetLevels
	Edges             model.BinEdges
	TruncationLevel   float64
	InvestigationTime float64
}

// EvalKey addresses one matrix inside a site result.
type EvalKey struct {
	PoeID int
	IMT   string
	Rlz   int
}

// SiteResult carries the exceedance matrices computed for one site, each
// with axes (mag, dist, lon, lat, eps).
type SiteResult struct {
	Site     int
	Matrices map[EvalKey]*sparse.DenseArray
}

// Evaluator turns a batch of ruptures into per-site disaggregation
// matrices. Implementations must be safe for concurrent use: tasks call
// BuildMatrices from multiple goroutines.
type Evaluator interface {
	BuildMatrices(ctx context.Context, req EvalRequest) ([]SiteResult, error)
}
