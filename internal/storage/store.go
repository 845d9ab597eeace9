package storage

import (
	"context"

	"seismos/internal/model"
)

// Store defines persistence for the inputs and outputs of a disaggregation
// calculation.
type Store interface {
	Init(ctx context.Context) error
	SaveSiteCollection(ctx context.Context, sc model.SiteCollection) error
	GetSiteCollection(ctx context.Context) (model.SiteCollection, bool, error)
	SaveRuptureGroup(ctx context.Context, grp model.RuptureGroup) error
	GetRuptureGroup(ctx context.Context, id int) (model.RuptureGroup, bool, error)
	ListRuptureGroups(ctx context.Context) ([]model.RuptureGroup, error)
	GetRuptures(ctx context.Context, groupID, start, stop int) ([]model.Rupture, error)
	SaveHazardCurves(ctx context.Context, curves model.SiteCurves) error
	GetHazardCurves(ctx context.Context, rlz, site int) (model.SiteCurves, bool, error)
	SaveBestRlzs(ctx context.Context, rlzs []int) error
	GetBestRlzs(ctx context.Context) ([]int, bool, error)
	SaveBinEdges(ctx context.Context, rec model.BinEdgesRecord) error
	GetBinEdges(ctx context.Context) (model.BinEdgesRecord, bool, error)
	SaveDisaggOutput(ctx context.Context, out model.DisaggOutput) error
	GetDisaggOutput(ctx context.Context, path string) (model.DisaggOutput, bool, error)
	ListDisaggOutputs(ctx context.Context) ([]string, error)
}

// Opener hands out read handles. Worker tasks open and close their own so
// the coordinator's handle is never shared across goroutines.
type Opener interface {
	Open(ctx context.Context) (Store, error)
}
