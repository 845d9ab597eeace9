package storage

import (
	"context"
	"testing"

	"seismos/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func TestMemoryStoreSiteCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, err := store.GetSiteCollection(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%t err=%v", ok, err)
	}

	input := model.SiteCollection{
		VersionedRecord: versioned(),
		Sites:           []model.Site{{ID: 0, Lon: 10, Lat: 45}, {ID: 1, Lon: 11, Lat: 46}},
		OKSites:         []int{0},
	}
	if err := store.SaveSiteCollection(ctx, input); err != nil {
		t.Fatalf("save site collection: %v", err)
	}

	output, ok, err := store.GetSiteCollection(ctx)
	if err != nil {
		t.Fatalf("get site collection: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted site collection")
	}
	if len(output.Sites) != 2 || len(output.OKSites) != 1 || output.OKSites[0] != 0 {
		t.Fatalf("unexpected site collection: %+v", output)
	}
}

func TestMemoryStoreRuptureGroupsAndSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	groups := []model.RuptureGroup{
		{VersionedRecord: versioned(), ID: 2, TRT: "Stable Continental", Ruptures: []model.Rupture{{Mag: 5.1}}},
		{VersionedRecord: versioned(), ID: 0, TRT: "Active Shallow Crust", Ruptures: []model.Rupture{
			{Mag: 5.5}, {Mag: 5.7}, {Mag: 6.0}, {Mag: 6.2},
		}},
	}
	for _, g := range groups {
		if err := store.SaveRuptureGroup(ctx, g); err != nil {
			t.Fatalf("save group %d: %v", g.ID, err)
		}
	}

	listed, err := store.ListRuptureGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != 0 || listed[1].ID != 2 {
		t.Fatalf("groups not ordered by id: %+v", listed)
	}

	rups, err := store.GetRuptures(ctx, 0, 1, 3)
	if err != nil {
		t.Fatalf("get ruptures: %v", err)
	}
	if len(rups) != 2 || rups[0].Mag != 5.7 || rups[1].Mag != 6.0 {
		t.Fatalf("unexpected rupture slice: %+v", rups)
	}

	all, err := store.GetRuptures(ctx, 0, 0, -1)
	if err != nil {
		t.Fatalf("get all ruptures: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected whole group, got %d", len(all))
	}

	if _, err := store.GetRuptures(ctx, 9, 0, -1); err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestMemoryStoreHazardCurvesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.SiteCurves{
		VersionedRecord: versioned(),
		Rlz:             1,
		Site:            0,
		ByIMT: map[string]model.Curve{
			"PGA": {Levels: []float64{0.1, 0.2}, Poes: []float64{0.05, 0.01}},
		},
	}
	if err := store.SaveHazardCurves(ctx, input); err != nil {
		t.Fatalf("save curves: %v", err)
	}

	output, ok, err := store.GetHazardCurves(ctx, 1, 0)
	if err != nil {
		t.Fatalf("get curves: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted curves")
	}
	if output.ByIMT["PGA"].Poes[0] != 0.05 {
		t.Fatalf("unexpected curves: %+v", output)
	}

	if _, ok, _ := store.GetHazardCurves(ctx, 0, 0); ok {
		t.Fatal("expected miss for unknown realization")
	}
}

func TestMemoryStoreBestRlzsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, ok, _ := store.GetBestRlzs(ctx); ok {
		t.Fatal("expected no best rlzs before save")
	}
	if err := store.SaveBestRlzs(ctx, []int{1, 0, 2}); err != nil {
		t.Fatalf("save best rlzs: %v", err)
	}
	output, ok, err := store.GetBestRlzs(ctx)
	if err != nil {
		t.Fatalf("get best rlzs: %v", err)
	}
	if !ok || len(output) != 3 || output[0] != 1 {
		t.Fatalf("unexpected best rlzs: %+v", output)
	}
}

func TestMemoryStoreBinEdgesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.BinEdgesRecord{
		VersionedRecord: versioned(),
		Mag:             []float64{5, 5.5, 6},
		Dist:            []float64{0, 100, 200},
		Eps:             []float64{-3, 0, 3},
		Lon:             map[int][]float64{0: {9, 10, 11}},
		Lat:             map[int][]float64{0: {44, 45, 46}},
		TRTs:            []string{"Active Shallow Crust"},
	}
	if err := store.SaveBinEdges(ctx, input); err != nil {
		t.Fatalf("save bin edges: %v", err)
	}

	output, ok, err := store.GetBinEdges(ctx)
	if err != nil {
		t.Fatalf("get bin edges: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted bin edges")
	}
	if len(output.Mag) != 3 || output.Lon[0][1] != 10 || output.TRTs[0] != "Active Shallow Crust" {
		t.Fatalf("unexpected bin edges: %+v", output)
	}
}

func TestMemoryStoreDisaggOutputsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	outputs := []model.DisaggOutput{
		{VersionedRecord: versioned(), Site: 1, PoeID: 0, IMT: "PGA", IML: 0.2},
		{VersionedRecord: versioned(), Site: 0, PoeID: 0, IMT: "PGA", IML: 0.17,
			PMFs: []model.PMF{{Kind: "Mag", Shape: []int{2}, Values: []float64{0.1, 0.2}}}},
	}
	for _, out := range outputs {
		if err := store.SaveDisaggOutput(ctx, out); err != nil {
			t.Fatalf("save output: %v", err)
		}
	}

	paths, err := store.ListDisaggOutputs(ctx)
	if err != nil {
		t.Fatalf("list outputs: %v", err)
	}
	if len(paths) != 2 || paths[0] != "disagg/PGA-sid-0-poe-0" {
		t.Fatalf("unexpected paths: %v", paths)
	}

	loaded, ok, err := store.GetDisaggOutput(ctx, "disagg/PGA-sid-0-poe-0")
	if err != nil {
		t.Fatalf("get output: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted output")
	}
	if loaded.IML != 0.17 || len(loaded.PMFs) != 1 || loaded.PMFs[0].Kind != "Mag" {
		t.Fatalf("unexpected output: %+v", loaded)
	}

	if _, ok, _ := store.GetDisaggOutput(ctx, "disagg/PGA-sid-9-poe-0"); ok {
		t.Fatal("expected miss for unknown path")
	}
}

func TestMemoryStoreOpenSharesInstance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveBestRlzs(ctx, []int{0}); err != nil {
		t.Fatalf("save: %v", err)
	}

	handle, err := store.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, _ := handle.GetBestRlzs(ctx); !ok {
		t.Fatal("opened handle must see existing data")
	}
	if err := CloseIfSupported(handle); err != nil {
		t.Fatalf("close handle: %v", err)
	}
}
