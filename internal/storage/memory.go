package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"seismos/internal/model"
)

type curveKey struct {
	rlz  int
	site int
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	sites       model.SiteCollection
	hasSites    bool
	groups      map[int]model.RuptureGroup
	curves      map[curveKey]model.SiteCurves
	bestRlzs    []int
	hasBest     bool
	binEdges    model.BinEdgesRecord
	hasEdges    bool
	outputs     map[string]model.DisaggOutput
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.hasSites = false
	s.hasBest = false
	s.hasEdges = false
	s.groups = make(map[int]model.RuptureGroup)
	s.curves = make(map[curveKey]model.SiteCurves)
	s.outputs = make(map[string]model.DisaggOutput)
	return nil
}

// Open returns the store itself: an in-memory store is shared between the
// coordinator and its tasks.
func (s *MemoryStore) Open(_ context.Context) (Store, error) {
	return s, nil
}

func (s *MemoryStore) SaveSiteCollection(_ context.Context, sc model.SiteCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sites = sc
	s.hasSites = true
	return nil
}

func (s *MemoryStore) GetSiteCollection(_ context.Context) (model.SiteCollection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasSites {
		return model.SiteCollection{}, false, nil
	}
	return s.sites, true, nil
}

func (s *MemoryStore) SaveRuptureGroup(_ context.Context, grp model.RuptureGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[grp.ID] = grp
	return nil
}

func (s *MemoryStore) GetRuptureGroup(_ context.Context, id int) (model.RuptureGroup, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grp, ok := s.groups[id]
	return grp, ok, nil
}

func (s *MemoryStore) ListRuptureGroups(_ context.Context) ([]model.RuptureGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RuptureGroup, 0, len(s.groups))
	for _, grp := range s.groups {
		out = append(out, grp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetRuptures(_ context.Context, groupID, start, stop int) ([]model.Rupture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grp, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("rupture group %d not found", groupID)
	}
	return sliceRuptures(grp.Ruptures, start, stop), nil
}

func (s *MemoryStore) SaveHazardCurves(_ context.Context, curves model.SiteCurves) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.curves[curveKey{rlz: curves.Rlz, site: curves.Site}] = curves
	return nil
}

func (s *MemoryStore) GetHazardCurves(_ context.Context, rlz, site int) (model.SiteCurves, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	curves, ok := s.curves[curveKey{rlz: rlz, site: site}]
	return curves, ok, nil
}

func (s *MemoryStore) SaveBestRlzs(_ context.Context, rlzs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bestRlzs = append([]int(nil), rlzs...)
	s.hasBest = true
	return nil
}

func (s *MemoryStore) GetBestRlzs(_ context.Context) ([]int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasBest {
		return nil, false, nil
	}
	return append([]int(nil), s.bestRlzs...), true, nil
}

func (s *MemoryStore) SaveBinEdges(_ context.Context, rec model.BinEdgesRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.binEdges = rec
	s.hasEdges = true
	return nil
}

func (s *MemoryStore) GetBinEdges(_ context.Context) (model.BinEdgesRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasEdges {
		return model.BinEdgesRecord{}, false, nil
	}
	return s.binEdges, true, nil
}

func (s *MemoryStore) SaveDisaggOutput(_ context.Context, out model.DisaggOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[out.Path()] = out
	return nil
}

func (s *MemoryStore) GetDisaggOutput(_ context.Context, path string) (model.DisaggOutput, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, ok := s.outputs[path]
	return out, ok, nil
}

func (s *MemoryStore) ListDisaggOutputs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.outputs))
	for p := range s.outputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// sliceRuptures clamps [start, stop) to the available range; a negative
// stop means the end of the group.
func sliceRuptures(rups []model.Rupture, start, stop int) []model.Rupture {
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop > len(rups) {
		stop = len(rups)
	}
	if start >= stop {
		return nil
	}
	return append([]model.Rupture(nil), rups[start:stop]...)
}
