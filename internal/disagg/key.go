package disagg

import (
	"fmt"
	"sort"
)

// Key identifies one disaggregation output: a site, the realization that
// produced its hazard, the ordinal of the requested poe and the intensity
// measure type. Poes are addressed by ordinal so the key stays comparable;
// direct-intensity runs use ordinal 0.
type Key struct {
	Site  int
	Rlz   int
	PoeID int
	IMT   string
}

func (k Key) Less(o Key) bool {
	if k.Site != o.Site {
		return k.Site < o.Site
	}
	if k.Rlz != o.Rlz {
		return k.Rlz < o.Rlz
	}
	if k.PoeID != o.PoeID {
		return k.PoeID < o.PoeID
	}
	return k.IMT < o.IMT
}

func (k Key) String() string {
	return fmt.Sprintf("site=%d rlz=%d poe=%d imt=%s", k.Site, k.Rlz, k.PoeID, k.IMT)
}

// SortKeys orders keys canonically: site, realization, poe, imt.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
