package dirty

import "sync"

const (
	defaultMaxRegions        = 64
	defaultCoalesceThreshold = 0.5
)

// Tracker accumulates dirty regions between drains and coalesces them.
// Once too many regions pile up, or they cover more than half the
// screen, the tracker collapses to a single full-screen region.
type Tracker struct {
	mu sync.Mutex

	rows int
	cols int

	regions []Region

	// full means the whole screen is dirty.
	full bool

	maxRegions        int
	coalesceThreshold float64
}

// NewTracker creates a tracker for a rows x cols screen.
// Negative dimensions are treated as zero.
func NewTracker(rows, cols int) *Tracker {
	return &Tracker{
		rows:              max(rows, 0),
		cols:              max(cols, 0),
		regions:           make([]Region, 0, 16),
		maxRegions:        defaultMaxRegions,
		coalesceThreshold: defaultCoalesceThreshold,
	}
}

// SetSize updates the screen dimensions and marks everything dirty.
func (t *Tracker) SetSize(rows, cols int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = max(rows, 0)
	t.cols = max(cols, 0)
	t.markAllLocked()
}

// Mark records region as dirty.
func (t *Tracker) Mark(region Region) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.full {
		return
	}
	t.addRegion(region)
}

// MarkAll marks the entire screen dirty.
func (t *Tracker) MarkAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.markAllLocked()
}

func (t *Tracker) markAllLocked() {
	t.full = true
	t.regions = t.regions[:0]
}

// IsDirty reports whether anything was marked since the last Take.
func (t *Tracker) IsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.full || len(t.regions) > 0
}

// Regions returns a copy of the pending regions without draining them.
func (t *Tracker) Regions() []Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Take returns the pending regions and clears them.
func (t *Tracker) Take() []Region {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.snapshotLocked()
	t.regions = t.regions[:0]
	t.full = false
	return out
}

func (t *Tracker) snapshotLocked() []Region {
	if t.full {
		if t.rows == 0 || t.cols == 0 {
			return nil
		}
		return []Region{Full(t.rows, t.cols)}
	}
	if len(t.regions) == 0 {
		return nil
	}
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// addRegion clips region to the screen and merges it into the set.
func (t *Tracker) addRegion(region Region) {
	region = region.Clip(t.rows, t.cols)
	if region.IsEmpty() {
		return
	}

	for i := range t.regions {
		if t.regions[i].Covers(region) {
			return
		}
		if merged, ok := t.regions[i].Merge(region); ok {
			t.regions[i] = merged
			t.coalesce()
			t.checkThreshold()
			return
		}
	}

	t.regions = append(t.regions, region)

	if len(t.regions) > t.maxRegions {
		t.coalesce()
		if len(t.regions) > t.maxRegions {
			t.markAllLocked()
			return
		}
	}
	t.checkThreshold()
}

// coalesce merges overlapping or adjacent regions until none remain.
func (t *Tracker) coalesce() {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(t.regions) && !changed; i++ {
			for j := i + 1; j < len(t.regions); j++ {
				if merged, ok := t.regions[i].Merge(t.regions[j]); ok {
					t.regions[i] = merged
					t.regions = append(t.regions[:j], t.regions[j+1:]...)
					changed = true
					break
				}
			}
		}
	}
}

func (t *Tracker) checkThreshold() {
	total := float64(t.rows) * float64(t.cols)
	if total == 0 {
		return
	}
	var area float64
	for _, r := range t.regions {
		area += float64(r.Area())
	}
	if area/total > t.coalesceThreshold {
		t.markAllLocked()
	}
}
