package cuts

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
)

type pendingState int

const (
	pendingIdle pendingState = iota
	pendingOpen
)

// ListListener receives a copy of the region collection after every change.
type ListListener func([]Region)

// PendingListener receives the pending region, or nil when nothing is pending.
type PendingListener func(*Region)

// Store holds the cut regions of one edit session. It is safe for concurrent
// use; listeners run on the mutating goroutine after the lock is released.
type Store struct {
	mu      sync.Mutex
	regions []Region
	nextID  int

	state        pendingState
	pendingStart float64
	pendingID    string

	listenerSeq      int
	listListeners    map[int]ListListener
	pendingListeners map[int]PendingListener
}

// NewStore returns an empty store whose first region will be cut-1.
func NewStore() *Store {
	return &Store{
		nextID:           1,
		listListeners:    make(map[int]ListListener),
		pendingListeners: make(map[int]PendingListener),
	}
}

// OnListChanged registers fn for collection changes and returns a function
// that removes it.
func (s *Store) OnListChanged(fn ListListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listListeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listListeners, id)
		s.mu.Unlock()
	}
}

// OnPendingChanged registers fn for pending-state changes and returns a
// function that removes it.
func (s *Store) OnPendingChanged(fn PendingListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerSeq++
	id := s.listenerSeq
	s.pendingListeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.pendingListeners, id)
		s.mu.Unlock()
	}
}

// MarkStart opens a pending cut at t, discarding any previous pending cut.
// Negative times are clamped to zero.
func (s *Store) MarkStart(t float64) Region {
	t = clampTime(t)
	s.mu.Lock()
	s.state = pendingOpen
	s.pendingStart = t
	s.pendingID = formatID(s.nextID)
	pending := s.pendingLocked()
	notify := s.snapshotLocked(false, true)
	s.mu.Unlock()

	notify.fire()
	return *pending
}

// MarkEnd completes the pending cut at t. The bounds are swapped when t is
// before the pending start and negative times are clamped to zero. It returns
// false when nothing is pending.
func (s *Store) MarkEnd(t float64) (Region, bool) {
	t = clampTime(t)
	s.mu.Lock()
	if s.state != pendingOpen {
		s.mu.Unlock()
		return Region{}, false
	}
	start, end := s.pendingStart, t
	if end < start {
		start, end = end, start
	}
	region := NewRegion(s.pendingID, start, end)
	s.regions = append(s.regions, region)
	s.nextID++
	s.clearPendingLocked()
	notify := s.snapshotLocked(true, true)
	s.mu.Unlock()

	notify.fire()
	return region.clone(), true
}

// CancelPending discards the pending cut. Listeners are only notified when a
// cut was actually pending.
func (s *Store) CancelPending() {
	s.mu.Lock()
	if s.state != pendingOpen {
		s.mu.Unlock()
		return
	}
	s.clearPendingLocked()
	notify := s.snapshotLocked(false, true)
	s.mu.Unlock()

	notify.fire()
}

// UpdateCut replaces the bounds of the region with the given id. It returns
// false for unknown ids, a negative start or when end <= start.
func (s *Store) UpdateCut(id string, start, end float64) bool {
	if start < 0 || !(end > start) || math.IsNaN(start) {
		return false
	}
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.regions[idx] = NewRegion(id, start, end)
	notify := s.snapshotLocked(true, false)
	s.mu.Unlock()

	notify.fire()
	return true
}

// DeleteCut removes the region with the given id.
func (s *Store) DeleteCut(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.regions = slices.Delete(s.regions, idx, idx+1)
	notify := s.snapshotLocked(true, false)
	s.mu.Unlock()

	notify.fire()
	return true
}

// CutAt returns the first region, in collection order, containing t.
func (s *Store) CutAt(t float64) (Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.Contains(t) {
			return r.clone(), true
		}
	}
	return Region{}, false
}

// ClearAll removes every region and the pending cut and restarts ids at cut-1.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.regions = nil
	s.nextID = 1
	s.clearPendingLocked()
	notify := s.snapshotLocked(true, true)
	s.mu.Unlock()

	notify.fire()
}

// Load replaces the collection with the complete regions from rs, as when a
// cut list is imported. Regions without a cut-N id are renumbered. The id
// counter continues after the highest id present.
func (s *Store) Load(rs []Region) {
	s.mu.Lock()
	maxID := 0
	for _, r := range rs {
		if n, ok := parseID(r.ID); ok && n > maxID {
			maxID = n
		}
	}
	loaded := make([]Region, 0, len(rs))
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if !r.Complete() {
			continue
		}
		r = r.clone()
		if _, ok := parseID(r.ID); !ok {
			maxID++
			r.ID = formatID(maxID)
		} else if _, dup := seen[r.ID]; dup {
			maxID++
			r.ID = formatID(maxID)
		}
		seen[r.ID] = struct{}{}
		loaded = append(loaded, r)
	}
	s.regions = loaded
	s.nextID = maxID + 1
	s.clearPendingLocked()
	notify := s.snapshotLocked(true, true)
	s.mu.Unlock()

	notify.fire()
}

// Regions returns a copy of the collection in insertion order.
func (s *Store) Regions() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyRegionsLocked()
}

// Pending returns the pending region if one is open.
func (s *Store) Pending() (Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pendingLocked()
	if p == nil {
		return Region{}, false
	}
	return *p, true
}

// Len returns the number of regions in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.regions, func(r Region) bool { return r.ID == id })
}

func (s *Store) clearPendingLocked() {
	s.state = pendingIdle
	s.pendingStart = 0
	s.pendingID = ""
}

func (s *Store) pendingLocked() *Region {
	if s.state != pendingOpen {
		return nil
	}
	return &Region{ID: s.pendingID, Start: s.pendingStart}
}

func (s *Store) copyRegionsLocked() []Region {
	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.clone()
	}
	return out
}

// notification captures listener sets and payloads under the lock so they
// can be delivered after it is released. Pending fires before list.
type notification struct {
	pendingListeners []PendingListener
	pending          *Region
	listListeners    []ListListener
	regions          []Region
}

func (s *Store) snapshotLocked(list, pending bool) notification {
	var n notification
	if pending {
		n.pending = s.pendingLocked()
		n.pendingListeners = orderedListeners(s.pendingListeners)
	}
	if list {
		n.regions = s.copyRegionsLocked()
		n.listListeners = orderedListeners(s.listListeners)
	}
	return n
}

func (n notification) fire() {
	for _, fn := range n.pendingListeners {
		var p *Region
		if n.pending != nil {
			cp := *n.pending
			p = &cp
		}
		fn(p)
	}
	for _, fn := range n.listListeners {
		cp := make([]Region, len(n.regions))
		for i, r := range n.regions {
			cp[i] = r.clone()
		}
		fn(cp)
	}
}

func orderedListeners[F any](m map[int]F) []F {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]F, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func clampTime(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return t
}

func parseID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
