package cuts

import "strconv"

const idPrefix = "cut-"

// Region is a span of the source recording marked for removal. End is nil
// while the region is still pending.
type Region struct {
	ID    string   `json:"id"`
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

// Complete reports whether the region has an end strictly after its start.
// Incomplete regions never participate in planning.
func (r Region) Complete() bool {
	return r.End != nil && *r.End > r.Start
}

// Duration returns End-Start, or 0 for incomplete regions.
func (r Region) Duration() float64 {
	if !r.Complete() {
		return 0
	}
	return *r.End - r.Start
}

// Contains reports whether t falls inside the closed interval [Start, End].
func (r Region) Contains(t float64) bool {
	if !r.Complete() {
		return false
	}
	return t >= r.Start && t <= *r.End
}

// Overlaps reports whether the open intervals of r and other intersect.
func (r Region) Overlaps(other Region) bool {
	if !r.Complete() || !other.Complete() {
		return false
	}
	return r.Start < *other.End && other.Start < *r.End
}

// NewRegion builds a complete region value.
func NewRegion(id string, start, end float64) Region {
	return Region{ID: id, Start: start, End: &end}
}

func (r Region) clone() Region {
	if r.End != nil {
		end := *r.End
		r.End = &end
	}
	return r
}

func formatID(n int) string {
	return idPrefix + strconv.Itoa(n)
}
