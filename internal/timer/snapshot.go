package timer

import (
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

// SegmentState is the read-only view of one segment for rendering.
type SegmentState struct {
	Name        string
	Split       *time.Duration
	Comparison  *time.Duration
	BestSegment *time.Duration
	Skipped     bool
}

// Snapshot is a consistent point-in-time copy of the timer.
type Snapshot struct {
	Game          string
	Category      string
	Phase         Phase
	Current       int
	Elapsed       time.Duration
	Comparison    string
	Comparisons   []string
	AttemptIndex  int
	AttemptCount  int
	FinishedCount int
	Segments      []SegmentState
}

// Snapshot copies the state needed by renderers.
func (t *Timer) Snapshot() Snapshot {
	snap := Snapshot{
		Game:         t.run.Game,
		Category:     t.run.Category,
		Phase:        t.phase,
		Current:      t.current,
		Elapsed:      t.ElapsedTime(),
		Comparison:   t.cmps.Current(),
		Comparisons:  t.cmps.Names(),
		AttemptCount: len(t.run.Attempts),
	}
	if t.phase != NotStarted {
		snap.AttemptIndex = t.attempt.Index
	}
	for _, a := range t.run.Attempts {
		if a.Finished() {
			snap.FinishedCount++
		}
	}
	cmp := ComparisonTimes(t.run, snap.Comparison)
	snap.Segments = make([]SegmentState, len(t.run.Segments))
	for i, s := range t.run.Segments {
		state := SegmentState{
			Name:        s.Name,
			Comparison:  cmp[i],
			BestSegment: model.CopyDuration(s.BestSegment),
		}
		if i < len(t.splits) && t.phase != NotStarted {
			state.Split = model.CopyDuration(t.splits[i])
			state.Skipped = t.splits[i] == nil && i < t.current
		}
		snap.Segments[i] = state
	}
	return snap
}

// Delta returns the split time of segment i minus its comparison time.
func (s Snapshot) Delta(i int) (time.Duration, bool) {
	if i < 0 || i >= len(s.Segments) {
		return 0, false
	}
	seg := s.Segments[i]
	if seg.Split == nil || seg.Comparison == nil {
		return 0, false
	}
	return *seg.Split - *seg.Comparison, true
}

// LiveDelta returns the running delta of the current segment once the
// elapsed time has passed its comparison.
func (s Snapshot) LiveDelta() (time.Duration, bool) {
	if s.Phase != Running && s.Phase != Paused {
		return 0, false
	}
	if s.Current >= len(s.Segments) {
		return 0, false
	}
	cmp := s.Segments[s.Current].Comparison
	if cmp == nil || s.Elapsed <= *cmp {
		return 0, false
	}
	return s.Elapsed - *cmp, true
}
