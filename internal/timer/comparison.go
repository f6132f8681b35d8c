package timer

import (
	"fmt"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

// Comparison names.
const (
	PersonalBest    = "Personal Best"
	BestSegments    = "Best Segments"
	AverageSegments = "Average Segments"
	LatestRun       = "Latest Run"
	None            = "None"
)

// KnownComparison reports whether name is any comparison this package can produce.
func KnownComparison(name string) bool {
	switch name {
	case PersonalBest, BestSegments, AverageSegments, LatestRun, None:
		return true
	}
	return false
}

// Selector holds the ordered list of available comparisons and the selected one.
type Selector struct {
	names   []string
	current int
}

// NewSelector returns a selector over names with the first entry selected.
func NewSelector(names []string) *Selector {
	s := &Selector{}
	s.refresh(names)
	return s
}

// Current returns the selected comparison.
func (s *Selector) Current() string {
	if len(s.names) == 0 {
		return None
	}
	return s.names[s.current]
}

// Names returns a copy of the available comparisons.
func (s *Selector) Names() []string {
	return append([]string(nil), s.names...)
}

// SwitchToNext selects the next comparison, wrapping after the last one.
func (s *Selector) SwitchToNext() string {
	if len(s.names) > 0 {
		s.current = (s.current + 1) % len(s.names)
	}
	return s.Current()
}

// Set selects name. The selection is unchanged when name is not available.
func (s *Selector) Set(name string) error {
	for i, n := range s.names {
		if n == name {
			s.current = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownComparison, name)
}

// refresh replaces the available names and keeps the selection when it still exists.
func (s *Selector) refresh(names []string) {
	selected := ""
	if len(s.names) > 0 {
		selected = s.names[s.current]
	}
	s.names = append([]string(nil), names...)
	hasNone := false
	for _, n := range s.names {
		if n == None {
			hasNone = true
		}
	}
	if !hasNone {
		s.names = append(s.names, None)
	}
	s.current = 0
	for i, n := range s.names {
		if n == selected {
			s.current = i
		}
	}
}

// availableComparisons lists the comparisons a run supports, in display order.
func availableComparisons(run *model.Run) []string {
	names := []string{PersonalBest, BestSegments}
	if hasRecordedSplits(run) {
		names = append(names, AverageSegments, LatestRun)
	}
	return append(names, None)
}

func hasRecordedSplits(run *model.Run) bool {
	for _, a := range run.Attempts {
		for _, s := range a.Splits {
			if s != nil {
				return true
			}
		}
	}
	return false
}

// ComparisonTimes returns cumulative split times for the named comparison.
// Entries are nil where the comparison has no time.
func ComparisonTimes(run *model.Run, name string) []*time.Duration {
	out := make([]*time.Duration, len(run.Segments))
	switch name {
	case PersonalBest:
		for i, s := range run.Segments {
			out[i] = model.CopyDuration(s.PersonalBest)
		}
	case BestSegments:
		var total time.Duration
		for i, s := range run.Segments {
			if s.BestSegment == nil {
				break
			}
			total += *s.BestSegment
			out[i] = model.Dur(total)
		}
	case AverageSegments:
		var total time.Duration
		for i := range run.Segments {
			avg, ok := averageSegment(run.Attempts, i)
			if !ok {
				break
			}
			total += avg
			out[i] = model.Dur(total)
		}
	case LatestRun:
		for j := len(run.Attempts) - 1; j >= 0; j-- {
			a := run.Attempts[j]
			if !anyRecorded(a.Splits) {
				continue
			}
			for i := range out {
				if i < len(a.Splits) {
					out[i] = model.CopyDuration(a.Splits[i])
				}
			}
			break
		}
	}
	return out
}

// SegmentTime returns the duration of segment i within splits, when both
// boundaries were recorded.
func SegmentTime(splits []*time.Duration, i int) (time.Duration, bool) {
	if i < 0 || i >= len(splits) || splits[i] == nil {
		return 0, false
	}
	if i == 0 {
		return *splits[0], true
	}
	if splits[i-1] == nil {
		return 0, false
	}
	return *splits[i] - *splits[i-1], true
}

func averageSegment(attempts []model.Attempt, i int) (time.Duration, bool) {
	var sum time.Duration
	count := 0
	for _, a := range attempts {
		seg, ok := SegmentTime(a.Splits, i)
		if !ok {
			continue
		}
		sum += seg
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / time.Duration(count), true
}

func anyRecorded(splits []*time.Duration) bool {
	for _, s := range splits {
		if s != nil {
			return true
		}
	}
	return false
}
