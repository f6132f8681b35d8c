package model

import "time"

// NewRun builds a run with the named segments and no history.
func NewRun(game, category string, names []string) *Run {
	run := &Run{Game: game, Category: category}
	for _, name := range names {
		run.Segments = append(run.Segments, Segment{Name: name})
	}
	return run
}

// NextAttemptIndex returns the index the next attempt should use.
func (r *Run) NextAttemptIndex() int {
	next := 1
	for _, a := range r.Attempts {
		if a.Index >= next {
			next = a.Index + 1
		}
	}
	return next
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.Segments = make([]Segment, len(r.Segments))
	for i, s := range r.Segments {
		out.Segments[i] = Segment{
			Name:         s.Name,
			BestSegment:  CopyDuration(s.BestSegment),
			PersonalBest: CopyDuration(s.PersonalBest),
		}
	}
	out.Attempts = make([]Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		out.Attempts[i] = a.Clone()
	}
	return &out
}

// Clone returns a deep copy of the attempt.
func (a Attempt) Clone() Attempt {
	out := a
	if a.EndedAt != nil {
		t := *a.EndedAt
		out.EndedAt = &t
	}
	out.Duration = CopyDuration(a.Duration)
	out.Splits = CopyDurations(a.Splits)
	return out
}

// Clone returns a deep copy of the live attempt.
func (l *LiveAttempt) Clone() *LiveAttempt {
	if l == nil {
		return nil
	}
	out := *l
	if l.PausedAt != nil {
		t := *l.PausedAt
		out.PausedAt = &t
	}
	out.Splits = CopyDurations(l.Splits)
	return &out
}

// LastSplit returns the last recorded split time, if any.
func (l *LiveAttempt) LastSplit() (time.Duration, bool) {
	for i := len(l.Splits) - 1; i >= 0; i-- {
		if l.Splits[i] != nil {
			return *l.Splits[i], true
		}
	}
	return 0, false
}

// CopyDuration returns a pointer to a copy of d, or nil.
func CopyDuration(d *time.Duration) *time.Duration {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// CopyDurations deep-copies a slice of optional durations.
func CopyDurations(in []*time.Duration) []*time.Duration {
	if in == nil {
		return nil
	}
	out := make([]*time.Duration, len(in))
	for i, d := range in {
		out[i] = CopyDuration(d)
	}
	return out
}

// Dur is a convenience for building optional durations.
func Dur(d time.Duration) *time.Duration {
	return &d
}
