// Package model defines shared data structures.
package model

import "time"

// Config defines timer session settings.
type Config struct {
	RunPath     string
	Comparison  string
	DefaultRun  RunTemplate
	Archive     bool
	ArchivePath string
}

// RunTemplate describes the run created when no run file exists yet.
type RunTemplate struct {
	Game     string
	Category string
	Segments []string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Game        string
	Category    string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Segment is one named checkpoint of a run.
type Segment struct {
	Name string
	// BestSegment is the fastest duration ever recorded for this segment alone.
	BestSegment *time.Duration
	// PersonalBest is the cumulative split time of the personal best run.
	PersonalBest *time.Duration
}

// Attempt is one entry of a run's attempt history.
type Attempt struct {
	Index     int
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	// Duration is nil when the attempt did not finish.
	Duration *time.Duration
	// Splits holds cumulative split times; nil entries were skipped or never reached.
	Splits []*time.Duration
	// Pending marks a finished attempt that was not confirmed by a reset yet.
	Pending bool
}

// Finished reports whether the attempt reached the final split.
func (a Attempt) Finished() bool {
	return a.Duration != nil
}

// Run is a category definition together with its attempt history.
type Run struct {
	Game     string
	Category string
	Segments []Segment
	Attempts []Attempt
	Modified bool
	Path     string
}

// LiveAttempt is the persisted form of an attempt still in progress.
type LiveAttempt struct {
	Index      int
	ID         string
	StartedAt  time.Time
	Current    int
	Splits     []*time.Duration
	Paused     bool
	PausedAt   *time.Time
	PauseTotal time.Duration
}

// AttemptAggregate summarizes an archived attempt for reporting.
type AttemptAggregate struct {
	ID         string
	Game       string
	Category   string
	StartedAt  time.Time
	EndedAt    time.Time
	Finished   bool
	DurationMs int64
}

// SegmentAggregate aggregates one segment's times across archived attempts.
type SegmentAggregate struct {
	Index    int
	Name     string
	Count    int
	BestMs   int64
	SumMs    int64
	LatestMs int64
}
