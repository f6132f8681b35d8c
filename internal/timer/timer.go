// Package timer implements the speedrun timer state machine.
//
// A Timer is not safe for concurrent use; the session package owns it behind
// a reader/writer lock.
package timer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tsplit/internal/model"
)

// Phase is the lifecycle state of the timer.
type Phase int

// Timer phases.
const (
	NotStarted Phase = iota
	Running
	Paused
	Ended
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Timer tracks the live attempt over a run.
type Timer struct {
	run  *model.Run
	now  func() time.Time
	cmps *Selector

	phase      Phase
	attempt    model.Attempt
	current    int
	splits     []*time.Duration
	pausedAt   time.Time
	pauseTotal time.Duration
}

// Option configures a Timer.
type Option func(*Timer) error

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) error {
		t.now = now
		return nil
	}
}

// WithComparison selects the initial comparison. History-derived comparisons
// that the run cannot offer yet fall back to the default selection.
func WithComparison(name string) Option {
	return func(t *Timer) error {
		if name == "" {
			return nil
		}
		if !KnownComparison(name) {
			return fmt.Errorf("%w: %q", ErrUnknownComparison, name)
		}
		_ = t.cmps.Set(name)
		return nil
	}
}

// New builds a timer over run. The timer takes ownership of run.
func New(run *model.Run, opts ...Option) (*Timer, error) {
	if run == nil || len(run.Segments) == 0 {
		return nil, ErrEmptyRun
	}
	t := &Timer{
		run:  run,
		now:  time.Now,
		cmps: NewSelector(availableComparisons(run)),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Phase returns the current phase.
func (t *Timer) Phase() Phase {
	return t.phase
}

// CurrentSplit returns the index of the segment being timed.
func (t *Timer) CurrentSplit() int {
	return t.current
}

// Run returns the run owned by the timer. Callers must not modify it.
func (t *Timer) Run() *model.Run {
	return t.run
}

// SplitOrStart starts an attempt, or records the current segment's split.
func (t *Timer) SplitOrStart() error {
	switch t.phase {
	case NotStarted:
		t.start()
		return nil
	case Running:
		now := t.now()
		split := t.elapsedAt(now)
		t.splits[t.current] = &split
		t.current++
		if t.current == len(t.run.Segments) {
			t.finish(now, split)
		}
		return nil
	default:
		return invalid("split", t.phase)
	}
}

func (t *Timer) start() {
	now := t.now()
	t.attempt = model.Attempt{
		Index:     t.run.NextAttemptIndex(),
		ID:        uuid.NewString(),
		StartedAt: now,
	}
	t.splits = make([]*time.Duration, len(t.run.Segments))
	t.current = 0
	t.pauseTotal = 0
	t.pausedAt = time.Time{}
	t.phase = Running
}

func (t *Timer) finish(now time.Time, total time.Duration) {
	t.attempt.EndedAt = &now
	t.attempt.Duration = model.Dur(total)
	t.attempt.Splits = model.CopyDurations(t.splits)
	t.attempt.Pending = true
	t.run.Attempts = append(t.run.Attempts, t.attempt.Clone())
	t.run.Modified = true
	t.phase = Ended
}

// UndoSplit returns to the previous segment and discards its split.
func (t *Timer) UndoSplit() error {
	if t.phase != Running {
		return invalid("undo", t.phase)
	}
	if t.current == 0 {
		return &TransitionError{Op: "undo", Phase: t.phase, Err: ErrNoSplitToUndo}
	}
	t.current--
	t.splits[t.current] = nil
	return nil
}

// SkipSplit advances past the current segment without recording a time.
func (t *Timer) SkipSplit() error {
	if t.phase != Running {
		return invalid("skip", t.phase)
	}
	if t.current >= len(t.run.Segments)-1 {
		return &TransitionError{Op: "skip", Phase: t.phase, Err: ErrSkipLastSegment}
	}
	t.splits[t.current] = nil
	t.current++
	return nil
}

// TogglePause pauses a running attempt or resumes a paused one.
func (t *Timer) TogglePause() error {
	switch t.phase {
	case Running:
		t.pausedAt = t.now()
		t.phase = Paused
		return nil
	case Paused:
		t.pauseTotal += t.now().Sub(t.pausedAt)
		t.pausedAt = time.Time{}
		t.phase = Running
		return nil
	default:
		return invalid("pause", t.phase)
	}
}

// Reset ends the current attempt. With updateHistory the attempt is kept in
// the history and the run's best times are updated; otherwise it is discarded.
func (t *Timer) Reset(updateHistory bool) error {
	if t.phase == NotStarted {
		return invalid("reset", t.phase)
	}
	if updateHistory {
		t.commit()
	} else if t.phase == Ended {
		t.dropPending()
	}
	t.clear()
	return nil
}

func (t *Timer) commit() {
	if t.phase == Ended {
		for i := range t.run.Attempts {
			if t.run.Attempts[i].ID == t.attempt.ID {
				t.run.Attempts[i].Pending = false
			}
		}
	} else {
		end := t.now()
		if t.phase == Paused {
			end = t.pausedAt
		}
		record := t.attempt.Clone()
		record.EndedAt = &end
		record.Splits = model.CopyDurations(t.splits)
		t.run.Attempts = append(t.run.Attempts, record)
	}
	t.applyBests(t.splits, t.attempt.Duration)
	t.run.Modified = true
}

// applyBests folds an attempt's cumulative splits into the run's best
// segments and, for a finished attempt, its personal best.
func (t *Timer) applyBests(splits []*time.Duration, total *time.Duration) {
	for i := range t.run.Segments {
		seg, ok := SegmentTime(splits, i)
		if !ok {
			continue
		}
		best := t.run.Segments[i].BestSegment
		if best == nil || seg < *best {
			t.run.Segments[i].BestSegment = model.Dur(seg)
		}
	}
	if total == nil || len(splits) != len(t.run.Segments) {
		return
	}
	last := len(t.run.Segments) - 1
	pb := t.run.Segments[last].PersonalBest
	if pb != nil && *pb <= *total {
		return
	}
	for i := range t.run.Segments {
		t.run.Segments[i].PersonalBest = model.CopyDuration(splits[i])
	}
}

// ConfirmPending confirms finished attempts that were never reset, as
// Reset(true) would have, and returns copies of them. It does nothing while
// an attempt is active.
func (t *Timer) ConfirmPending() []model.Attempt {
	if t.phase != NotStarted {
		return nil
	}
	var confirmed []model.Attempt
	for i := range t.run.Attempts {
		a := &t.run.Attempts[i]
		if !a.Pending {
			continue
		}
		a.Pending = false
		t.applyBests(a.Splits, a.Duration)
		confirmed = append(confirmed, a.Clone())
	}
	if len(confirmed) > 0 {
		t.run.Modified = true
		t.cmps.refresh(availableComparisons(t.run))
	}
	return confirmed
}

func (t *Timer) dropPending() {
	kept := t.run.Attempts[:0]
	for _, a := range t.run.Attempts {
		if a.ID == t.attempt.ID && a.Pending {
			continue
		}
		kept = append(kept, a)
	}
	t.run.Attempts = kept
}

func (t *Timer) clear() {
	t.phase = NotStarted
	t.attempt = model.Attempt{}
	t.current = 0
	t.splits = nil
	t.pausedAt = time.Time{}
	t.pauseTotal = 0
	t.cmps.refresh(availableComparisons(t.run))
}

// ElapsedTime returns the pause-adjusted time of the current attempt.
func (t *Timer) ElapsedTime() time.Duration {
	switch t.phase {
	case Running:
		return t.elapsedAt(t.now())
	case Paused:
		return t.elapsedAt(t.pausedAt)
	case Ended:
		return *t.attempt.Duration
	default:
		return 0
	}
}

func (t *Timer) elapsedAt(at time.Time) time.Duration {
	return at.Sub(t.attempt.StartedAt) - t.pauseTotal
}

// ReplaceRun swaps the run while no attempt is active.
func (t *Timer) ReplaceRun(run *model.Run) error {
	if t.phase != NotStarted {
		return invalid("replace run", t.phase)
	}
	if run == nil || len(run.Segments) == 0 {
		return ErrEmptyRun
	}
	t.run = run
	t.cmps.refresh(availableComparisons(run))
	return nil
}

// Recover records an attempt that was still in progress when the process
// stopped as an unfinished history entry and returns a copy of that entry.
func (t *Timer) Recover(live *model.LiveAttempt) (*model.Attempt, error) {
	if live == nil {
		return nil, nil
	}
	if t.phase != NotStarted {
		return nil, invalid("recover", t.phase)
	}
	end := live.StartedAt
	if live.PausedAt != nil {
		end = *live.PausedAt
	} else if last, ok := live.LastSplit(); ok {
		end = live.StartedAt.Add(last + live.PauseTotal)
	}
	index := live.Index
	for _, a := range t.run.Attempts {
		if a.Index >= index {
			index = t.run.NextAttemptIndex()
			break
		}
	}
	splits := make([]*time.Duration, len(t.run.Segments))
	copy(splits, model.CopyDurations(live.Splits))
	record := model.Attempt{
		Index:     index,
		ID:        live.ID,
		StartedAt: live.StartedAt,
		EndedAt:   &end,
		Splits:    splits,
	}
	t.run.Attempts = append(t.run.Attempts, record)
	t.run.Modified = true
	t.cmps.refresh(availableComparisons(t.run))
	recovered := record.Clone()
	return &recovered, nil
}

// Live returns the persisted form of the attempt in progress, or nil.
func (t *Timer) Live() *model.LiveAttempt {
	if t.phase != Running && t.phase != Paused {
		return nil
	}
	live := &model.LiveAttempt{
		Index:      t.attempt.Index,
		ID:         t.attempt.ID,
		StartedAt:  t.attempt.StartedAt,
		Current:    t.current,
		Splits:     model.CopyDurations(t.splits),
		Paused:     t.phase == Paused,
		PauseTotal: t.pauseTotal,
	}
	if t.phase == Paused {
		at := t.pausedAt
		live.PausedAt = &at
	}
	return live
}

// Attempt returns a copy of the current attempt record and whether one exists.
func (t *Timer) Attempt() (model.Attempt, bool) {
	if t.phase == NotStarted {
		return model.Attempt{}, false
	}
	return t.attempt.Clone(), true
}

// Comparison returns the selected comparison.
func (t *Timer) Comparison() string {
	return t.cmps.Current()
}

// Comparisons returns the available comparisons in display order.
func (t *Timer) Comparisons() []string {
	return t.cmps.Names()
}

// SwitchComparison cycles to the next comparison.
func (t *Timer) SwitchComparison() string {
	return t.cmps.SwitchToNext()
}

// SetComparison selects a comparison by name.
func (t *Timer) SetComparison(name string) error {
	return t.cmps.Set(name)
}
