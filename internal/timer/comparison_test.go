package timer

import (
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

func TestSetUnknownComparisonKeepsSelection(t *testing.T) {
	tm, _ := newTestTimer(t)
	if got := tm.Comparison(); got != PersonalBest {
		t.Fatalf("expected default %q, got %q", PersonalBest, got)
	}
	if err := tm.SetComparison("Unknown"); !errors.Is(err, ErrUnknownComparison) {
		t.Fatalf("expected ErrUnknownComparison, got %v", err)
	}
	if got := tm.Comparison(); got != PersonalBest {
		t.Fatalf("selection changed to %q", got)
	}
	if err := tm.SetComparison(None); err != nil {
		t.Fatalf("None must always be available: %v", err)
	}
}

func TestSwitchComparisonWraps(t *testing.T) {
	tm, _ := newTestTimer(t)
	names := tm.Comparisons()
	want := []string{PersonalBest, BestSegments, None}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
	for i := 1; i <= len(names); i++ {
		got := tm.SwitchComparison()
		if got != names[i%len(names)] {
			t.Fatalf("step %d: expected %q, got %q", i, names[i%len(names)], got)
		}
	}
}

func TestHistoryComparisonsAppearAfterAttempt(t *testing.T) {
	tm, clock := newTestTimer(t, "A", "B")
	_ = tm.SplitOrStart()
	clock.Advance(time.Minute)
	_ = tm.SplitOrStart()
	_ = tm.Reset(true)

	names := tm.Comparisons()
	if len(names) != 5 || names[2] != AverageSegments || names[3] != LatestRun || names[4] != None {
		t.Fatalf("unexpected comparisons: %v", names)
	}
	if err := tm.SetComparison(LatestRun); err != nil {
		t.Fatalf("set latest run: %v", err)
	}
	snap := tm.Snapshot()
	if snap.Segments[0].Comparison == nil || *snap.Segments[0].Comparison != time.Minute {
		t.Fatalf("unexpected latest run comparison: %v", snap.Segments[0].Comparison)
	}
	if snap.Segments[1].Comparison != nil {
		t.Fatalf("unreached segment should have no comparison")
	}
}

func TestWithComparisonOption(t *testing.T) {
	run := model.NewRun("g", "c", []string{"a"})
	if _, err := New(run, WithComparison("Bogus")); !errors.Is(err, ErrUnknownComparison) {
		t.Fatalf("expected ErrUnknownComparison, got %v", err)
	}
	tm, err := New(run, WithComparison(LatestRun))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if tm.Comparison() != PersonalBest {
		t.Fatalf("expected fallback to %q, got %q", PersonalBest, tm.Comparison())
	}
	tm, err = New(run, WithComparison(BestSegments))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if tm.Comparison() != BestSegments {
		t.Fatalf("expected %q, got %q", BestSegments, tm.Comparison())
	}
}

func TestComparisonTimes(t *testing.T) {
	run := model.NewRun("g", "c", []string{"a", "b", "c"})
	run.Segments[0].BestSegment = model.Dur(10 * time.Second)
	run.Segments[1].BestSegment = model.Dur(20 * time.Second)
	run.Segments[0].PersonalBest = model.Dur(12 * time.Second)
	run.Attempts = []model.Attempt{
		{Index: 1, Splits: []*time.Duration{model.Dur(10 * time.Second), model.Dur(40 * time.Second), nil}},
		{Index: 2, Splits: []*time.Duration{model.Dur(20 * time.Second), nil, model.Dur(90 * time.Second)}},
	}

	best := ComparisonTimes(run, BestSegments)
	if *best[0] != 10*time.Second || *best[1] != 30*time.Second || best[2] != nil {
		t.Fatalf("unexpected best segments: %v %v %v", best[0], best[1], best[2])
	}
	avg := ComparisonTimes(run, AverageSegments)
	if *avg[0] != 15*time.Second || *avg[1] != 45*time.Second || avg[2] != nil {
		t.Fatalf("unexpected averages: %v %v %v", avg[0], avg[1], avg[2])
	}
	pb := ComparisonTimes(run, PersonalBest)
	if *pb[0] != 12*time.Second || pb[1] != nil {
		t.Fatalf("unexpected personal best")
	}
	for _, d := range ComparisonTimes(run, None) {
		if d != nil {
			t.Fatalf("None must not have times")
		}
	}
}

func TestSnapshotDeltas(t *testing.T) {
	tm, clock := newTestTimer(t, "A", "B")
	tm.Run().Segments[0].PersonalBest = model.Dur(time.Minute)
	tm.Run().Segments[1].PersonalBest = model.Dur(2 * time.Minute)
	_ = tm.SplitOrStart()
	clock.Advance(70 * time.Second)
	_ = tm.SplitOrStart()
	clock.Advance(55 * time.Second)

	snap := tm.Snapshot()
	d, ok := snap.Delta(0)
	if !ok || d != 10*time.Second {
		t.Fatalf("expected +10s delta, got %v %v", d, ok)
	}
	if _, ok := snap.LiveDelta(); !ok {
		t.Fatalf("expected live delta once behind comparison")
	}
	live, _ := snap.LiveDelta()
	if live != 5*time.Second {
		t.Fatalf("expected live delta 5s, got %v", live)
	}
}
