package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/runfile"
	"github.com/verte-zerg/tsplit/internal/timer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memArchive struct {
	mu       sync.Mutex
	attempts []model.Attempt
	err      error
}

func (a *memArchive) InsertAttempt(_ context.Context, _ *model.Run, attempt model.Attempt) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return false, a.err
	}
	a.attempts = append(a.attempts, attempt)
	return true, nil
}

func newTestSession(t *testing.T, opts Options, names ...string) (*Session, *fakeClock, string) {
	t.Helper()
	if len(names) == 0 {
		names = []string{"Paraglider", "IST", "Vah Medoh"}
	}
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "splits.toml")
	if opts.Path == "" {
		opts.Path = path
	}
	opts.TimerOptions = append(opts.TimerOptions, timer.WithClock(clock.Now))
	s, err := New(model.NewRun("Breath of the Wild", "100%", names), nil, opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, clock, opts.Path
}

func loadRun(t *testing.T, path string) runfile.Snapshot {
	t.Helper()
	snap, err := runfile.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return snap
}

func TestNewRejectsEmptyRun(t *testing.T) {
	_, err := New(model.NewRun("g", "c", nil), nil, Options{})
	if !errors.Is(err, timer.ErrEmptyRun) {
		t.Fatalf("expected ErrEmptyRun, got %v", err)
	}
}

func TestSplitAutosavesLiveAttempt(t *testing.T) {
	s, clock, path := newTestSession(t, Options{})
	if err := s.Split(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(10 * time.Second)
	if err := s.Split(); err != nil {
		t.Fatalf("split: %v", err)
	}
	if s.Dirty() {
		t.Fatalf("expected clean session after autosave")
	}
	snap := loadRun(t, path)
	if snap.Live == nil || snap.Live.Current != 1 || *snap.Live.Splits[0] != 10*time.Second {
		t.Fatalf("expected live attempt on disk, got %+v", snap.Live)
	}
	if len(snap.Run.Attempts) != 0 {
		t.Fatalf("expected no history yet, got %d", len(snap.Run.Attempts))
	}
}

func TestParagliderScenario(t *testing.T) {
	archive := &memArchive{}
	s, clock, path := newTestSession(t, Options{Archive: archive})
	steps := []time.Duration{0, 300 * time.Second, 600 * time.Second, 900 * time.Second}
	for i, d := range steps {
		clock.Advance(d)
		if err := s.Split(); err != nil {
			t.Fatalf("split %d: %v", i, err)
		}
	}
	view := s.Snapshot()
	if view.Phase != timer.Ended || view.Elapsed != 1800*time.Second {
		t.Fatalf("unexpected end state: %s %v", view.Phase, view.Elapsed)
	}
	if err := s.Reset(true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := loadRun(t, path)
	if len(snap.Run.Attempts) != 1 || snap.Live != nil {
		t.Fatalf("expected one attempt and no live attempt on disk")
	}
	a := snap.Run.Attempts[0]
	if !a.Finished() || *a.Duration != 1800*time.Second || a.Pending {
		t.Fatalf("unexpected attempt: %+v", a)
	}
	if pb := snap.Run.Segments[2].PersonalBest; pb == nil || *pb != 1800*time.Second {
		t.Fatalf("expected personal best to be saved, got %v", pb)
	}
	if len(archive.attempts) != 1 || archive.attempts[0].ID != a.ID {
		t.Fatalf("expected attempt to be archived once")
	}
}

func TestResetWithoutHistoryDoesNotSave(t *testing.T) {
	s, clock, path := newTestSession(t, Options{})
	_ = s.Split()
	clock.Advance(time.Second)
	_ = s.Split()
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := s.Reset(false); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !s.Dirty() {
		t.Fatalf("expected dirty session after discarding reset")
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("discarding reset must not write")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if snap := loadRun(t, path); snap.Live != nil || len(snap.Run.Attempts) != 0 {
		t.Fatalf("expected close to flush the discarded attempt")
	}
}

func TestInvalidActionLeavesSessionClean(t *testing.T) {
	s, _, path := newTestSession(t, Options{})
	if err := s.Undo(); !errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if s.Dirty() {
		t.Fatalf("failed action must not dirty the session")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("failed action must not write, stat err %v", err)
	}
}

func TestSaveFailureKeepsStateAndDirtyFlag(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _, _ := newTestSession(t, Options{Path: filepath.Join(blocker, "splits.toml")})
	err := s.Split()
	if err == nil {
		t.Fatalf("expected save error")
	}
	if errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("save error must not look like a transition error")
	}
	if s.Phase() != timer.Running {
		t.Fatalf("state must not roll back on save failure")
	}
	if !s.Dirty() || s.LastSaveError() == nil {
		t.Fatalf("expected dirty flag and last save error")
	}
	if s.Snapshot().SaveErr == nil {
		t.Fatalf("expected save error in view")
	}
}

func TestSaveConfirmsActiveAttempt(t *testing.T) {
	archive := &memArchive{err: errors.New("disk full")}
	s, clock, path := newTestSession(t, Options{Archive: archive})
	_ = s.Split()
	clock.Advance(42 * time.Second)
	_ = s.Split()
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Phase() != timer.NotStarted {
		t.Fatalf("expected save to reset the timer")
	}
	snap := loadRun(t, path)
	if len(snap.Run.Attempts) != 1 || snap.Run.Attempts[0].Finished() {
		t.Fatalf("expected one unfinished attempt on disk")
	}
	if best := snap.Run.Segments[0].BestSegment; best == nil || *best != 42*time.Second {
		t.Fatalf("expected best segment 42s, got %v", best)
	}
}

func TestLatestSaveWins(t *testing.T) {
	var mu sync.Mutex
	var written []int
	save := func(_ string, snap runfile.Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		current := 0
		if snap.Live != nil {
			current = snap.Live.Current
		}
		written = append(written, current)
		return nil
	}
	s, _, _ := newTestSession(t, Options{Save: save}, "a", "b", "c", "d")
	_ = s.Split()

	stale := func() *pendingSave {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.captureLocked()
	}()
	if err := s.Split(); err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := s.flush(stale); err != nil {
		t.Fatalf("flush: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(written) != 2 || written[len(written)-1] != 1 {
		t.Fatalf("expected stale snapshot to be skipped, writes: %v", written)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s, clock, _ := newTestSession(t, Options{DisableAutosave: true}, "a", "b", "c", "d", "e")
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					view := s.Snapshot()
					if view.Current > len(view.Segments) {
						t.Errorf("inconsistent snapshot: %d", view.Current)
						return
					}
				}
			}
		}()
	}
	for i := 0; i < 6; i++ {
		clock.Advance(time.Second)
		if err := s.Split(); err != nil {
			t.Errorf("split %d: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
	if s.Phase() != timer.Ended {
		t.Fatalf("expected ended, got %s", s.Phase())
	}
}

func TestComparisonSelection(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	if got := s.Snapshot().Comparison; got != timer.PersonalBest {
		t.Fatalf("expected personal best, got %q", got)
	}
	if err := s.SetComparison("Unknown"); !errors.Is(err, timer.ErrUnknownComparison) {
		t.Fatalf("expected unknown comparison, got %v", err)
	}
	if got := s.SwitchComparison(); got != timer.BestSegments {
		t.Fatalf("expected best segments, got %q", got)
	}
	s.HideComparison()
	if got := s.Snapshot().Comparison; got != timer.None {
		t.Fatalf("expected none, got %q", got)
	}
}

func TestOpenRecoversInterruptedAttempt(t *testing.T) {
	s, clock, _ := newTestSession(t, Options{})
	other := filepath.Join(t.TempDir(), "other.yaml")
	start := clock.Now()
	live := &model.LiveAttempt{
		Index:     3,
		ID:        "crashed",
		StartedAt: start,
		Current:   1,
		Splits:    []*time.Duration{model.Dur(time.Minute), nil},
	}
	run := model.NewRun("Celeste", "Any%", []string{"1A", "2A"})
	if err := runfile.Save(other, runfile.Snapshot{Run: run, Live: live}); err != nil {
		t.Fatalf("save: %v", err)
	}

	_ = s.Split()
	if err := s.Open(other); !errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("expected open to fail during an attempt, got %v", err)
	}
	_ = s.Reset(false)
	if err := s.Open(other); err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Path() != other || s.Snapshot().Game != "Celeste" {
		t.Fatalf("expected opened run to be active")
	}
	snap := loadRun(t, other)
	if snap.Live != nil || len(snap.Run.Attempts) != 1 || snap.Run.Attempts[0].Finished() {
		t.Fatalf("expected recovered attempt saved as unfinished")
	}
	if err := s.Open(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, runfile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.toml")
	snap, err := LoadOrDefault(missing, model.RunTemplate{}, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Run.Segments) != 5 || snap.Run.Segments[0].Name != "Paraglider" || snap.Run.Path != missing {
		t.Fatalf("expected default run, got %+v", snap.Run)
	}

	corrupt := filepath.Join(dir, "corrupt.toml")
	if err := os.WriteFile(corrupt, []byte("= ="), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	custom := model.RunTemplate{Game: "g", Category: "c", Segments: []string{"x"}}
	snap, err = LoadOrDefault(corrupt, custom, nil)
	if err != nil {
		t.Fatalf("load corrupt: %v", err)
	}
	if snap.Run.Game != "g" || len(snap.Run.Segments) != 1 {
		t.Fatalf("expected custom default run, got %+v", snap.Run)
	}
}

func restart(t *testing.T, path string, opts Options) *Session {
	t.Helper()
	snap := loadRun(t, path)
	opts.Path = path
	s, err := New(snap.Run, snap.Live, opts)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	return s
}

func TestFinishedAttemptConfirmedAfterRestart(t *testing.T) {
	s, clock, path := newTestSession(t, Options{})
	for i, d := range []time.Duration{0, 300 * time.Second, 600 * time.Second, 900 * time.Second} {
		clock.Advance(d)
		if err := s.Split(); err != nil {
			t.Fatalf("split %d: %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if snap := loadRun(t, path); len(snap.Run.Attempts) != 1 || !snap.Run.Attempts[0].Pending {
		t.Fatalf("expected the unconfirmed attempt on disk")
	}

	archive := &memArchive{}
	next := restart(t, path, Options{Archive: archive})
	if next.Phase() != timer.NotStarted || !next.Dirty() {
		t.Fatalf("expected a dirty idle session, got %s dirty=%v", next.Phase(), next.Dirty())
	}
	run := next.Run()
	a := run.Attempts[0]
	if a.Pending || !a.Finished() || *a.Duration != 1800*time.Second {
		t.Fatalf("unexpected attempt after restart: %+v", a)
	}
	if pb := run.Segments[2].PersonalBest; pb == nil || *pb != 1800*time.Second {
		t.Fatalf("expected personal best, got %v", pb)
	}
	if best := run.Segments[0].BestSegment; best == nil || *best != 300*time.Second {
		t.Fatalf("expected best segment, got %v", best)
	}
	if len(archive.attempts) != 1 || archive.attempts[0].ID != a.ID || archive.attempts[0].Pending {
		t.Fatalf("expected confirmed attempt archived once, got %+v", archive.attempts)
	}

	if err := next.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	snap := loadRun(t, path)
	if snap.Run.Attempts[0].Pending || snap.Run.Segments[2].PersonalBest == nil {
		t.Fatalf("expected confirmation to be saved")
	}
	if again := restart(t, path, Options{}); again.Dirty() {
		t.Fatalf("a confirmed run must load clean")
	}
}

func TestRecoveredAttemptIsArchived(t *testing.T) {
	s, clock, path := newTestSession(t, Options{})
	_ = s.Split()
	clock.Advance(time.Minute)
	_ = s.Split()
	live := loadRun(t, path).Live
	if live == nil {
		t.Fatalf("expected live attempt on disk")
	}

	archive := &memArchive{}
	next := restart(t, path, Options{Archive: archive})
	if len(archive.attempts) != 1 || archive.attempts[0].ID != live.ID || archive.attempts[0].Finished() {
		t.Fatalf("expected interrupted attempt archived as unfinished, got %+v", archive.attempts)
	}
	if h := next.Run().Attempts; len(h) != 1 || h[0].ID != live.ID {
		t.Fatalf("archive and history disagree: %+v", h)
	}
}

func TestDiscardedAttemptBeforeFlushRecoversAsUnfinished(t *testing.T) {
	s, clock, path := newTestSession(t, Options{})
	_ = s.Split()
	clock.Advance(time.Minute)
	_ = s.Split()
	if err := s.Reset(false); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// No Close: the process stops before the next write.
	next := restart(t, path, Options{})
	if h := next.Run().Attempts; len(h) != 1 || h[0].Finished() {
		t.Fatalf("expected the unflushed discard to come back as unfinished, got %+v", h)
	}
}
