// Package session owns a timer and keeps its run file in sync with it.
//
// Every operation takes the session's write lock, mutates the timer, marks the
// session dirty and copies a consistent snapshot. The copy is written after the
// lock is released; concurrent writes are serialized and a write is skipped
// when a newer snapshot has already reached the disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/runfile"
	"github.com/verte-zerg/tsplit/internal/timer"
)

// Archive receives finalized attempts.
type Archive interface {
	InsertAttempt(ctx context.Context, run *model.Run, attempt model.Attempt) (bool, error)
}

// SaveFunc writes a snapshot to path.
type SaveFunc func(path string, snap runfile.Snapshot) error

// Options configures a Session.
type Options struct {
	// Path is where the run is saved. Defaults to the run's own path.
	Path string
	// DisableAutosave skips the write after each operation. Save and Close
	// still write.
	DisableAutosave bool
	Archive         Archive
	Logger          *slog.Logger
	Save            SaveFunc
	TimerOptions    []timer.Option
}

// View is what a frame needs: the timer snapshot plus persistence status.
type View struct {
	timer.Snapshot
	Path    string
	Dirty   bool
	SaveErr error
}

// Session is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	timer   *timer.Timer
	path    string
	dirty   bool
	seq     uint64
	saveErr error

	saveMu   sync.Mutex
	savedSeq uint64

	autosave bool
	archive  Archive
	log      *slog.Logger
	save     SaveFunc
}

type pendingSave struct {
	seq  uint64
	path string
	snap runfile.Snapshot
}

// New builds a session over run. A recovered in-progress attempt is added to
// the history as unfinished, finished attempts that were never reset are
// confirmed, and either starts the session dirty. Both are archived.
func New(run *model.Run, live *model.LiveAttempt, opts Options) (*Session, error) {
	t, err := timer.New(run, opts.TimerOptions...)
	if err != nil {
		return nil, err
	}
	s := &Session{
		timer:    t,
		path:     opts.Path,
		autosave: !opts.DisableAutosave,
		archive:  opts.Archive,
		log:      opts.Logger,
		save:     opts.Save,
	}
	if s.path == "" {
		s.path = run.Path
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.save == nil {
		s.save = runfile.Save
	}
	records, err := s.recoverLocked(live)
	if err != nil {
		return nil, err
	}
	s.logLastAttempt(live != nil)
	s.archiveRecovered(records)
	return s, nil
}

// recoverLocked confirms finished attempts that were never reset and turns
// an interrupted attempt into an unfinished history entry. The session is
// marked dirty when either changed the run.
func (s *Session) recoverLocked(live *model.LiveAttempt) ([]model.Attempt, error) {
	records := s.timer.ConfirmPending()
	for _, a := range records {
		s.log.Info("confirmed finished attempt", "attempt", a.Index, "id", a.ID)
	}
	recovered, err := s.timer.Recover(live)
	if err != nil {
		return nil, err
	}
	if recovered != nil {
		s.log.Warn("recovered interrupted attempt", "attempt", recovered.Index, "id", recovered.ID)
		records = append(records, *recovered)
	}
	if len(records) > 0 {
		s.markDirtyLocked()
	}
	return records, nil
}

func (s *Session) archiveRecovered(records []model.Attempt) {
	if s.archive == nil || len(records) == 0 {
		return
	}
	s.mu.RLock()
	run := s.timer.Run().Clone()
	s.mu.RUnlock()
	for i := range records {
		s.archiveAttempt(run, &records[i])
	}
}

func (s *Session) logLastAttempt(recovered bool) {
	attempts := s.timer.Run().Attempts
	if len(attempts) == 0 {
		return
	}
	last := attempts[len(attempts)-1]
	switch {
	case recovered:
		s.log.Info("last attempt not finished", "attempt", last.Index)
	case last.Finished():
		s.log.Info("last attempt finished", "attempt", last.Index, "duration", *last.Duration)
	default:
		s.log.Info("last attempt not finished", "attempt", last.Index)
	}
}

// Split starts an attempt or records the current split.
func (s *Session) Split() error {
	return s.apply("split", true, func(t *timer.Timer) error { return t.SplitOrStart() })
}

// Undo discards the previous split.
func (s *Session) Undo() error {
	return s.apply("undo", true, func(t *timer.Timer) error { return t.UndoSplit() })
}

// Skip advances without recording a split.
func (s *Session) Skip() error {
	return s.apply("skip", true, func(t *timer.Timer) error { return t.SkipSplit() })
}

// Pause toggles pause.
func (s *Session) Pause() error {
	return s.apply("pause", true, func(t *timer.Timer) error { return t.TogglePause() })
}

// Reset ends the attempt. With updateHistory the attempt is kept, archived
// and saved; otherwise it is discarded and the session is left dirty without
// writing.
func (s *Session) Reset(updateHistory bool) error {
	if !updateHistory {
		return s.apply("reset", false, func(t *timer.Timer) error { return t.Reset(false) })
	}
	s.mu.Lock()
	record, run, err := s.commitLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var pending *pendingSave
	if s.autosave {
		pending = s.captureLocked()
	}
	s.mu.Unlock()

	s.archiveAttempt(run, record)
	if pending != nil {
		return s.flush(pending)
	}
	return nil
}

// commitLocked resets with history and returns the finalized record and a
// copy of the run for the archive.
func (s *Session) commitLocked() (*model.Attempt, *model.Run, error) {
	current, ok := s.timer.Attempt()
	if err := s.timer.Reset(true); err != nil {
		return nil, nil, err
	}
	s.markDirtyLocked()
	if !ok {
		return nil, nil, nil
	}
	run := s.timer.Run()
	for i := len(run.Attempts) - 1; i >= 0; i-- {
		if run.Attempts[i].ID == current.ID {
			record := run.Attempts[i].Clone()
			return &record, run.Clone(), nil
		}
	}
	return nil, nil, nil
}

func (s *Session) archiveAttempt(run *model.Run, record *model.Attempt) {
	if s.archive == nil || record == nil {
		return
	}
	inserted, err := s.archive.InsertAttempt(context.Background(), run, *record)
	if err != nil {
		s.log.Error("failed to archive attempt", "attempt", record.Index, "error", err)
		return
	}
	if inserted {
		s.log.Debug("archived attempt", "attempt", record.Index, "id", record.ID)
	}
}

// SwitchComparison selects the next comparison and returns its name.
func (s *Session) SwitchComparison() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.SwitchComparison()
}

// SetComparison selects a comparison by name.
func (s *Session) SetComparison(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.SetComparison(name)
}

// HideComparison selects the "None" comparison.
func (s *Session) HideComparison() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.timer.SetComparison(timer.None)
}

// Open replaces the run with the one stored at path. Unsaved changes to the
// current run are written first. Fails while an attempt is active.
func (s *Session) Open(path string) error {
	s.mu.RLock()
	phase := s.timer.Phase()
	dirty := s.dirty
	s.mu.RUnlock()
	if phase != timer.NotStarted {
		return &timer.TransitionError{Op: "open", Phase: phase, Err: timer.ErrInvalidTransition}
	}
	if dirty {
		if err := s.Save(); err != nil {
			return err
		}
	}

	snap, err := runfile.Load(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.timer.ReplaceRun(snap.Run); err != nil {
		s.mu.Unlock()
		return err
	}
	s.path = path
	s.dirty = false
	s.saveErr = nil
	s.seq++
	records, err := s.recoverLocked(snap.Live)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var pending *pendingSave
	if len(records) > 0 {
		pending = s.captureLocked()
	}
	s.mu.Unlock()

	s.log.Info("opened run", "path", path, "game", snap.Run.Game, "category", snap.Run.Category)
	s.archiveRecovered(records)
	if pending != nil {
		return s.flush(pending)
	}
	return nil
}

// Save confirms the active attempt, if any, and writes the run.
func (s *Session) Save() error {
	s.mu.Lock()
	var record *model.Attempt
	var run *model.Run
	if s.timer.Phase() != timer.NotStarted {
		var err error
		if record, run, err = s.commitLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	pending := s.captureLocked()
	s.mu.Unlock()

	s.archiveAttempt(run, record)
	return s.flush(pending)
}

// Close writes unsaved changes.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	pending := s.captureLocked()
	s.mu.Unlock()
	return s.flush(pending)
}

// Snapshot returns a consistent view of the timer.
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Snapshot: s.timer.Snapshot(),
		Path:     s.path,
		Dirty:    s.dirty,
		SaveErr:  s.saveErr,
	}
}

// Run returns a copy of the run.
func (s *Session) Run() *model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timer.Run().Clone()
}

// Phase returns the timer phase.
func (s *Session) Phase() timer.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timer.Phase()
}

// Path returns the run file path.
func (s *Session) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Dirty reports whether the in-memory state differs from the last write.
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// LastSaveError returns the error of the most recent failed write, cleared by
// the next successful one.
func (s *Session) LastSaveError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveErr
}

func (s *Session) apply(op string, persist bool, fn func(*timer.Timer) error) error {
	s.mu.Lock()
	if err := fn(s.timer); err != nil {
		s.mu.Unlock()
		if errors.Is(err, timer.ErrInvalidTransition) {
			s.log.Debug("ignored action", "op", op, "error", err)
		}
		return err
	}
	s.markDirtyLocked()
	var pending *pendingSave
	if persist && s.autosave {
		pending = s.captureLocked()
	}
	s.mu.Unlock()

	if pending != nil {
		return s.flush(pending)
	}
	return nil
}

func (s *Session) markDirtyLocked() {
	s.dirty = true
	s.seq++
}

func (s *Session) captureLocked() *pendingSave {
	return &pendingSave{
		seq:  s.seq,
		path: s.path,
		snap: runfile.Snapshot{
			Run:  s.timer.Run().Clone(),
			Live: s.timer.Live(),
		},
	}
}

func (s *Session) flush(p *pendingSave) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if p.seq < s.savedSeq {
		return nil
	}
	err := s.save(p.path, p.snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.saveErr = err
		s.log.Error("failed to save run", "path", p.path, "error", err)
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.savedSeq = p.seq
	s.saveErr = nil
	if p.seq == s.seq && p.path == s.path {
		s.dirty = false
		s.timer.Run().Modified = false
	}
	s.log.Debug("saved run", "path", p.path, "attempts", len(p.snap.Run.Attempts))
	return nil
}
