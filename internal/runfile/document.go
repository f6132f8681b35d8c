package runfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

const (
	formatVersion = 1
	noTime        = "-"
)

type document struct {
	Version  int          `toml:"version" yaml:"version" json:"version"`
	Game     string       `toml:"game" yaml:"game" json:"game"`
	Category string       `toml:"category" yaml:"category" json:"category"`
	Segments []segmentDoc `toml:"segments" yaml:"segments" json:"segments"`
	Attempts []attemptDoc `toml:"attempts,omitempty" yaml:"attempts,omitempty" json:"attempts,omitempty"`
	Live     *liveDoc     `toml:"live,omitempty" yaml:"live,omitempty" json:"live,omitempty"`
}

type segmentDoc struct {
	Name         string `toml:"name" yaml:"name" json:"name"`
	BestSegment  string `toml:"best_segment,omitempty" yaml:"best_segment,omitempty" json:"best_segment,omitempty"`
	PersonalBest string `toml:"personal_best,omitempty" yaml:"personal_best,omitempty" json:"personal_best,omitempty"`
}

type attemptDoc struct {
	Index     int      `toml:"index" yaml:"index" json:"index"`
	ID        string   `toml:"id" yaml:"id" json:"id"`
	StartedAt string   `toml:"started_at" yaml:"started_at" json:"started_at"`
	EndedAt   string   `toml:"ended_at,omitempty" yaml:"ended_at,omitempty" json:"ended_at,omitempty"`
	Duration  string   `toml:"duration,omitempty" yaml:"duration,omitempty" json:"duration,omitempty"`
	Splits    []string `toml:"splits,omitempty" yaml:"splits,omitempty" json:"splits,omitempty"`
	Pending   bool     `toml:"pending,omitempty" yaml:"pending,omitempty" json:"pending,omitempty"`
}

type liveDoc struct {
	Index      int      `toml:"index" yaml:"index" json:"index"`
	ID         string   `toml:"id" yaml:"id" json:"id"`
	StartedAt  string   `toml:"started_at" yaml:"started_at" json:"started_at"`
	Current    int      `toml:"current" yaml:"current" json:"current"`
	Splits     []string `toml:"splits" yaml:"splits" json:"splits"`
	PausedAt   string   `toml:"paused_at,omitempty" yaml:"paused_at,omitempty" json:"paused_at,omitempty"`
	PauseTotal string   `toml:"pause_total" yaml:"pause_total" json:"pause_total"`
}

func toDocument(snap Snapshot) *document {
	run := snap.Run
	doc := &document{
		Version:  formatVersion,
		Game:     run.Game,
		Category: run.Category,
	}
	for _, s := range run.Segments {
		doc.Segments = append(doc.Segments, segmentDoc{
			Name:         s.Name,
			BestSegment:  formatOptional(s.BestSegment, ""),
			PersonalBest: formatOptional(s.PersonalBest, ""),
		})
	}
	for _, a := range run.Attempts {
		ad := attemptDoc{
			Index:     a.Index,
			ID:        a.ID,
			StartedAt: formatTime(a.StartedAt),
			Duration:  formatOptional(a.Duration, ""),
			Splits:    formatSplits(a.Splits),
			Pending:   a.Pending,
		}
		if a.EndedAt != nil {
			ad.EndedAt = formatTime(*a.EndedAt)
		}
		doc.Attempts = append(doc.Attempts, ad)
	}
	if live := snap.Live; live != nil {
		ld := &liveDoc{
			Index:      live.Index,
			ID:         live.ID,
			StartedAt:  formatTime(live.StartedAt),
			Current:    live.Current,
			Splits:     formatSplits(live.Splits),
			PauseTotal: live.PauseTotal.String(),
		}
		if live.PausedAt != nil {
			ld.PausedAt = formatTime(*live.PausedAt)
		}
		doc.Live = ld
	}
	return doc
}

func fromDocument(doc *document) (Snapshot, error) {
	if doc.Version > formatVersion {
		return Snapshot{}, fmt.Errorf("unsupported version %d", doc.Version)
	}
	if len(doc.Segments) == 0 {
		return Snapshot{}, fmt.Errorf("run has no segments")
	}
	run := &model.Run{Game: doc.Game, Category: doc.Category}
	for i, sd := range doc.Segments {
		best, err := parseOptional(sd.BestSegment)
		if err != nil {
			return Snapshot{}, fmt.Errorf("segment %d best: %w", i, err)
		}
		pb, err := parseOptional(sd.PersonalBest)
		if err != nil {
			return Snapshot{}, fmt.Errorf("segment %d personal best: %w", i, err)
		}
		run.Segments = append(run.Segments, model.Segment{Name: sd.Name, BestSegment: best, PersonalBest: pb})
	}

	prev := 0
	for _, ad := range doc.Attempts {
		if ad.Index <= prev {
			return Snapshot{}, fmt.Errorf("attempt index %d is not increasing", ad.Index)
		}
		prev = ad.Index
		a, err := parseAttempt(ad, len(run.Segments))
		if err != nil {
			return Snapshot{}, fmt.Errorf("attempt %d: %w", ad.Index, err)
		}
		run.Attempts = append(run.Attempts, a)
	}

	snap := Snapshot{Run: run}
	if doc.Live != nil {
		live, err := parseLive(doc.Live, len(run.Segments))
		if err != nil {
			return Snapshot{}, fmt.Errorf("live attempt: %w", err)
		}
		snap.Live = live
	}
	return snap, nil
}

func parseAttempt(ad attemptDoc, segments int) (model.Attempt, error) {
	started, err := parseTime(ad.StartedAt)
	if err != nil {
		return model.Attempt{}, err
	}
	a := model.Attempt{Index: ad.Index, ID: ad.ID, StartedAt: started, Pending: ad.Pending}
	if ad.EndedAt != "" {
		ended, err := parseTime(ad.EndedAt)
		if err != nil {
			return model.Attempt{}, err
		}
		a.EndedAt = &ended
	}
	if a.Duration, err = parseOptional(ad.Duration); err != nil {
		return model.Attempt{}, err
	}
	if a.Splits, err = parseSplits(ad.Splits, segments); err != nil {
		return model.Attempt{}, err
	}
	return a, nil
}

func parseLive(ld *liveDoc, segments int) (*model.LiveAttempt, error) {
	started, err := parseTime(ld.StartedAt)
	if err != nil {
		return nil, err
	}
	if ld.Current < 0 || ld.Current >= segments {
		return nil, fmt.Errorf("current segment %d out of range", ld.Current)
	}
	live := &model.LiveAttempt{Index: ld.Index, ID: ld.ID, StartedAt: started, Current: ld.Current}
	if live.Splits, err = parseSplits(ld.Splits, segments); err != nil {
		return nil, err
	}
	if ld.PausedAt != "" {
		at, err := parseTime(ld.PausedAt)
		if err != nil {
			return nil, err
		}
		live.PausedAt = &at
		live.Paused = true
	}
	if ld.PauseTotal != "" {
		if live.PauseTotal, err = time.ParseDuration(ld.PauseTotal); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}

func formatOptional(d *time.Duration, empty string) string {
	if d == nil {
		return empty
	}
	return d.String()
}

func parseOptional(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == noTime {
		return nil, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatSplits(splits []*time.Duration) []string {
	if len(splits) == 0 {
		return nil
	}
	out := make([]string, len(splits))
	for i, s := range splits {
		out[i] = formatOptional(s, noTime)
	}
	return out
}

func parseSplits(raw []string, segments int) ([]*time.Duration, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > segments {
		return nil, fmt.Errorf("%d splits for %d segments", len(raw), segments)
	}
	out := make([]*time.Duration, segments)
	for i, s := range raw {
		d, err := parseOptional(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
