package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	run := model.NewRun("Breath of the Wild", "100%", []string{"Paraglider", "IST"})
	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		end := start.Add(30 * time.Minute)
		attempt := model.Attempt{
			Index:     i + 1,
			ID:        "attempt-" + string(rune('a'+i)),
			StartedAt: start,
			EndedAt:   &end,
			Splits: []*time.Duration{
				model.Dur(time.Duration(300+i*10) * time.Second),
				model.Dur(time.Duration(1800-i*60) * time.Second),
			},
		}
		attempt.Duration = model.CopyDuration(attempt.Splits[1])
		if _, err := st.InsertAttempt(ctx, run, attempt); err != nil {
			t.Fatalf("insert attempt: %v", err)
		}
		ids = append(ids, attempt.ID)
	}

	cfg := model.StatsConfig{Game: run.Game, Last: 2, CurveWindow: 1}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(report.Attempts))
	}
	if report.Attempts[0].ID != ids[1] || report.Attempts[1].ID != ids[2] {
		t.Fatalf("unexpected attempt ids: %+v", report.Attempts)
	}
	if len(report.WindowIDs) != 1 || report.WindowIDs[0] != ids[2] {
		t.Fatalf("unexpected window ids: %v", report.WindowIDs)
	}
	if len(report.SegmentsAll) != 2 || report.SegmentsAll[0].Count != 2 {
		t.Fatalf("unexpected segment aggregates: %+v", report.SegmentsAll)
	}
	if len(report.SegmentsWindow) != 2 || report.SegmentsWindow[0].Count != 1 {
		t.Fatalf("unexpected window aggregates: %+v", report.SegmentsWindow)
	}

	sum := report.Summary()
	if sum.Finished != 2 || sum.Best != 1680*time.Second || sum.Mean != 1710*time.Second {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	// Best segments: 310s and 1680-320=1360s.
	if sum.SumOfBest != 1670*time.Second || sum.PossibleTS != 10*time.Second {
		t.Fatalf("unexpected sum of best: %+v", sum)
	}

	var buf bytes.Buffer
	if err := RenderSummary(&buf, sum); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Sum of Best: 27:50.00") {
		t.Fatalf("unexpected summary output:\n%s", buf.String())
	}
}

func TestSummarizeUnfinished(t *testing.T) {
	attempts := []model.AttemptAggregate{{ID: "a"}, {ID: "b", Finished: true, DurationMs: 60000}}
	sum := Summarize(attempts, nil, 2)
	if sum.Attempts != 2 || sum.Finished != 1 || sum.CompletionRate() != 0.5 || sum.Median != time.Minute {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.SumOfBest != 0 {
		t.Fatalf("sum of best needs every segment")
	}
}

func TestMovingAverageAndSparkline(t *testing.T) {
	avg := MovingAverage([]float64{2, 4, 6, 8}, 2)
	if avg[0] != 2 || avg[1] != 3 || avg[3] != 7 {
		t.Fatalf("unexpected moving average: %v", avg)
	}
	if got := Sparkline([]float64{1, 2, 3}); len(got) != 3 || got[0] != ' ' || got[2] != '@' {
		t.Fatalf("unexpected sparkline %q", got)
	}
}
