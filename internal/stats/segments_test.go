package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

func TestSegmentRowsAndTimeSaves(t *testing.T) {
	aggs := []model.SegmentAggregate{
		{Index: 1, Name: "IST", Count: 2, BestMs: 500000, SumMs: 1100000, LatestMs: 600000},
		{Index: 0, Name: "Paraglider", Count: 4, BestMs: 290000, SumMs: 1200000, LatestMs: 300000},
		{Index: 2, Name: "Vah Medoh", Count: 1, BestMs: 900000, SumMs: 900000, LatestMs: 900000},
	}
	rows := SegmentRows(aggs)
	if rows[0].Name != "Paraglider" || rows[0].Average != 300*time.Second {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	top := TopTimeSaves(rows, 2)
	if len(top) != 2 || top[0].Name != "IST" || top[1].Name != "Paraglider" {
		t.Fatalf("unexpected ranking: %+v", top)
	}
	if top[0].TimeSave() != 50*time.Second {
		t.Fatalf("expected 50s time save, got %v", top[0].TimeSave())
	}
	if TopTimeSaves(rows, 0) != nil {
		t.Fatalf("expected no rows for n=0")
	}
}

func TestRenderSegmentTable(t *testing.T) {
	var buf bytes.Buffer
	rows := SegmentRows([]model.SegmentAggregate{{Index: 0, Name: "Paraglider", Count: 1, BestMs: 300000, SumMs: 300000, LatestMs: 300000}})
	if err := RenderSegmentTable(&buf, rows); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Paraglider") || !strings.Contains(out, "5:00.00") {
		t.Fatalf("unexpected table: %s", out)
	}
}
