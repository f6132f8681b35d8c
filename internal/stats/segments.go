package stats

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

// SegmentRow is the per-segment view of the archive.
type SegmentRow struct {
	Index   int
	Name    string
	Count   int
	Best    time.Duration
	Average time.Duration
	Latest  time.Duration
}

// TimeSave is how much the average segment loses to the best one.
func (r SegmentRow) TimeSave() time.Duration {
	return r.Average - r.Best
}

// SegmentRows converts aggregates into rows in segment order.
func SegmentRows(aggs []model.SegmentAggregate) []SegmentRow {
	rows := make([]SegmentRow, 0, len(aggs))
	for _, agg := range aggs {
		row := SegmentRow{
			Index:  agg.Index,
			Name:   agg.Name,
			Count:  agg.Count,
			Best:   time.Duration(agg.BestMs) * time.Millisecond,
			Latest: time.Duration(agg.LatestMs) * time.Millisecond,
		}
		if agg.Count > 0 {
			row.Average = time.Duration(agg.SumMs/int64(agg.Count)) * time.Millisecond
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows
}

// TopTimeSaves returns the n segments with the largest time save.
func TopTimeSaves(rows []SegmentRow, n int) []SegmentRow {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	ranked := append([]SegmentRow(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TimeSave() == ranked[j].TimeSave() {
			return ranked[i].Index < ranked[j].Index
		}
		return ranked[i].TimeSave() > ranked[j].TimeSave()
	})
	return ranked[:min(n, len(ranked))]
}

// SegmentTable returns the header and cells of the segment table.
func SegmentTable(rows []SegmentRow) ([]string, [][]string) {
	headers := []string{"#", "Segment", "Best", "Average", "Latest", "Time Save", "Count"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{
			fmt.Sprintf("%d", r.Index+1),
			r.Name,
			formatDuration(r.Best),
			formatDuration(r.Average),
			formatDuration(r.Latest),
			formatDuration(r.TimeSave()),
			fmt.Sprintf("%d", r.Count),
		})
	}
	return headers, cells
}

// RenderSegmentTable prints per-segment aggregates.
func RenderSegmentTable(w io.Writer, rows []SegmentRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No segment times found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Segments"); err != nil {
		return err
	}
	headers, cells := SegmentTable(rows)
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(headers, cells, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
