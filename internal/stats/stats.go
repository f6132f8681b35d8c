// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/tsplit/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates archived attempts of one or more runs.
type Summary struct {
	Attempts   int
	Finished   int
	Best       time.Duration
	Mean       time.Duration
	Median     time.Duration
	SumOfBest  time.Duration
	PossibleTS time.Duration
}

// CompletionRate returns the share of attempts that reached the last split.
func (s Summary) CompletionRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Finished) / float64(s.Attempts)
}

// Summarize computes a Summary. SumOfBest is only set when every segment
// has at least one recorded time.
func Summarize(attempts []model.AttemptAggregate, segments []model.SegmentAggregate, segmentCount int) Summary {
	sum := Summary{Attempts: len(attempts)}
	times := FinishedTimes(attempts)
	sum.Finished = len(times)
	if len(times) > 0 {
		sorted := append([]time.Duration(nil), times...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		sum.Best = sorted[0]
		var total time.Duration
		for _, d := range sorted {
			total += d
		}
		sum.Mean = total / time.Duration(len(sorted))
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			sum.Median = (sorted[mid-1] + sorted[mid]) / 2
		} else {
			sum.Median = sorted[mid]
		}
	}
	if segmentCount > 0 && len(segments) == segmentCount {
		for _, s := range segments {
			sum.SumOfBest += time.Duration(s.BestMs) * time.Millisecond
		}
		if sum.Best > 0 {
			sum.PossibleTS = sum.Best - sum.SumOfBest
		}
	}
	return sum
}

// FinishedTimes returns the outcome durations of finished attempts in order.
func FinishedTimes(attempts []model.AttemptAggregate) []time.Duration {
	out := make([]time.Duration, 0, len(attempts))
	for _, a := range attempts {
		if a.Finished {
			out = append(out, time.Duration(a.DurationMs)*time.Millisecond)
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := bounds(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// RenderSummary prints the summary block.
func RenderSummary(w io.Writer, sum Summary) error {
	if sum.Attempts == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", sum.Attempts),
		fmt.Sprintf("Finished: %d (%.1f%%)", sum.Finished, sum.CompletionRate()*100),
	}
	if sum.Finished > 0 {
		lines = append(lines,
			"Best: "+formatDuration(sum.Best),
			"Mean: "+formatDuration(sum.Mean),
			"Median: "+formatDuration(sum.Median),
		)
	}
	if sum.SumOfBest > 0 {
		lines = append(lines, "Sum of Best: "+formatDuration(sum.SumOfBest))
		if sum.PossibleTS > 0 {
			lines = append(lines, "Possible Time Save: "+formatDuration(sum.PossibleTS))
		}
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve plots finished attempt times and their moving average.
func RenderCurve(w io.Writer, attempts []model.AttemptAggregate, window, totalWidth, height int, useColor bool) error {
	times := FinishedTimes(attempts)
	if len(times) == 0 {
		return nil
	}
	values := make([]float64, len(times))
	for i, d := range times {
		values[i] = d.Seconds()
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return Plot(w, "Finished Attempts", []Series{
		{Name: "Time", Values: values},
		{Name: fmt.Sprintf("Average of %d", max(window, 1)), Values: MovingAverage(values, window)},
	}, width, height, useColor)
}

func formatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	cs := int(d/(10*time.Millisecond)) % 100
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
	}
	return fmt.Sprintf("%d:%02d.%02d", m, s, cs)
}
