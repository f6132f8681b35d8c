package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tsplit/internal/session"
	"github.com/verte-zerg/tsplit/internal/timer"
)

// Renderer turns a session view into a frame.
type Renderer interface {
	Render(view session.View, width, height int) string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	rowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#2A3B5C"))
	aheadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	behindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	goldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	timerStyle    = lipgloss.NewStyle().Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

const (
	deltaWidth   = 9
	timeWidth    = 11
	minNameWidth = 8
	maxWidth     = 60
	chromeHeight = 6
)

// SplitsRenderer draws the classic splits table with a large timer.
type SplitsRenderer struct{}

// Render implements Renderer.
func (SplitsRenderer) Render(view session.View, width, height int) string {
	if width <= 0 || width > maxWidth {
		width = maxWidth
	}
	nameWidth := width - deltaWidth - timeWidth - 2
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}
	rowWidth := nameWidth + deltaWidth + timeWidth + 2

	lines := []string{
		titleStyle.Render(fitCell(view.Game, rowWidth)),
		subtitleStyle.Render(fitCell(view.Category, rowWidth-12) + padLeft(attemptLabel(view), 12)),
		mutedStyle.Render(strings.Repeat("─", rowWidth)),
	}
	first, last := visibleRows(len(view.Segments), view.Current, height)
	for i := first; i < last; i++ {
		lines = append(lines, renderRow(view, i, nameWidth))
	}
	lines = append(lines,
		mutedStyle.Render(strings.Repeat("─", rowWidth)),
		renderTimer(view, rowWidth),
		renderStatus(view, rowWidth),
	)
	return strings.Join(lines, "\n")
}

func attemptLabel(view session.View) string {
	return fmt.Sprintf("%d/%d", view.FinishedCount, view.AttemptCount)
}

// visibleRows keeps the current segment on screen when the terminal is too
// short for every row.
func visibleRows(total, current, height int) (int, int) {
	room := height - chromeHeight
	if height <= 0 || room >= total {
		return 0, total
	}
	if room < 1 {
		room = 1
	}
	first := current - room/2
	if first < 0 {
		first = 0
	}
	if first+room > total {
		first = total - room
	}
	return first, first + room
}

func renderRow(view session.View, i, nameWidth int) string {
	seg := view.Segments[i]
	active := (view.Phase == timer.Running || view.Phase == timer.Paused) && i == view.Current

	deltaText, deltaStyle := "", rowStyle
	switch {
	case seg.Split != nil:
		if d, ok := view.Delta(i); ok {
			deltaText = FormatDelta(d)
			deltaStyle = deltaColor(d)
		}
		if isGold(view, i) {
			deltaStyle = goldStyle
		}
	case active:
		if d, ok := view.LiveDelta(); ok {
			deltaText = FormatDelta(d)
			deltaStyle = behindStyle
		}
	}

	timeText := FormatOptional(seg.Comparison)
	switch {
	case seg.Split != nil:
		timeText = FormatDuration(*seg.Split)
	case seg.Skipped:
		timeText = "-"
	}

	base := rowStyle
	if active {
		base = currentStyle
	}
	name := base.Render(fitCell(seg.Name, nameWidth) + " ")
	delta := deltaStyle.Inherit(base).Render(padLeft(deltaText, deltaWidth))
	value := base.Render(" " + padLeft(timeText, timeWidth))
	return name + delta + value
}

// isGold reports whether segment i beat the stored best segment.
func isGold(view session.View, i int) bool {
	best := view.Segments[i].BestSegment
	if best == nil {
		return false
	}
	splits := make([]*time.Duration, len(view.Segments))
	for j, s := range view.Segments {
		splits[j] = s.Split
	}
	seg, ok := timer.SegmentTime(splits, i)
	return ok && seg < *best
}

func deltaColor(d time.Duration) lipgloss.Style {
	if d < 0 {
		return aheadStyle
	}
	return behindStyle
}

func renderTimer(view session.View, width int) string {
	style := timerStyle.Foreground(lipgloss.Color("#3FB950"))
	switch view.Phase {
	case timer.NotStarted, timer.Paused:
		style = timerStyle.Foreground(lipgloss.Color("#8C8C8C"))
	case timer.Running:
		if _, behind := view.LiveDelta(); behind {
			style = timerStyle.Foreground(lipgloss.Color("#FF4D4F"))
		}
	case timer.Ended:
		last := len(view.Segments) - 1
		if d, ok := view.Delta(last); ok && d > 0 {
			style = timerStyle.Foreground(lipgloss.Color("#FF4D4F"))
		}
	}
	return style.Render(padLeft(FormatDuration(view.Elapsed), width))
}

func renderStatus(view session.View, width int) string {
	parts := []string{view.Comparison}
	if view.Phase == timer.Paused {
		parts = append(parts, "paused")
	}
	if view.Dirty {
		parts = append(parts, "● unsaved")
	}
	status := footerStyle.Render(fitCell(strings.Join(parts, " · "), width))
	if view.SaveErr != nil {
		status += "\n" + errorStyle.Render(fitCell("save failed: "+view.SaveErr.Error(), width))
	}
	return status
}

// fitCell truncates or pads s to exactly width display cells.
func fitCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func padLeft(s string, width int) string {
	if runewidth.StringWidth(s) >= width {
		return s
	}
	return runewidth.FillLeft(s, width)
}
