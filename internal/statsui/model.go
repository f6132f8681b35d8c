// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tsplit/internal/model"
	"github.com/verte-zerg/tsplit/internal/stats"
)

const (
	tabOverview = iota
	tabSegments
)

const (
	plotHeight   = 8
	topTimeSaves = 3
)

const (
	fieldGame = iota
	fieldCategory
	fieldSince
	fieldLast
	fieldWindow
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	src stats.Source
	cfg model.StatsConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	segments  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats UI model.
func NewModel(src stats.Source, cfg model.StatsConfig) *Model {
	m := &Model{
		src:      src,
		cfg:      cfg,
		tabs:     []string{"Overview", "Segments"},
		overview: viewport.New(0, 0),
		segments: table.New(table.WithColumns(segmentColumns(80)), table.WithHeight(1)),
	}
	m.segments.SetStyles(tableStyles())
	m.filterInputs = []textinput.Model{
		newFilterInput("Game: "),
		newFilterInput("Category: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.refreshReport()
	return m
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			return m, m.startFilter()
		}
		var cmd tea.Cmd
		if m.activeTab == tabSegments {
			m.segments, cmd = m.segments.Update(msg)
		} else {
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.segments.SetColumns(segmentColumns(m.width))
	m.segments.SetWidth(m.width)
	// Header row and its border take two lines.
	m.segments.SetHeight(max(1, bodyHeight-2))
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	if m.activeTab == tabSegments {
		m.segments.Focus()
	} else {
		m.segments.Blur()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return tabs + "\n" + headerStyle.Render(runewidth.Truncate(m.filterSummary(), m.width, "..."))
}

func (m *Model) filterSummary() string {
	game, category, since, last := "any", "any", "any", "all"
	if m.cfg.Game != "" {
		game = m.cfg.Game
	}
	if m.cfg.Category != "" {
		category = m.cfg.Category
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Filter: game=%s  category=%s  since=%s  last=%s  window=%d", game, category, since, last, m.cfg.CurveWindow)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Window: -/=  Filter: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabSegments {
		if len(m.segments.Rows()) == 0 {
			return "No segment times found."
		}
		return m.segments.View()
	}
	return m.overview.View()
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.overview.SetContent("Failed to load stats.")
		m.segments.SetRows(nil)
		return
	}
	m.errMsg = ""
	m.report = report
	m.renderContents()
}

func (m *Model) renderContents() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report, m.cfg.CurveWindow, width))
	_, cells := stats.SegmentTable(stats.SegmentRows(m.report.SegmentsAll))
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c)
	}
	m.segments.SetRows(rows)
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Attempts) == 0 {
		return "No attempts found."
	}
	sections := []string{renderSummaryCards(report.Summary(), width)}
	if top := stats.TopTimeSaves(stats.SegmentRows(report.SegmentsWindow), topTimeSaves); len(top) > 0 {
		lines := []string{headerStyle.Render(fmt.Sprintf("Largest time saves (last %d attempts)", len(report.WindowIDs)))}
		for _, r := range top {
			lines = append(lines, fmt.Sprintf("  %s  %s", runewidth.FillRight(r.Name, 20), formatDuration(r.TimeSave())))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	var buf bytes.Buffer
	if err := stats.RenderCurve(&buf, report.Attempts, window, width, plotHeight, true); err != nil {
		sections = append(sections, fmt.Sprintf("Failed to render curve: %v", err))
	} else if buf.Len() > 0 {
		sections = append(sections, strings.TrimRight(buf.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func renderSummaryCards(sum stats.Summary, width int) string {
	cards := []string{
		metricCard("Attempts", strconv.Itoa(sum.Attempts)),
		metricCard("Finished", fmt.Sprintf("%d (%.0f%%)", sum.Finished, sum.CompletionRate()*100)),
		metricCard("Best", optionalDuration(sum.Best)),
		metricCard("Median", optionalDuration(sum.Median)),
		metricCard("Sum of Best", optionalDuration(sum.SumOfBest)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func optionalDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return formatDuration(d)
}

func formatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	h := int(d / time.Hour)
	mi := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	cs := int(d/(10*time.Millisecond)) % 100
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", h, mi, s, cs)
	}
	return fmt.Sprintf("%d:%02d.%02d", mi, s, cs)
}

func segmentColumns(width int) []table.Column {
	const fixed = 4 + 10*4 + 6
	nameWidth := max(12, width-fixed-8)
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Segment", Width: nameWidth},
		{Title: "Best", Width: 10},
		{Title: "Average", Width: 10},
		{Title: "Latest", Width: 10},
		{Title: "Time Save", Width: 10},
		{Title: "Count", Width: 6},
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() tea.Cmd {
	m.filterMode = true
	m.filterError = ""
	m.filterInputs[fieldGame].SetValue(m.cfg.Game)
	m.filterInputs[fieldCategory].SetValue(m.cfg.Category)
	m.filterInputs[fieldSince].SetValue("")
	if m.cfg.Since != nil {
		m.filterInputs[fieldSince].SetValue(m.cfg.Since.Format("2006-01-02"))
	}
	m.filterInputs[fieldLast].SetValue("")
	if m.cfg.Last > 0 {
		m.filterInputs[fieldLast].SetValue(strconv.Itoa(m.cfg.Last))
	}
	m.filterInputs[fieldWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
	return m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := m.parseFilter()
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) parseFilter() (model.StatsConfig, error) {
	cfg := model.StatsConfig{
		Game:     strings.TrimSpace(m.filterInputs[fieldGame].Value()),
		Category: strings.TrimSpace(m.filterInputs[fieldCategory].Value()),
	}
	if in := strings.TrimSpace(m.filterInputs[fieldSince].Value()); in != "" {
		parsed, err := time.ParseInLocation("2006-01-02", in, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &parsed
	}
	if in := strings.TrimSpace(m.filterInputs[fieldLast].Value()); in != "" {
		parsed, err := strconv.Atoi(in)
		if err != nil || parsed < 0 {
			return cfg, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = parsed
	}
	cfg.CurveWindow = 1
	if in := strings.TrimSpace(m.filterInputs[fieldWindow].Value()); in != "" {
		parsed, err := strconv.Atoi(in)
		if err != nil || parsed < 1 {
			return cfg, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = parsed
	}
	return cfg, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
