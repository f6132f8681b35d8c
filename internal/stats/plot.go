package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values in seconds.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisWidth           = 10
	axisSeparator       = " ┤ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// Every series after the first is drawn with gaps so overlapping lines stay
// distinguishable without color.
var dashPeriods = []int{1, 4, 6}

var palette = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m"}

// canvas is a grid of braille cells, two dots wide and four dots tall.
type canvas struct {
	width, height int
	cells         [][]uint8
	owner         [][]int
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.cells = make([][]uint8, height)
	c.owner = make([][]int, height)
	for y := range c.cells {
		c.cells[y] = make([]uint8, width)
		c.owner[y] = make([]int, width)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (c *canvas) dot(x, y, series int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.width || cy >= c.height {
		return
	}
	c.cells[cy][cx] |= dotBits[x%2][y%4]
	if c.owner[cy][cx] < 0 {
		c.owner[cy][cx] = series
	}
}

// line draws a Bresenham segment between two dot coordinates.
func (c *canvas) line(x0, y0, x1, y1, series, period int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		if period <= 1 || x0%period < period/2 {
			c.dot(x0, y0, series)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) row(y int, useColor bool) string {
	var b strings.Builder
	for x := 0; x < c.width; x++ {
		ch := rune(0x2800 + int(c.cells[y][x]))
		if useColor && c.owner[y][x] >= 0 {
			b.WriteString(palette[c.owner[y][x]%len(palette)])
			b.WriteRune(ch)
			b.WriteString(colorReset)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Plot renders series sharing one duration axis. Width and height are in
// terminal cells; a zero width fits the terminal.
func Plot(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	n := 0
	for _, s := range series {
		n = max(n, len(s.Values))
	}
	if n == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		l, h := bounds(s.Values)
		if len(s.Values) > 0 {
			lo, hi = math.Min(lo, l), math.Max(hi, h)
		}
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}

	c := newCanvas(width, height)
	dotsX, dotsY := width*2, height*4
	for si, s := range series {
		values := resample(s.Values, dotsX/2)
		period := dashPeriods[si%len(dashPeriods)]
		prevX, prevY := -1, -1
		for i, v := range values {
			x := i * 2
			y := int(math.Round((hi - v) / (hi - lo) * float64(dotsY-1)))
			if prevX >= 0 {
				c.line(prevX, prevY, x, y, si, period)
			} else {
				c.dot(x, y, si)
			}
			prevX, prevY = x, y
		}
	}

	lines := []string{}
	if title != "" {
		lines = append(lines, title)
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = axisLabel(hi)
		case height - 1:
			label = axisLabel(lo)
		case height / 2:
			if height > 2 {
				label = axisLabel((hi + lo) / 2)
			}
		}
		lines = append(lines, runewidth.FillLeft(label, axisWidth)+axisSeparator+c.row(y, useColor))
	}
	lines = append(lines, legend(series, useColor), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func axisLabel(seconds float64) string {
	return formatDuration(time.Duration(seconds * float64(time.Second)))
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		marker := "━"
		if dashPeriods[i%len(dashPeriods)] > 1 {
			marker = "┅"
		}
		label := marker + " " + s.Name
		if useColor {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Repeat(" ", axisWidth) + "   " + strings.Join(parts, "  ")
}

// resample stretches or averages values to exactly n points.
func resample(values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if len(values) >= n {
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := min(int(pos), len(values)-2)
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisWidth-runewidth.StringWidth(axisSeparator), minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether ANSI colors should be written to w.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
