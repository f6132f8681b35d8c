package tui

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "m:ss.cc", or "h:mm:ss.cc" past an hour.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	cs := int64(d / (10 * time.Millisecond))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	c := cs % 100
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d.%02d", sign, h, m, s, c)
	}
	return fmt.Sprintf("%s%d:%02d.%02d", sign, m, s, c)
}

// FormatDelta renders a signed difference with tenths, e.g. "+4.2" or "-1:03.5".
func FormatDelta(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	ds := int64(d / (100 * time.Millisecond))
	h := ds / 36000
	m := ds / 600 % 60
	s := ds / 10 % 60
	t := ds % 10
	switch {
	case h > 0:
		return fmt.Sprintf("%s%d:%02d:%02d.%d", sign, h, m, s, t)
	case m > 0:
		return fmt.Sprintf("%s%d:%02d.%d", sign, m, s, t)
	default:
		return fmt.Sprintf("%s%d.%d", sign, s, t)
	}
}

// FormatOptional renders d or a dash when it is absent.
func FormatOptional(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return FormatDuration(*d)
}
