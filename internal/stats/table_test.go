package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Segment", "Best", "Count"}
	rows := [][]string{
		{"IST", "4:50.00", "12"},
		{"Vah Medoh", "15:00.00", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Segment       Best Count" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "IST        4:50.00    12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Vah Medoh 15:00.00     3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "N"}, [][]string{{"神獣", "1"}, {"ab", "22"}}, map[int]bool{1: true})
	if lines[1] != "神獣  1" || lines[2] != "ab   22" {
		t.Fatalf("unexpected wide rune alignment: %q", lines)
	}
}
