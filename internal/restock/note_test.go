package restock

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var refNow = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		year  int
		month time.Month
		day   int
		ok    bool
	}{
		{"17 okt", 2026, time.October, 17, true},
		{"3 march", 2026, time.March, 3, true},
		{"15 mei", 2026, time.May, 15, true},
		{"1 Aug", 2026, time.August, 1, true},
		{"10 november", 2026, time.November, 10, true},
		{"28 des", 2025, time.December, 28, true},
		{"32 jan", 0, 0, 0, false},
		{"garlic 2kg", 0, 0, 0, false},
		{"not a date", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			date, ok := parseDate(tt.input, refNow)
			if ok != tt.ok {
				t.Fatalf("parseDate(%q): got ok=%v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if date.Year() != tt.year || date.Month() != tt.month || date.Day() != tt.day {
				t.Errorf("parseDate(%q): got %s, want %d-%02d-%02d", tt.input, date.Format("2006-01-02"), tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestParseCost(t *testing.T) {
	tests := []struct {
		input string
		cost  int64
		ok    bool
	}{
		{"80k", 80000, true},
		{"1.5jt", 1500000, true},
		{"300rb", 300000, true},
		{"25.5k", 25500, true},
		{"3pack", 0, false},
		{"2kg", 0, false},
		{"k", 0, false},
		{"garlic", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cost, ok := parseCost(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseCost(%q): got ok=%v, want %v", tt.input, ok, tt.ok)
			}
			if ok && cost != tt.cost {
				t.Errorf("parseCost(%q): got %d, want %d", tt.input, cost, tt.cost)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		input string
		desc  string
		qty   string
		unit  string
		cost  int64
	}{
		{"garlic 2kg 80k", "garlic", "2", "kg", 80000},
		{"Rice Noodles 10kg 300k", "rice noodles", "10", "kg", 300000},
		{"thai tea leaves 500gr 75k", "thai tea leaves", "500", "g", 75000},
		{"coconut milk 2,5l", "coconut milk", "2.5", "l", 0},
		{"eggs 30btr 60k", "eggs", "30", "pcs", 60000},
		{"palm sugar 3pack 45k", "palm sugar", "3", "pack", 45000},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			line, err := parseLine(tt.input)
			if err != nil {
				t.Fatalf("parseLine(%q): %v", tt.input, err)
			}
			if line.Description != tt.desc {
				t.Errorf("description: got %q, want %q", line.Description, tt.desc)
			}
			if !line.Qty.Equal(decimal.RequireFromString(tt.qty)) {
				t.Errorf("qty: got %s, want %s", line.Qty, tt.qty)
			}
			if line.Unit != tt.unit {
				t.Errorf("unit: got %q, want %q", line.Unit, tt.unit)
			}
			if line.Cost != tt.cost {
				t.Errorf("cost: got %d, want %d", line.Cost, tt.cost)
			}
		})
	}
}

func TestParseLine_Rejects(t *testing.T) {
	for _, input := range []string{"garlic 80k", "2kg 80k", "delivery fee"} {
		if _, err := parseLine(input); err == nil {
			t.Errorf("parseLine(%q): expected error", input)
		}
	}
}

func TestParseNote(t *testing.T) {
	text := "17 okt\ngarlic 2kg 80k\n\nrice noodles 10kg 300k\nparking 5k\nthai tea 500g 75k\n"

	note, err := ParseNote(text, refNow)
	if err != nil {
		t.Fatalf("ParseNote: %v", err)
	}

	if note.Date.Month() != time.October || note.Date.Day() != 17 {
		t.Errorf("date: got %v, want Oct 17", note.Date)
	}
	if len(note.Lines) != 3 {
		t.Fatalf("lines: got %d, want 3", len(note.Lines))
	}
	if note.Lines[1].Description != "rice noodles" {
		t.Errorf("line 1: got %q", note.Lines[1].Description)
	}
	if len(note.Skipped) != 1 || note.Skipped[0] != "parking 5k" {
		t.Errorf("skipped: got %v, want [parking 5k]", note.Skipped)
	}
}

func TestParseNote_WithoutDate(t *testing.T) {
	note, err := ParseNote("garlic 2kg 80k", refNow)
	if err != nil {
		t.Fatalf("ParseNote: %v", err)
	}
	if !note.Date.IsZero() {
		t.Errorf("date: got %v, want zero", note.Date)
	}
	if len(note.Lines) != 1 {
		t.Errorf("lines: got %d, want 1", len(note.Lines))
	}
}

func TestParseNote_Empty(t *testing.T) {
	for _, text := range []string{"", "17 okt", "17 okt\nparking 5k"} {
		if _, err := ParseNote(text, refNow); err != ErrEmptyNote {
			t.Errorf("ParseNote(%q): got %v, want ErrEmptyNote", text, err)
		}
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		qty, from, to string
		want          string
		ok            bool
	}{
		{"500", "g", "kg", "0.5", true},
		{"2", "kg", "kg", "2", true},
		{"250", "ml", "l", "0.25", true},
		{"1.5", "l", "ml", "1500", true},
		{"3", "gr", "kg", "0.003", true},
		{"2", "pcs", "kg", "", false},
		{"1", "kg", "l", "", false},
	}

	for _, tt := range tests {
		got, ok := Convert(decimal.RequireFromString(tt.qty), tt.from, tt.to)
		if ok != tt.ok {
			t.Errorf("Convert(%s %s -> %s): got ok=%v, want %v", tt.qty, tt.from, tt.to, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Convert(%s %s -> %s): got %s, want %s", tt.qty, tt.from, tt.to, got, tt.want)
		}
	}
}
