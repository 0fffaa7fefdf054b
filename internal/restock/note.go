// Package restock reads supplier purchase notes, as pasted from a chat,
// and matches their lines against the ingredient list.
package restock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrEmptyNote is returned when a note has no usable item line.
var ErrEmptyNote = errors.New("purchase note has no item lines")

// Note is a parsed purchase note.
type Note struct {
	Date    time.Time // zero when the note has no date line
	Lines   []Line
	Skipped []string
}

// Line is one purchased item, e.g. "garlic 2kg 80k".
type Line struct {
	Raw         string
	Description string
	Qty         decimal.Decimal
	Unit        string
	Cost        int64 // total paid, 0 when the line has no price
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January, "januari": time.January,
	"feb": time.February, "february": time.February, "februari": time.February,
	"mar": time.March, "march": time.March, "maret": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May, "mei": time.May,
	"jun": time.June, "june": time.June, "juni": time.June,
	"jul": time.July, "july": time.July, "juli": time.July,
	"aug": time.August, "august": time.August, "agu": time.August, "agustus": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October, "okt": time.October, "oktober": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December, "des": time.December, "desember": time.December,
}

// Unit aliases accepted on quantity tokens, mapped to their canonical form.
var units = map[string]string{
	"kg": "kg", "kilo": "kg",
	"g": "g", "gr": "g", "gram": "g",
	"l": "l", "ltr": "l", "liter": "l",
	"ml": "ml",
	"pcs": "pcs", "pc": "pcs", "btr": "pcs",
	"pack": "pack", "pck": "pack", "bks": "pack",
	"box": "box",
	"btl": "btl",
	"ikat": "ikat",
}

// Price suffixes: "80k", "300rb", "1.5jt".
var priceSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"jt", 1_000_000},
	{"rb", 1_000},
	{"k", 1_000},
}

// ParseNote parses a purchase note. An optional first line carries the date
// ("17 okt", "3 march"); every other line needs a quantity with a unit.
// Lines that cannot be read are reported in Skipped.
func ParseNote(text string, now time.Time) (*Note, error) {
	note := &Note{}
	first := true

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if first {
			first = false
			if date, ok := parseDate(line, now); ok {
				note.Date = date
				continue
			}
		}

		item, err := parseLine(line)
		if err != nil {
			note.Skipped = append(note.Skipped, line)
			continue
		}
		note.Lines = append(note.Lines, *item)
	}

	if len(note.Lines) == 0 {
		return nil, ErrEmptyNote
	}
	return note, nil
}

// parseDate reads "<day> <month>". Dates more than 30 days ahead of now are
// taken as last year, for December notes entered in January.
func parseDate(line string, now time.Time) (time.Time, bool) {
	parts := strings.Fields(strings.ToLower(line))
	if len(parts) != 2 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := months[parts[1]]
	if !ok {
		return time.Time{}, false
	}

	date := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if date.After(now.AddDate(0, 0, 30)) {
		date = date.AddDate(-1, 0, 0)
	}
	return date, true
}

func parseLine(line string) (*Line, error) {
	item := &Line{Raw: line}
	var desc []string
	var qtyFound, costFound bool

	for _, tok := range strings.Fields(strings.ToLower(line)) {
		if !costFound {
			if cost, ok := parseCost(tok); ok {
				item.Cost = cost
				costFound = true
				continue
			}
		}
		if !qtyFound {
			if qty, unit, ok := parseQty(tok); ok {
				item.Qty = qty
				item.Unit = unit
				qtyFound = true
				continue
			}
		}
		desc = append(desc, tok)
	}

	if !qtyFound {
		return nil, fmt.Errorf("no quantity in line %q", line)
	}
	if len(desc) == 0 {
		return nil, fmt.Errorf("no item name in line %q", line)
	}
	item.Description = strings.Join(desc, " ")
	return item, nil
}

// parseCost reads a price shortcut into whole rupiah.
func parseCost(tok string) (int64, bool) {
	for _, sf := range priceSuffixes {
		num, found := strings.CutSuffix(tok, sf.suffix)
		if !found || num == "" {
			continue
		}
		d, err := decimal.NewFromString(num)
		if err != nil || !d.IsPositive() {
			continue
		}
		return d.Mul(decimal.NewFromInt(sf.mult)).IntPart(), true
	}
	return 0, false
}

// parseQty reads "2kg" or "0.5l". Only known units count.
func parseQty(tok string) (decimal.Decimal, string, bool) {
	end := strings.IndexFunc(tok, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != ','
	})
	if end <= 0 {
		return decimal.Zero, "", false
	}

	unit, ok := units[tok[end:]]
	if !ok {
		return decimal.Zero, "", false
	}

	qty, err := decimal.NewFromString(strings.ReplaceAll(tok[:end], ",", "."))
	if err != nil || !qty.IsPositive() {
		return decimal.Zero, "", false
	}
	return qty, unit, true
}

var thousand = decimal.NewFromInt(1000)

// Convert expresses qty given in from as the ingredient's unit to.
// Mass and volume convert between their small and large units; anything
// else must match exactly.
func Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	from = canonicalUnit(from)
	to = canonicalUnit(to)

	switch {
	case from == to:
		return qty, true
	case from == "g" && to == "kg", from == "ml" && to == "l":
		return qty.Div(thousand), true
	case from == "kg" && to == "g", from == "l" && to == "ml":
		return qty.Mul(thousand), true
	}
	return decimal.Zero, false
}

func canonicalUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if c, ok := units[u]; ok {
		return c
	}
	return u
}
