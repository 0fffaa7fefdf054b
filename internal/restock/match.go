package restock

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MatchStatus is the outcome of matching one note line.
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	case Unmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// Candidate is an ingredient a line can resolve to.
type Candidate struct {
	ID   uuid.UUID
	Name string
	Unit string
}

type Match struct {
	Status     MatchStatus
	Candidate  *Candidate  // when Matched
	Candidates []Candidate // when Ambiguous
}

// Matcher resolves free-text item names to ingredients by shared words.
type Matcher struct {
	candidates []Candidate
	names      []string   // normalized full names
	words      [][]string // name words per candidate
}

const (
	qualifierWeight = 5
	wordWeight      = 1
)

// Qualifiers tell apart ingredients sharing a base word ("red chili" vs
// "green chili"). A qualifier in the line must appear in the candidate.
var qualifiers = map[string]bool{
	"red": true, "green": true, "white": true, "black": true,
	"dried": true, "fresh": true, "palm": true,
	"merah": true, "hijau": true, "putih": true, "hitam": true,
	"kering": true, "segar": true,
}

func NewMatcher(candidates []Candidate) *Matcher {
	m := &Matcher{
		candidates: candidates,
		names:      make([]string, len(candidates)),
		words:      make([][]string, len(candidates)),
	}
	for i, c := range candidates {
		m.names[i] = normalize(c.Name)
		m.words[i] = strings.Fields(m.names[i])
	}
	return m
}

// Match resolves a line description. An exact name wins outright; otherwise
// the best word overlap wins and ties are reported as ambiguous.
func (m *Matcher) Match(description string) Match {
	text := normalize(description)
	for i, name := range m.names {
		if name == text {
			return Match{Status: Matched, Candidate: &m.candidates[i]}
		}
	}

	input := make(map[string]bool)
	var wanted []string
	for _, w := range strings.Fields(text) {
		input[w] = true
		if qualifiers[w] {
			wanted = append(wanted, w)
		}
	}

	best := 0
	var top []Candidate
	for i, words := range m.words {
		if !hasAll(words, wanted) {
			continue
		}

		score := 0
		for _, w := range words {
			if !input[w] {
				continue
			}
			if qualifiers[w] {
				score += qualifierWeight
			} else {
				score += wordWeight
			}
		}

		switch {
		case score == 0 || score < best:
		case score > best:
			best = score
			top = []Candidate{m.candidates[i]}
		default:
			top = append(top, m.candidates[i])
		}
	}

	switch len(top) {
	case 0:
		return Match{Status: Unmatched}
	case 1:
		return Match{Status: Matched, Candidate: &top[0]}
	default:
		return Match{Status: Ambiguous, Candidates: top}
	}
}

func hasAll(words, wanted []string) bool {
	for _, w := range wanted {
		found := false
		for _, have := range words {
			if have == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize lowercases s and turns punctuation into single spaces.
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
