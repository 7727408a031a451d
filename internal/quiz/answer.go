package quiz

import "strings"

// answer is a user's reply prepared for keyword matching.
type answer struct {
	raw   string // trimmed, original case
	lower string
}

func newAnswer(s string) answer {
	raw := strings.TrimSpace(s)
	return answer{raw: raw, lower: strings.ToLower(raw)}
}

func (a answer) has(subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(a.lower, s) {
			return true
		}
	}
	return false
}

func (a answer) fearsLate() bool    { return a.has("late") }
func (a answer) fearsHeights() bool { return a.has("height", "tall") }
func (a answer) choseTaiwan() bool  { return a.has("taiwan") }
func (a answer) choseChina() bool   { return a.has("china") }

// picksIgnorance is true when the answer sides with the man who can't explain trebuchets.
func (a answer) picksIgnorance() bool { return a.has("can't", "cant", "second") }

// waterFirst is true when "water" is mentioned before "tooth" (or "tooth" is absent).
func (a answer) waterFirst() bool {
	w := strings.Index(a.lower, "water")
	if w < 0 {
		return false
	}
	t := strings.Index(a.lower, "tooth")
	return t < 0 || w < t
}

// food maps the answer onto a canonical last-meal name, or echoes it.
func (a answer) food() string {
	switch {
	case a.has("sushi"):
		return "sushi"
	case a.has("taco"):
		return "tacos"
	case a.has("pizza"):
		return "pizza"
	case a.has("burger"):
		return "burgers"
	default:
		return a.raw
	}
}
