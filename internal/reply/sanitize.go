package reply

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Mode selects the sanitizing rules and the sentence cap.
type Mode int

const (
	ModeTesting Mode = iota
	ModeChat
)

// MaxSentences is the number of sentences a reply is cut down to.
func (m Mode) MaxSentences() int {
	if m == ModeTesting {
		return 2
	}
	return 3
}

func (m Mode) String() string {
	if m == ModeTesting {
		return "testing"
	}
	return "chat"
}

var (
	speakerLabel  = regexp.MustCompile(`(?im)^[ \t]*(?:(?:Ryan|Assistant|Bot|User)[ \t]*:[ \t]*)+`)
	bracketNote   = regexp.MustCompile(`\[[^\]]{0,30}\]`)
	repliedAs     = regexp.MustCompile(`(?i)replied as\s*:?\s*`)
	answerLabel   = regexp.MustCompile(`(?i)answer\s*:\s*`)
	leadingPeriod = regexp.MustCompile(`(?m)^\.[ \t]*`)
	domainToken   = regexp.MustCompile(`(?i)\b\w+\.(?:com|org|net|io|co|me)\b`)
)

const quoteChars = "\"'“”‘’"

// Sanitize strips artifacts the model tends to produce and caps the reply to
// mode.MaxSentences() sentences. Steps run in a fixed order, each on the
// previous step's output.
func Sanitize(text string, mode Mode) string {
	out := speakerLabel.ReplaceAllString(text, "")
	out = bracketNote.ReplaceAllString(out, "")
	if mode == ModeTesting {
		out = repliedAs.ReplaceAllString(out, "")
		out = answerLabel.ReplaceAllString(out, "")
		out = leadingPeriod.ReplaceAllString(out, "")
	}
	out = dropDomains(out)
	out = trimQuotes(out)
	return capSentences(out, mode.MaxSentences())
}

// trimQuotes peels surrounding whitespace and quote characters until neither
// is left at either end, so nested quoting like `" 'hi' "` is fully removed.
func trimQuotes(s string) string {
	for {
		next := strings.Trim(strings.TrimSpace(s), quoteChars)
		if next == s {
			return s
		}
		s = next
	}
}

// dropDomains removes every sentence that mentions a domain-like token. If
// that would leave nothing, only the tokens themselves are removed.
func dropDomains(s string) string {
	if !domainToken.MatchString(s) {
		return s
	}
	// Mask tokens with same-length NULs so their dots don't split sentences.
	masked := domainToken.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat("\x00", len(m))
	})
	var (
		kept strings.Builder
		pos  int
	)
	for _, sentence := range splitSentences(masked) {
		if !strings.Contains(sentence, "\x00") {
			kept.WriteString(s[pos : pos+len(sentence)])
		}
		pos += len(sentence)
	}
	if strings.TrimSpace(kept.String()) != "" {
		return kept.String()
	}
	return domainToken.ReplaceAllString(s, "")
}

func capSentences(s string, limit int) string {
	sentences := splitSentences(s)
	if len(sentences) <= limit {
		return s
	}
	return strings.TrimSpace(strings.Join(sentences[:limit], ""))
}

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

// splitSentences cuts s after each run of terminators that follows some
// non-terminator text. Concatenating the result yields s again.
func splitSentences(s string) []string {
	var (
		out        []string
		start      int
		hasContent bool
	)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isTerminator(r) {
			hasContent = true
			i += size
			continue
		}
		for i < len(s) && isTerminator(rune(s[i])) {
			i++
		}
		if hasContent {
			out = append(out, s[start:i])
			start = i
			hasContent = false
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
