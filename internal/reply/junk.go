package reply

import (
	"regexp"
	"unicode/utf8"
)

// junkPattern matches replies that must never be shown: leaked SMS artifacts
// from the training data (codes, contact phrasing) and inappropriate content.
// A digit run only counts when it sits next to a code or PIN mention.
var junkPattern = regexp.MustCompile(`(?i)personal information|\bverb\b.*\bnoun\b|📱📱|verification code|\bwikimedia\b|\bmember since\b|\bbikini\b|\bsexy\b|\bnaked\b|\bundress|\b(?:code|pin|otp)\b[^\d\n]{0,20}\d{4,}|\b\d{4,}\b[^\d\n]{0,20}\b(?:code|pin|otp)\b`)

// MinLength is the shortest reply, in runes, accepted from the model.
const MinLength = 3

// IsJunk reports whether text matches any disallowed pattern.
func IsJunk(text string) bool {
	return junkPattern.MatchString(text)
}

// Acceptable reports whether a sanitized model reply may be shown in place of
// a fallback, and if not, why.
func Acceptable(text string) (bool, string) {
	switch {
	case text == "":
		return false, "empty"
	case utf8.RuneCountInString(text) < MinLength:
		return false, "too short"
	case IsJunk(text):
		return false, "junk"
	default:
		return true, ""
	}
}
