// Package reply turns a raw model payload into text that can be shown in the
// chat: extraction from loosely shaped JSON, cleanup, and the junk filter.
package reply

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// shape is one known response layout: a gjson path whose value, when it is a
// string, carries the reply. A decisive shape settles extraction as soon as its
// field is a string, even an empty one; the others only claim a non-empty
// string and otherwise let the next shape try.
type shape struct {
	name     string
	path     string
	decisive bool
}

// knownShapes are tried in order.
var knownShapes = []shape{
	{name: "ollama-chat", path: "message.content", decisive: true},
	{name: "chat-content-part", path: "message.content.text", decisive: true},
	{name: "responses-output", path: "output.0.content.0.text"},
	{name: "wrapped-choices", path: "result.choices.0.message.content"},
	{name: "choices-content-parts", path: "choices.0.message.content.0.text"},
	{name: "openai-chat", path: "choices.0.message.content"},
	{name: "ollama-generate", path: "response"},
}

// claims reports whether the shape decides extraction for root, and the raw
// string it found.
func (s shape) claims(root gjson.Result) (string, bool) {
	v := root.Get(s.path)
	if v.Type != gjson.String {
		return "", false
	}
	if !s.decisive && v.Str == "" {
		return "", false
	}
	return v.Str, true
}

// Extract pulls the reply text out of a model response body. The first known
// shape that claims the payload decides the result; otherwise the first
// non-empty string leaf in document order is used. It reports false when the
// payload holds no usable text.
func Extract(payload []byte) (string, bool) {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return "", false
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() && !root.IsArray() && root.Type != gjson.String {
		return "", false
	}
	for _, s := range knownShapes {
		if raw, ok := s.claims(root); ok {
			return Clean(raw)
		}
	}
	return Clean(firstStringLeaf(root))
}

// MatchedShape names the known shape that decides extraction, or "" when
// extraction falls through to the generic search. Used for logging.
func MatchedShape(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	root := gjson.ParseBytes(payload)
	for _, s := range knownShapes {
		if _, ok := s.claims(root); ok {
			return s.name
		}
	}
	return ""
}

func firstStringLeaf(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject(), v.IsArray():
		var found string
		v.ForEach(func(_, child gjson.Result) bool {
			found = firstStringLeaf(child)
			return found == ""
		})
		return found
	default:
		return ""
	}
}

var userLabel = regexp.MustCompile(`(?i)^\s*User\s*\d+\s*:\s*`)

// Clean normalizes raw model text: CRLF to LF, a leading "User N:" label is
// removed from every line, lines are trimmed and blank ones dropped.
func Clean(s string) (string, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return "", false
	}
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(userLabel.ReplaceAllString(line, ""))
		if line != "" {
			kept = append(kept, line)
		}
	}
	out := strings.Join(kept, "\n")
	return out, out != ""
}
