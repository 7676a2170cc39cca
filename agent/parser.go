package agent

import "strings"

// ExtractJSONSpan returns the text from the first '{' through the last '}'.
//
// This is a greedy span, not a balanced-brace scan: a reply carrying two
// objects, or stray braces around one, yields a span that fails to decode.
func ExtractJSONSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}
