package httpapi

import (
	"fmt"
	"regexp"
)

var placeholderRE = regexp.MustCompile(`\{(\w+)\}`)

// FillPlaceholders replaces {key} in text with the matching variable. Unknown
// keys are left untouched.
func FillPlaceholders(text string, vars map[string]any) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := vars[key]
		if !ok || v == nil {
			return m
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	})
}
