// Package outputfmt prepares error text for chat recipients.
package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

const maxDisplayChars = 300

var (
	urlInTextRE   = regexp.MustCompile(`https?://[^\s"'<>]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// FormatErrorForDisplay turns err into a single short line that is safe to
// send to a chat: URL hosts are stripped, secret-looking query values are
// redacted and the result is capped at maxDisplayChars runes.
func FormatErrorForDisplay(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorText(err.Error())
}

func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
	if raw == "" {
		return ""
	}
	out := urlInTextRE.ReplaceAllStringFunc(raw, stripHost)
	if r := []rune(out); len(r) > maxDisplayChars {
		out = string(r[:maxDisplayChars]) + "…"
	}
	return out
}

func stripHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if secretKey(k) {
				q.Set(k, "[redacted]")
			}
		}
		out += "?" + q.Encode()
	}
	return out
}

func secretKey(key string) bool {
	k := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	if k == "key" {
		return true
	}
	for _, marker := range []string{"apikey", "token", "secret", "password", "authorization", "signature"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
