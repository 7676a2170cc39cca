// Package clifmt renders plain-text tables for CLI output.
package clifmt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth   = 100
	defaultMinLastWidth = 24
)

type TableOptions struct {
	Title     string
	Headers   []string
	Rows      [][]string
	EmptyText string
	// Width overrides terminal detection. Zero means detect, falling back to
	// defaultTableWidth when out is not a terminal.
	Width int
}

// PrintTable writes rows as aligned columns. Only the last column wraps.
func PrintTable(out io.Writer, opts TableOptions) {
	if out == nil {
		out = os.Stdout
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		fmt.Fprintf(out, "%s (%d)\n", title, len(opts.Rows))
	}
	if len(opts.Rows) == 0 {
		empty := strings.TrimSpace(opts.EmptyText)
		if empty == "" {
			empty = "No entries."
		}
		fmt.Fprintln(out, empty)
		return
	}

	cols := len(opts.Headers)
	for _, row := range opts.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := make([]int, cols)
	for i := 0; i < cols; i++ {
		widths[i] = utf8.RuneCountInString(cell(opts.Headers, i))
		for _, row := range opts.Rows {
			if w := utf8.RuneCountInString(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lead := 0
	for _, w := range widths[:cols-1] {
		lead += w + 2
	}
	lastWidth := tableWidth(out, opts.Width) - lead
	if lastWidth < defaultMinLastWidth {
		lastWidth = defaultMinLastWidth
	}
	if widths[cols-1] > lastWidth {
		widths[cols-1] = lastWidth
	}

	if len(opts.Headers) > 0 {
		writeRow(out, opts.Headers, widths)
		dashes := make([]string, cols)
		for i, w := range widths {
			dashes[i] = strings.Repeat("-", w)
		}
		writeRow(out, dashes, widths)
	}
	for _, row := range opts.Rows {
		writeRow(out, row, widths)
	}
}

func writeRow(out io.Writer, row []string, widths []int) {
	last := len(widths) - 1
	lines := wrapTextRunes(cell(row, last), widths[last])
	prefix := make([]string, 0, last)
	for i := 0; i < last; i++ {
		prefix = append(prefix, padRightRunes(cell(row, i), widths[i]))
	}
	blank := strings.Repeat(" ", len(strings.Join(prefix, "  ")))
	for n, line := range lines {
		head := strings.Join(prefix, "  ")
		if n > 0 {
			head = blank
		}
		if last == 0 {
			fmt.Fprintln(out, strings.TrimRight(line, " "))
			continue
		}
		fmt.Fprintln(out, strings.TrimRight(head+"  "+line, " "))
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func tableWidth(out io.Writer, override int) int {
	if override > 0 {
		return override
	}
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultTableWidth
}

func padRightRunes(s string, width int) string {
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s
	}
	return s + strings.Repeat(" ", missing)
}

func wrapTextRunes(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{""}
	}
	if width <= 0 {
		return []string{text}
	}

	words := strings.Fields(text)
	lines := make([]string, 0, len(words))
	current := ""

	flush := func() {
		if current == "" {
			return
		}
		lines = append(lines, current)
		current = ""
	}

	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			flush()
			runes := []rune(word)
			lines = append(lines, string(runes[:width]))
			word = string(runes[width:])
		}

		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()

	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
