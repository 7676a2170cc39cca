package agent

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

const (
	DefaultPersona = "Badru"

	// runAtFormat is the textual run_at form the backend expects.
	runAtFormat = "YYYY-MM-DD HH:mm:ss"
	todayLayout = "02 January 2006"
)

//go:embed prompts/system.tmpl
var systemPromptTemplateSource string

var systemPromptTemplate = template.Must(template.New("badru_system_prompt").Option("missingkey=error").Parse(systemPromptTemplateSource))

type SuiteDirectory interface {
	Text() string
}

type promptTemplateData struct {
	Persona        string
	Today          string
	TimezoneName   string
	TimezoneAbbrev string
	UTCOffset      string
	RunAtLayout    string
	Directory      string
}

// PromptBuilder composes the system instruction from the cached suite
// directory and the current date in a fixed civil timezone.
type PromptBuilder struct {
	Persona   string
	Directory SuiteDirectory
	Location  *time.Location
	Now       func() time.Time
}

func (b PromptBuilder) Build() (string, error) {
	loc := b.Location
	if loc == nil {
		loc = JakartaLocation()
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	persona := strings.TrimSpace(b.Persona)
	if persona == "" {
		persona = DefaultPersona
	}
	directory := ""
	if b.Directory != nil {
		directory = b.Directory.Text()
	}

	t := now().In(loc)
	abbrev, offset := t.Zone()
	var buf bytes.Buffer
	err := systemPromptTemplate.Execute(&buf, promptTemplateData{
		Persona:        persona,
		Today:          t.Format(todayLayout),
		TimezoneName:   loc.String(),
		TimezoneAbbrev: abbrev,
		UTCOffset:      formatGMTOffset(offset),
		RunAtLayout:    runAtFormat,
		Directory:      directory,
	})
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

// JakartaLocation returns Asia/Jakarta, or a fixed UTC+7 "WIB" zone when the
// tz database is unavailable. The zone has no daylight saving either way.
func JakartaLocation() *time.Location {
	return LoadLocation("Asia/Jakarta")
}

func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Asia/Jakarta"
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("WIB", 7*60*60)
}

func formatGMTOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if m == 0 {
		return fmt.Sprintf("GMT%s%d", sign, h)
	}
	return fmt.Sprintf("GMT%s%d:%02d", sign, h, m)
}
