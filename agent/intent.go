package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type Action string

const (
	ActionList     Action = "list"
	ActionRun      Action = "run"
	ActionSchedule Action = "schedule"
)

var ErrIntentDecode = errors.New("decode intent json")

// Intent is a validated command extracted from a model reply.
// SuitePath is set for run and schedule; RunAt only for schedule and is passed
// through unvalidated (the automation backend owns its format).
type Intent struct {
	Action    Action `json:"action"`
	SuitePath string `json:"testsuite_path,omitempty"`
	RunAt     string `json:"run_at,omitempty"`
}

func (i Intent) String() string {
	switch i.Action {
	case ActionRun:
		return fmt.Sprintf("run(%s)", i.SuitePath)
	case ActionSchedule:
		return fmt.Sprintf("schedule(%s @ %s)", i.SuitePath, i.RunAt)
	default:
		return string(i.Action)
	}
}

// ParseIntent looks for a JSON object in a model reply and maps it to an Intent.
//
// ok is false when the reply is conversational: no brace span, an unknown
// action, or missing required fields. err is non-nil only when a span was found
// but is not a valid JSON object; it wraps ErrIntentDecode and is meant for logs.
func ParseIntent(reply string) (Intent, bool, error) {
	span, found := ExtractJSONSpan(reply)
	if !found {
		return Intent{}, false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return Intent{}, false, fmt.Errorf("%w: %v", ErrIntentDecode, err)
	}

	action, _ := stringField(fields, "action")
	switch Action(action) {
	case ActionList:
		return Intent{Action: ActionList}, true, nil
	case ActionRun:
		path, _ := stringField(fields, "testsuite_path")
		if path == "" {
			return Intent{}, false, nil
		}
		return Intent{Action: ActionRun, SuitePath: path}, true, nil
	case ActionSchedule:
		path, _ := stringField(fields, "testsuite_path")
		runAt, present := stringField(fields, "run_at")
		if path == "" || !present {
			return Intent{}, false, nil
		}
		return Intent{Action: ActionSchedule, SuitePath: path, RunAt: runAt}, true, nil
	default:
		return Intent{}, false, nil
	}
}

// stringField reports the string value of key and whether it was present as a
// JSON string. Non-string values, null included, count as absent.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
