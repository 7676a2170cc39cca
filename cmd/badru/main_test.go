package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/badrusalam11/whatsapp-bot/agent"
	"github.com/badrusalam11/whatsapp-bot/internal/automation"
)

func TestWriteSuitesFormats(t *testing.T) {
	suites := []automation.Suite{{Path: "login/smoke"}, {Path: "checkout/full"}}
	cases := map[string]string{
		"text": "🧪 1. login/smoke\n🧪 2. checkout/full\n",
		"json": "[\n  {\n    \"path\": \"login/smoke\"\n  },\n  {\n    \"path\": \"checkout/full\"\n  }\n]\n",
		"yaml": "- path: login/smoke\n- path: checkout/full\n",
		"table": "Test suites (2)\n#  PATH\n-  -------------\n1  login/smoke\n2  checkout/full\n",
	}
	for format, want := range cases {
		var buf bytes.Buffer
		if err := writeSuites(&buf, suites, format); err != nil {
			t.Fatalf("writeSuites(%s) error = %v", format, err)
		}
		if buf.String() != want {
			t.Fatalf("writeSuites(%s) = %q, want %q", format, buf.String(), want)
		}
	}
}

func TestWriteSuitesEmptyAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSuites(&buf, nil, "text"); err != nil || buf.String() != "(no suites)\n" {
		t.Fatalf("empty text = %q err=%v", buf.String(), err)
	}
	buf.Reset()
	if err := writeSuites(&buf, nil, "json"); err != nil || buf.String() != "[]\n" {
		t.Fatalf("empty json = %q err=%v", buf.String(), err)
	}
	if err := writeSuites(&buf, nil, "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWriteAskOutput(t *testing.T) {
	var buf bytes.Buffer
	err := writeAskOutput(&buf, agent.Interpretation{
		Reply:      `{"action":"run","testsuite_path":"login/smoke"}`,
		Intent:     agent.Intent{Action: agent.ActionRun, SuitePath: "login/smoke"},
		Recognized: true,
	}, false)
	if err != nil {
		t.Fatalf("writeAskOutput() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "intent: run(login/smoke)\nreply:\n") {
		t.Fatalf("text output = %q", buf.String())
	}

	buf.Reset()
	err = writeAskOutput(&buf, agent.Interpretation{
		Reply:     "{oops}",
		DecodeErr: errors.New("decode intent json: invalid character"),
	}, true)
	if err != nil {
		t.Fatalf("writeAskOutput(json) error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"recognized": false`) || strings.Contains(out, `"intent"`) || !strings.Contains(out, `"decode_error"`) {
		t.Fatalf("json output = %q", out)
	}
}

func TestInitViperDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	initViperDefaults()

	if got := viper.GetString("llm.provider"); got != "ollama" {
		t.Fatalf("llm.provider = %q", got)
	}
	if got := viper.GetString("llm.endpoint"); got != "http://127.0.0.1:11434" {
		t.Fatalf("llm.endpoint = %q", got)
	}
	if got := viper.GetString("automation.base_url"); got != "http://127.0.0.1:5006" {
		t.Fatalf("automation.base_url = %q", got)
	}
	if got := viper.GetString("whatsapp.trigger_prefix"); got != "#TanyaBadru" {
		t.Fatalf("whatsapp.trigger_prefix = %q", got)
	}
	if got := viper.GetInt("server.port"); got != 3001 {
		t.Fatalf("server.port = %d", got)
	}
	if got := viper.GetDuration("automation.run_timeout"); got != 2*time.Minute {
		t.Fatalf("automation.run_timeout = %v", got)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"whatsapp": false, "ask": false, "suites": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if buf.String() != "badru dev\n" {
		t.Fatalf("version output = %q", buf.String())
	}
}
