package main

import (
	"github.com/spf13/cobra"

	"github.com/badrusalam11/whatsapp-bot/internal/llminspect"
	"github.com/badrusalam11/whatsapp-bot/llm"
)

// withPromptInspect wraps client when --inspect-prompt is set. The returned
// close func must be called once the client is no longer used.
func withPromptInspect(cmd *cobra.Command, mode string, client llm.Client) (llm.Client, func() error, error) {
	noop := func() error { return nil }
	if !flagOrViperBool(cmd, "inspect-prompt", "llm.inspect_prompt") {
		return client, noop, nil
	}
	inspector, err := llminspect.NewPromptInspector(llminspect.Options{
		Mode:    mode,
		DumpDir: flagOrViperString(cmd, "inspect-dir", "llm.inspect_dir"),
	})
	if err != nil {
		return nil, noop, err
	}
	return &llminspect.PromptClient{Base: client, Inspector: inspector}, inspector.Close, nil
}

func addInspectFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("inspect-prompt", false, "Dump every model request and reply to a markdown file.")
	cmd.Flags().String("inspect-dir", "dump", "Directory for --inspect-prompt dumps.")
}
