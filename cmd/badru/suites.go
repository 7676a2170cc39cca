package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/badrusalam11/whatsapp-bot/internal/automation"
	"github.com/badrusalam11/whatsapp-bot/internal/clifmt"
	"github.com/badrusalam11/whatsapp-bot/internal/suitecache"
)

func newSuitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "List test suites known to the automation backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(strings.TrimSpace(flagOrViperString(cmd, "format", "")))
			backend := automationFromViper(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("automation.request_timeout"))
			defer cancel()

			suites, err := backend.ListSuites(ctx)
			if err != nil {
				return err
			}
			return writeSuites(cmd.OutOrStdout(), suites, format)
		},
	}
	cmd.Flags().String("format", "text", "Output format: text|table|json|yaml.")
	cmd.Flags().String("automation-url", "", "Base URL of the test automation backend.")
	return cmd
}

func automationFromViper(cmd *cobra.Command) *automation.Client {
	timeout := viper.GetDuration("automation.request_timeout")
	return automation.New(&http.Client{Timeout: timeout}, flagOrViperString(cmd, "automation-url", "automation.base_url"))
}

func writeSuites(w io.Writer, suites []automation.Suite, format string) error {
	if suites == nil {
		suites = []automation.Suite{}
	}
	switch format {
	case "", "text":
		text := suitecache.FormatDirectory(suites)
		if text == "" {
			_, err := fmt.Fprintln(w, "(no suites)")
			return err
		}
		_, err := fmt.Fprintln(w, text)
		return err
	case "table":
		rows := make([][]string, 0, len(suites))
		for i, s := range suites {
			rows = append(rows, []string{strconv.Itoa(i + 1), s.Path})
		}
		clifmt.PrintTable(w, clifmt.TableOptions{
			Title:     "Test suites",
			Headers:   []string{"#", "PATH"},
			Rows:      rows,
			EmptyText: "(no suites)",
		})
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(suites)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(suites); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown --format %q (use text|table|json|yaml)", format)
	}
}
