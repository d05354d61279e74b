// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// data.go - Direct access to the data commands.
//
// Examples:
//   datachat search dataset unemployment
//   datachat search datacard "jobs by state"
//   datachat query us_lbs/jobs "jobs by year" -o yaml
//   datachat query us_lbs/jobs --structured '{"measures":["jobs"]}'
//   datachat datacard us_lbs/jobs_trend

package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/model"
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search datasets or datacards",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "dataset <query>",
			Short: "Search datasets",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInvocation(cmd, model.Invocation{
					Command: commands.SearchDataset,
					Query:   strings.Join(args, " "),
					Source:  model.SourceUser,
				})
			},
		},
		&cobra.Command{
			Use:   "datacard <query>",
			Short: "Search datacards",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runInvocation(cmd, model.Invocation{
					Command: commands.SearchDatacard,
					Query:   strings.Join(args, " "),
					Source:  model.SourceUser,
				})
			},
		},
	)
	return cmd
}

func newQueryCommand() *cobra.Command {
	var structured string
	cmd := &cobra.Command{
		Use:   "query <organization/dataset> [query]",
		Short: "Query a dataset",
		Long: `Run a query against one dataset. The query is free text, or a JSON
object given with --structured.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := model.Invocation{
				Command: commands.QueryDataset,
				Dataset: args[0],
				Query:   strings.Join(args[1:], " "),
				Source:  model.SourceUser,
			}
			if structured != "" {
				if !json.Valid([]byte(structured)) {
					return &ValidationError{
						Field:   "structured",
						Value:   structured,
						Reason:  "not valid JSON",
						Example: `--structured '{"measures":["jobs"],"dimensions":["state"]}'`,
					}
				}
				inv.Structured = json.RawMessage(structured)
				if inv.Query == "" {
					inv.Query = structured
				}
			}
			if inv.Query == "" {
				return &ValidationError{Field: "query", Reason: "must not be empty", Example: `datachat query us_lbs/jobs "jobs by year"`}
			}
			return runInvocation(cmd, inv)
		},
	}
	cmd.Flags().StringVar(&structured, "structured", "", "JSON query object sent instead of text")
	return cmd
}

func newDatacardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datacard <organization/datacard>",
		Short: "Show a datacard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ref, err := model.ParseDatasetRef(args[0])
			if err != nil {
				a.printer.PrintError("datacard", err)
				return err
			}
			body, err := a.client.Datacard(cmd.Context(), ref)
			if err != nil {
				a.printer.PrintError("datacard", err)
				return err
			}
			return a.printer.PrintResult("datacard", commands.NewResult("datacard", body))
		},
	}
}

// runInvocation runs one registry command and prints its result.
func runInvocation(cmd *cobra.Command, inv model.Invocation) error {
	a := appFrom(cmd)
	res, err := a.registry.Execute(cmd.Context(), inv)
	if err != nil {
		a.printer.PrintError(inv.Command, err)
		return err
	}
	return a.printer.PrintResult(inv.Command, res)
}
