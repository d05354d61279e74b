// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot chat for datachat.
//
// Command: ask <message>
// Short:   Send one message and print the reply
//
// Examples:
//   datachat ask "which datasets cover unemployment?"
//   datachat ask --execute "unemployment by state" -o json

package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

func newAskCommand() *cobra.Command {
	var execute bool
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Long: `Send a single message to the dataset assistant and print its reply with
any command cards. With --execute the cards run before the reply is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			newSession, err := a.sessionFactory(execute || a.cfg.Chat.AutoExecute)
			if err != nil {
				return err
			}
			ctrl := newSession()

			res, err := ctrl.Submit(cmd.Context(), strings.Join(args, " "))
			if res == nil {
				a.printer.PrintError("ask", err)
				return err
			}

			perr := a.printer.PrintData("ask", askData(ctrl, res), func(w io.Writer) error {
				r := &repl{a: a, ctrl: ctrl, out: w, md: newMarkdown(a)}
				r.printReply(res)
				return nil
			})
			if err != nil {
				return err
			}
			return perr
		},
	}
	cmd.Flags().BoolVarP(&execute, "execute", "x", false, "run the reply's command cards")
	return cmd
}

func askData(ctrl *session.Controller, res *session.TurnResult) AskData {
	data := AskData{
		Session:   ctrl.ID(),
		Reply:     res.Reply.Text,
		Cards:     make([]CardData, 0, len(res.Cards)),
		Datasets:  ctrl.DatasetKeys(),
		Datacards: ctrl.DatacardKeys(),
	}
	for _, w := range res.Warnings {
		data.Warnings = append(data.Warnings, w.Error())
	}
	for i, c := range ctrl.Cards() {
		data.Cards = append(data.Cards, cardData(i+1, c))
	}
	return data
}

// newMarkdown returns the renderer for assistant text in line mode.
// Markdown is rendered only when stdout is a terminal.
func newMarkdown(a *app) *components.Markdown {
	theme := styles.NewTheme(a.cfg.UI.Theme)
	md := components.NewMarkdown(theme.MarkdownStyle, a.cfg.UI.WordWrap)
	md.SetEnabled(a.cfg.UI.Markdown && IsStdoutTTY())
	return md
}
