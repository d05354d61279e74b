// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat for datachat.
//
// Command: chat
// Short:   Start a line-mode chat session
//
// Examples:
//   datachat chat                  Chat, running command cards as they arrive
//   datachat chat --no-execute     Chat, run cards only with /run
//   echo "jobs data" | datachat    Pipe a message (line mode is automatic)
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new session
//   /sidebar            List known datasets and datacards
//   /cards              List command cards
//   /run <n>            Run card n
//   /datacard <key>     Show a datacard
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
)

const replPrompt = "datachat> "

func newChatCommand() *cobra.Command {
	var noExecute bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat session",
		Long: `Chat with the dataset assistant one line at a time. Command cards in a
reply run as soon as it arrives unless --no-execute is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, appFrom(cmd), !noExecute)
		},
	}
	cmd.Flags().BoolVar(&noExecute, "no-execute", false, "do not run command cards automatically")
	return cmd
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor. An empty historyFile disables
// persistent history.
func NewChatCLI(historyFile string, complete func(string) []string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads a line with history navigation. Ctrl+C reads as EOF.
func (c *ChatCLI) ReadLine(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes history to the history file, owner-only.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// plainReader reads lines from a pipe without prompting.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &plainReader{scanner: s}
}

func (p *plainReader) ReadLine(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *plainReader) Close() {}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	a          *app
	ctrl       *session.Controller
	newSession func() *session.Controller
	slash      *commands.SlashSet
	completer  *commands.Completer
	in         lineReader
	out        io.Writer
	md         *components.Markdown
	welcome    bool
}

func runREPL(cmd *cobra.Command, a *app, autoExecute bool) error {
	newSession, err := a.sessionFactory(autoExecute)
	if err != nil {
		return err
	}

	slash := commands.NewSlashSet(a.registry)
	r := &repl{
		a:          a,
		newSession: newSession,
		slash:      slash,
		completer:  commands.NewCompleter(slash),
		out:        cmd.OutOrStdout(),
		md:         newMarkdown(a),
	}
	r.setSession(newSession())

	if IsTTY() && cmd.InOrStdin() == os.Stdin {
		r.in = NewChatCLI(a.cfg.Chat.HistoryFile, r.completer.Lines)
		r.welcome = true
	} else {
		r.in = newPlainReader(cmd.InOrStdin())
	}
	defer r.in.Close()

	return r.run(cmd.Context())
}

func (r *repl) setSession(ctrl *session.Controller) {
	r.ctrl = ctrl
	r.completer.DatasetsFn = ctrl.DatasetKeys
	r.completer.DatacardsFn = ctrl.DatacardKeys
}

func (r *repl) run(ctx context.Context) error {
	if r.welcome {
		fmt.Fprintln(r.out, RenderConditional(TitleStyle, "datachat")+" "+RenderConditional(DimStyle, r.a.cfg.Backend.URL))
		fmt.Fprintln(r.out, RenderConditional(DimStyle, "Type /help for commands, Ctrl+D to exit."))
	}

	for {
		line, err := r.in.ReadLine(replPrompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(r.out, RenderConditional(ErrorStyle, errorLine(err)))
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if commands.IsCommand(line) {
		return r.handleSlash(ctx, line)
	}

	res, err := r.ctrl.Submit(ctx, line)
	if res != nil {
		r.printReply(res)
	}
	return false, err
}

func (r *repl) handleSlash(ctx context.Context, line string) (bool, error) {
	res := r.slash.Parse(line)
	if res.Command == nil {
		return false, fmt.Errorf("unknown command %s (try /help)", res.CommandName)
	}
	if err := commands.ValidateArgs(res.Command, res.Args); err != nil {
		return false, err
	}

	switch res.Command.Name {
	case commands.SlashHelp:
		r.printHelp()

	case commands.SlashQuit:
		return true, nil

	case commands.SlashNew:
		r.setSession(r.newSession())
		fmt.Fprintln(r.out, RenderConditional(DimStyle, "New session started"))

	case commands.SlashSidebar:
		fmt.Fprintln(r.out, components.RenderSidebarPlain(r.ctrl.Datasets(), r.ctrl.Datacards(), components.SidebarOptions{ExpandAll: true}))

	case commands.SlashCards:
		list := r.ctrl.Cards()
		if len(list) == 0 {
			fmt.Fprintln(r.out, "No command cards yet")
		}
		for i, c := range list {
			fmt.Fprintf(r.out, "%d. %s\n", i+1, c.Summary())
		}

	case commands.SlashRun:
		n, err := strconv.Atoi(res.Args[0])
		card := r.ctrl.CardAt(n)
		if err != nil || card == nil {
			return false, fmt.Errorf("no card %q (see /cards)", res.Args[0])
		}
		return false, r.runCard(ctx, n, card)

	case commands.SlashDatacard:
		body, err := r.ctrl.Datacard(ctx, res.Args[0])
		if err != nil {
			return false, fmt.Errorf("datacard %s: %w", res.Args[0], err)
		}
		return false, r.a.printer.PrintResult("datacard", commands.NewResult("datacard", body))

	default:
		inv, err := res.Invocation()
		if err != nil {
			return false, err
		}
		card := r.ctrl.AddCard(inv)
		return false, r.runCard(ctx, len(r.ctrl.Cards()), card)
	}
	return false, nil
}

func (r *repl) runCard(ctx context.Context, n int, card *cards.Card) error {
	outcome := <-r.ctrl.ExecuteCard(ctx, card.ID)
	if errors.Is(outcome.Err, cards.ErrExecuting) || errors.Is(outcome.Err, session.ErrCardNotFound) {
		return outcome.Err
	}
	r.printCard(n, card)
	return nil
}

// =============================================================================
// PRINTING
// =============================================================================

func (r *repl) printReply(res *session.TurnResult) {
	if text := strings.TrimSpace(res.Reply.Text); text != "" {
		fmt.Fprintln(r.out, r.md.Render(text))
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(r.out, RenderConditional(WarningStyle, "warning: "+w.Error()))
	}
	for _, c := range res.Cards {
		r.printCard(r.cardNumber(c), c)
	}
	if res.CatalogChanged {
		fmt.Fprintln(r.out, RenderConditional(DimStyle, fmt.Sprintf("Known: %d datasets, %d datacards (/sidebar to list)",
			len(r.ctrl.Datasets()), len(r.ctrl.Datacards()))))
	}
}

func (r *repl) printCard(n int, c *cards.Card) {
	header := fmt.Sprintf("[%d] %s  %s", n, c.Label(), RenderState(c.State()))
	if d := c.Duration(); d > 0 && c.State() != cards.StateExecuting {
		header += RenderConditional(DimStyle, "  "+formatDurationShort(d))
	}
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out, "    "+RenderLabel("Query:")+c.Invocation.Query)
	if c.Invocation.Dataset != "" {
		fmt.Fprintln(r.out, "    "+RenderLabel("Dataset:")+c.Invocation.Dataset)
	}

	switch c.State() {
	case cards.StateDone:
		if err := r.a.printer.PrintResult(c.Invocation.Command, c.Result()); err != nil {
			r.a.logger.Warn("failed to print card result", zap.Error(err))
		}
	case cards.StateFailed:
		fmt.Fprintln(r.out, "    "+RenderConditional(ErrorStyle, errorLine(c.Err())))
	case cards.StatePending:
		fmt.Fprintln(r.out, "    "+RenderConditional(DimStyle, fmt.Sprintf("/run %d to execute", n)))
	}
}

func (r *repl) printHelp() {
	groups := r.slash.ByCategory()
	for _, category := range commands.Categories {
		list := groups[category]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintln(r.out, RenderConditional(TitleStyle, category))
		for _, cmd := range list {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(r.out, "  %-42s %s\n", usage, cmd.Description)
		}
	}
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Ctrl+D exits."))
}

func (r *repl) cardNumber(c *cards.Card) int {
	for i, other := range r.ctrl.Cards() {
		if other.ID == c.ID {
			return i + 1
		}
	}
	return 0
}

// errorLine formats an error as an error turn. Session errors already
// carry the "Error: " prefix.
func errorLine(err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "Error: ") {
		return msg
	}
	return "Error: " + msg
}
