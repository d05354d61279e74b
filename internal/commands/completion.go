// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// Completion is one candidate for tab completion.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for slash commands and their arguments.
type Completer struct {
	slash *SlashSet

	// DatasetsFn returns the "organization/slug" keys the session knows about
	DatasetsFn func() []string

	// DatacardsFn returns known datacard keys
	DatacardsFn func() []string
}

// NewCompleter creates a completer over the given slash set.
func NewCompleter(slash *SlashSet) *Completer {
	return &Completer{slash: slash}
}

// Complete returns completions for the input up to the cursor position.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeft(input, " \t")

	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := splitCommandLine(input)
	trailingSpace := strings.HasSuffix(input, " ")

	if len(parts) == 0 || (len(parts) == 1 && !trailingSpace) {
		partial := ""
		if len(parts) == 1 {
			partial = parts[0]
		}
		return c.completeCommands(partial)
	}

	cmd := c.slash.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if trailingSpace {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// Lines returns full replacement lines for a line editor: the input with its
// last word replaced by each candidate.
func (c *Completer) Lines(line string) []string {
	completions := c.Complete(line, len(line))
	if len(completions) == 0 {
		return nil
	}
	head := line
	if i := strings.LastIndexAny(line, " \t"); i >= 0 {
		head = line[:i+1]
	} else {
		head = ""
	}
	out := make([]string, 0, len(completions))
	for _, comp := range completions {
		suffix := ""
		if strings.HasPrefix(comp.Value, "/") {
			suffix = " "
		}
		out = append(out, head+comp.Value+suffix)
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.slash.All() {
		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if partial != "" && strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

func (c *Completer) completeArg(cmd *SlashCommand, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	switch cmd.Args[argIndex].Name {
	case "dataset":
		if c.DatasetsFn != nil {
			return completeFromList(c.DatasetsFn(), partial)
		}
	case "datacard":
		if c.DatacardsFn != nil {
			return completeFromList(c.DatacardsFn(), partial)
		}
	}
	return nil
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)
	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

// calculateScore ranks a candidate. Higher is better; exact matches win and
// shorter candidates are preferred.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	if value == partial {
		return 200
	}
	score := 100
	if strings.HasPrefix(value, partial) {
		score += 50 + 20 - len(value)
	}
	return score - len(value)/2
}

func sortCompletions(completions []Completion) {
	sort.SliceStable(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for navigating completions in the TUI.
type CompletionState struct {
	Completions []Completion
	Selected    int
	Visible     bool
}

// Update replaces the candidates and selects the first.
func (cs *CompletionState) Update(completions []Completion) {
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion, wrapping around.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Accept returns the selected value, or empty when there are no candidates.
func (cs *CompletionState) Accept() string {
	if len(cs.Completions) == 0 {
		return ""
	}
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return cs.Completions[0].Value
	}
	return cs.Completions[cs.Selected].Value
}

// Reset hides and clears the state.
func (cs *CompletionState) Reset() {
	*cs = CompletionState{}
}
