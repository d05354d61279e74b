// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import "sort"

// =============================================================================
// SLASH COMMAND DEFINITION
// =============================================================================

// Slash command names understood by every front end.
const (
	SlashHelp     = "/help"
	SlashQuit     = "/quit"
	SlashNew      = "/new"
	SlashSidebar  = "/sidebar"
	SlashDatacard = "/datacard"
	SlashRun      = "/run"
	SlashCards    = "/cards"
)

// SlashCommand is a command the user types in the chat input.
type SlashCommand struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Invokes names the registry command this slash command runs, if any
	Invokes string

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a slash command.
type ArgDef struct {
	Name        string
	Required    bool
	Description string
	// Rest consumes the remaining input verbatim
	Rest bool
}

// SlashSet holds the slash commands available in a session.
type SlashSet struct {
	commands map[string]*SlashCommand
	aliases  map[string]*SlashCommand
}

// NewSlashSet builds the slash commands, including one per registry command.
func NewSlashSet(reg *Registry) *SlashSet {
	s := &SlashSet{
		commands: make(map[string]*SlashCommand),
		aliases:  make(map[string]*SlashCommand),
	}

	s.Register(&SlashCommand{
		Name:        SlashHelp,
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "Navigation",
	})
	s.Register(&SlashCommand{
		Name:        SlashQuit,
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit datachat",
		Category:    "Navigation",
	})
	s.Register(&SlashCommand{
		Name:        SlashNew,
		Aliases:     []string{"/n", "/clear"},
		Description: "Start a new chat session",
		Category:    "Conversation",
	})
	s.Register(&SlashCommand{
		Name:        SlashSidebar,
		Aliases:     []string{"/sb"},
		Description: "Toggle the dataset sidebar",
		Category:    "Conversation",
	})
	s.Register(&SlashCommand{
		Name:        SlashCards,
		Description: "List the command cards of this session",
		Category:    "Commands",
	})
	s.Register(&SlashCommand{
		Name:        SlashRun,
		Aliases:     []string{"/r"},
		Description: "Execute a command card by number",
		Usage:       "/run <n>",
		Args:        []ArgDef{{Name: "n", Required: true, Description: "Card number from /cards"}},
		Category:    "Commands",
	})
	s.Register(&SlashCommand{
		Name:        SlashDatacard,
		Aliases:     []string{"/dc"},
		Description: "Show a datacard definition",
		Usage:       "/datacard <organization/datacard>",
		Args:        []ArgDef{{Name: "datacard", Required: true, Description: "organization/datacard"}},
		Category:    "Data",
	})

	if reg != nil {
		for _, cmd := range reg.All() {
			sc := &SlashCommand{
				Name:        "/" + cmd.Name,
				Description: cmd.Description,
				Usage:       cmd.Usage,
				Invokes:     cmd.Name,
				Category:    "Data",
			}
			if cmd.NeedsDataset {
				sc.Args = []ArgDef{
					{Name: "dataset", Required: true, Description: "organization/dataset"},
					{Name: "query", Required: true, Rest: true, Description: "Query text"},
				}
			} else {
				sc.Args = []ArgDef{{Name: "query", Required: true, Rest: true, Description: "Search text"}}
			}
			s.Register(sc)
		}
	}
	return s
}

// Register adds a slash command.
func (s *SlashSet) Register(cmd *SlashCommand) {
	s.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		s.aliases[alias] = cmd
	}
}

// Get retrieves a slash command by name or alias.
func (s *SlashSet) Get(name string) *SlashCommand {
	if cmd, ok := s.commands[name]; ok {
		return cmd
	}
	if cmd, ok := s.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the commands sorted by name.
func (s *SlashSet) All() []*SlashCommand {
	out := make([]*SlashCommand, 0, len(s.commands))
	for _, cmd := range s.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns commands grouped by category, each group sorted.
func (s *SlashSet) ByCategory() map[string][]*SlashCommand {
	result := make(map[string][]*SlashCommand)
	for _, cmd := range s.All() {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Categories is the display order for help output.
var Categories = []string{"Navigation", "Conversation", "Commands", "Data", "General"}
