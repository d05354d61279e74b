// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// Built-in command names. These are the directive names the assistant emits.
const (
	SearchDataset  = "search_dataset"
	SearchDatacard = "search_datacard"
	QueryDataset   = "query_dataset"
)

// ErrUnknownCommand is returned when an invocation names no registered command.
var ErrUnknownCommand = errors.New("unknown command")

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Handler runs one invocation and returns the backend result.
type Handler func(ctx context.Context, inv model.Invocation) (*Result, error)

// Command is a named backend operation that assistant replies can invoke.
type Command struct {
	// Name is the directive name (e.g., "search_dataset")
	Name string

	// Description is shown in help output
	Description string

	// Usage shows the slash-command form
	Usage string

	// NeedsDataset marks commands that require an "organization/slug"
	NeedsDataset bool

	// Handler performs the request
	Handler Handler
}

// API is the subset of the backend client the built-in commands use.
type API interface {
	SearchDatasets(ctx context.Context, query string) (json.RawMessage, error)
	SearchDatacards(ctx context.Context, query string) (json.RawMessage, error)
	QueryDataset(ctx context.Context, query any, dataset string) (json.RawMessage, error)
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry maps command names to handlers. It is read-only after setup and
// safe for concurrent lookups.
type Registry struct {
	commands map[string]*Command
	order    []string
}

// NewRegistry creates a registry with the built-in commands bound to api.
func NewRegistry(api API) *Registry {
	r := NewEmptyRegistry()
	if api != nil {
		r.registerBuiltins(api)
	}
	return r
}

// NewEmptyRegistry creates a registry with no commands.
func NewEmptyRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command, replacing any command with the same name.
func (r *Registry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Get retrieves a command by name, or nil.
func (r *Registry) Get(name string) *Command {
	return r.commands[name]
}

// Known reports whether name is a registered command.
func (r *Registry) Known(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// All returns the commands in registration order.
func (r *Registry) All() []*Command {
	out := make([]*Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Names returns the command names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Execute runs the invocation's command. Commands that need a dataset are
// validated before the handler runs, so a bad identifier never reaches the
// network.
func (r *Registry) Execute(ctx context.Context, inv model.Invocation) (*Result, error) {
	cmd := r.Get(inv.Command)
	if cmd == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Command)
	}
	if cmd.NeedsDataset {
		if _, err := model.ParseDatasetRef(inv.Dataset); err != nil {
			return nil, err
		}
	}
	return cmd.Handler(ctx, inv)
}

var titleCaser = cases.Title(language.English)

// Label turns a command name into a display label ("search_dataset" ->
// "Search Dataset").
func Label(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins(api API) {
	r.Register(&Command{
		Name:        SearchDataset,
		Description: "Search datasets by free text",
		Usage:       "/search_dataset <query>",
		Handler: func(ctx context.Context, inv model.Invocation) (*Result, error) {
			raw, err := api.SearchDatasets(ctx, inv.Query)
			if err != nil {
				return nil, err
			}
			return NewResult(SearchDataset, raw), nil
		},
	})

	r.Register(&Command{
		Name:        SearchDatacard,
		Description: "Search datacards by free text",
		Usage:       "/search_datacard <query>",
		Handler: func(ctx context.Context, inv model.Invocation) (*Result, error) {
			raw, err := api.SearchDatacards(ctx, inv.Query)
			if err != nil {
				return nil, err
			}
			return NewResult(SearchDatacard, raw), nil
		},
	})

	r.Register(&Command{
		Name:         QueryDataset,
		Description:  "Run a query against an organization/dataset",
		Usage:        "/query_dataset <organization/dataset> <query>",
		NeedsDataset: true,
		Handler: func(ctx context.Context, inv model.Invocation) (*Result, error) {
			raw, err := api.QueryDataset(ctx, inv.QueryPayload(), inv.Dataset)
			if err != nil {
				return nil, err
			}
			return NewResult(QueryDataset, raw), nil
		},
	})
}
