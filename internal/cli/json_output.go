// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON envelope for --output json.
//
// Every command prints the same envelope so scripts can check "success"
// before reading "data".

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the response envelope for --output json.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// CardData is one command card in JSON and YAML output.
type CardData struct {
	Number   int             `json:"number" yaml:"number"`
	Command  string          `json:"command" yaml:"command"`
	Query    string          `json:"query" yaml:"query"`
	Dataset  string          `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	State    string          `json:"state" yaml:"state"`
	Result   json.RawMessage `json:"result,omitempty" yaml:"-"`
	Value    any             `json:"-" yaml:"result,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string          `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// AskData is the data of the ask command.
type AskData struct {
	Session   string     `json:"session"`
	Reply     string     `json:"reply"`
	Warnings  []string   `json:"warnings,omitempty"`
	Cards     []CardData `json:"cards"`
	Datasets  []string   `json:"datasets"`
	Datacards []string   `json:"datacards"`
}
