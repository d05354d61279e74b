// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bytes"
	"encoding/json"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// Result is the parsed JSON returned by a command.
type Result struct {
	// Command that produced the result
	Command string

	// Raw is the response body as received
	Raw json.RawMessage

	// Rows is set when the body is a list of objects
	Rows *model.QueryResult
}

// NewResult wraps a raw response, decoding rows when the body is tabular.
func NewResult(command string, raw json.RawMessage) *Result {
	res := &Result{Command: command, Raw: raw}
	if rows, err := model.DecodeQueryResult(raw); err == nil {
		res.Rows = rows
	}
	return res
}

// IsTabular reports whether the result decoded into rows.
func (r *Result) IsTabular() bool {
	return r != nil && r.Rows != nil
}

// Pretty returns the body as indented JSON, or as received when it is not
// valid JSON.
func (r *Result) Pretty() string {
	if r == nil || len(r.Raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Raw, "", "  "); err != nil {
		return string(r.Raw)
	}
	return buf.String()
}

// Value decodes the body into a generic value.
func (r *Result) Value() (any, error) {
	var v any
	if err := json.Unmarshal(r.Raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
