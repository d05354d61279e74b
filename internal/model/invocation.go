// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataset is returned when a dataset identifier is not of the form
// "organization/slug".
var ErrInvalidDataset = errors.New("invalid dataset format: expected 'organization/dataset'")

// =============================================================================
// DATASET REFERENCE
// =============================================================================

// DatasetRef is a parsed "organization/slug" identifier.
type DatasetRef struct {
	Organization string
	Slug         string
}

// ParseDatasetRef splits "organization/slug". Both halves must be non-empty.
func ParseDatasetRef(s string) (DatasetRef, error) {
	org, slug, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || org == "" || slug == "" {
		return DatasetRef{}, fmt.Errorf("%w: %q", ErrInvalidDataset, s)
	}
	return DatasetRef{Organization: org, Slug: slug}, nil
}

// String returns "organization/slug".
func (r DatasetRef) String() string {
	return r.Organization + "/" + r.Slug
}

// =============================================================================
// INVOCATION
// =============================================================================

// Source records where an invocation came from.
type Source string

const (
	SourceInline    Source = "inline"
	SourceFenced    Source = "fenced"
	SourceSuggested Source = "suggested"
	SourceUser      Source = "user"
)

// Invocation is a request to run one registry command.
type Invocation struct {
	Command string `json:"command"`
	Query   string `json:"query"`
	Dataset string `json:"dataset,omitempty"`

	// Structured carries a JSON query object (from a data-query-json block)
	// that is sent as the query body instead of Query.
	Structured json.RawMessage `json:"structured,omitempty"`

	// Attrs holds every attribute parsed from an inline directive.
	Attrs map[string]string `json:"attrs,omitempty"`

	Source Source `json:"source,omitempty"`
}

// QueryPayload returns the value sent as "query" to the backend.
func (inv Invocation) QueryPayload() any {
	if len(inv.Structured) > 0 {
		return inv.Structured
	}
	return inv.Query
}

// =============================================================================
// SUGGESTED QUERY
// =============================================================================

// SuggestedQuery is the backend's structured suggested_query field. Only
// dataset and description are read; the rest of the object (measures,
// dimensions, filters, order, limit) is kept as received in Raw and never
// type-checked.
type SuggestedQuery struct {
	Dataset     string `json:"-"`
	Description string `json:"-"`

	// Raw is the object in compact form.
	Raw json.RawMessage `json:"-"`
}

// ParseSuggestedQuery decodes the suggested_query JSON text.
// It returns nil without error when the text is empty.
func ParseSuggestedQuery(text string) (*SuggestedQuery, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(text) == "null" {
		return nil, nil
	}
	q, err := DecodeQueryObject([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid suggested_query: %w", err)
	}
	return q, nil
}

// DecodeQueryObject reads a query object, checking only that it is a JSON
// object whose dataset and description, when present, are strings.
func DecodeQueryObject(data []byte) (*SuggestedQuery, error) {
	var head struct {
		Dataset     *string `json:"dataset"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}

	q := &SuggestedQuery{Raw: json.RawMessage(compact.Bytes())}
	if head.Dataset != nil {
		q.Dataset = *head.Dataset
	}
	if head.Description != nil {
		q.Description = *head.Description
	}
	return q, nil
}

// Invocation converts a suggested query into a query_dataset invocation
// whose query text is the description. ok is false when the description or
// dataset is missing.
func (q *SuggestedQuery) Invocation() (Invocation, bool) {
	if q == nil || q.Description == "" || q.Dataset == "" {
		return Invocation{}, false
	}
	return Invocation{
		Command: "query_dataset",
		Query:   q.Description,
		Dataset: q.Dataset,
		Source:  SourceSuggested,
	}, true
}
