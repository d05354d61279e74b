// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// DATASET / DATACARD SUMMARIES
// =============================================================================

// DatasetSummary describes a dataset the assistant considered relevant.
type DatasetSummary struct {
	Organization string   `json:"organization" yaml:"organization"`
	DatasetSlug  string   `json:"dataset_slug" yaml:"dataset_slug"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string   `json:"description" yaml:"description"`
	Measures     []string `json:"measures" yaml:"measures"`
	Dimensions   []string `json:"dimensions" yaml:"dimensions"`
}

// Key returns the "organization/slug" identifier.
func (d DatasetSummary) Key() string {
	return d.Organization + "/" + d.DatasetSlug
}

// Title returns the best available display title.
func (d DatasetSummary) Title() string {
	switch {
	case d.Description != "":
		return d.Description
	case d.Name != "":
		return d.Name
	default:
		return d.Key()
	}
}

// DatacardSummary describes a datacard (a saved visualization definition).
type DatacardSummary struct {
	Organization string `json:"organization" yaml:"organization"`
	DatacardSlug string `json:"datacard_slug" yaml:"datacard_slug"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Key returns the "organization/slug" identifier.
func (d DatacardSummary) Key() string {
	return d.Organization + "/" + d.DatacardSlug
}

// Title returns the best available display title.
func (d DatacardSummary) Title() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Key()
}

// RetrievedInfo is the backend's structured list of relevant entities.
type RetrievedInfo struct {
	Datasets  []DatasetSummary  `json:"datasets,omitempty"`
	Datacards []DatacardSummary `json:"datacards,omitempty"`
}

// IsEmpty reports whether no entities were retrieved.
func (r RetrievedInfo) IsEmpty() bool {
	return len(r.Datasets) == 0 && len(r.Datacards) == 0
}

// ParseRetrievedInfo decodes the retrieved_information JSON text.
// Entries without an organization or slug are dropped.
func ParseRetrievedInfo(text string) (RetrievedInfo, error) {
	var info RetrievedInfo
	if strings.TrimSpace(text) == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		return RetrievedInfo{}, fmt.Errorf("invalid retrieved_information: %w", err)
	}

	datasets := info.Datasets[:0]
	for _, d := range info.Datasets {
		if d.Organization != "" && d.DatasetSlug != "" {
			datasets = append(datasets, d)
		}
	}
	info.Datasets = datasets

	datacards := info.Datacards[:0]
	for _, d := range info.Datacards {
		if d.Organization != "" && d.DatacardSlug != "" {
			datacards = append(datacards, d)
		}
	}
	info.Datacards = datacards
	return info, nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog accumulates every dataset and datacard seen during a session.
// Merging is a union keyed by organization/slug: first-seen order is kept,
// existing entries are refreshed, and nothing is ever removed.
type Catalog struct {
	datasets    []DatasetSummary
	datasetIdx  map[string]int
	datacards   []DatacardSummary
	datacardIdx map[string]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		datasetIdx:  make(map[string]int),
		datacardIdx: make(map[string]int),
	}
}

// Merge unions info into the catalog and reports whether anything changed.
func (c *Catalog) Merge(info RetrievedInfo) bool {
	changed := false
	for _, d := range info.Datasets {
		if c.mergeDataset(d) {
			changed = true
		}
	}
	for _, d := range info.Datacards {
		if c.mergeDatacard(d) {
			changed = true
		}
	}
	return changed
}

func (c *Catalog) mergeDataset(d DatasetSummary) bool {
	key := d.Key()
	i, ok := c.datasetIdx[key]
	if !ok {
		c.datasetIdx[key] = len(c.datasets)
		c.datasets = append(c.datasets, cloneDataset(d))
		return true
	}

	cur := &c.datasets[i]
	changed := false
	if d.Name != "" && d.Name != cur.Name {
		cur.Name = d.Name
		changed = true
	}
	if d.Description != "" && d.Description != cur.Description {
		cur.Description = d.Description
		changed = true
	}
	if merged, grew := unionStrings(cur.Measures, d.Measures); grew {
		cur.Measures = merged
		changed = true
	}
	if merged, grew := unionStrings(cur.Dimensions, d.Dimensions); grew {
		cur.Dimensions = merged
		changed = true
	}
	return changed
}

func (c *Catalog) mergeDatacard(d DatacardSummary) bool {
	key := d.Key()
	i, ok := c.datacardIdx[key]
	if !ok {
		c.datacardIdx[key] = len(c.datacards)
		c.datacards = append(c.datacards, d)
		return true
	}

	cur := &c.datacards[i]
	changed := false
	if d.Name != "" && d.Name != cur.Name {
		cur.Name = d.Name
		changed = true
	}
	if d.Description != "" && d.Description != cur.Description {
		cur.Description = d.Description
		changed = true
	}
	return changed
}

// Datasets returns a copy of the accumulated datasets in first-seen order.
func (c *Catalog) Datasets() []DatasetSummary {
	out := make([]DatasetSummary, len(c.datasets))
	for i, d := range c.datasets {
		out[i] = cloneDataset(d)
	}
	return out
}

// Datacards returns a copy of the accumulated datacards in first-seen order.
func (c *Catalog) Datacards() []DatacardSummary {
	return append([]DatacardSummary(nil), c.datacards...)
}

// Dataset looks up a dataset by "organization/slug".
func (c *Catalog) Dataset(key string) (DatasetSummary, bool) {
	i, ok := c.datasetIdx[key]
	if !ok {
		return DatasetSummary{}, false
	}
	return cloneDataset(c.datasets[i]), true
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	return len(c.datasets) + len(c.datacards)
}

func cloneDataset(d DatasetSummary) DatasetSummary {
	d.Measures = append([]string(nil), d.Measures...)
	d.Dimensions = append([]string(nil), d.Dimensions...)
	return d
}

// unionStrings appends the values of add missing from base.
func unionStrings(base, add []string) ([]string, bool) {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	out := base
	grew := false
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
			grew = true
		}
	}
	return out, grew
}
