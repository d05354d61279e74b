// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotTabular is returned when a payload is not an array of objects.
var ErrNotTabular = errors.New("result is not a list of rows")

// Row is one query result record. Column order is the key order of the
// JSON object it was decoded from.
type Row = *orderedmap.OrderedMap[string, any]

// QueryResult is an ordered sequence of row records. All rows are assumed to
// share the first row's keys; the backend guarantees that, not this type.
type QueryResult struct {
	Rows []Row
}

// DecodeQueryResult decodes a JSON array of objects, keeping key order.
func DecodeQueryResult(raw []byte) (*QueryResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotTabular
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}

	result := &QueryResult{Rows: make([]Row, 0, len(items))}
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrNotTabular, i)
		}
		row := orderedmap.New[string, any]()
		if err := json.Unmarshal(item, row); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", i, err)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// Len returns the number of rows.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// IsEmpty reports whether the result has no rows.
func (r *QueryResult) IsEmpty() bool {
	return r.Len() == 0
}

// Columns returns the header, taken from the first row's keys.
func (r *QueryResult) Columns() []string {
	if r.IsEmpty() {
		return nil
	}
	cols := make([]string, 0, r.Rows[0].Len())
	for pair := r.Rows[0].Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}
	return cols
}

// Cells returns every row's values as strings in header order.
// A key missing from a row renders as an empty cell.
func (r *QueryResult) Cells() [][]string {
	cols := r.Columns()
	out := make([][]string, 0, r.Len())
	for _, row := range r.Rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			if v, ok := row.Get(col); ok {
				cells[i] = FormatCell(v)
			}
		}
		out = append(out, cells)
	}
	return out
}

// MarshalJSON encodes the rows with their original key order.
func (r *QueryResult) MarshalJSON() ([]byte, error) {
	if r == nil || r.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Rows)
}

// FormatCell renders a decoded JSON scalar for display.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
