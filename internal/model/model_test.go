// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_MergeRule(t *testing.T) {
	tests := []struct {
		name  string
		steps []struct {
			role    Role
			content string
		}
		want []WireTurn
	}{
		{
			name: "consecutive user turns merge",
			steps: []struct {
				role    Role
				content string
			}{
				{RoleUser, "first"},
				{RoleUser, "second"},
			},
			want: []WireTurn{{Role: RoleUser, Content: "first\nsecond"}},
		},
		{
			name: "alternating roles create entries",
			steps: []struct {
				role    Role
				content string
			}{
				{RoleUser, "q"},
				{RoleAssistant, "a"},
				{RoleUser, "q2"},
			},
			want: []WireTurn{
				{Role: RoleUser, Content: "q"},
				{Role: RoleAssistant, Content: "a"},
				{Role: RoleUser, Content: "q2"},
			},
		},
		{
			name: "consecutive assistant turns merge",
			steps: []struct {
				role    Role
				content string
			}{
				{RoleUser, "q"},
				{RoleAssistant, "a1"},
				{RoleAssistant, "a2"},
			},
			want: []WireTurn{
				{Role: RoleUser, Content: "q"},
				{Role: RoleAssistant, Content: "a1\na2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory()
			for _, s := range tt.steps {
				h.Append(s.role, s.content)
			}
			if diff := cmp.Diff(tt.want, h.Wire()); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHistory_AppendAssistantKeepsAuxiliaryFields(t *testing.T) {
	h := NewHistory()
	h.Append(RoleUser, "q")
	turn := h.AppendAssistant("answer", `{"datasets":[]}`, `{"dataset":"a/b"}`)

	assert.Equal(t, `{"datasets":[]}`, turn.RetrievedInformation)
	assert.Equal(t, `{"dataset":"a/b"}`, turn.SuggestedQuery)

	wire, err := MarshalWire(h.Wire())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"role":"user","content":"q"},
		{"role":"assistant","content":"answer","retrieved_information":"{\"datasets\":[]}","suggested_query":"{\"dataset\":\"a/b\"}"}
	]`, wire)
}

func TestMarshalWire_Empty(t *testing.T) {
	wire, err := MarshalWire(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", wire)
}

func TestTurn_Preview(t *testing.T) {
	turn := NewTurn(RoleUser, "a fairly long first line\nsecond")
	assert.Equal(t, "a fairly...", turn.Preview(11))
	assert.Equal(t, "a fairly long first line", turn.Preview(100))
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestCatalog_MergeIsUnion(t *testing.T) {
	c := NewCatalog()

	changed := c.Merge(RetrievedInfo{
		Datasets: []DatasetSummary{
			{Organization: "us_lbs", DatasetSlug: "unemployment_rate", Description: "Unemployment", Measures: []string{"rate"}, Dimensions: []string{"year"}},
		},
		Datacards: []DatacardSummary{{Organization: "us_lbs", DatacardSlug: "trend", Name: "Trend"}},
	})
	require.True(t, changed)

	changed = c.Merge(RetrievedInfo{
		Datasets: []DatasetSummary{
			{Organization: "worldbank", DatasetSlug: "gdp", Description: "GDP"},
			{Organization: "us_lbs", DatasetSlug: "unemployment_rate", Measures: []string{"rate", "count"}},
		},
	})
	require.True(t, changed)

	datasets := c.Datasets()
	require.Len(t, datasets, 2)
	assert.Equal(t, "us_lbs/unemployment_rate", datasets[0].Key())
	assert.Equal(t, "Unemployment", datasets[0].Description, "empty fields do not erase")
	assert.Equal(t, []string{"rate", "count"}, datasets[0].Measures)
	assert.Equal(t, "worldbank/gdp", datasets[1].Key())
	assert.Len(t, c.Datacards(), 1, "datacards are kept when a turn omits them")
	assert.Equal(t, 3, c.Len())
}

func TestCatalog_MergeSameInfoIsNoop(t *testing.T) {
	c := NewCatalog()
	info := RetrievedInfo{Datasets: []DatasetSummary{{Organization: "a", DatasetSlug: "b", Description: "d"}}}
	require.True(t, c.Merge(info))
	assert.False(t, c.Merge(info))
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := NewCatalog()
	c.Merge(RetrievedInfo{Datasets: []DatasetSummary{{Organization: "a", DatasetSlug: "b", Measures: []string{"m"}}}})

	ds := c.Datasets()
	ds[0].Measures[0] = "changed"

	got, ok := c.Dataset("a/b")
	require.True(t, ok)
	assert.Equal(t, []string{"m"}, got.Measures)
}

func TestParseRetrievedInfo(t *testing.T) {
	info, err := ParseRetrievedInfo(`{
		"datasets":[{"organization":"us_lbs","dataset_slug":"unemployment_rate","description":"Rate","measures":["rate"],"dimensions":["date"]},{"description":"no key"}],
		"datacards":[{"organization":"us_lbs","datacard_slug":"trend","name":"Trend"}]
	}`)
	require.NoError(t, err)
	require.Len(t, info.Datasets, 1)
	assert.Equal(t, "us_lbs/unemployment_rate", info.Datasets[0].Key())
	require.Len(t, info.Datacards, 1)
	assert.Equal(t, "Trend", info.Datacards[0].Title())

	empty, err := ParseRetrievedInfo("  ")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = ParseRetrievedInfo("{not json")
	assert.Error(t, err)
}

// =============================================================================
// INVOCATION TESTS
// =============================================================================

func TestParseDatasetRef(t *testing.T) {
	tests := []struct {
		in      string
		want    DatasetRef
		wantErr bool
	}{
		{"us_lbs/unemployment_rate", DatasetRef{"us_lbs", "unemployment_rate"}, false},
		{" worldbank/gdp ", DatasetRef{"worldbank", "gdp"}, false},
		{"org/a/b", DatasetRef{"org", "a/b"}, false},
		{"unemployment_rate", DatasetRef{}, true},
		{"/slug", DatasetRef{}, true},
		{"org/", DatasetRef{}, true},
		{"", DatasetRef{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDatasetRef(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDataset))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvocation_QueryPayload(t *testing.T) {
	plain := Invocation{Command: "query_dataset", Query: "rate by year"}
	assert.Equal(t, "rate by year", plain.QueryPayload())

	structured := Invocation{Command: "query_dataset", Query: "ignored", Structured: json.RawMessage(`{"limit":5}`)}
	data, err := json.Marshal(map[string]any{"query": structured.QueryPayload()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"limit":5}}`, string(data))
}

func TestSuggestedQuery_Invocation(t *testing.T) {
	q, err := ParseSuggestedQuery(`{"dataset":"us_lbs/unemployment_rate","description":"Rate by year","measures":["rate"],"dimensions":["year"],"limit":10}`)
	require.NoError(t, err)

	inv, ok := q.Invocation()
	require.True(t, ok)
	assert.Equal(t, "query_dataset", inv.Command)
	assert.Equal(t, "Rate by year", inv.Query)
	assert.Equal(t, "us_lbs/unemployment_rate", inv.Dataset)
	assert.Equal(t, SourceSuggested, inv.Source)

	noDesc, err := ParseSuggestedQuery(`{"dataset":"a/b"}`)
	require.NoError(t, err)
	_, ok = noDesc.Invocation()
	assert.False(t, ok)

	none, err := ParseSuggestedQuery("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseSuggestedQuery("{")
	assert.Error(t, err)
}

func TestSuggestedQuery_ToleratesFieldTypes(t *testing.T) {
	q, err := ParseSuggestedQuery(`{"dataset":"us_lbs/jobs", "description":"Jobs", "order":"year DESC", "limit":"10"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"dataset":"us_lbs/jobs","description":"Jobs","order":"year DESC","limit":"10"}`, string(q.Raw))

	inv, ok := q.Invocation()
	require.True(t, ok)
	assert.Equal(t, "Jobs", inv.Query)
	assert.Equal(t, "us_lbs/jobs", inv.Dataset)
}

// =============================================================================
// QUERY RESULT TESTS
// =============================================================================

func TestDecodeQueryResult_KeepsColumnOrder(t *testing.T) {
	res, err := DecodeQueryResult([]byte(`[{"a":1,"b":2},{"a":3,"b":4}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, res.Columns())
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, res.Cells())
}

func TestDecodeQueryResult_NonAlphabeticalOrder(t *testing.T) {
	res, err := DecodeQueryResult([]byte(`[{"year":2020,"state":"CA","rate":7.5,"final":true,"note":null}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"year", "state", "rate", "final", "note"}, res.Columns())
	assert.Equal(t, [][]string{{"2020", "CA", "7.5", "true", "null"}}, res.Cells())

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `[{"year":2020,"state":"CA","rate":7.5,"final":true,"note":null}]`, string(out))
}

func TestDecodeQueryResult_MissingKeysRenderEmpty(t *testing.T) {
	res, err := DecodeQueryResult([]byte(`[{"a":1,"b":2},{"a":3}]`))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", ""}}, res.Cells())
}

func TestDecodeQueryResult_Errors(t *testing.T) {
	for _, in := range []string{`{"detail":"x"}`, `[1,2]`, ``, `"rows"`} {
		t.Run(in, func(t *testing.T) {
			_, err := DecodeQueryResult([]byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotTabular))
		})
	}
}

func TestDecodeQueryResult_Empty(t *testing.T) {
	res, err := DecodeQueryResult([]byte(`[]`))
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Nil(t, res.Columns())
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "1.25", FormatCell(1.25))
	assert.Equal(t, "x", FormatCell("x"))
	assert.Equal(t, `[1,2]`, FormatCell([]any{1.0, 2.0}))
	assert.Equal(t, `{"k":"v"}`, FormatCell(map[string]any{"k": "v"}))
}
