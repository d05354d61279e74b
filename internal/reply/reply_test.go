// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reply

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/datachat-tui/internal/model"
)

func knownNames(name string) bool {
	switch name {
	case "search_dataset", "search_datacard", "query_dataset":
		return true
	}
	return false
}

// =============================================================================
// INLINE TAG TESTS
// =============================================================================

func TestInline_KnownDirectivesRemovedInOrder(t *testing.T) {
	text := `Let me look. <$search_dataset query="unemployment"/> Then ` +
		`<$query_dataset query="rate by year" from="us_lbs/unemployment_rate"/> done.`

	r := NewInlineTagParser(knownNames).Parse(text)

	assert.Equal(t, "Let me look.  Then  done.", r.Text)
	want := []model.Invocation{
		{
			Command: "search_dataset",
			Query:   "unemployment",
			Source:  model.SourceInline,
			Attrs:   map[string]string{"query": "unemployment"},
		},
		{
			Command: "query_dataset",
			Query:   "rate by year",
			Dataset: "us_lbs/unemployment_rate",
			Source:  model.SourceInline,
			Attrs:   map[string]string{"query": "rate by year", "from": "us_lbs/unemployment_rate"},
		},
	}
	if diff := cmp.Diff(want, r.Invocations); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}

	kinds := make([]SegmentKind, 0, len(r.Segments))
	for _, seg := range r.Segments {
		kinds = append(kinds, seg.Kind)
	}
	assert.Equal(t, []SegmentKind{SegmentText, SegmentCommand, SegmentText, SegmentCommand, SegmentText}, kinds)
	assert.Equal(t, `<$search_dataset query="unemployment"/>`, r.Segments[1].Text)
}

func TestInline_SegmentsReassembleInput(t *testing.T) {
	inputs := []string{
		"",
		"plain text only",
		`<$search_dataset query="a"/>`,
		`x <$unknown_cmd query="a"/> y <$search_datacard query='b'> z`,
		`<$search_dataset query="unterminated>`,
		`<$search_dataset no close`,
	}
	p := NewInlineTagParser(knownNames)

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			r := p.Parse(in)
			var joined string
			for _, seg := range r.Segments {
				joined += seg.Text
			}
			assert.Equal(t, in, joined)
		})
	}
}

func TestInline_UnknownDirectiveStaysVerbatim(t *testing.T) {
	text := `Try <$drop_table name="users"/> instead.`
	r := NewInlineTagParser(knownNames).Parse(text)

	assert.Equal(t, text, r.Text)
	assert.Empty(t, r.Invocations)
	require.Len(t, r.Segments, 1)
	assert.Equal(t, SegmentText, r.Segments[0].Kind)
}

func TestInline_NilKnownAcceptsNothing(t *testing.T) {
	r := NewInlineTagParser(nil).Parse(`<$search_dataset query="a"/>`)
	assert.Empty(t, r.Invocations)
}

func TestInline_MalformedAttributes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		text    string
		wantInv model.Invocation
	}{
		{
			name:    "unterminated quote falls back to first close",
			input:   `a <$search_dataset query="jobs> b`,
			text:    "a  b",
			wantInv: model.Invocation{Command: "search_dataset", Source: model.SourceInline},
		},
		{
			name:  "garbage between attributes is skipped",
			input: `<$query_dataset === query="rate" !! dataset=us_lbs/jobs />`,
			text:  "",
			wantInv: model.Invocation{
				Command: "query_dataset",
				Query:   "rate",
				Dataset: "us_lbs/jobs",
				Source:  model.SourceInline,
				Attrs:   map[string]string{"query": "rate", "dataset": "us_lbs/jobs"},
			},
		},
		{
			name:  "quoted close bracket stays in value",
			input: `<$search_dataset query="a > b"/>`,
			text:  "",
			wantInv: model.Invocation{
				Command: "search_dataset",
				Query:   "a > b",
				Source:  model.SourceInline,
				Attrs:   map[string]string{"query": "a > b"},
			},
		},
		{
			name:  "dataset attribute wins over from",
			input: `<$query_dataset query=q dataset="a/b" from="c/d">`,
			text:  "",
			wantInv: model.Invocation{
				Command: "query_dataset",
				Query:   "q",
				Dataset: "a/b",
				Source:  model.SourceInline,
				Attrs:   map[string]string{"query": "q", "dataset": "a/b", "from": "c/d"},
			},
		},
	}

	p := NewInlineTagParser(knownNames)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Parse(tt.input)
			assert.Equal(t, tt.text, r.Text)
			require.Len(t, r.Invocations, 1)
			if diff := cmp.Diff(tt.wantInv, r.Invocations[0]); diff != "" {
				t.Errorf("invocation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInline_StrayQuoteDoesNotSwallowProse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		text    string
		wantInv []model.Invocation
	}{
		{
			name:  "later directive",
			input: `A <$search_dataset query="gdp/> I'd say "hi. Next <$search_datacard query="x"/> tail`,
			text:  `A  I'd say "hi. Next  tail`,
			wantInv: []model.Invocation{
				{Command: "search_dataset", Source: model.SourceInline},
				{Command: "search_datacard", Query: "x", Source: model.SourceInline, Attrs: map[string]string{"query": "x"}},
			},
		},
		{
			name:  "quote open across a newline",
			input: "<$search_dataset query=\"jobs/>\nIt's \"fine\" > ok",
			text:  "\nIt's \"fine\" > ok",
			wantInv: []model.Invocation{
				{Command: "search_dataset", Source: model.SourceInline},
			},
		},
	}

	p := NewInlineTagParser(knownNames)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Parse(tt.input)
			assert.Equal(t, tt.text, r.Text)
			if diff := cmp.Diff(tt.wantInv, r.Invocations); diff != "" {
				t.Errorf("invocations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInline_UnclosedDirectiveIsText(t *testing.T) {
	text := `see <$search_dataset query="x" and more`
	r := NewInlineTagParser(knownNames).Parse(text)
	assert.Equal(t, text, r.Text)
	assert.Empty(t, r.Invocations)
}

func TestParseAttrs(t *testing.T) {
	tests := []struct {
		input string
		want  map[string]string
	}{
		{``, map[string]string{}},
		{`query="a b"`, map[string]string{"query": "a b"}},
		{`QUERY='x' flag`, map[string]string{"query": "x", "flag": ""}},
		{`a=1 b="2`, map[string]string{"a": "1"}},
		{`"stray" k=v`, map[string]string{"stray": "", "k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAttrs(tt.input))
		})
	}
}

// =============================================================================
// FENCED BLOCK TESTS
// =============================================================================

func TestFenced_ValidBlock(t *testing.T) {
	text := "Here is a query:\n```data-query-json\n{\n  \"dataset\": \"us_lbs/unemployment_rate\",\n  \"measures\": [\"rate\"],\n  \"dimensions\": [\"state\"]\n}\n```\nIt shows rates."

	r := NewFencedQueryParser().Parse(text)

	assert.Equal(t, "Here is a query:\n\nIt shows rates.", r.Text)
	require.Len(t, r.Invocations, 1)
	inv := r.Invocations[0]
	assert.Equal(t, "query_dataset", inv.Command)
	assert.Equal(t, "us_lbs/unemployment_rate", inv.Dataset)
	assert.Equal(t, model.SourceFenced, inv.Source)
	assert.JSONEq(t, `{"dataset":"us_lbs/unemployment_rate","measures":["rate"],"dimensions":["state"]}`, string(inv.Structured))
	assert.Equal(t, string(inv.Structured), inv.Query)
	assert.Equal(t, json.RawMessage(inv.Structured), inv.QueryPayload())
}

func TestFenced_ForwardsLooselyTypedFields(t *testing.T) {
	block := `{"dataset":"us_lbs/jobs","measures":"jobs","order":"year DESC","limit":"10"}`
	text := "```data-query-json\n" + block + "\n```"

	r := NewFencedQueryParser().Parse(text)

	assert.Empty(t, r.Errors())
	require.Len(t, r.Invocations, 1)
	inv := r.Invocations[0]
	assert.Equal(t, "us_lbs/jobs", inv.Dataset)
	assert.Equal(t, block, string(inv.Structured))
	assert.Equal(t, block, inv.Query)
}

func TestFenced_InvalidBlocksAreStripped(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"malformed json", "{not json"},
		{"dataset without slash", `{"dataset":"unemployment_rate"}`},
		{"missing dataset", `{"measures":["rate"]}`},
		{"dataset not a string", `{"dataset":42}`},
		{"not an object", `["us_lbs/jobs"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "before ```data-query-json\n" + tt.block + "\n``` after"
			r := NewFencedQueryParser().Parse(text)

			assert.Equal(t, "before  after", r.Text)
			assert.Empty(t, r.Invocations)
			errs := r.Errors()
			require.Len(t, errs, 1)
			assert.True(t, errors.Is(errs[0], ErrQueryBlock))
		})
	}
}

// =============================================================================
// RETRIEVED INFO TESTS
// =============================================================================

const proseReply = `Retrieved Information:
Datasets:
- Unemployment Rate (us_lbs/unemployment_rate): Monthly unemployment by state
  Measures: rate, labor_force
  Dimensions: state, month
Datacards:
- Rate Trend (us_lbs/rate_trend): Line chart of the rate
AI Response:
Unemployment peaked in 2020.`

func TestRetrieved_ParsesProseBlock(t *testing.T) {
	r := NewRetrievedInfoParser().Parse(proseReply)

	assert.Equal(t, "Unemployment peaked in 2020.", r.Text)
	require.NotNil(t, r.Entities)

	want := model.RetrievedInfo{
		Datasets: []model.DatasetSummary{{
			Name:         "Unemployment Rate",
			Organization: "us_lbs",
			DatasetSlug:  "unemployment_rate",
			Description:  "Monthly unemployment by state",
			Measures:     []string{"rate", "labor_force"},
			Dimensions:   []string{"state", "month"},
		}},
		Datacards: []model.DatacardSummary{{
			Name:         "Rate Trend",
			Organization: "us_lbs",
			DatacardSlug: "rate_trend",
			Description:  "Line chart of the rate",
		}},
	}
	if diff := cmp.Diff(want, *r.Entities); diff != "" {
		t.Errorf("entities mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieved_NoMarker(t *testing.T) {
	r := NewRetrievedInfoParser().Parse("just an answer")
	assert.Equal(t, "just an answer", r.Text)
	assert.Nil(t, r.Entities)
}

func TestRetrieved_BlockEndsAtBlankLine(t *testing.T) {
	text := "Retrieved Information:\nDatacards:\n- Trend (a/b): chart\n\nThe answer."
	r := NewRetrievedInfoParser().Parse(text)

	assert.Equal(t, "The answer.", r.Text)
	require.NotNil(t, r.Entities)
	require.Len(t, r.Entities.Datacards, 1)
	assert.Equal(t, "a/b", r.Entities.Datacards[0].Key())
}

// =============================================================================
// CHAIN TESTS
// =============================================================================

func TestChain_DefaultOrder(t *testing.T) {
	chain, err := NewChainFromNames(nil, knownNames)
	require.NoError(t, err)

	text := "Retrieved Information:\nDatasets:\n- Jobs (us_lbs/jobs): Jobs\nAI Response:\n" +
		"Searching <$search_dataset query=\"jobs\"/> now.\n" +
		"```data-query-json\n{\"dataset\":\"us_lbs/jobs\",\"measures\":[\"count\"]}\n```\n" +
		"<$query_dataset query=\"count\" from=\"us_lbs/jobs\"/>"

	r := chain.Parse(text)

	require.Len(t, r.Invocations, 3)
	assert.Equal(t, model.SourceInline, r.Invocations[0].Source)
	assert.Equal(t, model.SourceFenced, r.Invocations[1].Source)
	assert.Equal(t, model.SourceInline, r.Invocations[2].Source)
	assert.Equal(t, "search_dataset", r.Invocations[0].Command)
	assert.Equal(t, "query_dataset", r.Invocations[2].Command)

	require.NotNil(t, r.Entities)
	require.Len(t, r.Entities.Datasets, 1)
	assert.Equal(t, "us_lbs/jobs", r.Entities.Datasets[0].Key())

	assert.Equal(t, "Searching  now.\n\n", r.Text)
}

func TestChain_UnknownParserName(t *testing.T) {
	_, err := NewChainFromNames([]string{"inline", "xml"}, knownNames)
	assert.ErrorContains(t, err, `"xml"`)
}

func TestChain_SubsetOfParsers(t *testing.T) {
	chain, err := NewChainFromNames([]string{"fenced"}, knownNames)
	require.NoError(t, err)

	r := chain.Parse(`<$search_dataset query="a"/>`)
	assert.Empty(t, r.Invocations)
	assert.Equal(t, `<$search_dataset query="a"/>`, r.Text)
}

func TestSegmentKind_String(t *testing.T) {
	assert.Equal(t, "text", SegmentText.String())
	assert.Equal(t, "command", SegmentCommand.String())
	assert.Equal(t, "error", SegmentError.String())
}
