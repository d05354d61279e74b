// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reply

import (
	"regexp"
	"strings"

	"github.com/jeranaias/datachat-tui/internal/model"
)

const (
	retrievedMarker = "Retrieved Information:"
	responseMarker  = "AI Response:"
)

// entryLine matches "- Name (org/slug): description".
var entryLine = regexp.MustCompile(`^-\s*(.*?)\s*\(([^/()\s]+)/([^()\s]+)\)\s*:?\s*(.*)$`)

// RetrievedInfoParser scrapes a prose "Retrieved Information:" block of the
// form
//
//	Retrieved Information:
//	Datasets:
//	- Unemployment Rate (us_lbs/unemployment_rate): Monthly rate by state
//	  Measures: rate
//	  Dimensions: state, month
//	Datacards:
//	- Rate Trend (us_lbs/rate_trend): Line chart of the rate
//	AI Response:
//
// The block is removed from the text and its entries are returned as
// Reply.Entities. It is a fallback for replies without structured
// retrieved_information.
type RetrievedInfoParser struct{}

// NewRetrievedInfoParser creates the prose fallback parser.
func NewRetrievedInfoParser() *RetrievedInfoParser {
	return &RetrievedInfoParser{}
}

// Parse removes the first retrieved-information block, if any.
func (p *RetrievedInfoParser) Parse(text string) Reply {
	start := strings.Index(text, retrievedMarker)
	if start < 0 {
		return newReply([]Segment{{Kind: SegmentText, Text: text}})
	}

	bodyStart := start + len(retrievedMarker)
	end := len(text)
	bodyEnd := end
	if i := strings.Index(text[bodyStart:], responseMarker); i >= 0 {
		bodyEnd = bodyStart + i
		end = bodyEnd + len(responseMarker)
	} else if i := blankLineAfterEntries(text[bodyStart:]); i >= 0 {
		bodyEnd = bodyStart + i
		end = bodyEnd
	}

	info := parseRetrievedProse(text[bodyStart:bodyEnd])
	r := newReply([]Segment{
		{Kind: SegmentText, Text: text[:start]},
		{Kind: SegmentText, Text: strings.TrimLeft(text[end:], " \t\r\n")},
	})
	r.Entities = &info
	return r
}

// blankLineAfterEntries returns the offset of the first blank line that
// follows at least one entry line, or -1.
func blankLineAfterEntries(s string) int {
	seenEntry := false
	offset := 0
	for _, line := range strings.SplitAfter(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && seenEntry {
			return offset
		}
		if strings.HasPrefix(trimmed, "-") {
			seenEntry = true
		}
		offset += len(line)
	}
	return -1
}

func parseRetrievedProse(body string) model.RetrievedInfo {
	var info model.RetrievedInfo
	section := ""
	var current *model.DatasetSummary

	flush := func() {
		if current != nil {
			info.Datasets = append(info.Datasets, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.EqualFold(trimmed, "Datasets:"):
			flush()
			section = "datasets"
		case strings.EqualFold(trimmed, "Datacards:"):
			flush()
			section = "datacards"
		case strings.HasPrefix(trimmed, "Measures:") && current != nil:
			current.Measures = splitList(strings.TrimPrefix(trimmed, "Measures:"))
		case strings.HasPrefix(trimmed, "Dimensions:") && current != nil:
			current.Dimensions = splitList(strings.TrimPrefix(trimmed, "Dimensions:"))
		default:
			m := entryLine.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			switch section {
			case "datasets":
				flush()
				current = &model.DatasetSummary{
					Name:         m[1],
					Organization: m[2],
					DatasetSlug:  m[3],
					Description:  m[4],
				}
			case "datacards":
				info.Datacards = append(info.Datacards, model.DatacardSummary{
					Name:         m[1],
					Organization: m[2],
					DatacardSlug: m[3],
					Description:  m[4],
				})
			}
		}
	}
	flush()
	return info
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
