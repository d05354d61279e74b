// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reply

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/model"
)

// ErrQueryBlock is wrapped by every error produced for a data-query-json block.
var ErrQueryBlock = errors.New("invalid data-query-json block")

var fencedQuery = regexp.MustCompile("```data-query-json\\s*([\\s\\S]*?)```")

// FencedQueryParser turns ```data-query-json blocks into query_dataset
// invocations. The block's JSON object is sent as the structured query.
type FencedQueryParser struct{}

// NewFencedQueryParser creates a fenced block parser.
func NewFencedQueryParser() *FencedQueryParser {
	return &FencedQueryParser{}
}

// Parse strips every block. Valid blocks become command segments; the rest
// become error segments.
func (p *FencedQueryParser) Parse(text string) Reply {
	var segments []Segment
	last := 0

	for _, m := range fencedQuery.FindAllStringSubmatchIndex(text, -1) {
		segments = append(segments, Segment{Kind: SegmentText, Text: text[last:m[0]]})
		source := text[m[0]:m[1]]

		inv, err := blockInvocation(text[m[2]:m[3]])
		if err != nil {
			segments = append(segments, Segment{Kind: SegmentError, Text: source, Err: err})
		} else {
			segments = append(segments, Segment{Kind: SegmentCommand, Text: source, Invocation: &inv})
		}
		last = m[1]
	}
	segments = append(segments, Segment{Kind: SegmentText, Text: text[last:]})
	return newReply(segments)
}

func blockInvocation(body string) (model.Invocation, error) {
	q, err := model.DecodeQueryObject([]byte(strings.TrimSpace(body)))
	if err != nil {
		return model.Invocation{}, fmt.Errorf("%w: %v", ErrQueryBlock, err)
	}
	if _, err := model.ParseDatasetRef(q.Dataset); err != nil {
		return model.Invocation{}, fmt.Errorf("%w: %w", ErrQueryBlock, err)
	}

	return model.Invocation{
		Command:    commands.QueryDataset,
		Query:      string(q.Raw),
		Dataset:    q.Dataset,
		Structured: q.Raw,
		Source:     model.SourceFenced,
	}, nil
}
