// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reply

import (
	"fmt"
	"strings"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// Parser names accepted in the [chat] parsers config list.
const (
	NameInline    = "inline"
	NameFenced    = "fenced"
	NameRetrieved = "retrieved"
)

// DefaultOrder is the parser chain used when none is configured.
var DefaultOrder = []string{NameInline, NameFenced, NameRetrieved}

// =============================================================================
// REPLY
// =============================================================================

// SegmentKind identifies what a reply segment holds.
type SegmentKind int

const (
	// SegmentText is plain assistant text.
	SegmentText SegmentKind = iota
	// SegmentCommand is a recognized directive that became an invocation.
	SegmentCommand
	// SegmentError is a directive that was stripped but could not be used.
	SegmentError
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case SegmentText:
		return "text"
	case SegmentCommand:
		return "command"
	case SegmentError:
		return "error"
	default:
		return "unknown"
	}
}

// Segment is one piece of a parsed reply, in source order.
type Segment struct {
	Kind SegmentKind

	// Text is the plain text for SegmentText, or the raw directive source.
	Text string

	// Invocation is set for SegmentCommand.
	Invocation *model.Invocation

	// Err is set for SegmentError.
	Err error
}

// Reply is the result of parsing assistant text.
type Reply struct {
	// Text is the input with every recognized directive removed.
	Text string

	// Segments covers the whole input in order.
	Segments []Segment

	// Invocations are the command segments' invocations, in order.
	Invocations []model.Invocation

	// Entities is set only by the prose retrieved-information parser.
	Entities *model.RetrievedInfo
}

// Errors returns the errors of every SegmentError, in order.
func (r Reply) Errors() []error {
	var errs []error
	for _, seg := range r.Segments {
		if seg.Kind == SegmentError {
			errs = append(errs, seg.Err)
		}
	}
	return errs
}

// Parser turns assistant text into a Reply.
type Parser interface {
	Parse(text string) Reply
}

// newReply builds a Reply from segments, merging adjacent text pieces and
// deriving Text and Invocations.
func newReply(segments []Segment) Reply {
	var r Reply
	var text strings.Builder

	for _, seg := range segments {
		switch seg.Kind {
		case SegmentText:
			if seg.Text == "" {
				continue
			}
			text.WriteString(seg.Text)
			if n := len(r.Segments); n > 0 && r.Segments[n-1].Kind == SegmentText {
				r.Segments[n-1].Text += seg.Text
				continue
			}
		case SegmentCommand:
			r.Invocations = append(r.Invocations, *seg.Invocation)
		}
		r.Segments = append(r.Segments, seg)
	}
	r.Text = text.String()
	return r
}

// =============================================================================
// CHAIN
// =============================================================================

// Chain runs parsers in order. Each parser sees only the text segments left
// by the parsers before it, so directives are never parsed twice and the
// final segments stay in source order.
type Chain struct {
	parsers []Parser
}

// NewChain creates a chain of the given parsers.
func NewChain(parsers ...Parser) *Chain {
	return &Chain{parsers: parsers}
}

// NewChainFromNames builds a chain from config names. known reports which
// inline directive names are registered commands.
func NewChainFromNames(names []string, known func(string) bool) (*Chain, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	parsers := make([]Parser, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case NameInline:
			parsers = append(parsers, NewInlineTagParser(known))
		case NameFenced:
			parsers = append(parsers, NewFencedQueryParser())
		case NameRetrieved:
			parsers = append(parsers, NewRetrievedInfoParser())
		default:
			return nil, fmt.Errorf("unknown reply parser %q", name)
		}
	}
	return NewChain(parsers...), nil
}

// Parse runs every parser over the remaining text.
func (c *Chain) Parse(text string) Reply {
	segments := []Segment{{Kind: SegmentText, Text: text}}
	var entities *model.RetrievedInfo

	for _, p := range c.parsers {
		next := make([]Segment, 0, len(segments))
		for _, seg := range segments {
			if seg.Kind != SegmentText {
				next = append(next, seg)
				continue
			}
			sub := p.Parse(seg.Text)
			next = append(next, sub.Segments...)
			if sub.Entities != nil {
				entities = mergeEntities(entities, sub.Entities)
			}
		}
		segments = next
	}

	r := newReply(segments)
	r.Entities = entities
	return r
}

func mergeEntities(into, add *model.RetrievedInfo) *model.RetrievedInfo {
	if into == nil {
		cp := *add
		return &cp
	}
	into.Datasets = append(into.Datasets, add.Datasets...)
	into.Datacards = append(into.Datacards, add.Datacards...)
	return into
}
