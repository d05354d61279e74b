// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reply

import (
	"regexp"
	"strings"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// directiveStart matches the opening of an inline directive: "<$name".
var directiveStart = regexp.MustCompile(`<\$([A-Za-z_][A-Za-z0-9_]*)`)

// InlineTagParser recognizes directives of the form
//
//	<$search_dataset query="unemployment"/>
//	<$query_dataset query="rate by year" from="us_lbs/unemployment_rate"/>
//
// Only names reported by known become commands; any other directive is left
// in the text untouched.
type InlineTagParser struct {
	known func(string) bool
}

// NewInlineTagParser creates an inline directive parser. A nil known accepts
// no names.
func NewInlineTagParser(known func(string) bool) *InlineTagParser {
	if known == nil {
		known = func(string) bool { return false }
	}
	return &InlineTagParser{known: known}
}

// Parse splits text into text and command segments.
func (p *InlineTagParser) Parse(text string) Reply {
	var segments []Segment
	pos := 0

	for pos < len(text) {
		loc := directiveStart.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		nameEnd := pos + loc[1]
		name := text[pos+loc[2] : pos+loc[3]]

		end, ok := findTagEnd(text, nameEnd)
		if !ok || !p.known(name) {
			// Leave it in the text and keep scanning after the name.
			segments = append(segments, Segment{Kind: SegmentText, Text: text[pos:nameEnd]})
			pos = nameEnd
			continue
		}

		segments = append(segments, Segment{Kind: SegmentText, Text: text[pos:start]})

		body := text[nameEnd : end-1]
		attrs := parseAttrs(strings.TrimSuffix(strings.TrimSpace(body), "/"))
		inv := invocationFromAttrs(name, attrs)
		segments = append(segments, Segment{
			Kind:       SegmentCommand,
			Text:       text[start:end],
			Invocation: &inv,
		})
		pos = end
	}
	segments = append(segments, Segment{Kind: SegmentText, Text: text[pos:]})
	return newReply(segments)
}

// findTagEnd returns the index just past the '>' closing a directive whose
// attributes start at from. Quoted '>' characters are skipped. A directive
// never spans a newline inside a quote or reaches the next "<$"; when the scan
// hits either, the quoting is broken and the first '>' before that point
// closes the tag instead.
func findTagEnd(text string, from int) (int, bool) {
	limit := len(text)
	if next := strings.Index(text[from:], "<$"); next >= 0 {
		limit = from + next
	}

	var quote byte
	for i := from; i < limit; i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\n' {
				return firstClose(text, from, limit)
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1, true
		}
	}
	return firstClose(text, from, limit)
}

// firstClose returns the index just past the first '>' in text[from:limit].
func firstClose(text string, from, limit int) (int, bool) {
	if i := strings.IndexByte(text[from:limit], '>'); i >= 0 {
		return from + i + 1, true
	}
	return 0, false
}

// parseAttrs reads key="value", key='value' and key=value pairs. Anything it
// cannot read is skipped.
func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		keyStart := i
		for i < len(s) && isKeyByte(s[i]) {
			i++
		}
		if i == keyStart {
			// Not a key; skip one byte of garbage.
			i++
			continue
		}
		key := strings.ToLower(s[keyStart:i])

		if i >= len(s) || s[i] != '=' {
			attrs[key] = ""
			continue
		}
		i++

		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			quote := s[i]
			closeIdx := strings.IndexByte(s[i+1:], quote)
			if closeIdx < 0 {
				// Unterminated value: drop it and the rest.
				break
			}
			attrs[key] = s[i+1 : i+1+closeIdx]
			i += closeIdx + 2
			continue
		}

		valStart := i
		for i < len(s) && !isSpace(s[i]) {
			i++
		}
		attrs[key] = s[valStart:i]
	}
	return attrs
}

func invocationFromAttrs(name string, attrs map[string]string) model.Invocation {
	inv := model.Invocation{
		Command: name,
		Query:   attrs["query"],
		Dataset: attrs["dataset"],
		Source:  model.SourceInline,
	}
	if inv.Dataset == "" {
		inv.Dataset = attrs["from"]
	}
	if len(attrs) > 0 {
		inv.Attrs = attrs
	}
	return inv
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isKeyByte(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
