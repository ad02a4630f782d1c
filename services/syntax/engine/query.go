// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
)

// Query is a compiled structural pattern over one grammar.
//
// Queries are request-scoped: compiled at the start of request handling
// and Closed once the response is built. Invalid pattern syntax is a
// construction-time failure, never a partial match set.
type Query struct {
	// Language is the grammar id the pattern was compiled against.
	Language string

	q       *sitter.Query
	srcSize int
}

// Close releases the underlying tree-sitter query.
func (q *Query) Close() {
	if q.q != nil {
		q.q.Close()
		q.q = nil
	}
}

// Capture is one named binding produced by a query match.
type Capture struct {
	// Name is the capture name from the pattern, without the "@".
	Name string `json:"name"`

	// Type is the grammar type of the captured node.
	Type string `json:"type"`

	// StartByte and EndByte delimit the captured node in the source.
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`

	// StartPoint and EndPoint are the zero-based row/column positions.
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`

	// Text is the exact source substring the node spans.
	Text string `json:"text"`

	// index is the capture's declaration order within the pattern, used
	// to break document-order ties in the flat capture listing.
	index uint32
}

// MatchGroup holds all captures that co-occur in one pattern match.
type MatchGroup struct {
	// Pattern is the index of the pattern within the query that matched.
	Pattern int `json:"pattern"`

	// Captures lists the match's captures in the order the engine
	// emitted them.
	Captures []Capture `json:"captures"`
}

// Compile compiles a query pattern against a language's grammar.
//
// Description:
//
//	Invalid pattern syntax fails here with a *CompileError carrying the
//	grammar compiler's diagnostic verbatim; it never reaches execution.
//
// Outputs:
//
//	*Query - The compiled pattern. Caller must Close it.
//	error - lang.ErrUnsupportedLanguage or *CompileError.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Engine) Compile(language, querySource string) (*Query, error) {
	grammar, err := e.registry.Grammar(language)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery([]byte(querySource), grammar)
	if err != nil {
		var qerr *sitter.QueryError
		if errors.As(err, &qerr) {
			return nil, &CompileError{Language: language, Offset: qerr.Offset, Message: qerr.Error()}
		}
		return nil, &CompileError{Language: language, Message: err.Error()}
	}

	return &Query{Language: language, q: q, srcSize: len(querySource)}, nil
}

// Matches executes a compiled query and groups captures per pattern match.
//
// Description:
//
//	Walks the tree with a fresh cursor and returns one MatchGroup per
//	match, in match-discovery order. Predicates in the pattern (#eq?,
//	#match?, ...) are applied against the tree's source. Matches whose
//	captures are all filtered out by predicates are dropped.
//
// Outputs:
//
//	[]MatchGroup - Never nil on success; empty when nothing matched.
//	error - ErrTimeout if the context deadline expires mid-execution.
//
// Thread Safety: This method is safe for concurrent use; cursors are
// never reused across requests.
func (e *Engine) Matches(ctx context.Context, tree *Tree, query *Query) ([]MatchGroup, error) {
	ctx, span := startQuerySpan(ctx, query.Language, query.srcSize)
	defer span.End()

	start := time.Now()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query.q, tree.Root())

	groups := make([]MatchGroup, 0)
	for {
		if err := ctx.Err(); err != nil {
			recordQueryMetrics(ctx, query.Language, time.Since(start), len(groups))
			return nil, fmt.Errorf("%w: query on %s", ErrTimeout, query.Language)
		}

		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, tree.Source)
		if len(match.Captures) == 0 {
			continue
		}

		g := MatchGroup{
			Pattern:  int(match.PatternIndex),
			Captures: make([]Capture, 0, len(match.Captures)),
		}
		for _, qc := range match.Captures {
			g.Captures = append(g.Captures, newCapture(query.q.CaptureNameForId(qc.Index), qc.Index, qc.Node, tree.Source))
		}
		groups = append(groups, g)
	}

	recordQueryMetrics(ctx, query.Language, time.Since(start), len(groups))
	return groups, nil
}

// Captures executes a compiled query and returns a flat capture list.
//
// Description:
//
//	Collects every capture across every match and orders them by
//	document position: node start byte ascending, ties broken by the
//	capture's declaration order in the pattern.
//
// Outputs:
//
//	[]Capture - Never nil on success; empty when nothing matched.
//	error - ErrTimeout if the context deadline expires mid-execution.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Engine) Captures(ctx context.Context, tree *Tree, query *Query) ([]Capture, error) {
	groups, err := e.Matches(ctx, tree, query)
	if err != nil {
		return nil, err
	}

	captures := make([]Capture, 0, len(groups))
	for _, g := range groups {
		captures = append(captures, g.Captures...)
	}

	sort.SliceStable(captures, func(i, j int) bool {
		if captures[i].StartByte != captures[j].StartByte {
			return captures[i].StartByte < captures[j].StartByte
		}
		return captures[i].index < captures[j].index
	})

	return captures, nil
}

// newCapture projects a query capture into the wire shape.
func newCapture(name string, index uint32, node *sitter.Node, source []byte) Capture {
	return Capture{
		Name:       name,
		Type:       node.Type(),
		StartByte:  node.StartByte(),
		EndByte:    node.EndByte(),
		StartPoint: Point{Row: node.StartPoint().Row, Column: node.StartPoint().Column},
		EndPoint:   Point{Row: node.EndPoint().Row, Column: node.EndPoint().Column},
		Text:       node.Content(source),
		index:      index,
	}
}
