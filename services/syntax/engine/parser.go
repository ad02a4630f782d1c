// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine builds tree-sitter syntax trees and runs structural
// queries against them.
//
// Trees are request-scoped: each Parse call creates its own tree-sitter
// parser instance, and the resulting Tree is discarded once the caller's
// response is built. Nothing is cached across requests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/AleutianSyntax/services/syntax/lang"
)

// Engine parses source buffers and executes structural queries.
//
// Description:
//
//	Engine holds only the read-only language registry; every operation
//	allocates its own parser and cursor, so there is no shared mutable
//	state between requests.
//
// Thread Safety:
//
//	Engine is safe for concurrent use. Multiple goroutines may call
//	Parse, Compile, Captures, and Matches simultaneously.
type Engine struct {
	registry *lang.Registry
}

// NewEngine creates an Engine over the given language registry.
func NewEngine(registry *lang.Registry) *Engine {
	return &Engine{registry: registry}
}

// Tree is the immutable result of parsing one source buffer.
//
// A Tree is owned exclusively by the request that produced it; callers
// must Close it after the response is built.
type Tree struct {
	// Language is the grammar id the source was parsed with.
	Language string

	// Source is the raw bytes the tree was built from. Needed to slice
	// out capture text.
	Source []byte

	tree *sitter.Tree
}

// Root returns the root node of the tree.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// HasError reports whether the tree contains any error nodes, i.e. the
// source was not syntactically valid in the target language.
func (t *Tree) HasError() bool {
	return t.tree.RootNode().HasError()
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Parse builds a syntax tree for the given content and language id.
//
// Description:
//
//	Constructs a grammar-specific parser and parses the full buffer in
//	one pass. Syntactically invalid source is NOT a failure: the tree
//	then contains explicit error nodes and Tree.HasError reports true.
//
// Inputs:
//
//	ctx - Context carrying the request's wall-clock deadline. Parsing
//	      aborts with ErrTimeout when it expires.
//	content - Raw source bytes. Invalid UTF-8 is tolerated.
//	language - Grammar id from the registry.
//
// Outputs:
//
//	*Tree - The parsed tree. Never nil on success. Caller must Close it.
//	error - lang.ErrUnsupportedLanguage, ErrTimeout, or ErrParseFailure
//	        for engine-internal errors only.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Engine) Parse(ctx context.Context, content []byte, language string) (*Tree, error) {
	ctx, span := startParseSpan(ctx, language, len(content))
	defer span.End()

	start := time.Now()

	grammar, err := e.registry.Grammar(language)
	if err != nil {
		recordParseMetrics(ctx, language, time.Since(start), false)
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, language, time.Since(start), false)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: parsing %s", ErrTimeout, language)
		}
		return nil, fmt.Errorf("%w: %s", ErrParseFailure, err)
	}
	if tree == nil {
		recordParseMetrics(ctx, language, time.Since(start), false)
		return nil, fmt.Errorf("%w: parser returned no tree for %s", ErrParseFailure, language)
	}

	recordParseMetrics(ctx, language, time.Since(start), true)
	return &Tree{Language: language, Source: content, tree: tree}, nil
}
