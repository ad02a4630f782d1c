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
	sitter "github.com/smacker/go-tree-sitter"
)

const (
	// DefaultRenderDepth is the summary depth used when a request does
	// not specify one. Keeps payloads bounded for large files.
	DefaultRenderDepth = 2

	// MaxRenderDepth is the deepest summary a request may ask for.
	MaxRenderDepth = 6
)

// Point is a zero-based (row, column) position in the source.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// NodeSummary is a depth-bounded recursive projection of a syntax tree
// node.
//
// Depth limiting truncates, it does not omit: a node at the depth limit
// still appears, with an empty child list even if it has children.
type NodeSummary struct {
	// Type is the grammar node type, e.g. "function_definition".
	Type string `json:"type"`

	// Named is true for named grammar nodes, false for anonymous tokens.
	Named bool `json:"named"`

	// StartByte and EndByte delimit the node in the source buffer.
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`

	// StartPoint and EndPoint are the zero-based row/column positions.
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`

	// ChildCount is the node's real child count, independent of depth
	// truncation.
	ChildCount int `json:"child_count"`

	// Children holds summaries of direct children, empty once the depth
	// limit is reached.
	Children []*NodeSummary `json:"children"`
}

// Render produces the two projections of a parsed tree.
//
// Description:
//
//	The s-expression is the canonical nested parenthesized rendering of
//	the full tree and is never depth-limited. The JSON summary is
//	truncated at maxDepth levels below the root; maxDepth 0 yields only
//	the root node with an empty child list. Values outside [0,
//	MaxRenderDepth] are clamped; negative values select
//	DefaultRenderDepth.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Engine) Render(tree *Tree, maxDepth int) (string, *NodeSummary) {
	if maxDepth < 0 {
		maxDepth = DefaultRenderDepth
	}
	if maxDepth > MaxRenderDepth {
		maxDepth = MaxRenderDepth
	}

	root := tree.Root()
	return root.String(), summarize(root, 0, maxDepth)
}

// summarize converts a node into a NodeSummary, recursing up to maxDepth
// levels below the root.
func summarize(node *sitter.Node, depth, maxDepth int) *NodeSummary {
	childCount := int(node.ChildCount())

	s := &NodeSummary{
		Type:       node.Type(),
		Named:      node.IsNamed(),
		StartByte:  node.StartByte(),
		EndByte:    node.EndByte(),
		StartPoint: Point{Row: node.StartPoint().Row, Column: node.StartPoint().Column},
		EndPoint:   Point{Row: node.EndPoint().Row, Column: node.EndPoint().Column},
		ChildCount: childCount,
		Children:   make([]*NodeSummary, 0),
	}

	if depth < maxDepth {
		for i := 0; i < childCount; i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			s.Children = append(s.Children, summarize(child, depth+1, maxDepth))
		}
	}

	return s
}
