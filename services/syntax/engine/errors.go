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
	"errors"
	"fmt"
)

// Sentinel errors for parse and query failures.
//
// These errors can be checked using errors.Is() to determine the
// category of failure without inspecting error messages.
//
// Note that syntactically invalid source is NOT an error: tree-sitter
// still produces a tree containing explicit error nodes, and callers
// detect that by inspecting node types.
var (
	// ErrParseFailure indicates an engine-internal parse failure, such as
	// tree-sitter returning no tree at all. It never signals malformed
	// input source.
	ErrParseFailure = errors.New("parse failed")

	// ErrTimeout indicates that parsing or query execution exceeded the
	// request's wall-clock deadline.
	ErrTimeout = errors.New("operation timed out")
)

// CompileError reports a query pattern that the grammar's query compiler
// rejected.
//
// The Message carries the compiler's diagnostic verbatim, since query
// authors iterate on pattern syntax and need the offending offset and
// reason, not a generic failure.
type CompileError struct {
	// Language is the grammar the query was compiled against.
	Language string

	// Offset is the byte offset in the query source where compilation
	// failed.
	Offset uint32

	// Message is the query compiler's diagnostic, unmodified.
	Message string
}

// Error returns the diagnostic with its offset.
func (e *CompileError) Error() string {
	return fmt.Sprintf("query compile error for %s at offset %d: %s", e.Language, e.Offset, e.Message)
}
