// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"errors"

	"github.com/AleutianAI/AleutianSyntax/services/syntax/engine"
)

// ErrInvalidRequest marks a request that is structurally unusable before
// any workspace or grammar work happens.
var ErrInvalidRequest = errors.New("invalid request")

// Error codes returned in the Code field of ErrorResponse.
const (
	CodePathEscape          = "PATH_ESCAPE"
	CodeNotFound            = "NOT_FOUND"
	CodeNotADirectory       = "NOT_A_DIRECTORY"
	CodeIsADirectory        = "IS_A_DIRECTORY"
	CodeIOFailure           = "IO_FAILURE"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeQueryCompileError   = "QUERY_COMPILE_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeParseFailure        = "PARSE_FAILURE"
	CodeInvalidRequest      = "INVALID_REQUEST"
)

// ErrorResponse is the uniform error envelope for all failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// LanguagesResponse lists the supported language ids.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// ReadFileResponse returns a file's decoded content.
type ReadFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SaveRequest creates or overwrites a workspace file.
type SaveRequest struct {
	Path string `json:"path" binding:"required"`

	// Content may legitimately be empty; a pointer distinguishes an
	// absent field from an empty file.
	Content *string `json:"content" binding:"required"`
}

// SaveResponse acknowledges a successful save.
type SaveResponse struct {
	OK   bool   `json:"ok"`
	Path string `json:"path"`
}

// ParseRequest selects a source to parse.
type ParseRequest struct {
	Path     string  `json:"path"`
	Content  *string `json:"content"`
	Language string  `json:"language"`

	// MaxDepth bounds the JSON tree summary. Nil selects the default.
	MaxDepth *int `json:"max_depth"`
}

// ParseResponse carries both renderings of a parsed tree.
type ParseResponse struct {
	Language    string              `json:"language"`
	SExpression string              `json:"s_expression"`
	Summary     *engine.NodeSummary `json:"summary"`
}

// QueryRequest selects a source and a structural pattern to run over it.
type QueryRequest struct {
	Path     string  `json:"path"`
	Content  *string `json:"content"`
	Language string  `json:"language"`
	Query    string  `json:"query" binding:"required"`

	// CapturesOnly selects the flat capture list (the default) over
	// grouped matches.
	CapturesOnly *bool `json:"captures_only"`
}

// CapturesResponse carries captures-only query results in document order.
type CapturesResponse struct {
	Language string           `json:"language"`
	Captures []engine.Capture `json:"captures"`
}

// MatchesResponse carries grouped query results, one group per pattern
// match.
type MatchesResponse struct {
	Language string              `json:"language"`
	Matches  []engine.MatchGroup `json:"matches"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ReadyResponse reports readiness, including the workspace root the
// service is confined to.
type ReadyResponse struct {
	Status        string `json:"status"`
	WorkspaceRoot string `json:"workspace_root"`
}
