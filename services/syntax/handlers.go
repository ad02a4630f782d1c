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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSyntax/services/syntax/engine"
	"github.com/AleutianAI/AleutianSyntax/services/syntax/lang"
	"github.com/AleutianAI/AleutianSyntax/services/syntax/workspace"
)

// Handlers holds HTTP handlers for the syntax service.
type Handlers struct {
	service *Service
}

// NewHandlers creates handlers backed by the given service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the request's X-Request-ID, generating one
// when the client did not send it, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// writeError maps a service error onto the uniform error envelope.
//
// Description:
//
//	Client mistakes (bad paths, unsupported languages, invalid patterns)
//	map to 4xx; I/O faults, parser faults, and exhausted operation
//	budgets map to 5xx. A path escaping the workspace reports only that
//	fact, never anything about what exists outside the root.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var compileErr *engine.CompileError

	switch {
	case errors.Is(err, workspace.ErrPathEscape):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: workspace.ErrPathEscape.Error(),
			Code:  CodePathEscape,
		})
	case errors.Is(err, workspace.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  CodeNotFound,
		})
	case errors.Is(err, workspace.ErrNotADirectory):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  CodeNotADirectory,
		})
	case errors.Is(err, workspace.ErrIsADirectory):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  CodeIsADirectory,
		})
	case errors.Is(err, workspace.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: err.Error(),
			Code:  CodePayloadTooLarge,
		})
	case errors.Is(err, lang.ErrUnsupportedLanguage):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    CodeUnsupportedLanguage,
			Details: "see GET /languages for the supported set",
		})
	case errors.As(err, &compileErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "query failed to compile",
			Code:    CodeQueryCompileError,
			Details: compileErr.Error(),
		})
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  CodeInvalidRequest,
		})
	case errors.Is(err, engine.ErrTimeout):
		logger.Warn("operation timed out", "error", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error: err.Error(),
			Code:  CodeTimeout,
		})
	case errors.Is(err, engine.ErrParseFailure):
		logger.Error("parser failure", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  CodeParseFailure,
		})
	default:
		logger.Error("io failure", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal I/O failure",
			Code:  CodeIOFailure,
		})
	}
}

// HandleHealth handles GET /health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "syntax",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /ready.
//
// Response:
//
//	200 OK: ReadyResponse
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Status:        "ready",
		WorkspaceRoot: h.service.WorkspaceRoot(),
	})
}

// HandleLanguages handles GET /languages.
//
// Description:
//
//	Returns the sorted ids of every grammar the service can parse and
//	query. The set is fixed at startup.
//
// Response:
//
//	200 OK: LanguagesResponse
func (h *Handlers) HandleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, LanguagesResponse{Languages: h.service.Languages()})
}

// HandleListFiles handles GET /files.
//
// Query Parameters:
//
//	path: Workspace-relative directory to list (optional, defaults to
//	      the workspace root)
//
// Response:
//
//	200 OK: JSON array of directory entries, directories first, then
//	        case-insensitively by name
//	400 Bad Request: Path escapes the workspace or names a file
//	404 Not Found: Directory does not exist
func (h *Handlers) HandleListFiles(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListFiles")

	entries, err := h.service.ListFiles(c.Request.Context(), c.Query("path"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleReadFile handles GET /file.
//
// Query Parameters:
//
//	path: Workspace-relative file to read (required)
//
// Response:
//
//	200 OK: ReadFileResponse
//	400 Bad Request: Missing path, escaping path, or path names a directory
//	404 Not Found: File does not exist
//	413 Request Entity Too Large: File exceeds the size limit
func (h *Handlers) HandleReadFile(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReadFile")

	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "path parameter is required",
			Code:  CodeInvalidRequest,
		})
		return
	}

	content, err := h.service.ReadFile(c.Request.Context(), path)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, ReadFileResponse{Path: cleanRelPath(path), Content: content})
}

// HandleSave handles POST /save.
//
// Description:
//
//	Creates or atomically replaces a workspace file. Parent directories
//	must already exist. Readers never observe a partially written file.
//
// Response:
//
//	200 OK: SaveResponse
//	400 Bad Request: Malformed body or escaping path
//	404 Not Found: Parent directory does not exist
//	413 Request Entity Too Large: Content exceeds the size limit
func (h *Handlers) HandleSave(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSave")

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}

	if err := h.service.SaveFile(c.Request.Context(), req.Path, []byte(*req.Content)); err != nil {
		writeError(c, logger, err)
		return
	}

	logger.Info("file saved", "path", req.Path, "bytes", len(*req.Content))
	c.JSON(http.StatusOK, SaveResponse{OK: true, Path: cleanRelPath(req.Path)})
}

// HandleParse handles POST /parse.
//
// Description:
//
//	Parses a workspace file or inline content and returns the syntax
//	tree as a full-depth s-expression plus a depth-bounded JSON summary.
//	Malformed source still parses; tree-sitter represents the damage as
//	error nodes inside an otherwise complete tree.
//
// Response:
//
//	200 OK: ParseResponse
//	400 Bad Request: Malformed body, escaping path, or unknown language
//	404 Not Found: File does not exist
//	500 Internal Server Error: Parser failure
//	504 Gateway Timeout: Parse exceeded the operation budget
func (h *Handlers) HandleParse(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleParse")

	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}

	maxDepth := -1
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}

	result, err := h.service.Parse(c.Request.Context(), SourceRequest{
		Path:     req.Path,
		Content:  req.Content,
		Language: req.Language,
	}, maxDepth)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, ParseResponse{
		Language:    result.Language,
		SExpression: result.SExpression,
		Summary:     result.Summary,
	})
}

// HandleQuery handles POST /query.
//
// Description:
//
//	Compiles a tree-sitter query against the resolved language and runs
//	it over the parsed source. The default response is a flat capture
//	list in document order; captures_only=false groups captures per
//	pattern match instead.
//
// Response:
//
//	200 OK: CapturesResponse or MatchesResponse
//	400 Bad Request: Malformed body, unknown language, or query that
//	                 fails to compile (with a positional diagnostic)
//	404 Not Found: File does not exist
//	504 Gateway Timeout: Execution exceeded the operation budget
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}

	capturesOnly := true
	if req.CapturesOnly != nil {
		capturesOnly = *req.CapturesOnly
	}

	result, err := h.service.Query(c.Request.Context(), SourceRequest{
		Path:     req.Path,
		Content:  req.Content,
		Language: req.Language,
	}, req.Query, capturesOnly)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	if capturesOnly {
		c.JSON(http.StatusOK, CapturesResponse{
			Language: result.Language,
			Captures: result.Captures,
		})
		return
	}
	c.JSON(http.StatusOK, MatchesResponse{
		Language: result.Language,
		Matches:  result.Matches,
	})
}
