// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syntax exposes a workspace-confined view of one directory tree
// with tree-sitter parsing and structural querying over its files.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/AleutianAI/AleutianSyntax/services/syntax/engine"
	"github.com/AleutianAI/AleutianSyntax/services/syntax/lang"
	"github.com/AleutianAI/AleutianSyntax/services/syntax/workspace"
)

// ServiceVersion is the syntax service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the syntax service.
type ServiceConfig struct {
	// WorkspaceRoot is the directory the service confines itself to.
	// Required.
	WorkspaceRoot string

	// MaxFileSize is the maximum read/write size in bytes.
	// Default: 10MB
	MaxFileSize int64

	// OpTimeout is the wall-clock budget for a parse or query operation.
	// Default: 10s
	OpTimeout time.Duration
}

// DefaultServiceConfig returns sensible defaults for the given root.
func DefaultServiceConfig(root string) ServiceConfig {
	return ServiceConfig{
		WorkspaceRoot: root,
		MaxFileSize:   workspace.DefaultMaxFileSize,
		OpTimeout:     10 * time.Second,
	}
}

// Service is the syntax analysis service.
//
// Description:
//
//	Service wires the path resolver, workspace store, language registry,
//	and parse/query engine together. The resolver and registry are the
//	only process-wide state; both are read-only after construction, so
//	requests need no locking around parsing or querying.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call any
//	combination of methods simultaneously.
type Service struct {
	config   ServiceConfig
	store    *workspace.Store
	registry *lang.Registry
	engine   *engine.Engine
}

// NewService creates a syntax service for the configured workspace root.
//
// Outputs:
//
//	*Service - The configured service.
//	error - Non-nil if the workspace root is missing or not a directory,
//	        or if the language registry fails to build.
func NewService(config ServiceConfig) (*Service, error) {
	resolver, err := workspace.NewResolver(config.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}

	registry, err := lang.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("language registry: %w", err)
	}

	var storeOpts []workspace.StoreOption
	if config.MaxFileSize > 0 {
		storeOpts = append(storeOpts, workspace.WithMaxFileSize(config.MaxFileSize))
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = 10 * time.Second
	}

	return &Service{
		config:   config,
		store:    workspace.NewStore(resolver, storeOpts...),
		registry: registry,
		engine:   engine.NewEngine(registry),
	}, nil
}

// WorkspaceRoot returns the canonical workspace root path.
func (s *Service) WorkspaceRoot() string {
	return s.store.Resolver().Root()
}

// Languages returns the sorted supported language ids.
func (s *Service) Languages() []string {
	return s.registry.Supported()
}

// ListFiles returns the entries of a workspace directory. An empty rel
// lists the workspace root.
func (s *Service) ListFiles(ctx context.Context, rel string) ([]workspace.Entry, error) {
	return s.store.List(ctx, rel)
}

// ReadFile returns a workspace file's content, lossily decoded as UTF-8.
func (s *Service) ReadFile(ctx context.Context, rel string) (string, error) {
	buf, err := s.store.Read(ctx, rel)
	if err != nil {
		return "", err
	}
	return buf.Text(), nil
}

// SaveFile creates or atomically overwrites a workspace file.
func (s *Service) SaveFile(ctx context.Context, rel string, content []byte) error {
	return s.store.Write(ctx, rel, content)
}

// SourceRequest selects the source to analyze: either a workspace path or
// inline content with an explicit language.
type SourceRequest struct {
	// Path is a workspace-relative file path. Empty when Content is set.
	Path string

	// Content is inline source text. Nil means "read from Path".
	Content *string

	// Language is an explicit language override. Wins over extension
	// detection when it names a supported id.
	Language string
}

// resolveSource loads the request's source bytes and resolves its language.
func (s *Service) resolveSource(ctx context.Context, req SourceRequest) ([]byte, string, error) {
	var raw []byte
	if req.Path != "" {
		buf, err := s.store.Read(ctx, req.Path)
		if err != nil {
			return nil, "", err
		}
		raw = buf.Raw
	} else if req.Content != nil {
		raw = []byte(*req.Content)
	} else {
		return nil, "", fmt.Errorf("%w: request carries neither path nor content", ErrInvalidRequest)
	}

	language, err := s.registry.Detect(req.Path, req.Language)
	if err != nil {
		return nil, "", err
	}
	return raw, language, nil
}

// ParseResult is the outcome of a parse operation.
type ParseResult struct {
	// Language is the resolved grammar id.
	Language string

	// SExpression is the canonical full-depth rendering of the tree.
	SExpression string

	// Summary is the depth-bounded JSON projection of the tree.
	Summary *engine.NodeSummary
}

// Parse parses the requested source and renders both tree projections.
//
// Description:
//
//	Resolves the source (workspace file or inline content), detects the
//	language, parses under the configured operation timeout, and renders
//	the s-expression plus the depth-bounded summary. The syntax tree is
//	discarded before returning; nothing is cached.
//
// Inputs:
//
//	req - Source selection.
//	maxDepth - Summary depth. Negative selects the default.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) Parse(ctx context.Context, req SourceRequest, maxDepth int) (*ParseResult, error) {
	raw, language, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	tree, err := s.engine.Parse(opCtx, raw, language)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	sexpr, summary := s.engine.Render(tree, maxDepth)
	return &ParseResult{Language: language, SExpression: sexpr, Summary: summary}, nil
}

// QueryResult is the outcome of a query operation. Exactly one of
// Captures and Matches is non-nil, depending on the requested mode.
type QueryResult struct {
	// Language is the resolved grammar id.
	Language string

	// Captures is the flat document-ordered capture list (captures-only
	// mode).
	Captures []engine.Capture

	// Matches groups captures per pattern match (grouped mode).
	Matches []engine.MatchGroup
}

// Query compiles and executes a structural pattern against the requested
// source.
//
// Description:
//
//	Parses the source, compiles the pattern against the resolved
//	language's grammar (invalid patterns fail compilation and never
//	execute), and runs it under the configured operation timeout.
//	capturesOnly selects the flat capture list; otherwise matches are
//	grouped per pattern-match id in discovery order.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) Query(ctx context.Context, req SourceRequest, querySource string, capturesOnly bool) (*QueryResult, error) {
	raw, language, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}

	query, err := s.engine.Compile(language, querySource)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	opCtx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	tree, err := s.engine.Parse(opCtx, raw, language)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &QueryResult{Language: language}
	if capturesOnly {
		result.Captures, err = s.engine.Captures(opCtx, tree, query)
	} else {
		result.Matches, err = s.engine.Matches(opCtx, tree, query)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// cleanRelPath normalizes a workspace-relative path for response echoing.
func cleanRelPath(rel string) string {
	cleaned := filepath.ToSlash(filepath.Clean(rel))
	if cleaned == "." {
		return ""
	}
	return cleaned
}
