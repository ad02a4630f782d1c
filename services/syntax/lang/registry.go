// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lang maps file extensions and explicit overrides to tree-sitter
// grammars.
//
// The registry is a closed table: every supported language id pairs a
// grammar constructor with the extensions that detect it, so the set of
// detectable ids and the set of constructible grammars can never drift
// apart.
package lang

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// ErrUnsupportedLanguage indicates that no grammar is available for the
// requested language id or file extension.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// languageSpec is one entry of the closed grammar table.
type languageSpec struct {
	id         string
	extensions []string
	grammar    func() *sitter.Language
}

// specs is the single source of truth for supported languages. Detect can
// only return ids from this table, and Supported lists exactly these ids.
var specs = []languageSpec{
	{id: "bash", extensions: []string{".sh", ".bash"}, grammar: bash.GetLanguage},
	{id: "c", extensions: []string{".c", ".h"}, grammar: c.GetLanguage},
	{id: "cpp", extensions: []string{".cpp", ".cc", ".cxx", ".hpp"}, grammar: cpp.GetLanguage},
	{id: "css", extensions: []string{".css", ".scss"}, grammar: css.GetLanguage},
	{id: "dockerfile", extensions: []string{".dockerfile"}, grammar: dockerfile.GetLanguage},
	{id: "go", extensions: []string{".go"}, grammar: golang.GetLanguage},
	{id: "html", extensions: []string{".html", ".htm"}, grammar: html.GetLanguage},
	{id: "java", extensions: []string{".java"}, grammar: java.GetLanguage},
	{id: "javascript", extensions: []string{".js", ".jsx"}, grammar: javascript.GetLanguage},
	{id: "kotlin", extensions: []string{".kt", ".kts"}, grammar: kotlin.GetLanguage},
	{id: "markdown", extensions: []string{".md", ".markdown"}, grammar: tree_sitter_markdown.GetLanguage},
	{id: "php", extensions: []string{".php"}, grammar: php.GetLanguage},
	{id: "python", extensions: []string{".py"}, grammar: python.GetLanguage},
	{id: "ruby", extensions: []string{".rb"}, grammar: ruby.GetLanguage},
	{id: "rust", extensions: []string{".rs"}, grammar: rust.GetLanguage},
	{id: "sql", extensions: []string{".sql"}, grammar: sql.GetLanguage},
	{id: "tsx", extensions: []string{".tsx"}, grammar: tsx.GetLanguage},
	{id: "typescript", extensions: []string{".ts"}, grammar: typescript.GetLanguage},
	{id: "yaml", extensions: []string{".yaml", ".yml"}, grammar: yaml.GetLanguage},
}

// Registry resolves language ids and grammars.
//
// Description:
//
//	Registry is built once at startup from the static grammar table plus
//	the embedded extension aliases, and is read-only thereafter.
//
// Thread Safety:
//
//	Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	grammars map[string]*sitter.Language
	byExt    map[string]string
	ids      []string
}

// NewRegistry builds the registry from the grammar table and the embedded
// extension aliases.
//
// Outputs:
//
//	*Registry - The populated registry. Never nil on success.
//	error - Non-nil if the embedded alias config is malformed or names an
//	        unknown language id.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		grammars: make(map[string]*sitter.Language, len(specs)),
		byExt:    make(map[string]string),
		ids:      make([]string, 0, len(specs)),
	}

	for _, spec := range specs {
		r.grammars[spec.id] = spec.grammar()
		r.ids = append(r.ids, spec.id)
		for _, ext := range spec.extensions {
			r.byExt[ext] = spec.id
		}
	}
	sort.Strings(r.ids)

	aliases, err := loadExtensionAliases(defaultAliasesYAML)
	if err != nil {
		return nil, fmt.Errorf("loading extension aliases: %w", err)
	}
	for ext, id := range aliases {
		if _, ok := r.grammars[id]; !ok {
			return nil, fmt.Errorf("extension alias %q: %w: %q", ext, ErrUnsupportedLanguage, id)
		}
		r.byExt[ext] = id
	}

	return r, nil
}

// Detect resolves the language id for a file path.
//
// Description:
//
//	If override names a supported language it wins unconditionally.
//	Otherwise the rightmost dot-segment of path is looked up in the
//	extension table, case-insensitively.
//
// Inputs:
//
//	path - File path whose extension drives detection. May be empty when
//	       an override is supplied.
//	override - Explicit language id. Empty means detect by extension.
//
// Outputs:
//
//	string - The resolved language id.
//	error - ErrUnsupportedLanguage if neither override nor extension
//	        yields a known id.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Registry) Detect(path, override string) (string, error) {
	if override != "" {
		if _, ok := r.grammars[override]; ok {
			return override, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if id, ok := r.byExt[ext]; ok {
		return id, nil
	}

	if override != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, override)
	}
	return "", fmt.Errorf("%w: no grammar for extension %q", ErrUnsupportedLanguage, ext)
}

// Supported returns the sorted set of language ids with constructible
// grammars. This is exactly the set Detect can return.
func (r *Registry) Supported() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Grammar returns the tree-sitter grammar for a language id.
func (r *Registry) Grammar(id string) (*sitter.Language, error) {
	g, ok := r.grammars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, id)
	}
	return g, nil
}
