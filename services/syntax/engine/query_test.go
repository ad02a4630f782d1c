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
	"testing"
	"time"

	"github.com/AleutianAI/AleutianSyntax/services/syntax/lang"
)

func mustCompile(t *testing.T, e *Engine, language, source string) *Query {
	t.Helper()
	query, err := e.Compile(language, source)
	if err != nil {
		t.Fatalf("Compile(%s) error = %v", language, err)
	}
	t.Cleanup(query.Close)
	return query
}

func TestCapturesPythonFunctionName(t *testing.T) {
	e := newTestEngine(t)
	tree := mustParse(t, e, "def foo():\n    return 1\n", "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @func.name)")

	captures, err := e.Captures(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	if len(captures) != 1 {
		t.Fatalf("Captures() = %d captures, want 1", len(captures))
	}

	c := captures[0]
	if c.Name != "func.name" {
		t.Errorf("Name = %q, want func.name", c.Name)
	}
	if c.Type != "identifier" {
		t.Errorf("Type = %q, want identifier", c.Type)
	}
	if c.Text != "foo" {
		t.Errorf("Text = %q, want foo", c.Text)
	}
	if c.StartByte != 4 || c.EndByte != 7 {
		t.Errorf("bytes = [%d, %d), want [4, 7)", c.StartByte, c.EndByte)
	}
	if c.StartPoint.Row != 0 || c.StartPoint.Column != 4 {
		t.Errorf("StartPoint = %+v, want row 0 col 4", c.StartPoint)
	}
}

func TestCapturesDocumentOrder(t *testing.T) {
	e := newTestEngine(t)
	source := "def zebra():\n    pass\n\ndef apple():\n    pass\n\ndef mango():\n    pass\n"
	tree := mustParse(t, e, source, "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @name)")

	captures, err := e.Captures(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	if len(captures) != 3 {
		t.Fatalf("Captures() = %d captures, want 3", len(captures))
	}

	// Document order, not alphabetical.
	want := []string{"zebra", "apple", "mango"}
	for i, w := range want {
		if captures[i].Text != w {
			t.Errorf("captures[%d].Text = %q, want %q", i, captures[i].Text, w)
		}
	}
	for i := 1; i < len(captures); i++ {
		if captures[i].StartByte < captures[i-1].StartByte {
			t.Errorf("captures out of document order at %d", i)
		}
	}
}

func TestCapturesNoMatches(t *testing.T) {
	e := newTestEngine(t)
	tree := mustParse(t, e, "x = 1\n", "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @name)")

	captures, err := e.Captures(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	if captures == nil {
		t.Error("Captures() = nil, want empty slice")
	}
	if len(captures) != 0 {
		t.Errorf("Captures() = %d captures, want 0", len(captures))
	}
}

func TestMatchesGroupsCaptures(t *testing.T) {
	e := newTestEngine(t)
	source := "def foo(a, b):\n    pass\n\ndef bar(c):\n    pass\n"
	tree := mustParse(t, e, source, "python")
	query := mustCompile(t, e, "python",
		"(function_definition name: (identifier) @name parameters: (parameters) @params)")

	matches, err := e.Matches(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Matches() = %d groups, want 2", len(matches))
	}

	for i, m := range matches {
		if len(m.Captures) != 2 {
			t.Errorf("matches[%d] has %d captures, want 2", i, len(m.Captures))
		}
	}
	if matches[0].Captures[0].Text != "foo" {
		t.Errorf("first match name = %q, want foo", matches[0].Captures[0].Text)
	}
	if matches[1].Captures[0].Text != "bar" {
		t.Errorf("second match name = %q, want bar", matches[1].Captures[0].Text)
	}
}

func TestMatchesWithPredicate(t *testing.T) {
	e := newTestEngine(t)
	source := "def keep():\n    pass\n\ndef drop():\n    pass\n"
	tree := mustParse(t, e, source, "python")
	query := mustCompile(t, e, "python",
		`((function_definition name: (identifier) @name) (#eq? @name "keep"))`)

	matches, err := e.Matches(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Matches() = %d groups, want 1 after predicate filtering", len(matches))
	}
	if matches[0].Captures[0].Text != "keep" {
		t.Errorf("match name = %q, want keep", matches[0].Captures[0].Text)
	}
}

func TestCompileErrorCarriesDiagnostic(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Compile("python", "(function_definition name: (identifier @name)")
	if err == nil {
		t.Fatal("Compile(unbalanced query) expected error")
	}

	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Compile() error type = %T, want *CompileError", err)
	}
	if compileErr.Language != "python" {
		t.Errorf("Language = %q, want python", compileErr.Language)
	}
	if compileErr.Message == "" {
		t.Error("Message is empty, want a diagnostic")
	}
}

func TestCompileRejectsUnknownNodeType(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Compile("python", "(no_such_node_type) @x")
	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("Compile() error type = %T, want *CompileError", err)
	}
}

func TestCompileUnknownLanguage(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Compile("klingon", "(identifier) @x")
	if !errors.Is(err, lang.ErrUnsupportedLanguage) {
		t.Errorf("Compile(unknown language) error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestMatchesExpiredDeadline(t *testing.T) {
	e := newTestEngine(t)
	tree := mustParse(t, e, "def foo():\n    return 1\n", "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @name)")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := e.Matches(ctx, tree, query); !errors.Is(err, ErrTimeout) {
		t.Errorf("Matches(expired ctx) error = %v, want ErrTimeout", err)
	}
}

func TestCapturesExpiredDeadline(t *testing.T) {
	e := newTestEngine(t)
	tree := mustParse(t, e, "def foo():\n    return 1\n", "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @name)")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := e.Captures(ctx, tree, query); !errors.Is(err, ErrTimeout) {
		t.Errorf("Captures(expired ctx) error = %v, want ErrTimeout", err)
	}
}

func TestQueryOverMalformedSource(t *testing.T) {
	e := newTestEngine(t)

	// The parser recovers around the damage, so intact functions still
	// match.
	source := "def ok():\n    pass\n\ndef broken(:\n"
	tree := mustParse(t, e, source, "python")
	query := mustCompile(t, e, "python", "(function_definition name: (identifier) @name)")

	captures, err := e.Captures(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	found := false
	for _, c := range captures {
		if c.Text == "ok" {
			found = true
		}
	}
	if !found {
		t.Error("intact function not captured in malformed source")
	}
}

func TestQueryGoSource(t *testing.T) {
	e := newTestEngine(t)
	source := "package main\n\nfunc Hello() {}\n\nfunc World() {}\n"
	tree := mustParse(t, e, source, "go")
	query := mustCompile(t, e, "go", "(function_declaration name: (identifier) @fn)")

	captures, err := e.Captures(context.Background(), tree, query)
	if err != nil {
		t.Fatalf("Captures() error = %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("Captures() = %d, want 2", len(captures))
	}
	if captures[0].Text != "Hello" || captures[1].Text != "World" {
		t.Errorf("captures = %q, %q; want Hello, World", captures[0].Text, captures[1].Text)
	}
}
