// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Resolver confines request paths to a single workspace root.
//
// Description:
//
//	Resolver canonicalizes workspace-relative paths against a fixed root
//	directory and rejects anything that resolves outside it. The root is
//	resolved once at construction (symlinks included) and is immutable
//	for the process lifetime.
//
// Thread Safety:
//
//	Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for the given root directory.
//
// Description:
//
//	Canonicalizes root to an absolute, symlink-free path and verifies it
//	is an existing directory. All subsequent Resolve calls compare
//	against this canonical form, never against raw strings.
//
// Inputs:
//
//	root - Path of the workspace root. May be relative to the process
//	       working directory.
//
// Outputs:
//
//	*Resolver - The configured resolver.
//	error - Non-nil if root does not exist or is not a directory.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", abs, err)
	}

	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root %q: %w", real, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q: %w", real, ErrNotADirectory)
	}

	return &Resolver{root: real}, nil
}

// Root returns the canonical absolute workspace root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve canonicalizes a workspace-relative path and enforces containment.
//
// Description:
//
//	Joins rel onto the workspace root, cleans "." and ".." segments,
//	resolves symlinks (walking up through any nonexistent tail so paths
//	about to be created are still validated), and verifies the canonical
//	result is the root itself or a descendant of it. The containment
//	check compares canonical absolute paths; it is never a raw string
//	prefix test.
//
// Inputs:
//
//	rel - Workspace-relative path. Empty (or ".") resolves to the root
//	      itself, used for root directory listings. Trailing separators
//	      are tolerated.
//
// Outputs:
//
//	string - Canonical absolute path inside the workspace.
//	error - ErrPathEscape if the path resolves outside the root,
//	        including through a symlink whose target is outside it.
//	        ErrNotFound if a non-final path component is a regular file.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Resolver) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" || rel == "." {
		return r.root, nil
	}
	if filepath.IsAbs(rel) {
		return "", ErrPathEscape
	}

	joined := filepath.Join(r.root, rel)

	// Lexical check before touching the filesystem so an escaping request
	// cannot learn anything from stat errors on its target.
	if !r.contains(joined) {
		return "", ErrPathEscape
	}

	real, err := resolveSymlinks(joined)
	if err != nil {
		// A path component that is a regular file (ENOTDIR) is the
		// client asking for something that cannot exist, not a device
		// fault.
		if errors.Is(err, syscall.ENOTDIR) {
			return "", fmt.Errorf("%q: %w", rel, ErrNotFound)
		}
		return "", fmt.Errorf("%w: %s", ErrIOFailure, err)
	}
	if !r.contains(real) {
		return "", ErrPathEscape
	}

	return real, nil
}

// contains reports whether path equals the root or is a descendant of it.
// Both arguments must already be cleaned absolute paths.
func (r *Resolver) contains(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

// resolveSymlinks canonicalizes path, tolerating a nonexistent tail.
//
// For paths that do not exist yet (file about to be written), the deepest
// existing ancestor is resolved and the remaining components are rejoined,
// so a symlinked parent directory still gets validated.
func resolveSymlinks(path string) (string, error) {
	real, err := filepath.EvalSymlinks(path)
	if err == nil {
		return real, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	var tail []string
	current := path
	for {
		parent := filepath.Dir(current)
		if parent == current {
			// Ran out of ancestors; keep the cleaned path as-is.
			return path, nil
		}

		tail = append(tail, filepath.Base(current))

		realParent, perr := filepath.EvalSymlinks(parent)
		if perr == nil {
			resolved := realParent
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !errors.Is(perr, fs.ErrNotExist) {
			return "", perr
		}

		current = parent
	}
}
