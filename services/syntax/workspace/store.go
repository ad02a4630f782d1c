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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultMaxFileSize is the maximum file size the store accepts for
// reads and writes unless overridden: 10MB.
const DefaultMaxFileSize = 10 * 1024 * 1024

// StoreOption configures a Store instance.
type StoreOption func(*Store)

// WithMaxFileSize sets the maximum read/write size in bytes.
//
// Example:
//
//	store := NewStore(resolver, WithMaxFileSize(5*1024*1024)) // 5MB limit
func WithMaxFileSize(bytes int64) StoreOption {
	return func(s *Store) {
		if bytes > 0 {
			s.maxFileSize = bytes
		}
	}
}

// Entry describes one directory member returned by List.
type Entry struct {
	// Name is the base name of the entry.
	Name string `json:"name"`

	// IsDir is true for subdirectories.
	IsDir bool `json:"is_dir"`

	// Size is the file size in bytes. Zero for directories.
	Size int64 `json:"size"`
}

// SourceBuffer holds the raw bytes of a workspace file plus its
// workspace-relative path.
//
// The buffer is request-scoped: created when a request reads the file,
// discarded after the response is built.
type SourceBuffer struct {
	// Path is the workspace-relative path the buffer was read from.
	// Empty for buffers built from inline request content.
	Path string

	// Raw is the file content exactly as stored on disk.
	Raw []byte
}

// Text decodes the buffer as UTF-8, replacing invalid sequences with
// U+FFFD. Decoding never fails.
func (b *SourceBuffer) Text() string {
	if utf8.Valid(b.Raw) {
		return string(b.Raw)
	}
	return strings.ToValidUTF8(string(b.Raw), "�")
}

// Store lists, reads, and writes workspace files through resolver-validated
// paths.
//
// Description:
//
//	Every operation resolves its path through the Resolver first, so no
//	request can touch the filesystem outside the workspace root. Writes
//	are atomic (temp file in the target directory, then rename) and
//	additionally serialized per target path, so concurrent writers never
//	interleave partial content. Reads need no locking: files are read in
//	full before use.
//
// Thread Safety:
//
//	Store is safe for concurrent use.
type Store struct {
	resolver    *Resolver
	maxFileSize int64

	// writeLocks holds one mutex per written canonical path for the
	// process lifetime; entries are never evicted, so its size is
	// bounded by the number of distinct paths ever written.
	writeLocks sync.Map // canonical path -> *sync.Mutex
}

// NewStore creates a Store over the given resolver.
func NewStore(resolver *Resolver, opts ...StoreOption) *Store {
	s := &Store{
		resolver:    resolver,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the store's path resolver.
func (s *Store) Resolver() *Resolver {
	return s.resolver
}

// List returns the entries of a workspace directory.
//
// Description:
//
//	Resolves rel against the workspace root and reads the directory.
//	Entries are ordered directories-first, then by case-insensitive name.
//	An empty rel lists the workspace root itself.
//
// Outputs:
//
//	[]Entry - Never nil on success; empty for an empty directory.
//	error - ErrPathEscape, ErrNotFound, ErrNotADirectory, or ErrIOFailure.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) List(ctx context.Context, rel string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolver.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrIOFailure, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q: %w", rel, ErrNotADirectory)
	}

	dirEntries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIOFailure, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if !e.IsDir {
			// Entries removed between ReadDir and Info are skipped.
			fi, ierr := de.Info()
			if ierr != nil {
				continue
			}
			e.Size = fi.Size()
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return entries, nil
}

// Read returns a workspace file as a SourceBuffer.
//
// Description:
//
//	Resolves rel, verifies the target is a regular file within the size
//	limit, and reads it in full. Decoding to text is deferred to
//	SourceBuffer.Text, which never fails.
//
// Outputs:
//
//	*SourceBuffer - The file content. Never nil on success.
//	error - ErrPathEscape, ErrNotFound, ErrIsADirectory,
//	        ErrPayloadTooLarge, or ErrIOFailure.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Read(ctx context.Context, rel string) (*SourceBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolver.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrIOFailure, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q: %w", rel, ErrIsADirectory)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, info.Size(), s.maxFileSize)
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrIOFailure, err)
	}

	return &SourceBuffer{Path: rel, Raw: raw}, nil
}

// Write creates or atomically replaces a workspace file.
//
// Description:
//
//	Resolves rel, verifies the parent directory exists, and writes the
//	content to a temporary file in the same directory before renaming it
//	over the target. A crash mid-write never leaves a truncated file.
//	Writers to the same canonical path are serialized with a per-path
//	mutex.
//
// Outputs:
//
//	error - ErrPathEscape, ErrNotFound (missing parent directory),
//	        ErrIsADirectory, ErrPayloadTooLarge, or ErrIOFailure.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Write(ctx context.Context, rel string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if int64(len(content)) > s.maxFileSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(content), s.maxFileSize)
	}

	target, err := s.resolver.Resolve(rel)
	if err != nil {
		return err
	}

	if info, serr := os.Stat(target); serr == nil && info.IsDir() {
		return fmt.Errorf("%q: %w", rel, ErrIsADirectory)
	}

	dir := filepath.Dir(target)
	if info, serr := os.Stat(dir); serr != nil {
		if errors.Is(serr, fs.ErrNotExist) {
			return fmt.Errorf("parent directory of %q: %w", rel, ErrNotFound)
		}
		return fmt.Errorf("%w: %s", ErrIOFailure, serr)
	} else if !info.IsDir() {
		return fmt.Errorf("parent of %q: %w", rel, ErrNotADirectory)
	}

	mu := s.lockFor(target)
	mu.Lock()
	defer mu.Unlock()

	if err := atomicWriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("%w: %s", ErrIOFailure, err)
	}
	return nil
}

// lockFor returns the per-path write mutex, creating it on first use.
func (s *Store) lockFor(path string) *sync.Mutex {
	v, _ := s.writeLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// atomicWriteFile writes content to a file atomically using rename.
//
// This ensures that the file is either fully written or not modified at
// all, preventing partial writes on crashes or errors.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory (ensures same filesystem for rename)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing to disk: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Set permissions before rename
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
