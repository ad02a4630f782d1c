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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, string) {
	t.Helper()
	resolver, root := newTestResolver(t)
	return NewStore(resolver, opts...), root
}

func TestListEmptyRoot(t *testing.T) {
	store, _ := newTestStore(t)

	entries, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() = %d entries, want 0", len(entries))
	}
}

func TestListOrdering(t *testing.T) {
	store, root := newTestStore(t)

	// Interleave files and directories with mixed case.
	for _, name := range []string{"zeta.txt", "Alpha.txt", "beta.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"src", "Docs"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{"Docs", "src", "Alpha.txt", "beta.txt", "zeta.txt"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if !entries[0].IsDir || !entries[1].IsDir {
		t.Error("directories should sort first")
	}
	if entries[2].IsDir {
		t.Error("files should follow directories")
	}
}

func TestListReportsSizes(t *testing.T) {
	store, root := newTestStore(t)

	if err := os.WriteFile(filepath.Join(root, "data.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(entries))
	}
	if entries[0].Size != 5 {
		t.Errorf("Size = %d, want 5", entries[0].Size)
	}
}

func TestListMissingDirectory(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.List(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("List(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListFileIsNotADirectory(t *testing.T) {
	store, root := newTestStore(t)

	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.List(context.Background(), "f.txt"); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("List(file) error = %v, want ErrNotADirectory", err)
	}
}

func TestListEscapingPath(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.List(context.Background(), "../outside"); !errors.Is(err, ErrPathEscape) {
		t.Errorf("List(escape) error = %v, want ErrPathEscape", err)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	content := []byte("package main\n\nfunc main() {}\n")
	if err := store.Write(ctx, "main.go", content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	buf, err := store.Read(ctx, "main.go")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if buf.Text() != string(content) {
		t.Errorf("Read() = %q, want %q", buf.Text(), content)
	}
}

func TestWriteOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "f.txt", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ctx, "f.txt", []byte("second")); err != nil {
		t.Fatal(err)
	}

	buf, err := store.Read(ctx, "f.txt")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Text() != "second" {
		t.Errorf("Read() = %q, want %q", buf.Text(), "second")
	}
}

func TestWriteEmptyContent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "empty.txt", []byte{}); err != nil {
		t.Fatalf("Write(empty) error = %v", err)
	}
	buf, err := store.Read(ctx, "empty.txt")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Text() != "" {
		t.Errorf("Read() = %q, want empty", buf.Text())
	}
}

func TestWriteMissingParent(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Write(context.Background(), "no/such/dir/f.txt", []byte("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Write(missing parent) error = %v, want ErrNotFound", err)
	}
}

func TestWriteTargetIsDirectory(t *testing.T) {
	store, root := newTestStore(t)

	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := store.Write(context.Background(), "dir", []byte("x"))
	if !errors.Is(err, ErrIsADirectory) {
		t.Errorf("Write(directory) error = %v, want ErrIsADirectory", err)
	}
}

func TestWritePayloadTooLarge(t *testing.T) {
	store, _ := newTestStore(t, WithMaxFileSize(8))

	err := store.Write(context.Background(), "big.txt", []byte("123456789"))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Write(oversized) error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadPayloadTooLarge(t *testing.T) {
	store, root := newTestStore(t, WithMaxFileSize(4))

	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte("123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(context.Background(), "big.txt"); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Read(oversized) error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Read(context.Background(), "nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReadThroughRegularFile(t *testing.T) {
	store, root := newTestStore(t)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(context.Background(), "a.txt/sub"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(through file) error = %v, want ErrNotFound", err)
	}
}

func TestReadDirectory(t *testing.T) {
	store, root := newTestStore(t)

	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(context.Background(), "dir"); !errors.Is(err, ErrIsADirectory) {
		t.Errorf("Read(directory) error = %v, want ErrIsADirectory", err)
	}
}

func TestReadLossyDecode(t *testing.T) {
	store, root := newTestStore(t)

	// 0xFF is never valid UTF-8.
	raw := []byte{'a', 0xFF, 'b'}
	if err := os.WriteFile(filepath.Join(root, "bin.dat"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	buf, err := store.Read(context.Background(), "bin.dat")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	text := buf.Text()
	if !strings.Contains(text, "�") {
		t.Errorf("Text() = %q, want replacement character for invalid byte", text)
	}
	if !strings.HasPrefix(text, "a") || !strings.HasSuffix(text, "b") {
		t.Errorf("Text() = %q, valid bytes should survive decoding", text)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store, root := newTestStore(t)

	if err := store.Write(context.Background(), "f.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file %q left behind after write", e.Name())
		}
	}
}

func TestConcurrentWritesToSamePath(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Write(ctx, "hot.txt", []byte(strings.Repeat("x", 512))); err != nil {
				t.Errorf("Write() error = %v", err)
			}
		}()
	}
	wg.Wait()

	buf, err := store.Read(ctx, "hot.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(buf.Raw) != 512 {
		t.Errorf("Read() = %d bytes, want 512 (no torn write)", len(buf.Raw))
	}
}
