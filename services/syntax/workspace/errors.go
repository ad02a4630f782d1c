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

import "errors"

// Sentinel errors for workspace failures.
//
// These errors can be checked using errors.Is() to determine the
// category of failure without inspecting error messages.
var (
	// ErrPathEscape indicates that a request path resolves outside the
	// workspace root, through "..", an absolute path, or a symlink.
	//
	// The message deliberately carries no information about the target:
	// callers must not be able to learn whether the escape destination
	// exists.
	ErrPathEscape = errors.New("path escapes workspace root")

	// ErrNotFound indicates that the target (or a required parent
	// directory for a write) does not exist inside the workspace.
	ErrNotFound = errors.New("path not found")

	// ErrNotADirectory indicates that a directory operation was attempted
	// on a regular file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory indicates that a file operation was attempted on a
	// directory.
	ErrIsADirectory = errors.New("is a directory")

	// ErrPayloadTooLarge indicates that a read or write exceeds the
	// configured maximum file size.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrIOFailure indicates an underlying device or filesystem error
	// that is not attributable to the request.
	ErrIOFailure = errors.New("io failure")
)
