// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lang

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var defaultAliasesYAML []byte

// aliasConfig is the shape of the embedded languages.yaml file.
type aliasConfig struct {
	// Aliases maps additional file extensions to language ids from the
	// grammar table.
	Aliases map[string]string `yaml:"aliases"`
}

// loadExtensionAliases parses alias YAML into an extension->id map.
//
// Extensions are normalized to a lowercase leading-dot form; the target
// ids are validated against the grammar table by the caller.
func loadExtensionAliases(data []byte) (map[string]string, error) {
	var cfg aliasConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing alias yaml: %w", err)
	}

	out := make(map[string]string, len(cfg.Aliases))
	for ext, id := range cfg.Aliases {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || id == "" {
			return nil, fmt.Errorf("alias entry %q -> %q: extension and language must be non-empty", ext, id)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = id
	}
	return out, nil
}
