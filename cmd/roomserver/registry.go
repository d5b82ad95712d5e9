package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/comalice/roomforge/internal/definition"
)

// definitionRegistry loads and caches game definitions from a directory,
// keyed by their own declared id rather than their filename, so a room
// creation request only ever names the id an author gave the document.
type definitionRegistry struct {
	mu   sync.RWMutex
	defs map[string]*definition.Definition
}

func loadDefinitionRegistry(dir string) (*definitionRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("roomserver: reading definitions dir %q: %w", dir, err)
	}

	reg := &definitionRegistry{defs: map[string]*definition.Definition{}}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, err := definition.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("roomserver: loading %s: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("roomserver: validating %s: %w", path, err)
		}
		reg.defs[def.ID] = def
	}
	return reg, nil
}

func (r *definitionRegistry) get(id string) (*definition.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}
