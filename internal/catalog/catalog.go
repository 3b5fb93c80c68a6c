// Copyright Contributors to the TaskBench project

// Package catalog loads TaskDefinitions from YAML files. One file holds
// one definition; the catalog validates at load time so the engine only
// ever sees well-formed tasks.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

// Catalog is an immutable set of task definitions keyed by id.
type Catalog struct {
	tasks map[string]*taskbenchv1alpha1.TaskDefinition
}

// LoadFile parses and validates a single task definition.
func LoadFile(path string) (*taskbenchv1alpha1.TaskDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	def := &taskbenchv1alpha1.TaskDefinition{}
	if err := yaml.UnmarshalStrict(data, def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir loads every .yaml/.yml file in dir into a catalog. Task ids
// must be unique across the directory.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read task directory: %w", err)
	}

	c := &Catalog{tasks: make(map[string]*taskbenchv1alpha1.TaskDefinition)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := c.tasks[def.ID()]; exists {
			return nil, fmt.Errorf("duplicate task id %q in %s", def.ID(), entry.Name())
		}
		c.tasks[def.ID()] = def
	}
	return c, nil
}

// Get returns the definition for a task id.
func (c *Catalog) Get(id string) (*taskbenchv1alpha1.TaskDefinition, error) {
	def, ok := c.tasks[id]
	if !ok {
		return nil, fmt.Errorf("unknown task %q", id)
	}
	return def, nil
}

// IDs returns all task ids in lexical order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.tasks))
	for id := range c.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the definitions in id order.
func (c *Catalog) All() []*taskbenchv1alpha1.TaskDefinition {
	defs := make([]*taskbenchv1alpha1.TaskDefinition, 0, len(c.tasks))
	for _, id := range c.IDs() {
		defs = append(defs, c.tasks[id])
	}
	return defs
}

// Len returns the number of tasks in the catalog.
func (c *Catalog) Len() int {
	return len(c.tasks)
}
