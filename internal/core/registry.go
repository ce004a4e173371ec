package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	registry   []Schema
	registryMu sync.RWMutex
)

// ErrInvalidSchema is returned for note type definitions without a name or fields.
var ErrInvalidSchema = errors.New("invalid note type")

// ValidateSchema checks that a note type has a name and distinct, non-empty fields.
func ValidateSchema(s Schema) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: %q has no fields", ErrInvalidSchema, s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" {
			return fmt.Errorf("%w: %q has an empty field name", ErrInvalidSchema, s.Name)
		}
		if seen[key] {
			return fmt.Errorf("%w: %q has duplicate field %q", ErrInvalidSchema, s.Name, f)
		}
		seen[key] = true
	}
	return nil
}

// Register adds a note type to the built-in registry.
// Panics if the definition is invalid or a note type with the same name
// (case-insensitive) is already registered.
func Register(s Schema) {
	if err := ValidateSchema(s); err != nil {
		panic(err.Error())
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if indexOf(registry, s.Name) >= 0 {
		panic(fmt.Sprintf("note type already registered: %s", s.Name))
	}

	s.Fields = append([]string(nil), s.Fields...)
	registry = append(registry, s)
}

// Get returns a registered note type by name, ignoring case.
func Get(name string) (Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	i := indexOf(registry, name)
	if i < 0 {
		return Schema{}, false
	}
	return cloneSchema(registry[i]), true
}

// All returns a snapshot of every registered note type in registration order.
func All() []Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Schema, len(registry))
	for i, s := range registry {
		result[i] = cloneSchema(s)
	}
	return result
}

// SchemaCount returns the number of registered note types.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered note types.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}

func indexOf(schemas []Schema, name string) int {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, s := range schemas {
		if strings.ToLower(strings.TrimSpace(s.Name)) == target {
			return i
		}
	}
	return -1
}

func cloneSchema(s Schema) Schema {
	s.Fields = append([]string(nil), s.Fields...)
	return s
}
