// Package notetypes registers the built-in note types with the core registry.
// Import this package to ensure all note types are registered.
package notetypes

// This file exists to provide a single import point.
// builtin.go registers the standard note types in init(); file.go loads
// additional definitions from YAML at startup.
