package notetypes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/cardimport/internal/core"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a note type definition file:
//
//	notetypes:
//	  - name: Vocabulary
//	    fields: [Word, Meaning, Example]
type File struct {
	NoteTypes []core.Schema `yaml:"notetypes"`
}

// Parse decodes and validates a definition file. Unknown keys are rejected.
func Parse(data []byte) ([]core.Schema, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse note types: %w", err)
	}

	var errs []error
	for i, s := range f.NoteTypes {
		if err := core.ValidateSchema(s); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f.NoteTypes, nil
}

// LoadFile reads and parses a definition file.
func LoadFile(path string) ([]core.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read note types: %w", err)
	}
	return Parse(data)
}

// RegisterFile registers every note type in path that is not already
// registered and returns how many were added. An empty path is a no-op.
func RegisterFile(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	schemas, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, s := range schemas {
		if _, exists := core.Get(s.Name); exists {
			continue
		}
		core.Register(s)
		added++
	}
	return added, nil
}
