package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var repeatedSpace = regexp.MustCompile(`\s{2,}`)

// SubdeckName joins a parent collection and a child name as "parent::child".
// Runs of whitespace in the child collapse to a single space.
func SubdeckName(parent, child string) (string, error) {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if child == "" {
		return "", errors.New("subdeck name is empty")
	}
	child = repeatedSpace.ReplaceAllString(child, " ")
	if parent == "" {
		return child, nil
	}
	return parent + CollectionSeparator + child, nil
}

// SuggestSubdeck proposes a subdeck name from a file path: its base name
// without extension.
func SuggestSubdeck(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CleanCopyPattern is the temp-file pattern used by WriteCleanCopy.
const CleanCopyPattern = "cardimport_*.csv"

// WriteCleanCopy writes content with its directive block removed to a new
// temp file in dir (the system temp dir when empty) and returns its path.
// The caller owns the file.
func WriteCleanCopy(dir, content string) (string, error) {
	body := StripDirectives(strings.TrimSpace(content))

	f, err := os.CreateTemp(dir, CleanCopyPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}
