// Package store provides the collections an import writes into. Each store
// holds note types, decks, notes and the user's last-directory preference,
// and implements core.Host so the importer can drive it directly.
//
// Three drivers exist: memory (tests and dry runs), sqlite (a local
// collection file, the default) and postgres (shared server deployments).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
)

// DefaultDeck is created in every new store and selected until the user
// picks another one.
const DefaultDeck = "Default"

// Preference keys.
const (
	prefLastDirectory     = "last_directory"
	prefCurrentCollection = "current_collection"
)

var (
	// ErrNotFound is returned when a deck or note type does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for deck names with empty path components.
	ErrInvalidName = errors.New("invalid deck name")
	// ErrUnknownSchema is returned when a record names a note type the store lacks.
	ErrUnknownSchema = errors.New("unknown note type")
	// ErrFieldCount is returned when a record's fields do not fit its note type.
	ErrFieldCount = errors.New("field count does not match note type")
)

// Note is a stored record.
type Note struct {
	ID           int64     `json:"id"`
	GUID         string    `json:"guid"`
	SchemaID     int64     `json:"schemaId"`
	CollectionID int64     `json:"collectionId"`
	Fields       []string  `json:"fields"`
	Tags         []string  `json:"tags,omitempty"`
	Line         int       `json:"line"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is a collection the importer can write into.
type Store interface {
	core.Host
	core.CurrentCollectioner
	core.Preferences

	// SeedSchemas adds every schema whose name the store does not know yet
	// and returns how many were added. Existing note types are left alone.
	SeedSchemas(ctx context.Context, schemas []core.Schema) (int, error)

	// Notes lists the notes of a collection in insertion order.
	Notes(ctx context.Context, collectionID int64) ([]Note, error)

	// Ping checks the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Open connects to the store selected by cfg, creates its tables and seeds
// note types from the registry.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		s = NewMemory()
	case config.DriverSQLite:
		s, err = OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		s, err = OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.SeedSchemas(ctx, core.All()); err != nil {
		s.Close()
		return nil, fmt.Errorf("seed note types: %w", err)
	}
	return s, nil
}

// deckPath splits a "::" separated deck name into trimmed components.
// Every prefix of the path is a deck of its own.
func deckPath(name string) ([]string, error) {
	parts := strings.Split(name, core.CollectionSeparator)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		parts[i] = p
	}
	return parts, nil
}

// deckPrefixes returns "A", "A::B", "A::B::C" for "A::B::C".
func deckPrefixes(parts []string) []string {
	out := make([]string, len(parts))
	for i := range parts {
		out[i] = strings.Join(parts[:i+1], core.CollectionSeparator)
	}
	return out
}

// checkRecord validates a record against its note type before it is written.
func checkRecord(rec core.Record, schema core.Schema) error {
	if len(rec.Fields) != schema.FieldCount() {
		return fmt.Errorf("%w: %q has %d field(s), record has %d",
			ErrFieldCount, schema.Name, schema.FieldCount(), len(rec.Fields))
	}
	return nil
}

// Anki stores fields joined by the unit separator and tags space separated.
const fieldSeparator = "\x1f"

func joinFields(fields []string) string { return strings.Join(fields, fieldSeparator) }

// splitFields inverts joinFields. "" is a single empty field; stored note
// types always have at least one field (see validateSchemas).
func splitFields(s string) []string { return strings.Split(s, fieldSeparator) }

// validateSchemas rejects the whole batch before anything is written.
func validateSchemas(schemas []core.Schema) error {
	for _, sc := range schemas {
		if err := core.ValidateSchema(sc); err != nil {
			return err
		}
	}
	return nil
}

func joinTags(tags []string) string { return strings.Join(tags, " ") }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
