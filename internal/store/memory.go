package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/cardimport/internal/core"
)

// Memory is an in-process store. Nothing survives Close.
type Memory struct {
	mu           sync.RWMutex
	schemas      []core.Schema
	decks        []core.Collection
	notes        []Note
	prefs        map[string]string
	current      int64
	nextID       int64
	commits      int
	failOnAdd    error
	failOnCommit error
}

// NewMemory returns an empty store holding only the default deck.
func NewMemory() *Memory {
	m := &Memory{prefs: make(map[string]string)}
	id := m.newID()
	m.decks = append(m.decks, core.Collection{ID: id, Name: DefaultDeck})
	m.current = id
	return m
}

func (m *Memory) newID() int64 {
	m.nextID++
	return m.nextID
}

// FailAdd makes every later AddRecord return err. Pass nil to clear.
func (m *Memory) FailAdd(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnAdd = err
}

// FailCommit makes every later Commit return err. Pass nil to clear.
func (m *Memory) FailCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnCommit = err
}

// Commits returns how many times Commit succeeded.
func (m *Memory) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

func (m *Memory) SeedSchemas(_ context.Context, schemas []core.Schema) (int, error) {
	if err := validateSchemas(schemas); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, s := range schemas {
		if _, ok := m.schemaByName(s.Name); ok {
			continue
		}
		fields := make([]string, len(s.Fields))
		copy(fields, s.Fields)
		m.schemas = append(m.schemas, core.Schema{ID: m.newID(), Name: s.Name, Fields: fields})
		added++
	}
	return added, nil
}

func (m *Memory) schemaByName(name string) (core.Schema, bool) {
	for _, s := range m.schemas {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return core.Schema{}, false
}

func (m *Memory) Schemas(context.Context) ([]core.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Schema, len(m.schemas))
	for i, s := range m.schemas {
		out[i] = core.Schema{ID: s.ID, Name: s.Name, Fields: append([]string(nil), s.Fields...)}
	}
	return out, nil
}

func (m *Memory) Collections(context.Context) ([]core.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Collection(nil), m.decks...), nil
}

func (m *Memory) GetOrCreateCollection(_ context.Context, name string) (int64, error) {
	parts, err := deckPath(name)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var id int64
	for _, prefix := range deckPrefixes(parts) {
		if d, ok := m.deckByName(prefix); ok {
			id = d.ID
			continue
		}
		id = m.newID()
		m.decks = append(m.decks, core.Collection{ID: id, Name: prefix})
	}
	return id, nil
}

func (m *Memory) deckByName(name string) (core.Collection, bool) {
	for _, d := range m.decks {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return core.Collection{}, false
}

func (m *Memory) deckByID(id int64) (core.Collection, bool) {
	for _, d := range m.decks {
		if d.ID == id {
			return d, true
		}
	}
	return core.Collection{}, false
}

func (m *Memory) SelectCollection(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deckByID(id); !ok {
		return fmt.Errorf("deck %d: %w", id, ErrNotFound)
	}
	m.current = id
	return nil
}

func (m *Memory) CurrentCollection(context.Context) (core.Collection, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deckByID(m.current)
	return d, ok, nil
}

func (m *Memory) AddRecord(_ context.Context, rec core.Record, collectionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOnAdd != nil {
		return m.failOnAdd
	}
	var schema *core.Schema
	for i := range m.schemas {
		if m.schemas[i].ID == rec.SchemaID {
			schema = &m.schemas[i]
			break
		}
	}
	if schema == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownSchema, rec.SchemaID)
	}
	if err := checkRecord(rec, *schema); err != nil {
		return err
	}
	if _, ok := m.deckByID(collectionID); !ok {
		return fmt.Errorf("deck %d: %w", collectionID, ErrNotFound)
	}
	for _, n := range m.notes {
		if n.GUID == rec.GUID {
			return fmt.Errorf("note %s: duplicate key value", rec.GUID)
		}
	}

	m.notes = append(m.notes, Note{
		ID:           m.newID(),
		GUID:         rec.GUID,
		SchemaID:     rec.SchemaID,
		CollectionID: collectionID,
		Fields:       append([]string(nil), rec.Fields...),
		Tags:         append([]string(nil), rec.Tags...),
		Line:         rec.Line,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *Memory) Commit(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failOnCommit != nil {
		return m.failOnCommit
	}
	m.commits++
	return nil
}

func (m *Memory) Notes(_ context.Context, collectionID int64) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Note
	for _, n := range m.notes {
		if n.CollectionID == collectionID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) LastDirectory(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs[prefLastDirectory], nil
}

func (m *Memory) SetLastDirectory(_ context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[prefLastDirectory] = dir
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
