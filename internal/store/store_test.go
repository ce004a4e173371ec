package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchemas = []core.Schema{
	{Name: "Basic", Fields: []string{"Front", "Back"}},
	{Name: "Cloze", Fields: []string{"Text", "Back Extra"}},
	{Name: "Vocab", Fields: []string{"Word", "Meaning", "Example"}},
}

// storeFactories returns every store that can run without external services.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			return s
		},
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		factories["postgres"] = func(t *testing.T) Store {
			s, err := OpenPostgres(context.Background(), config.StoreConfig{
				DatabaseURL: url, MaxConns: 2, MinConns: 0,
			})
			require.NoError(t, err)
			return s
		}
	}
	return factories
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func schemaNamed(t *testing.T, s Store, name string) core.Schema {
	t.Helper()
	schemas, err := s.Schemas(context.Background())
	require.NoError(t, err)
	idx, ok := core.FindSchemaByName(name, schemas)
	require.True(t, ok, "note type %q not seeded", name)
	return schemas[idx]
}

func TestStore_SeedSchemas(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		n, err := s.SeedSchemas(ctx, testSchemas)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		// Seeding again adds nothing, and names compare case-insensitively.
		n, err = s.SeedSchemas(ctx, []core.Schema{{Name: "basic", Fields: []string{"X"}}})
		require.NoError(t, err)
		assert.Zero(t, n)

		schemas, err := s.Schemas(ctx)
		require.NoError(t, err)
		require.Len(t, schemas, 3)
		assert.Equal(t, "Basic", schemas[0].Name)
		assert.Equal(t, []string{"Front", "Back"}, schemas[0].Fields)
		assert.Equal(t, "Vocab", schemas[2].Name)
		assert.NotZero(t, schemas[2].ID)
	})
}

func TestStore_SeedSchemasRejectsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		before, err := s.Schemas(ctx)
		require.NoError(t, err)

		batch := []core.Schema{
			{Name: "Memo", Fields: []string{"Text"}},
			{Name: "Hollow"},
		}
		_, err = s.SeedSchemas(ctx, batch)
		assert.ErrorIs(t, err, core.ErrInvalidSchema)

		after, err := s.Schemas(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before), "nothing from a rejected batch is stored")
	})
}

func TestStore_SingleEmptyFieldRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.SeedSchemas(ctx, []core.Schema{{Name: "Memo", Fields: []string{"Text"}}})
		require.NoError(t, err)
		memo := schemaNamed(t, s, "Memo")
		assert.Equal(t, []string{"Text"}, memo.Fields)

		deck, err := s.GetOrCreateCollection(ctx, "Scratch "+uuid.NewString())
		require.NoError(t, err)
		require.NoError(t, s.AddRecord(ctx, core.Record{GUID: uuid.NewString(), SchemaID: memo.ID, Fields: []string{""}, Line: 1}, deck))

		notes, err := s.Notes(ctx, deck)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, []string{""}, notes[0].Fields)
	})
}

func TestStore_DefaultDeckIsCurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		cur, ok, err := s.CurrentCollection(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, DefaultDeck, cur.Name)
	})
}

func TestStore_GetOrCreateCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		id, err := s.GetOrCreateCollection(ctx, "Languages :: Spanish")
		require.NoError(t, err)

		again, err := s.GetOrCreateCollection(ctx, "languages::spanish")
		require.NoError(t, err)
		assert.Equal(t, id, again)

		decks, err := s.Collections(ctx)
		require.NoError(t, err)
		var names []string
		for _, d := range decks {
			names = append(names, d.Name)
		}
		assert.ElementsMatch(t, []string{DefaultDeck, "Languages", "Languages::Spanish"}, names)

		_, err = s.GetOrCreateCollection(ctx, "Languages::  ")
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestStore_SelectCollection(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		id, err := s.GetOrCreateCollection(ctx, "Geography")
		require.NoError(t, err)
		require.NoError(t, s.SelectCollection(ctx, id))

		cur, ok, err := s.CurrentCollection(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Geography", cur.Name)

		assert.ErrorIs(t, s.SelectCollection(ctx, 999999), ErrNotFound)
	})
}

func TestStore_AddRecordAndNotes(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.SeedSchemas(ctx, testSchemas)
		require.NoError(t, err)
		basic := schemaNamed(t, s, "Basic")

		deck, err := s.GetOrCreateCollection(ctx, "Capitals")
		require.NoError(t, err)

		recs := []core.Record{
			{GUID: uuid.NewString(), SchemaID: basic.ID, Fields: []string{"France", "Paris"}, Tags: []string{"europe", "geo"}, Line: 1},
			{GUID: uuid.NewString(), SchemaID: basic.ID, Fields: []string{"Japan", ""}, Line: 3},
		}
		for _, r := range recs {
			require.NoError(t, s.AddRecord(ctx, r, deck))
		}
		require.NoError(t, s.Commit(ctx))

		notes, err := s.Notes(ctx, deck)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, recs[0].GUID, notes[0].GUID)
		assert.Equal(t, []string{"France", "Paris"}, notes[0].Fields)
		assert.Equal(t, []string{"europe", "geo"}, notes[0].Tags)
		assert.Equal(t, []string{"Japan", ""}, notes[1].Fields)
		assert.Nil(t, notes[1].Tags)
		assert.Equal(t, 3, notes[1].Line)
	})
}

func TestStore_AddRecordRejectsBadRecords(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.SeedSchemas(ctx, testSchemas)
		require.NoError(t, err)
		basic := schemaNamed(t, s, "Basic")
		cur, _, err := s.CurrentCollection(ctx)
		require.NoError(t, err)

		err = s.AddRecord(ctx, core.Record{GUID: uuid.NewString(), SchemaID: basic.ID, Fields: []string{"only one"}}, cur.ID)
		assert.ErrorIs(t, err, ErrFieldCount)

		err = s.AddRecord(ctx, core.Record{GUID: uuid.NewString(), SchemaID: 424242, Fields: []string{"a", "b"}}, cur.ID)
		assert.ErrorIs(t, err, ErrUnknownSchema)

		guid := uuid.NewString()
		require.NoError(t, s.AddRecord(ctx, core.Record{GUID: guid, SchemaID: basic.ID, Fields: []string{"a", "b"}}, cur.ID))
		err = s.AddRecord(ctx, core.Record{GUID: guid, SchemaID: basic.ID, Fields: []string{"c", "d"}}, cur.ID)
		assert.Error(t, err)
	})
}

func TestStore_LastDirectory(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		dir, err := s.LastDirectory(ctx)
		require.NoError(t, err)
		assert.Empty(t, dir)

		require.NoError(t, s.SetLastDirectory(ctx, "/home/user/decks"))
		require.NoError(t, s.SetLastDirectory(ctx, "/tmp/csv"))

		dir, err = s.LastDirectory(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/csv", dir)
	})
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "collection.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = s.SeedSchemas(ctx, testSchemas)
	require.NoError(t, err)
	require.NoError(t, s.SetLastDirectory(ctx, "/data"))
	id, err := s.GetOrCreateCollection(ctx, "Kept")
	require.NoError(t, err)
	require.NoError(t, s.SelectCollection(ctx, id))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	dir, err := s.LastDirectory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/data", dir)

	cur, ok, err := s.CurrentCollection(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kept", cur.Name)

	schemas, err := s.Schemas(ctx)
	require.NoError(t, err)
	assert.Len(t, schemas, 3)
}

func TestOpen_MemorySeedsRegistry(t *testing.T) {
	core.Clear()
	t.Cleanup(core.Clear)
	core.Register(core.Schema{Name: "Basic", Fields: []string{"Front", "Back"}})

	s, err := Open(context.Background(), config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer s.Close()

	schemas, err := s.Schemas(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "Basic", schemas[0].Name)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestMemory_FailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("disk full")

	m.FailCommit(boom)
	assert.ErrorIs(t, m.Commit(ctx), boom)
	m.FailCommit(nil)
	require.NoError(t, m.Commit(ctx))
	assert.Equal(t, 1, m.Commits())

	m.FailAdd(boom)
	assert.ErrorIs(t, m.AddRecord(ctx, core.Record{}, 1), boom)
}
