package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/cardimport/internal/core"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS note_types (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL UNIQUE COLLATE NOCASE,
	fields   TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	modified_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	guid         TEXT NOT NULL UNIQUE,
	note_type_id INTEGER NOT NULL REFERENCES note_types(id),
	deck_id      INTEGER NOT NULL REFERENCES decks(id),
	fields       TEXT NOT NULL,
	tags         TEXT NOT NULL DEFAULT '',
	source_line  INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_deck ON notes(deck_id);

CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLite is a store backed by a single collection file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the collection file at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; an in-memory database is also private to its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.ensureDefaultDeck(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureDefaultDeck(ctx context.Context) error {
	if _, err := s.GetOrCreateCollection(ctx, DefaultDeck); err != nil {
		return fmt.Errorf("create default deck: %w", err)
	}
	return nil
}

func (s *SQLite) SeedSchemas(ctx context.Context, schemas []core.Schema) (int, error) {
	if err := validateSchemas(schemas); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var pos int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM note_types`).Scan(&pos); err != nil {
		return 0, fmt.Errorf("read note type positions: %w", err)
	}

	added := 0
	for _, sc := range schemas {
		pos++
		res, err := tx.ExecContext(ctx,
			`INSERT INTO note_types (name, fields, position) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
			sc.Name, joinFields(sc.Fields), pos)
		if err != nil {
			return 0, fmt.Errorf("insert note type %q: %w", sc.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

func (s *SQLite) Schemas(ctx context.Context) ([]core.Schema, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, fields FROM note_types ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list note types: %w", err)
	}
	defer rows.Close()

	var out []core.Schema
	for rows.Next() {
		var (
			sc     core.Schema
			fields string
		)
		if err := rows.Scan(&sc.ID, &sc.Name, &fields); err != nil {
			return nil, err
		}
		sc.Fields = splitFields(fields)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLite) Collections(ctx context.Context) ([]core.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM decks ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var out []core.Collection
	for rows.Next() {
		var c core.Collection
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) GetOrCreateCollection(ctx context.Context, name string) (int64, error) {
	parts, err := deckPath(name)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	var id int64
	for _, prefix := range deckPrefixes(parts) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decks (name, modified_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
			prefix, now); err != nil {
			return 0, fmt.Errorf("create deck %q: %w", prefix, err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT id FROM decks WHERE name = ?`, prefix).Scan(&id); err != nil {
			return 0, fmt.Errorf("read deck %q: %w", prefix, err)
		}
	}
	return id, tx.Commit()
}

func (s *SQLite) SelectCollection(ctx context.Context, id int64) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM decks WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("deck %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.setPref(ctx, prefCurrentCollection, strconv.FormatInt(id, 10))
}

func (s *SQLite) CurrentCollection(ctx context.Context) (core.Collection, bool, error) {
	var c core.Collection
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.name FROM decks d
		WHERE d.id = COALESCE(
			(SELECT CAST(value AS INTEGER) FROM preferences WHERE key = ?),
			(SELECT id FROM decks WHERE name = ?))`,
		prefCurrentCollection, DefaultDeck).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Collection{}, false, nil
	}
	if err != nil {
		return core.Collection{}, false, fmt.Errorf("read current deck: %w", err)
	}
	return c, true, nil
}

func (s *SQLite) AddRecord(ctx context.Context, rec core.Record, collectionID int64) error {
	var (
		name   string
		fields string
	)
	err := s.db.QueryRowContext(ctx, `SELECT name, fields FROM note_types WHERE id = ?`, rec.SchemaID).Scan(&name, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrUnknownSchema, rec.SchemaID)
	}
	if err != nil {
		return err
	}
	if err := checkRecord(rec, core.Schema{Name: name, Fields: splitFields(fields)}); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (guid, note_type_id, deck_id, fields, tags, source_line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.GUID, rec.SchemaID, collectionID, joinFields(rec.Fields), joinTags(rec.Tags), rec.Line, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Commit bumps the modification time of every deck that received notes
// since the last commit. Notes themselves are already durable.
func (s *SQLite) Commit(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE decks SET modified_at = ?
		WHERE id IN (SELECT DISTINCT deck_id FROM notes WHERE created_at >= modified_at)`,
		time.Now().Unix())
	return err
}

func (s *SQLite) Notes(ctx context.Context, collectionID int64) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guid, note_type_id, deck_id, fields, tags, source_line, created_at
		FROM notes WHERE deck_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var (
			n              Note
			fields, tags   string
			createdAtEpoch int64
		)
		if err := rows.Scan(&n.ID, &n.GUID, &n.SchemaID, &n.CollectionID, &fields, &tags, &n.Line, &createdAtEpoch); err != nil {
			return nil, err
		}
		n.Fields = splitFields(fields)
		n.Tags = splitTags(tags)
		n.CreatedAt = time.Unix(createdAtEpoch, 0)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) LastDirectory(ctx context.Context) (string, error) {
	return s.getPref(ctx, prefLastDirectory)
}

func (s *SQLite) SetLastDirectory(ctx context.Context, dir string) error {
	return s.setPref(ctx, prefLastDirectory, dir)
}

func (s *SQLite) getPref(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *SQLite) setPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }
