package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS note_types (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT NOT NULL,
	fields   TEXT[] NOT NULL,
	position INT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS note_types_name_key ON note_types (lower(name));

CREATE TABLE IF NOT EXISTS decks (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS decks_name_key ON decks (lower(name));

CREATE TABLE IF NOT EXISTS notes (
	id           BIGSERIAL PRIMARY KEY,
	guid         UUID NOT NULL UNIQUE,
	note_type_id BIGINT NOT NULL REFERENCES note_types(id),
	deck_id      BIGINT NOT NULL REFERENCES decks(id),
	fields       TEXT[] NOT NULL,
	tags         TEXT[] NOT NULL DEFAULT '{}',
	source_line  INT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notes_deck_id_idx ON notes (deck_id);

CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Postgres is a store shared by every server instance.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool using cfg and creates the tables.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgres(ctx, pool)
}

// NewPostgres wraps an existing pool and creates the tables.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	p := &Postgres{pool: pool}
	if _, err := p.GetOrCreateCollection(ctx, DefaultDeck); err != nil {
		return nil, fmt.Errorf("create default deck: %w", err)
	}
	return p, nil
}

func (p *Postgres) SeedSchemas(ctx context.Context, schemas []core.Schema) (int, error) {
	if err := validateSchemas(schemas); err != nil {
		return 0, err
	}
	added := 0
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var pos int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM note_types`).Scan(&pos); err != nil {
			return fmt.Errorf("read note type positions: %w", err)
		}
		for _, sc := range schemas {
			pos++
			tag, err := tx.Exec(ctx,
				`INSERT INTO note_types (name, fields, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				sc.Name, sc.Fields, pos)
			if err != nil {
				return fmt.Errorf("insert note type %q: %w", sc.Name, err)
			}
			added += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (p *Postgres) Schemas(ctx context.Context) ([]core.Schema, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, fields FROM note_types ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list note types: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Schema, error) {
		var sc core.Schema
		err := row.Scan(&sc.ID, &sc.Name, &sc.Fields)
		return sc, err
	})
}

func (p *Postgres) Collections(ctx context.Context) ([]core.Collection, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM decks ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[core.Collection])
}

func (p *Postgres) GetOrCreateCollection(ctx context.Context, name string) (int64, error) {
	parts, err := deckPath(name)
	if err != nil {
		return 0, err
	}

	var id int64
	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, prefix := range deckPrefixes(parts) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO decks (name) VALUES ($1) ON CONFLICT DO NOTHING`, prefix); err != nil {
				return fmt.Errorf("create deck %q: %w", prefix, err)
			}
			if err := tx.QueryRow(ctx,
				`SELECT id FROM decks WHERE lower(name) = lower($1)`, prefix).Scan(&id); err != nil {
				return fmt.Errorf("read deck %q: %w", prefix, err)
			}
		}
		return nil
	})
	return id, err
}

func (p *Postgres) SelectCollection(ctx context.Context, id int64) error {
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM decks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("deck %d: %w", id, ErrNotFound)
	}
	return p.setPref(ctx, prefCurrentCollection, strconv.FormatInt(id, 10))
}

func (p *Postgres) CurrentCollection(ctx context.Context) (core.Collection, bool, error) {
	var c core.Collection
	err := p.pool.QueryRow(ctx, `
		SELECT d.id, d.name FROM decks d
		WHERE d.id = COALESCE(
			(SELECT value::bigint FROM preferences WHERE key = $1),
			(SELECT id FROM decks WHERE lower(name) = lower($2)))`,
		prefCurrentCollection, DefaultDeck).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Collection{}, false, nil
	}
	if err != nil {
		return core.Collection{}, false, fmt.Errorf("read current deck: %w", err)
	}
	return c, true, nil
}

func (p *Postgres) AddRecord(ctx context.Context, rec core.Record, collectionID int64) error {
	var sc core.Schema
	err := p.pool.QueryRow(ctx, `SELECT name, fields FROM note_types WHERE id = $1`, rec.SchemaID).Scan(&sc.Name, &sc.Fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrUnknownSchema, rec.SchemaID)
	}
	if err != nil {
		return err
	}
	if err := checkRecord(rec, sc); err != nil {
		return err
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO notes (guid, note_type_id, deck_id, fields, tags, source_line)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.GUID, rec.SchemaID, collectionID, rec.Fields, tags, rec.Line)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("insert note (%s): %w", pgErr.Code, err)
		}
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// Commit bumps the modification time of decks that received notes since
// their last commit.
func (p *Postgres) Commit(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE decks SET modified_at = now()
		WHERE id IN (SELECT DISTINCT n.deck_id FROM notes n JOIN decks d ON d.id = n.deck_id
		             WHERE n.created_at >= d.modified_at)`)
	return err
}

func (p *Postgres) Notes(ctx context.Context, collectionID int64) ([]Note, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, guid::text, note_type_id, deck_id, fields, tags, source_line, created_at
		FROM notes WHERE deck_id = $1 ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Note, error) {
		var n Note
		err := row.Scan(&n.ID, &n.GUID, &n.SchemaID, &n.CollectionID, &n.Fields, &n.Tags, &n.Line, &n.CreatedAt)
		if len(n.Tags) == 0 {
			n.Tags = nil
		}
		return n, err
	})
}

func (p *Postgres) LastDirectory(ctx context.Context) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, prefLastDirectory).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (p *Postgres) SetLastDirectory(ctx context.Context, dir string) error {
	return p.setPref(ctx, prefLastDirectory, dir)
}

func (p *Postgres) setPref(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
