// Package postgres is the PostgreSQL catalog store. Writes run inside one
// pgx transaction per core.Store.InTx call; the schema ships as embedded
// goose migrations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pokecatalog/internal/config"
	"github.com/JonMunkholm/pokecatalog/internal/core"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open creates a connection pool from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classify(fmt.Errorf("connect to database: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(fmt.Errorf("ping database: %w", err))
	}
	return pool, nil
}

// Store implements core.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// New wraps pool. The caller owns the pool and closes it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx begins a transaction, hands it to fn and commits when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return classify(s.pool.Ping(ctx))
}

func (s *Store) ListTypes(ctx context.Context) ([]core.Type, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM pokemon_type ORDER BY name`)
	if err != nil {
		return nil, classify(fmt.Errorf("list types: %w", err))
	}
	types, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Type, error) {
		return scanType(row)
	})
	if err != nil {
		return nil, classify(fmt.Errorf("list types: %w", err))
	}
	return types, nil
}

func (s *Store) GetType(ctx context.Context, name string) (core.Type, error) {
	t, err := scanType(s.pool.QueryRow(ctx, `SELECT id, name, description FROM pokemon_type WHERE name = $1`, name))
	if err != nil {
		return core.Type{}, classify(fmt.Errorf("type %q: %w", name, err))
	}
	return t, nil
}

func (s *Store) ListGenerations(ctx context.Context) ([]core.Generation, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, number, description FROM generation ORDER BY number`)
	if err != nil {
		return nil, classify(fmt.Errorf("list generations: %w", err))
	}
	gens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Generation, error) {
		return scanGeneration(row)
	})
	if err != nil {
		return nil, classify(fmt.Errorf("list generations: %w", err))
	}
	return gens, nil
}

func (s *Store) ListPokemon(ctx context.Context) ([]core.Pokemon, error) {
	return queryPokemon(ctx, s.pool, pokemonSelect+` ORDER BY p.id`)
}

func (s *Store) GetPokemon(ctx context.Context, number int, version string) (core.Pokemon, error) {
	p, err := scanPokemon(s.pool.QueryRow(ctx,
		pokemonSelect+` WHERE p.number = $1 AND p.version = $2 ORDER BY p.id LIMIT 1`, number, version))
	if err != nil {
		return core.Pokemon{}, classify(fmt.Errorf("pokemon %d %q: %w", number, version, err))
	}
	return p, nil
}

func (s *Store) ListPokemonByNumber(ctx context.Context, number int) ([]core.Pokemon, error) {
	return queryPokemon(ctx, s.pool, pokemonSelect+` WHERE p.number = $1 ORDER BY p.id`, number)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM app_user WHERE username = $1`, username))
	if err != nil {
		return core.User{}, classify(fmt.Errorf("user %q: %w", username, err))
	}
	return u, nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (core.APIKey, error) {
	k, err := scanAPIKey(s.pool.QueryRow(ctx,
		`SELECT id, user_id, prefix, key_hash, created_at FROM api_key WHERE key_hash = $1`, hash))
	if err != nil {
		return core.APIKey{}, classify(fmt.Errorf("api key: %w", err))
	}
	return k, nil
}

const pokemonSelect = `
SELECT p.id, p.number, p.name, p.version,
       t1.id, t1.name, t1.description,
       t2.id, t2.name, t2.description,
       p.hp, p.attack, p.defense, p.special_attack, p.special_defense, p.speed,
       g.id, g.number, g.description,
       p.legendary
FROM pokemon p
JOIN pokemon_type t1 ON t1.id = p.type1_id
LEFT JOIN pokemon_type t2 ON t2.id = p.type2_id
JOIN generation g ON g.id = p.generation_id`

func queryPokemon(ctx context.Context, db DBTX, sql string, args ...any) ([]core.Pokemon, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("list pokemon: %w", err))
	}
	mons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Pokemon, error) {
		return scanPokemon(row)
	})
	if err != nil {
		return nil, classify(fmt.Errorf("list pokemon: %w", err))
	}
	return mons, nil
}

func scanType(row pgx.Row) (core.Type, error) {
	var t core.Type
	err := row.Scan(&t.ID, &t.Name, &t.Description)
	return t, err
}

func scanGeneration(row pgx.Row) (core.Generation, error) {
	var g core.Generation
	err := row.Scan(&g.ID, &g.Number, &g.Description)
	return g, err
}

func scanPokemon(row pgx.Row) (core.Pokemon, error) {
	var (
		p         core.Pokemon
		type2ID   pgtype.Int8
		type2Name pgtype.Text
		type2Desc pgtype.Text
	)
	err := row.Scan(
		&p.ID, &p.Number, &p.Name, &p.Version,
		&p.Type1.ID, &p.Type1.Name, &p.Type1.Description,
		&type2ID, &type2Name, &type2Desc,
		&p.HP, &p.Attack, &p.Defense, &p.SpecialAttack, &p.SpecialDefense, &p.Speed,
		&p.Generation.ID, &p.Generation.Number, &p.Generation.Description,
		&p.Legendary,
	)
	if err != nil {
		return core.Pokemon{}, err
	}
	if type2ID.Valid {
		p.Type2 = &core.Type{ID: type2ID.Int64, Name: type2Name.String, Description: type2Desc.String}
	}
	return p, nil
}

func scanUser(row pgx.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func scanAPIKey(row pgx.Row) (core.APIKey, error) {
	var (
		k  core.APIKey
		id pgtype.UUID
	)
	if err := row.Scan(&id, &k.UserID, &k.Prefix, &k.KeyHash, &k.CreatedAt); err != nil {
		return core.APIKey{}, err
	}
	k.ID = id.Bytes
	return k, nil
}
