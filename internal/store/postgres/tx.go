package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

// pgTx implements core.Tx on an open pgx transaction.
type pgTx struct {
	db DBTX
}

// GetOrCreateType inserts with ON CONFLICT DO NOTHING and falls back to a
// select. Under READ COMMITTED the insert waits on a concurrent creator, so
// the select sees its row once it commits.
func (t *pgTx) GetOrCreateType(ctx context.Context, name string) (core.Type, bool, error) {
	if name == "" {
		return core.Type{}, false, errors.New("type name is empty")
	}

	created, err := scanType(t.db.QueryRow(ctx, `
		INSERT INTO pokemon_type (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, description`, name))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return core.Type{}, false, classify(fmt.Errorf("create type %q: %w", name, err))
	}

	existing, err := scanType(t.db.QueryRow(ctx,
		`SELECT id, name, description FROM pokemon_type WHERE name = $1`, name))
	if err != nil {
		return core.Type{}, false, classify(fmt.Errorf("type %q: %w", name, err))
	}
	return existing, false, nil
}

func (t *pgTx) GetOrCreateGeneration(ctx context.Context, number int) (core.Generation, bool, error) {
	if number <= 0 {
		return core.Generation{}, false, fmt.Errorf("generation number %d must be positive", number)
	}

	created, err := scanGeneration(t.db.QueryRow(ctx, `
		INSERT INTO generation (number) VALUES ($1)
		ON CONFLICT (number) DO NOTHING
		RETURNING id, number, description`, number))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return core.Generation{}, false, classify(fmt.Errorf("create generation %d: %w", number, err))
	}

	existing, err := scanGeneration(t.db.QueryRow(ctx,
		`SELECT id, number, description FROM generation WHERE number = $1`, number))
	if err != nil {
		return core.Generation{}, false, classify(fmt.Errorf("generation %d: %w", number, err))
	}
	return existing, false, nil
}

func (t *pgTx) CreatePokemon(ctx context.Context, p core.PokemonParams) (core.Pokemon, error) {
	var id int64
	err := t.db.QueryRow(ctx, `
		INSERT INTO pokemon (
			number, name, version, type1_id, type2_id,
			hp, attack, defense, special_attack, special_defense, speed,
			generation_id, legendary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		p.Number, p.Name, p.Version, p.Type1ID, optionalID(p.Type2ID),
		p.HP, p.Attack, p.Defense, p.SpecialAttack, p.SpecialDefense, p.Speed,
		p.GenerationID, p.Legendary,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			kind := "type"
			if strings.Contains(pgErr.ConstraintName, "generation") {
				kind = "generation"
			}
			return core.Pokemon{}, &core.ReferenceResolutionError{Kind: kind, Key: pgErr.ConstraintName, Err: err}
		}
		return core.Pokemon{}, classify(fmt.Errorf("pokemon #%d %s%s: %w", p.Number, p.Name, p.Version, err))
	}

	created, err := scanPokemon(t.db.QueryRow(ctx, pokemonSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return core.Pokemon{}, classify(fmt.Errorf("pokemon %d: %w", id, err))
	}
	return created, nil
}

func optionalID(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func (t *pgTx) UpsertType(ctx context.Context, name, description string) (core.Type, bool, error) {
	var (
		ty       core.Type
		inserted bool
	)
	err := t.db.QueryRow(ctx, `
		INSERT INTO pokemon_type (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, name, description, (xmax = 0)`, name, description,
	).Scan(&ty.ID, &ty.Name, &ty.Description, &inserted)
	if err != nil {
		return core.Type{}, false, classify(fmt.Errorf("save type %q: %w", name, err))
	}
	return ty, inserted, nil
}

func (t *pgTx) UpdateType(ctx context.Context, name string, p core.TypeParams) (core.Type, error) {
	ty, err := scanType(t.db.QueryRow(ctx, `
		UPDATE pokemon_type SET name = $2, description = $3
		WHERE name = $1
		RETURNING id, name, description`, name, p.Name, p.Description))
	if err != nil {
		return core.Type{}, classify(fmt.Errorf("type %q: %w", name, err))
	}
	return ty, nil
}

func (t *pgTx) DeleteType(ctx context.Context, name string) (bool, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM pokemon_type WHERE name = $1`, name)
	if err != nil {
		return false, classify(fmt.Errorf("type %q: %w", name, err))
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ResetCatalog(ctx context.Context) (core.ResetResult, error) {
	var res core.ResetResult
	steps := []struct {
		table string
		count *int64
	}{
		{"pokemon", &res.Pokemon},
		{"generation", &res.Generations},
		{"pokemon_type", &res.Types},
	}
	for _, step := range steps {
		tag, err := t.db.Exec(ctx, "DELETE FROM "+step.table)
		if err != nil {
			return core.ResetResult{}, classify(fmt.Errorf("reset %s: %w", step.table, err))
		}
		*step.count = tag.RowsAffected()
	}
	return res, nil
}

func (t *pgTx) CreateUser(ctx context.Context, username string, passwordHash []byte) (core.User, error) {
	u, err := scanUser(t.db.QueryRow(ctx, `
		INSERT INTO app_user (username, password_hash) VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`, strings.TrimSpace(username), passwordHash))
	if err != nil {
		return core.User{}, classify(fmt.Errorf("user %q: %w", username, err))
	}
	return u, nil
}

func (t *pgTx) CreateAPIKey(ctx context.Context, userID int64, id uuid.UUID, prefix, hash string) (core.APIKey, error) {
	k, err := scanAPIKey(t.db.QueryRow(ctx, `
		INSERT INTO api_key (id, user_id, prefix, key_hash) VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, prefix, key_hash, created_at`,
		pgtype.UUID{Bytes: id, Valid: true}, userID, prefix, hash))
	if err != nil {
		return core.APIKey{}, classify(fmt.Errorf("api key for user %d: %w", userID, err))
	}
	return k, nil
}
