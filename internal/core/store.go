package core

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence collaborator. Writes happen inside InTx; reads
// run outside a transaction.
type Store interface {
	// InTx runs fn inside one transaction. The transaction commits only when
	// fn returns nil; any error or panic rolls it back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error

	ListTypes(ctx context.Context) ([]Type, error)
	GetType(ctx context.Context, name string) (Type, error)
	ListGenerations(ctx context.Context) ([]Generation, error)
	ListPokemon(ctx context.Context) ([]Pokemon, error)
	GetPokemon(ctx context.Context, number int, version string) (Pokemon, error)
	ListPokemonByNumber(ctx context.Context, number int) ([]Pokemon, error)

	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetAPIKeyByHash(ctx context.Context, hash string) (APIKey, error)
}

// Tx is the set of write operations available inside a transaction.
type Tx interface {
	// GetOrCreateType returns the Type named name, creating it with an empty
	// description when absent. Safe against concurrent creators.
	GetOrCreateType(ctx context.Context, name string) (t Type, created bool, err error)

	// GetOrCreateGeneration is GetOrCreateType for generations.
	GetOrCreateGeneration(ctx context.Context, number int) (g Generation, created bool, err error)

	// CreatePokemon inserts p. A natural key collision returns
	// ErrUniquenessViolation.
	CreatePokemon(ctx context.Context, p PokemonParams) (Pokemon, error)

	UpsertType(ctx context.Context, name, description string) (t Type, created bool, err error)
	UpdateType(ctx context.Context, name string, p TypeParams) (Type, error)
	DeleteType(ctx context.Context, name string) (deleted bool, err error)

	// ResetCatalog deletes every Pokemon, Generation and Type. Users and API
	// keys are kept.
	ResetCatalog(ctx context.Context) (ResetResult, error)

	CreateUser(ctx context.Context, username string, passwordHash []byte) (User, error)
	CreateAPIKey(ctx context.Context, userID int64, id uuid.UUID, prefix, hash string) (APIKey, error)
}
