//go:build integration

package postgres_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JonMunkholm/pokecatalog/internal/config"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/store/postgres"
)

func setupStore(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("catalog_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.Open(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	return postgres.New(pool), pool
}

const dataset = `#,Name,Type 1,Type 2,Total,HP,Attack,Defense,Sp. Atk,Sp. Def,Speed,Generation,Legendary
1,Bulbasaur,Grass,Poison,318,45,49,49,65,65,45,1,False
2,Ivysaur,Grass,Poison,405,60,62,63,80,80,60,1,False
6,Charizard,Fire,Flying,534,78,84,78,109,85,100,1,False
6,CharizardMega Charizard X,Fire,Dragon,634,78,130,111,130,85,100,1,False
150,Mewtwo,Psychic,,680,106,110,90,154,90,130,1,True
`

func TestStore_ImportAndRead(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	res, err := core.NewImporter(store).Import(ctx, strings.NewReader(dataset), "pokemon.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 6, res.TypesCreated)
	assert.Equal(t, 1, res.GenerationsCreated)

	mons, err := store.ListPokemon(ctx)
	require.NoError(t, err)
	require.Len(t, mons, 5)
	assert.Equal(t, "Bulbasaur", mons[0].Name)
	assert.Equal(t, "Poison", mons[0].Type2.Name)

	mewtwo, err := store.GetPokemon(ctx, 150, "")
	require.NoError(t, err)
	assert.Nil(t, mewtwo.Type2)
	assert.True(t, mewtwo.Legendary)

	mega, err := store.GetPokemon(ctx, 6, "Mega Charizard X")
	require.NoError(t, err)
	assert.Equal(t, "Dragon", mega.Type2.Name)

	variants, err := store.ListPokemonByNumber(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, variants, 2)

	types, err := store.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 6)

	_, err = store.GetType(ctx, "Shadow")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_ReimportRollsBack(t *testing.T) {
	store, pool := setupStore(t)
	ctx := context.Background()
	importer := core.NewImporter(store)

	_, err := importer.Import(ctx, strings.NewReader(dataset), "pokemon.csv")
	require.NoError(t, err)

	extended := dataset + "151,Mew,Psychic,,600,100,100,100,100,100,100,1,True\n"
	_, err = importer.Import(ctx, strings.NewReader(extended), "pokemon.csv")
	require.ErrorIs(t, err, core.ErrUniquenessViolation)

	var rowErr *core.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Row)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM pokemon`).Scan(&count))
	assert.Equal(t, 5, count, "failed import must not leave rows behind")
}

func TestStore_ConcurrentGetOrCreateType(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	created := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
				ty, c, err := tx.GetOrCreateType(ctx, "Steel")
				ids[i], created[i] = ty.ID, c
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	creators := 0
	for i := range ids {
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}

func TestStore_TypeMutations(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	var first core.Type
	err := store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		var created bool
		var err error
		first, created, err = tx.UpsertType(ctx, "Fairy", "pink")
		assert.True(t, created)
		return err
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		ty, created, err := tx.UpsertType(ctx, "Fairy", "sparkly")
		assert.False(t, created)
		assert.Equal(t, first.ID, ty.ID)
		assert.Equal(t, "sparkly", ty.Description)
		return err
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, _, err := tx.UpsertType(ctx, "Dark", "")
		return err
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.UpdateType(ctx, "Fairy", core.TypeParams{Name: "Dark"})
		return err
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.UpdateType(ctx, "Shadow", core.TypeParams{Name: "Ghost"})
		return err
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = core.NewImporter(store).Import(ctx, strings.NewReader(dataset), "pokemon.csv")
	require.NoError(t, err)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.DeleteType(ctx, "Fire")
		return err
	})
	assert.ErrorIs(t, err, core.ErrInUse)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		deleted, err := tx.DeleteType(ctx, "Fairy")
		assert.True(t, deleted)
		return err
	})
	require.NoError(t, err)
}

func TestStore_UsersAndKeys(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	keyID := uuid.New()

	err := store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		u, err := tx.CreateUser(ctx, "ash", []byte("hash"))
		if err != nil {
			return err
		}
		_, err = tx.CreateAPIKey(ctx, u.ID, keyID, "abcd1234", strings.Repeat("a", 64))
		return err
	})
	require.NoError(t, err)

	u, err := store.GetUserByUsername(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), u.PasswordHash)

	k, err := store.GetAPIKeyByHash(ctx, strings.Repeat("a", 64))
	require.NoError(t, err)
	assert.Equal(t, keyID, k.ID)
	assert.Equal(t, u.ID, k.UserID)

	err = store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		_, err := tx.CreateUser(ctx, "ash", []byte("other"))
		return err
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}
