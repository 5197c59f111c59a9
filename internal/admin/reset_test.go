package admin_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/pokecatalog/internal/admin"
	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/store/memory"
)

const csvData = `#,Name,Type 1,Type 2,HP,Attack,Defense,Sp. Atk,Sp. Def,Speed,Generation,Legendary
1,Bulbasaur,Grass,Poison,45,49,49,65,65,45,1,False
25,Pikachu,Electric,,35,55,40,50,50,90,1,False
`

func TestResetCatalog(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if _, err := core.NewImporter(store).Import(ctx, strings.NewReader(csvData), "pokemon.csv"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if _, err := admin.ResetCatalog(ctx, store, false); !errors.Is(err, admin.ErrNotConfirmed) {
		t.Fatalf("ResetCatalog(unconfirmed) error = %v, want ErrNotConfirmed", err)
	}

	res, err := admin.ResetCatalog(ctx, store, true)
	if err != nil {
		t.Fatalf("ResetCatalog() error = %v", err)
	}
	want := core.ResetResult{Pokemon: 2, Types: 3, Generations: 1}
	if res != want {
		t.Errorf("ResetCatalog() = %+v, want %+v", res, want)
	}

	mons, _ := store.ListPokemon(ctx)
	types, _ := store.ListTypes(ctx)
	if len(mons) != 0 || len(types) != 0 {
		t.Errorf("after reset: %d pokemon, %d types; want none", len(mons), len(types))
	}

	// The same dataset imports cleanly again.
	if _, err := core.NewImporter(store).Import(ctx, strings.NewReader(csvData), "pokemon.csv"); err != nil {
		t.Errorf("re-Import() after reset error = %v", err)
	}
}
