package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/store/memory"
)

const datasetHeader = "#,Name,Type 1,Type 2,Total,HP,Attack,Defense,Sp. Atk,Sp. Def,Speed,Generation,Legendary\n"

// tenRows is the first ten records of pokemon.csv.
const tenRows = `1,Bulbasaur,Grass,Poison,318,45,49,49,65,65,45,1,False
2,Ivysaur,Grass,Poison,405,60,62,63,80,80,60,1,False
3,Venusaur,Grass,Poison,525,80,82,83,100,100,80,1,False
3,VenusaurMega Venusaur,Grass,Poison,625,80,100,123,122,120,80,1,False
4,Charmander,Fire,,309,39,52,43,60,50,65,1,False
5,Charmeleon,Fire,,405,58,64,58,80,65,80,1,False
6,Charizard,Fire,Flying,534,78,84,78,109,85,100,1,False
6,CharizardMega Charizard X,Fire,Dragon,634,78,130,111,130,85,100,1,False
6,CharizardMega Charizard Y,Fire,Flying,634,78,104,78,159,115,100,1,False
7,Squirtle,Water,,314,44,48,65,50,64,43,1,False
`

func dataset(rows string) *strings.Reader {
	return strings.NewReader(datasetHeader + rows)
}

type counts struct {
	types, generations, pokemon int
}

func countAll(t *testing.T, s core.Store) counts {
	t.Helper()
	ctx := context.Background()
	types, err := s.ListTypes(ctx)
	if err != nil {
		t.Fatalf("ListTypes() error = %v", err)
	}
	gens, err := s.ListGenerations(ctx)
	if err != nil {
		t.Fatalf("ListGenerations() error = %v", err)
	}
	mons, err := s.ListPokemon(ctx)
	if err != nil {
		t.Fatalf("ListPokemon() error = %v", err)
	}
	return counts{len(types), len(gens), len(mons)}
}

func TestImport_CommitsAllRows(t *testing.T) {
	store := memory.New()
	im := core.NewImporter(store)

	res, err := im.Import(context.Background(), dataset(tenRows), "pokemon.csv")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.Rows != 10 {
		t.Errorf("Rows = %d, want 10", res.Rows)
	}
	if res.TypesCreated != 6 {
		t.Errorf("TypesCreated = %d, want 6", res.TypesCreated)
	}
	if res.GenerationsCreated != 1 {
		t.Errorf("GenerationsCreated = %d, want 1", res.GenerationsCreated)
	}

	got := countAll(t, store)
	if got != (counts{types: 6, generations: 1, pokemon: 10}) {
		t.Errorf("store counts = %+v, want 6 types, 1 generation, 10 pokemon", got)
	}

	mega, err := store.GetPokemon(context.Background(), 3, "Mega Venusaur")
	if err != nil {
		t.Fatalf("GetPokemon(3, Mega Venusaur) error = %v", err)
	}
	if mega.Name != "Venusaur" || mega.Attack != 100 || mega.Type2 == nil || mega.Type2.Name != "Poison" {
		t.Errorf("GetPokemon(3, Mega Venusaur) = %+v", mega)
	}
}

func TestImport_SharedType1CreatesOneType(t *testing.T) {
	store := memory.New()
	rows := `1,Bulbasaur,Grass,,318,45,49,49,65,65,45,1,False
2,Ivysaur,Grass,,405,60,62,63,80,80,60,1,False
`
	if _, err := core.NewImporter(store).Import(context.Background(), dataset(rows), "grass.csv"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	types, _ := store.ListTypes(context.Background())
	if len(types) != 1 || types[0].Name != "Grass" {
		t.Errorf("ListTypes() = %+v, want exactly one Grass", types)
	}
}

func TestImport_EmptyType2IsAbsent(t *testing.T) {
	store := memory.New()
	rows := "4,Charmander,Fire,,309,39,52,43,60,50,65,1,False\n"

	if _, err := core.NewImporter(store).Import(context.Background(), dataset(rows), "fire.csv"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	p, err := store.GetPokemon(context.Background(), 4, "")
	if err != nil {
		t.Fatalf("GetPokemon() error = %v", err)
	}
	if p.Type2 != nil {
		t.Errorf("Type2 = %+v, want nil", p.Type2)
	}
	types, _ := store.ListTypes(context.Background())
	for _, ty := range types {
		if ty.Name == "" {
			t.Error("an empty-named Type was created")
		}
	}
}

func TestImport_NewGenerationCreatedOnce(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if _, err := core.NewImporter(store).Import(ctx, dataset(tenRows), "gen1.csv"); err != nil {
		t.Fatalf("seed Import() error = %v", err)
	}

	rows := `152,Chikorita,Grass,,318,45,49,65,49,65,45,2,False
153,Bayleef,Grass,,405,60,62,80,63,80,60,2,False
`
	res, err := core.NewImporter(store).Import(ctx, dataset(rows), "gen2.csv")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.GenerationsCreated != 1 || res.TypesCreated != 0 {
		t.Errorf("created = (%d generations, %d types), want (1, 0)", res.GenerationsCreated, res.TypesCreated)
	}

	gens, _ := store.ListGenerations(ctx)
	if len(gens) != 2 {
		t.Fatalf("ListGenerations() = %d, want 2", len(gens))
	}
	if gens[1].Number != 2 || gens[1].Description != "" {
		t.Errorf("new generation = %+v, want number 2 with empty description", gens[1])
	}
}

func TestImport_ReimportFailsAndLeavesStoreUnchanged(t *testing.T) {
	store := memory.New()
	im := core.NewImporter(store)
	ctx := context.Background()

	if _, err := im.Import(ctx, dataset(tenRows), "pokemon.csv"); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	before := countAll(t, store)

	_, err := im.Import(ctx, dataset(tenRows), "pokemon.csv")
	if !errors.Is(err, core.ErrUniquenessViolation) {
		t.Fatalf("second Import() error = %v, want ErrUniquenessViolation", err)
	}

	var rowErr *core.RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("error type = %T, want *core.RowError", err)
	}
	if rowErr.Row != 1 || rowErr.Line != 2 {
		t.Errorf("failing row = %d (line %d), want row 1 (line 2)", rowErr.Row, rowErr.Line)
	}
	want := core.NaturalKey{Number: 1, Name: "Bulbasaur"}
	if rowErr.Key == nil || *rowErr.Key != want {
		t.Errorf("RowError.Key = %+v, want %+v", rowErr.Key, want)
	}
	if rowErr.Source != "pokemon.csv" {
		t.Errorf("RowError.Source = %q, want %q", rowErr.Source, "pokemon.csv")
	}

	if after := countAll(t, store); after != before {
		t.Errorf("store changed by failed run: before %+v, after %+v", before, after)
	}
}

// failingStore injects ErrStorageUnavailable on the failAt-th CreatePokemon
// call of every transaction.
type failingStore struct {
	*memory.Store
	failAt int
}

func (s *failingStore) InTx(ctx context.Context, fn func(context.Context, core.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failAt: s.failAt})
	})
}

type failingTx struct {
	core.Tx
	failAt int
	calls  int
}

func (tx *failingTx) CreatePokemon(ctx context.Context, p core.PokemonParams) (core.Pokemon, error) {
	tx.calls++
	if tx.calls == tx.failAt {
		return core.Pokemon{}, fmt.Errorf("write pokemon: %w", core.ErrStorageUnavailable)
	}
	return tx.Tx.CreatePokemon(ctx, p)
}

func TestImport_StorageFailureOnRow5RollsBackEverything(t *testing.T) {
	store := &failingStore{Store: memory.New(), failAt: 5}

	_, err := core.NewImporter(store).Import(context.Background(), dataset(tenRows), "pokemon.csv")
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("Import() error = %v, want ErrStorageUnavailable", err)
	}
	if !core.IsRetryable(err) {
		t.Error("IsRetryable() = false, want true")
	}

	var rowErr *core.RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("error type = %T, want *core.RowError", err)
	}
	if rowErr.Row != 5 {
		t.Errorf("RowError.Row = %d, want 5", rowErr.Row)
	}
	if rowErr.Key == nil || rowErr.Key.Name != "Charmander" {
		t.Errorf("RowError.Key = %+v, want Charmander", rowErr.Key)
	}

	if got := countAll(t, store); got != (counts{}) {
		t.Errorf("store counts after rollback = %+v, want all zero", got)
	}
}

func TestImport_RowFailures(t *testing.T) {
	good := "1,Bulbasaur,Grass,Poison,318,45,49,49,65,65,45,1,False\n"

	tests := []struct {
		name     string
		bad      string
		wantLine int
		check    func(t *testing.T, err error)
	}{
		{
			name:     "malformed name",
			bad:      "6,charizard,Fire,,534,78,84,78,109,85,100,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var malformed *core.MalformedNameError
				if !errors.As(err, &malformed) || malformed.Value != "charizard" {
					t.Errorf("error = %v, want MalformedNameError for %q", err, "charizard")
				}
			},
		},
		{
			name:     "missing type 1",
			bad:      "7,Squirtle,,,314,44,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var ref *core.ReferenceResolutionError
				if !errors.As(err, &ref) || ref.Kind != "type" {
					t.Errorf("error = %v, want type ReferenceResolutionError", err)
				}
			},
		},
		{
			name:     "non-numeric stat",
			bad:      "7,Squirtle,Water,,314,forty,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColHP {
					t.Errorf("error = %v, want FieldError on HP", err)
				}
			},
		},
		{
			name:     "zero generation",
			bad:      "7,Squirtle,Water,,314,44,48,65,50,64,43,0,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColGeneration {
					t.Errorf("error = %v, want FieldError on Generation", err)
				}
			},
		},
		{
			name:     "bad legendary flag",
			bad:      "7,Squirtle,Water,,314,44,48,65,50,64,43,1,Sometimes\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColLegendary {
					t.Errorf("error = %v, want FieldError on Legendary", err)
				}
			},
		},
		{
			name:     "malformed name reports the raw cell",
			bad:      "6,=\"charizard\" ,Fire,,534,78,84,78,109,85,100,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var malformed *core.MalformedNameError
				if !errors.As(err, &malformed) || malformed.Value != `="charizard" ` {
					t.Errorf("error = %v, want MalformedNameError for the uncleaned cell", err)
				}
			},
		},
		{
			name:     "generation out of range",
			bad:      "7,Squirtle,Water,,314,44,48,65,50,64,43,40000,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColGeneration {
					t.Errorf("error = %v, want FieldError on Generation", err)
				}
			},
		},
		{
			name:     "stat out of range",
			bad:      "7,Squirtle,Water,,314,32768,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColHP {
					t.Errorf("error = %v, want FieldError on HP", err)
				}
			},
		},
		{
			name:     "number out of range",
			bad:      "99999,Squirtle,Water,,314,44,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColNumber {
					t.Errorf("error = %v, want FieldError on #", err)
				}
			},
		},
		{
			name:     "version too long",
			bad:      "7,Squirtle" + strings.Repeat("X", 65) + ",Water,,314,44,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColName {
					t.Errorf("error = %v, want FieldError on Name", err)
				}
			},
		},
		{
			name:     "type name too long",
			bad:      "7,Squirtle," + strings.Repeat("w", 65) + ",,314,44,48,65,50,64,43,1,False\n",
			wantLine: 3,
			check: func(t *testing.T, err error) {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Column != core.ColType1 {
					t.Errorf("error = %v, want FieldError on Type 1", err)
				}
			},
		},
		{
			name:     "duplicate within one file",
			bad:      good,
			wantLine: 3,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, core.ErrUniquenessViolation) {
					t.Errorf("error = %v, want ErrUniquenessViolation", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			_, err := core.NewImporter(store).Import(context.Background(), dataset(good+tt.bad), "bad.csv")
			if err == nil {
				t.Fatal("Import() expected error")
			}
			tt.check(t, err)

			var rowErr *core.RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("error type = %T, want *core.RowError", err)
			}
			if rowErr.Row != 2 || rowErr.Line != tt.wantLine {
				t.Errorf("failing row = %d (line %d), want row 2 (line %d)", rowErr.Row, rowErr.Line, tt.wantLine)
			}
			if got := countAll(t, store); got != (counts{}) {
				t.Errorf("store counts = %+v, want all zero", got)
			}
		})
	}
}

func TestImport_HeaderProblems(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty file", "", core.ErrEmptyFile},
		{"missing speed column", "#,Name,Type 1,Type 2,HP,Attack,Defense,Sp. Atk,Sp. Def,Generation,Legendary\n", core.ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.NewImporter(memory.New()).Import(context.Background(), strings.NewReader(tt.input), "x.csv")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Import() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestImport_AcceptsBOMAndBlankLines(t *testing.T) {
	store := memory.New()
	input := "\xEF\xBB\xBF" + datasetHeader +
		"1,Bulbasaur,Grass,Poison,318,45,49,49,65,65,45,1,False\n" +
		",,,,,,,,,,,,\n" +
		"150,Mewtwo,Psychic,,680,106,110,90,154,90,130,1,True\n"

	res, err := core.NewImporter(store).Import(context.Background(), strings.NewReader(input), "bom.csv")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("Rows = %d, want 2", res.Rows)
	}

	mewtwo, err := store.GetPokemon(context.Background(), 150, "")
	if err != nil {
		t.Fatalf("GetPokemon(150) error = %v", err)
	}
	if !mewtwo.Legendary {
		t.Error("Mewtwo.Legendary = false, want true")
	}
}

func TestImport_CancelledContext(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.NewImporter(store).Import(ctx, dataset(tenRows), "pokemon.csv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Import() error = %v, want context.Canceled", err)
	}
	if got := countAll(t, store); got != (counts{}) {
		t.Errorf("store counts = %+v, want all zero", got)
	}
}
