package core

// importer.go loads the pokemon.csv dataset into the catalog.
//
// A run is all-or-nothing: every row is written inside one store
// transaction and the first failing row aborts and rolls back the lot.
// Types and Generations are get-or-created on first sight and cached for
// the rest of the run.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/JonMunkholm/pokecatalog/internal/logging"
)

// ContextCheckInterval is how many rows are processed between
// cancellation checks.
const ContextCheckInterval = 100

// Importer loads datasets into a Store.
type Importer struct {
	store Store
	now   func() time.Time
}

// NewImporter creates an importer writing to store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// ImportFile opens path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return im.Import(ctx, f, filepath.Base(path))
}

// Import reads a dataset from src and persists it in one transaction.
// source names the input in errors and logs. On failure the store is left
// exactly as it was and the error is a *RowError for row-level problems.
func (im *Importer) Import(ctx context.Context, src io.Reader, source string) (ImportResult, error) {
	start := im.now()
	logger := logging.WithFields(ctx, "source", source)
	logger.Info("import started")

	res, err := im.run(ctx, src, source)
	elapsed := im.now().Sub(start)
	res.Duration = elapsed
	recordImport(res, elapsed, err)

	if err != nil {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			logger.Error("import rolled back", "row", rowErr.Row, "line", rowErr.Line, "error", rowErr.Err)
		} else {
			logger.Error("import failed", "error", err)
		}
		return ImportResult{Source: source, Duration: elapsed}, err
	}

	logger.Info("import committed",
		"rows", res.Rows,
		"types_created", res.TypesCreated,
		"generations_created", res.GenerationsCreated,
		"duration", elapsed,
	)
	return res, nil
}

func (im *Importer) run(ctx context.Context, src io.Reader, source string) (ImportResult, error) {
	res := ImportResult{Source: source}

	rows, err := NewDatasetReader(src)
	if err != nil {
		return res, fmt.Errorf("%s: %w", source, err)
	}

	err = im.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		refs := newRefCache(tx)

		for {
			row, err := rows.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return withSource(err, source)
			}

			if row.Row%ContextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return &RowError{Source: source, Row: row.Row, Line: row.Line, Err: err}
				}
			}

			if err := im.importRow(ctx, tx, refs, row); err != nil {
				return withSource(err, source)
			}
			res.Rows++
		}

		res.TypesCreated = refs.typesCreated
		res.GenerationsCreated = refs.generationsCreated
		return nil
	})
	if err != nil {
		return ImportResult{Source: source}, err
	}
	return res, nil
}

func (im *Importer) importRow(ctx context.Context, tx Tx, refs *refCache, row DatasetRow) error {
	rowErr := func(key *NaturalKey, err error) error {
		return &RowError{Row: row.Row, Line: row.Line, Key: key, Err: err}
	}

	name, version, err := SplitName(row.Combined)
	if err != nil {
		return rowErr(nil, &MalformedNameError{Value: row.RawName})
	}
	if err := CheckLength(ColName, name); err != nil {
		return rowErr(nil, err)
	}
	if err := CheckLength(ColName, version); err != nil {
		return rowErr(nil, err)
	}
	key := NaturalKey{Number: row.Number, Name: name, Version: version}

	if row.Type1 == "" {
		return rowErr(&key, &ReferenceResolutionError{Kind: "type", Key: "", Err: errors.New("type 1 is required")})
	}
	type1, err := refs.typeByName(ctx, row.Type1)
	if err != nil {
		return rowErr(&key, err)
	}

	var type2ID int64
	if row.Type2 != "" {
		type2, err := refs.typeByName(ctx, row.Type2)
		if err != nil {
			return rowErr(&key, err)
		}
		type2ID = type2.ID
	}

	gen, err := refs.generationByNumber(ctx, row.Generation)
	if err != nil {
		return rowErr(&key, err)
	}

	_, err = tx.CreatePokemon(ctx, PokemonParams{
		NaturalKey:   key,
		Stats:        row.Stats,
		Type1ID:      type1.ID,
		Type2ID:      type2ID,
		GenerationID: gen.ID,
		Legendary:    row.Legendary,
	})
	if err != nil {
		return rowErr(&key, err)
	}
	return nil
}

func withSource(err error, source string) error {
	var rowErr *RowError
	if errors.As(err, &rowErr) && rowErr.Source == "" {
		rowErr.Source = source
	}
	return err
}

// refCache remembers Types and Generations already resolved in this run.
type refCache struct {
	tx          Tx
	types       map[string]Type
	generations map[int]Generation

	typesCreated       int
	generationsCreated int
}

func newRefCache(tx Tx) *refCache {
	return &refCache{
		tx:          tx,
		types:       make(map[string]Type),
		generations: make(map[int]Generation),
	}
}

func (c *refCache) typeByName(ctx context.Context, name string) (Type, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}
	t, created, err := c.tx.GetOrCreateType(ctx, name)
	if err != nil {
		return Type{}, &ReferenceResolutionError{Kind: "type", Key: name, Err: err}
	}
	if created {
		c.typesCreated++
	}
	c.types[name] = t
	return t, nil
}

func (c *refCache) generationByNumber(ctx context.Context, number int) (Generation, error) {
	if g, ok := c.generations[number]; ok {
		return g, nil
	}
	g, created, err := c.tx.GetOrCreateGeneration(ctx, number)
	if err != nil {
		return Generation{}, &ReferenceResolutionError{Kind: "generation", Key: strconv.Itoa(number), Err: err}
	}
	if created {
		c.generationsCreated++
	}
	c.generations[number] = g
	return g, nil
}
