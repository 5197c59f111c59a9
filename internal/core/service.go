package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pokecatalog/internal/logging"
)

// MaxTypeNameLength bounds Type names.
const MaxTypeNameLength = 64

// ServiceConfig tunes the catalog service.
type ServiceConfig struct {
	MaxConcurrentImports int
	ImportWait           time.Duration
	ImportTimeout        time.Duration
}

// Service is the catalog's entry point for the HTTP layer and the CLI.
type Service struct {
	store         Store
	importer      *Importer
	limiter       *ImportLimiter
	importTimeout time.Duration
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) *Service {
	return &Service{
		store:         store,
		importer:      NewImporter(store),
		limiter:       NewImportLimiter(cfg.MaxConcurrentImports, cfg.ImportWait),
		importTimeout: cfg.ImportTimeout,
	}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// ImportLimiter exposes the limiter so shutdown can wait for imports.
func (s *Service) ImportLimiter() *ImportLimiter {
	return s.limiter
}

// ImportDataset waits for an import slot, then imports src in one
// transaction bounded by the configured import timeout. Cancelling ctx
// rolls the run back.
func (s *Service) ImportDataset(ctx context.Context, src io.Reader, source string) (ImportResult, error) {
	importID := uuid.New().String()
	ctx = logging.ContextWithFields(ctx, "import_id", importID)

	if err := s.limiter.Acquire(ctx); err != nil {
		logging.FromContext(ctx).Warn("import rejected", "error", err)
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	if s.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.importTimeout)
		defer cancel()
	}

	return s.importer.Import(ctx, src, source)
}

// ListPokemon returns every Pokemon ordered by id.
func (s *Service) ListPokemon(ctx context.Context) ([]Pokemon, error) {
	return s.store.ListPokemon(ctx)
}

// GetPokemon returns the Pokemon with number and version.
func (s *Service) GetPokemon(ctx context.Context, number int, version string) (Pokemon, error) {
	if number <= 0 {
		return Pokemon{}, fmt.Errorf("pokemon number %d: %w", number, ErrNotFound)
	}
	return s.store.GetPokemon(ctx, number, version)
}

// ListPokemonByNumber returns every variant sharing number.
func (s *Service) ListPokemonByNumber(ctx context.Context, number int) ([]Pokemon, error) {
	mons, err := s.store.ListPokemonByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if len(mons) == 0 {
		return nil, fmt.Errorf("pokemon number %d: %w", number, ErrNotFound)
	}
	return mons, nil
}

func (s *Service) ListTypes(ctx context.Context) ([]Type, error) {
	return s.store.ListTypes(ctx)
}

func (s *Service) GetType(ctx context.Context, name string) (Type, error) {
	return s.store.GetType(ctx, name)
}

func (s *Service) ListGenerations(ctx context.Context) ([]Generation, error) {
	return s.store.ListGenerations(ctx)
}

// SaveType creates the Type or updates its description.
func (s *Service) SaveType(ctx context.Context, p TypeParams) (SaveTypeResult, error) {
	name, err := validTypeName(p.Name)
	if err != nil {
		return SaveTypeResult{}, err
	}

	var res SaveTypeResult
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		t, created, err := tx.UpsertType(ctx, name, p.Description)
		if err != nil {
			return err
		}
		res = SaveTypeResult{Created: created, Instance: t}
		return nil
	})
	if err != nil {
		return SaveTypeResult{}, fmt.Errorf("save type %q: %w", name, err)
	}

	logging.FromContext(ctx).Info("type saved", "name", name, "created", res.Created)
	return res, nil
}

// EditType renames and/or re-describes the Type called name.
func (s *Service) EditType(ctx context.Context, name string, p TypeParams) (Type, error) {
	newName, err := validTypeName(p.Name)
	if err != nil {
		return Type{}, err
	}
	p.Name = newName

	var out Type
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		out, err = tx.UpdateType(ctx, name, p)
		return err
	})
	if err != nil {
		return Type{}, fmt.Errorf("edit type %q: %w", name, err)
	}

	logging.FromContext(ctx).Info("type edited", "name", name, "new_name", out.Name)
	return out, nil
}

// DeleteType removes the Type called name. It reports false when there was
// nothing to delete and ErrInUse when Pokemon still reference it.
func (s *Service) DeleteType(ctx context.Context, name string) (bool, error) {
	var deleted bool
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		deleted, err = tx.DeleteType(ctx, name)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete type %q: %w", name, err)
	}
	if deleted {
		logging.FromContext(ctx).Info("type deleted", "name", name)
	}
	return deleted, nil
}

// ErrInvalidTypeName is returned for empty or overlong Type names.
var ErrInvalidTypeName = errors.New("invalid type name: required field, at most 64 characters")

func validTypeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxTypeNameLength {
		return "", ErrInvalidTypeName
	}
	return name, nil
}
