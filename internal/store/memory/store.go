// Package memory is an in-process catalog store. Transactions work on a
// cloned snapshot that replaces the live state only on commit, so a failed
// import leaves nothing behind. Transactions are serialized.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

type pokemonRow struct {
	core.PokemonParams
	ID int64
}

type state struct {
	nextID      int64
	types       map[string]core.Type
	generations map[int]core.Generation
	pokemon     map[core.NaturalKey]pokemonRow
	users       map[string]core.User
	apiKeys     map[string]core.APIKey
}

func newState() state {
	return state{
		types:       make(map[string]core.Type),
		generations: make(map[int]core.Generation),
		pokemon:     make(map[core.NaturalKey]pokemonRow),
		users:       make(map[string]core.User),
		apiKeys:     make(map[string]core.APIKey),
	}
}

func (s state) clone() state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.types {
		c.types[k] = v
	}
	for k, v := range s.generations {
		c.generations[k] = v
	}
	for k, v := range s.pokemon {
		c.pokemon[k] = v
	}
	for k, v := range s.users {
		v.PasswordHash = append([]byte(nil), v.PasswordHash...)
		c.users[k] = v
	}
	for k, v := range s.apiKeys {
		c.apiKeys[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store implements core.Store in memory.
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// InTx runs fn against a private copy of the state and publishes it only
// if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{state: s.state.clone(), now: s.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListTypes(context.Context) ([]core.Type, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Type, 0, len(s.state.types))
	for _, t := range s.state.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetType(_ context.Context, name string) (core.Type, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.state.types[name]
	if !ok {
		return core.Type{}, fmt.Errorf("type %q: %w", name, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListGenerations(context.Context) ([]core.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Generation, 0, len(s.state.generations))
	for _, g := range s.state.generations {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) ListPokemon(context.Context) ([]core.Pokemon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectPokemon(func(pokemonRow) bool { return true }), nil
}

func (s *Store) GetPokemon(_ context.Context, number int, version string) (core.Pokemon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.selectPokemon(func(r pokemonRow) bool {
		return r.Number == number && r.Version == version
	})
	if len(matches) == 0 {
		return core.Pokemon{}, fmt.Errorf("pokemon #%d %q: %w", number, version, core.ErrNotFound)
	}
	return matches[0], nil
}

func (s *Store) ListPokemonByNumber(_ context.Context, number int) ([]core.Pokemon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectPokemon(func(r pokemonRow) bool { return r.Number == number }), nil
}

// selectPokemon resolves references and orders by id. Callers hold s.mu.
func (s *Store) selectPokemon(keep func(pokemonRow) bool) []core.Pokemon {
	typesByID := make(map[int64]core.Type, len(s.state.types))
	for _, t := range s.state.types {
		typesByID[t.ID] = t
	}
	gensByID := make(map[int64]core.Generation, len(s.state.generations))
	for _, g := range s.state.generations {
		gensByID[g.ID] = g
	}

	out := make([]core.Pokemon, 0)
	for _, r := range s.state.pokemon {
		if !keep(r) {
			continue
		}
		p := core.Pokemon{
			ID:             r.ID,
			Number:         r.Number,
			Name:           r.Name,
			Version:        r.Version,
			Type1:          typesByID[r.Type1ID],
			HP:             r.HP,
			Attack:         r.Attack,
			Defense:        r.Defense,
			SpecialAttack:  r.SpecialAttack,
			SpecialDefense: r.SpecialDefense,
			Speed:          r.Speed,
			Generation:     gensByID[r.GenerationID],
			Legendary:      r.Legendary,
		}
		if r.Type2ID != 0 {
			t2 := typesByID[r.Type2ID]
			p.Type2 = &t2
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.state.users[username]
	if !ok {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetAPIKeyByHash(_ context.Context, hash string) (core.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.state.apiKeys[hash]
	if !ok {
		return core.APIKey{}, fmt.Errorf("api key: %w", core.ErrNotFound)
	}
	return k, nil
}

type memTx struct {
	state state
	now   func() time.Time
}

func (t *memTx) GetOrCreateType(ctx context.Context, name string) (core.Type, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Type{}, false, err
	}
	if name == "" {
		return core.Type{}, false, fmt.Errorf("type name is empty")
	}
	if existing, ok := t.state.types[name]; ok {
		return existing, false, nil
	}
	created := core.Type{ID: t.state.id(), Name: name}
	t.state.types[name] = created
	return created, true, nil
}

func (t *memTx) GetOrCreateGeneration(ctx context.Context, number int) (core.Generation, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Generation{}, false, err
	}
	if number <= 0 {
		return core.Generation{}, false, fmt.Errorf("generation number %d must be positive", number)
	}
	if existing, ok := t.state.generations[number]; ok {
		return existing, false, nil
	}
	created := core.Generation{ID: t.state.id(), Number: number}
	t.state.generations[number] = created
	return created, true, nil
}

func (t *memTx) CreatePokemon(ctx context.Context, p core.PokemonParams) (core.Pokemon, error) {
	if err := ctx.Err(); err != nil {
		return core.Pokemon{}, err
	}
	if _, dup := t.state.pokemon[p.NaturalKey]; dup {
		return core.Pokemon{}, fmt.Errorf("pokemon #%d %s%s: %w", p.Number, p.Name, p.Version, core.ErrUniquenessViolation)
	}

	type1, ok := t.typeByID(p.Type1ID)
	if !ok {
		return core.Pokemon{}, &core.ReferenceResolutionError{Kind: "type", Key: fmt.Sprint(p.Type1ID)}
	}
	var type2 *core.Type
	if p.Type2ID != 0 {
		t2, ok := t.typeByID(p.Type2ID)
		if !ok {
			return core.Pokemon{}, &core.ReferenceResolutionError{Kind: "type", Key: fmt.Sprint(p.Type2ID)}
		}
		type2 = &t2
	}
	gen, ok := t.generationByID(p.GenerationID)
	if !ok {
		return core.Pokemon{}, &core.ReferenceResolutionError{Kind: "generation", Key: fmt.Sprint(p.GenerationID)}
	}

	row := pokemonRow{PokemonParams: p, ID: t.state.id()}
	t.state.pokemon[p.NaturalKey] = row

	return core.Pokemon{
		ID:             row.ID,
		Number:         p.Number,
		Name:           p.Name,
		Version:        p.Version,
		Type1:          type1,
		Type2:          type2,
		HP:             p.HP,
		Attack:         p.Attack,
		Defense:        p.Defense,
		SpecialAttack:  p.SpecialAttack,
		SpecialDefense: p.SpecialDefense,
		Speed:          p.Speed,
		Generation:     gen,
		Legendary:      p.Legendary,
	}, nil
}

func (t *memTx) typeByID(id int64) (core.Type, bool) {
	for _, ty := range t.state.types {
		if ty.ID == id {
			return ty, true
		}
	}
	return core.Type{}, false
}

func (t *memTx) generationByID(id int64) (core.Generation, bool) {
	for _, g := range t.state.generations {
		if g.ID == id {
			return g, true
		}
	}
	return core.Generation{}, false
}

func (t *memTx) UpsertType(_ context.Context, name, description string) (core.Type, bool, error) {
	if existing, ok := t.state.types[name]; ok {
		existing.Description = description
		t.state.types[name] = existing
		return existing, false, nil
	}
	created := core.Type{ID: t.state.id(), Name: name, Description: description}
	t.state.types[name] = created
	return created, true, nil
}

func (t *memTx) UpdateType(_ context.Context, name string, p core.TypeParams) (core.Type, error) {
	existing, ok := t.state.types[name]
	if !ok {
		return core.Type{}, fmt.Errorf("type %q: %w", name, core.ErrNotFound)
	}
	if p.Name != name {
		if _, taken := t.state.types[p.Name]; taken {
			return core.Type{}, fmt.Errorf("type %q: %w", p.Name, core.ErrConflict)
		}
		delete(t.state.types, name)
	}
	existing.Name = p.Name
	existing.Description = p.Description
	t.state.types[p.Name] = existing
	return existing, nil
}

func (t *memTx) DeleteType(_ context.Context, name string) (bool, error) {
	existing, ok := t.state.types[name]
	if !ok {
		return false, nil
	}
	for _, r := range t.state.pokemon {
		if r.Type1ID == existing.ID || r.Type2ID == existing.ID {
			return false, fmt.Errorf("type %q: %w", name, core.ErrInUse)
		}
	}
	delete(t.state.types, name)
	return true, nil
}

func (t *memTx) ResetCatalog(context.Context) (core.ResetResult, error) {
	res := core.ResetResult{
		Pokemon:     int64(len(t.state.pokemon)),
		Types:       int64(len(t.state.types)),
		Generations: int64(len(t.state.generations)),
	}
	t.state.pokemon = make(map[core.NaturalKey]pokemonRow)
	t.state.types = make(map[string]core.Type)
	t.state.generations = make(map[int]core.Generation)
	return res, nil
}

func (t *memTx) CreateUser(_ context.Context, username string, passwordHash []byte) (core.User, error) {
	key := strings.TrimSpace(username)
	if _, taken := t.state.users[key]; taken {
		return core.User{}, fmt.Errorf("user %q: %w", key, core.ErrConflict)
	}
	u := core.User{
		ID:           t.state.id(),
		Username:     key,
		PasswordHash: append([]byte(nil), passwordHash...),
		CreatedAt:    t.now(),
	}
	t.state.users[key] = u
	return u, nil
}

func (t *memTx) CreateAPIKey(_ context.Context, userID int64, id uuid.UUID, prefix, hash string) (core.APIKey, error) {
	if _, taken := t.state.apiKeys[hash]; taken {
		return core.APIKey{}, fmt.Errorf("api key: %w", core.ErrConflict)
	}
	k := core.APIKey{ID: id, UserID: userID, Prefix: prefix, KeyHash: hash, CreatedAt: t.now()}
	t.state.apiKeys[hash] = k
	return k, nil
}
