package core

import (
	"time"

	"github.com/google/uuid"
)

// Type is an elemental category such as "Grass" or "Fire".
type Type struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TypeParams holds the editable fields of a Type.
type TypeParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Generation groups the creatures introduced together.
type Generation struct {
	ID          int64  `json:"id"`
	Number      int    `json:"number"`
	Description string `json:"description"`
}

// Pokemon is one species/variant record. Type2 is nil for single-typed
// creatures.
type Pokemon struct {
	ID             int64      `json:"id"`
	Number         int        `json:"number"`
	Name           string     `json:"name"`
	Version        string     `json:"version"`
	Type1          Type       `json:"type1"`
	Type2          *Type      `json:"type2"`
	HP             int        `json:"hp"`
	Attack         int        `json:"attack"`
	Defense        int        `json:"defense"`
	SpecialAttack  int        `json:"special_attack"`
	SpecialDefense int        `json:"special_defense"`
	Speed          int        `json:"speed"`
	Generation     Generation `json:"generation"`
	Legendary      bool       `json:"legendary"`
}

// NaturalKey returns the (number, name, version) triple.
func (p Pokemon) NaturalKey() NaturalKey {
	return NaturalKey{Number: p.Number, Name: p.Name, Version: p.Version}
}

// NaturalKey identifies a Pokemon independent of its generated ID.
type NaturalKey struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Stats holds the six base stats.
type Stats struct {
	HP             int
	Attack         int
	Defense        int
	SpecialAttack  int
	SpecialDefense int
	Speed          int
}

// PokemonParams is everything needed to insert a Pokemon once its
// references are resolved. Type2ID is zero when there is no second type.
type PokemonParams struct {
	NaturalKey
	Stats
	Type1ID      int64
	Type2ID      int64
	GenerationID int64
	Legendary    bool
}

// User is an account that can log in with a password.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey is a stored API key. Only the hash of the secret is kept.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Prefix    string    `json:"prefix"`
	KeyHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportResult summarises a committed import run.
type ImportResult struct {
	Source             string        `json:"source"`
	Rows               int           `json:"rows"`
	TypesCreated       int           `json:"types_created"`
	GenerationsCreated int           `json:"generations_created"`
	Duration           time.Duration `json:"duration"`
}

// SaveTypeResult mirrors update-or-create: Created is false when an
// existing Type was updated.
type SaveTypeResult struct {
	Created  bool `json:"created"`
	Instance Type `json:"instance"`
}

// ResetResult counts the rows removed by a catalog reset.
type ResetResult struct {
	Pokemon     int64 `json:"pokemon"`
	Types       int64 `json:"types"`
	Generations int64 `json:"generations"`
}
