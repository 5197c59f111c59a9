package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

const apiKeyScheme = "pc"

// NewAPIKey returns a fresh key formatted pc_<prefix>_<secret> together with
// its prefix. Only the hash of the key is ever stored.
func NewAPIKey() (raw, prefix string, err error) {
	var p [4]byte
	if _, err := rand.Read(p[:]); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	prefix = hex.EncodeToString(p[:])
	raw = apiKeyScheme + "_" + prefix + "_" + base64.RawURLEncoding.EncodeToString(secret[:])
	return raw, prefix, nil
}

// HashAPIKey is the lookup hash stored for raw.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func splitAPIKey(raw string) (prefix string, ok bool) {
	parts := strings.SplitN(raw, "_", 3)
	if len(parts) != 3 || parts[0] != apiKeyScheme || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}

// CreateAPIKey issues a key for username and returns the raw key once.
func (a *Authenticator) CreateAPIKey(ctx context.Context, username string) (string, core.APIKey, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", core.APIKey{}, fmt.Errorf("create api key: %w", err)
	}

	raw, prefix, err := NewAPIKey()
	if err != nil {
		return "", core.APIKey{}, err
	}

	var key core.APIKey
	err = a.store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		key, err = tx.CreateAPIKey(ctx, user.ID, uuid.New(), prefix, HashAPIKey(raw))
		return err
	})
	if err != nil {
		return "", core.APIKey{}, fmt.Errorf("create api key for %q: %w", username, err)
	}
	return raw, key, nil
}

// AuthenticateKey resolves raw to its stored key.
func (a *Authenticator) AuthenticateKey(ctx context.Context, raw string) (core.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.APIKey{}, ErrMissingAPIKey
	}
	prefix, ok := splitAPIKey(raw)
	if !ok {
		return core.APIKey{}, ErrInvalidAPIKey
	}

	hash := HashAPIKey(raw)
	key, err := a.store.GetAPIKeyByHash(ctx, hash)
	if errors.Is(err, core.ErrNotFound) {
		return core.APIKey{}, ErrInvalidAPIKey
	}
	if err != nil {
		return core.APIKey{}, fmt.Errorf("authenticate api key: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 || key.Prefix != prefix {
		return core.APIKey{}, ErrInvalidAPIKey
	}
	return key, nil
}
