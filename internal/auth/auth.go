// Package auth verifies catalog users three ways: bcrypt-checked passwords,
// HS256 bearer tokens and hashed API keys.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingAPIKey      = errors.New("missing api key")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// Kind separates access tokens from refresh tokens so one cannot stand in
// for the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Config holds token signing settings.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int // 0 means bcrypt.DefaultCost
	Now        func() time.Time
}

// TokenPair is returned by the obtain endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims are the validated contents of a token.
type Claims struct {
	Username  string
	TokenID   string
	Kind      Kind
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"token_type"`
}

// Authenticator checks credentials against the store and mints tokens.
type Authenticator struct {
	store     core.Store
	cfg       Config
	dummyHash []byte
}

// New creates an Authenticator. cfg.Secret must be non-empty.
func New(store core.Store, cfg Config) *Authenticator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("pokecatalog"), cfg.BcryptCost)
	return &Authenticator{store: store, cfg: cfg, dummyHash: dummy}
}

// HashPassword returns the bcrypt hash stored for a user.
func (a *Authenticator) HashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// CreateUser stores a new user with a hashed password.
func (a *Authenticator) CreateUser(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.User{}, errors.New("username is required")
	}
	hash, err := a.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	var user core.User
	err = a.store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		user, err = tx.CreateUser(ctx, username, hash)
		return err
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	return user, nil
}

// Login returns the user when password matches. Unknown users and wrong
// passwords both yield ErrInvalidCredentials after a bcrypt comparison.
func (a *Authenticator) Login(ctx context.Context, username, password string) (core.User, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("login: %w", err)
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken mints an access and a refresh token for user.
func (a *Authenticator) IssueToken(user core.User) (TokenPair, error) {
	access, err := a.sign(user.Username, KindAccess, a.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.sign(user.Username, KindRefresh, a.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (a *Authenticator) Refresh(refreshToken string) (string, error) {
	claims, err := a.ParseToken(refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	return a.sign(claims.Username, KindAccess, a.cfg.AccessTTL)
}

func (a *Authenticator) sign(username string, kind Kind, ttl time.Duration) (string, error) {
	now := a.cfg.Now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// ParseToken verifies signature, issuer, expiry and kind.
func (a *Authenticator) ParseToken(token string, kind Kind) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.cfg.Now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if parsed.Kind != kind || parsed.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Username:  parsed.Subject,
		TokenID:   parsed.ID,
		Kind:      parsed.Kind,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
