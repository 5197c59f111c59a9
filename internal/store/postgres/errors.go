package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerialization       = "40001"
	pgDeadlock            = "40P01"
	pgTooManyConnections  = "53300"
	pgAdminShutdown       = "57P01"
	pgCannotConnectNow    = "57P03"

	pokemonNaturalKey = "pokemon_natural_key"
)

// classify maps driver errors onto the catalog's sentinels, keeping the
// original error in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == pokemonNaturalKey {
				return fmt.Errorf("%w: %w", core.ErrUniquenessViolation, err)
			}
			return fmt.Errorf("%w: %s: %w", core.ErrConflict, pgErr.ConstraintName, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", core.ErrInUse, pgErr.ConstraintName, err)
		case pgSerialization, pgDeadlock, pgTooManyConnections, pgAdminShutdown, pgCannotConnectNow:
			return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
		}
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}
	return err
}
