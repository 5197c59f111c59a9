// Package admin provides administrative operations on the catalog.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/pokecatalog/internal/core"
	"github.com/JonMunkholm/pokecatalog/internal/logging"
)

// ResetTimeout is the maximum duration of a catalog reset.
const ResetTimeout = 30 * time.Second

// ErrNotConfirmed is returned when a reset is attempted without confirmation.
var ErrNotConfirmed = errors.New("reset not confirmed")

// ResetCatalog deletes all Pokemon, Generations and Types in one
// transaction. Users and API keys survive. This is destructive; confirm
// must be true.
func ResetCatalog(ctx context.Context, store core.Store, confirm bool) (core.ResetResult, error) {
	if !confirm {
		return core.ResetResult{}, ErrNotConfirmed
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var res core.ResetResult
	err := store.InTx(ctx, func(ctx context.Context, tx core.Tx) error {
		var err error
		res, err = tx.ResetCatalog(ctx)
		return err
	})
	if err != nil {
		return core.ResetResult{}, fmt.Errorf("reset catalog: %w", err)
	}

	logging.FromContext(ctx).Warn("catalog reset",
		"pokemon", res.Pokemon,
		"types", res.Types,
		"generations", res.Generations,
	)
	return res, nil
}
