package oracle

import (
	"context"

	"github.com/babylonlabs-io/account-control/types"
)

// BackingSyncer receives finalized reserve balances and resolves the
// reserves attestations are submitted for.
type BackingSyncer interface {
	GetReserve(reserve string) (*types.Reserve, error)
	SetBacking(ctx context.Context, reserve string, backing uint64) error
}
