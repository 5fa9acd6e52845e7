package watchdog

import (
	"context"

	"github.com/babylonlabs-io/account-control/types"
)

// ReserveLedger is the part of the reserve ledger the watchdogs act on.
type ReserveLedger interface {
	GetReserve(reserve string) (*types.Reserve, error)
	CheckStatusTransition(reserve string, status types.ReserveStatus) error
	SetStatus(ctx context.Context, reserve string, status types.ReserveStatus) error
	SetEmergencyPause(ctx context.Context, reserve string, paused bool) error
}
