package ledger

import (
	"context"
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/types"
)

func (l *Ledger) authorizeWalletAdmin(actor, reserve string) error {
	if actor == reserve {
		return nil
	}
	return l.authorize(actor, types.CapReserveAdmin)
}

// RegisterWallet records a Bitcoin address the reserve pays redemptions from.
func (l *Ledger) RegisterWallet(_ context.Context, actor, reserve, wallet string) error {
	if err := l.authorizeWalletAdmin(actor, reserve); err != nil {
		return err
	}
	if _, err := l.codec.Decode(wallet); err != nil {
		return errorsmod.Wrap(ErrInvalidWalletAddress, err.Error())
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	if err := l.store.AddWallet(reserve, wallet); err != nil {
		switch {
		case errors.Is(err, store.ErrWalletAlreadyRegistered):
			return errorsmod.Wrap(ErrWalletAlreadyRegistered, wallet)
		case errors.Is(err, store.ErrReserveNotFound):
			return errorsmod.Wrap(ErrReserveNotFound, reserve)
		default:
			return err
		}
	}

	l.logger.Info("registered wallet", log.Reserve(reserve), zap.String("wallet", wallet))

	return nil
}

// DeregisterWallet removes a wallet that no pending redemption references.
func (l *Ledger) DeregisterWallet(_ context.Context, actor, reserve, wallet string) error {
	if err := l.authorizeWalletAdmin(actor, reserve); err != nil {
		return err
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	if !l.IsWalletRegistered(reserve, wallet) {
		return errorsmod.Wrap(ErrWalletNotRegistered, wallet)
	}

	tracker := l.redemptionTracker()
	if tracker == nil {
		return fmt.Errorf("no redemption tracker configured")
	}
	pending, err := tracker.HasUnfulfilledForWallet(reserve, wallet)
	if err != nil {
		return fmt.Errorf("failed to check redemptions of wallet %s: %w", wallet, err)
	}
	if pending {
		return errorsmod.Wrap(ErrWalletHasPendingRedemptions, wallet)
	}

	if err := l.store.RemoveWallet(reserve, wallet); err != nil {
		return err
	}

	l.logger.Info("deregistered wallet", log.Reserve(reserve), zap.String("wallet", wallet))

	return nil
}

// WithReserveLocked runs fn on the current reserve state while holding the
// lock that wallet deregistration takes. fn must not call back into locking
// ledger operations.
func (l *Ledger) WithReserveLocked(reserve string, fn func(r *types.Reserve) error) error {
	unlock := l.locks.Lock(reserve)
	defer unlock()

	r, err := l.store.GetReserve(reserve)
	if err != nil {
		return l.mapStoreErr(reserve, err)
	}

	return fn(r)
}

func (l *Ledger) IsWalletRegistered(reserve, wallet string) bool {
	owner, err := l.store.WalletOwner(wallet)
	return err == nil && owner == reserve
}
