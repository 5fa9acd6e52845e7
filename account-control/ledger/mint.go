package ledger

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/lib/math"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/types"
)

// Mint issues amount tokens to `to` against the reserve. The minter is either
// an actor holding the minter capability or the reserve holder itself. The
// reserve counters and the total are committed before the token mint and
// restored if the token ledger refuses it.
func (l *Ledger) Mint(ctx context.Context, actor, reserve, to string, amount uint64) (err error) {
	defer func() {
		l.metrics.RecordMint(err)
	}()

	if actor != reserve {
		if err := l.authorize(actor, types.CapMinter); err != nil {
			return err
		}
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	now := l.clock()
	r, err := l.update(reserve, func(r *types.Reserve) error {
		if err := l.checkMint(r, amount, now); err != nil {
			return err
		}
		r.MintedAmount += amount
		return nil
	})
	if err != nil {
		l.logger.Debug("mint rejected",
			log.Reserve(reserve),
			zap.Uint64("amount", amount),
			zap.Error(err),
		)
		return err
	}

	if err := l.token.Mint(ctx, to, amount); err != nil {
		l.revert(reserve, func(r *types.Reserve) error {
			r.MintedAmount -= amount
			return nil
		})
		return errorsmod.Wrap(ErrTokenLedger, err.Error())
	}

	l.logger.Info("minted",
		log.Reserve(reserve),
		zap.String("to", to),
		log.Sats("amount", amount),
		zap.Uint64("minted", r.MintedAmount),
	)
	l.recordTotal()

	return nil
}

// CanMint runs the mint checks without minting.
func (l *Ledger) CanMint(reserve string, amount uint64) bool {
	if amount == 0 {
		return false
	}

	r, err := l.store.GetReserve(reserve)
	if err != nil {
		return false
	}

	return l.checkMint(r, amount, l.clock()) == nil
}

func (l *Ledger) checkMint(r *types.Reserve, amount uint64, now time.Time) error {
	if status := r.EffectiveStatus(); status != types.ReserveStatusActive {
		return errorsmod.Wrapf(ErrReserveNotActive, "reserve %s is %s", r.ID, status)
	}
	if r.MintingDisabled {
		return errorsmod.Wrapf(ErrMintingDisabled, "backing %d below minted %d", r.Backing, r.MintedAmount)
	}
	if l.isStale(r, now) {
		return errorsmod.Wrapf(ErrStaleBacking, "backing last updated at %s", r.BackingUpdatedAt.UTC())
	}

	minted, ok := math.SafeAdd(r.MintedAmount, amount)
	if !ok || r.Backing < minted {
		return errorsmod.Wrapf(ErrInsufficientBacking,
			"backing %d, minted %d, requested %d", r.Backing, r.MintedAmount, amount)
	}
	if minted > r.MintingCap {
		return errorsmod.Wrapf(ErrMintingCapExceeded,
			"cap %d, minted %d, requested %d", r.MintingCap, r.MintedAmount, amount)
	}

	return nil
}

func (l *Ledger) isStale(r *types.Reserve, now time.Time) bool {
	if l.cfg.MaxBackingStaleness <= 0 {
		return false
	}
	age := now.Unix() - r.BackingUpdatedAt.Unix()
	return age > int64(l.cfg.MaxBackingStaleness/time.Second)
}

// Redeem burns amount tokens held by `from` and releases the same amount of
// the reserve's minted balance. Redemption initiation is its only caller.
func (l *Ledger) Redeem(ctx context.Context, reserve, from string, amount uint64) (err error) {
	defer func() {
		l.metrics.RecordRedeem(err)
	}()

	if amount == 0 {
		return ErrInvalidAmount
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	var wasDisabled bool
	r, err := l.update(reserve, func(r *types.Reserve) error {
		if r.MintedAmount < amount {
			return errorsmod.Wrapf(ErrInsufficientMinted,
				"minted %d, requested %d", r.MintedAmount, amount)
		}
		wasDisabled = r.MintingDisabled
		r.MintedAmount -= amount
		if r.MintingDisabled && !r.Undercollateralized() {
			r.MintingDisabled = false
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := l.token.Burn(ctx, from, amount); err != nil {
		l.revert(reserve, func(r *types.Reserve) error {
			r.MintedAmount += amount
			r.MintingDisabled = wasDisabled
			return nil
		})
		return errorsmod.Wrap(ErrTokenLedger, err.Error())
	}

	l.logger.Info("redeemed",
		log.Reserve(reserve),
		zap.String("from", from),
		log.Sats("amount", amount),
		zap.Uint64("minted", r.MintedAmount),
	)
	l.recordTotal()

	return nil
}

// revert undoes a committed counter update after the token ledger rejected
// the matching mint or burn. The caller holds the reserve lock.
func (l *Ledger) revert(reserve string, fn func(r *types.Reserve) error) {
	if _, err := l.update(reserve, fn); err != nil {
		l.logger.Error("failed to restore reserve after a token ledger failure",
			log.Reserve(reserve),
			zap.Error(err),
		)
	}
}
