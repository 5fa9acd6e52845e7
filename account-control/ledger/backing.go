package ledger

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/types"
)

// SetBacking records a new attested backing. It never checks the mint
// invariant; a backing below the minted amount disables minting until it is
// covered again.
func (l *Ledger) SetBacking(_ context.Context, reserve string, backing uint64) error {
	unlock := l.locks.Lock(reserve)
	defer unlock()

	_, err := l.setBacking(reserve, backing, false)

	return err
}

func (l *Ledger) setBacking(reserve string, backing uint64, synced bool) (*types.Reserve, error) {
	now := l.clock()

	r, err := l.update(reserve, func(r *types.Reserve) error {
		r.Backing = backing
		r.BackingUpdatedAt = now
		r.MintingDisabled = r.Undercollateralized()
		if synced {
			r.LastSyncAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.MintingDisabled {
		l.logger.Warn("reserve is undercollateralized, minting disabled",
			log.Reserve(reserve),
			log.Sats("backing", r.Backing),
			log.Sats("minted", r.MintedAmount),
		)
	} else {
		l.logger.Debug("backing updated",
			log.Reserve(reserve),
			log.Sats("backing", r.Backing),
		)
	}

	return r, nil
}

// SyncBackingFromOracle copies the oracle's last finalized balance into each
// of the given reserves. Items are independent: a failure is recorded in the
// item's result and the batch moves on. Once the per-call budget or the
// context runs out the remaining items fail with ErrBatchBudgetExhausted and
// the progress made so far is kept.
func (l *Ledger) SyncBackingFromOracle(ctx context.Context, reserves []string) []types.BatchResult {
	results := make([]types.BatchResult, len(reserves))
	source := l.backingSource()

	for i, reserve := range reserves {
		results[i].Key = reserve

		if budgetErr := l.syncBudgetErr(ctx, i); budgetErr != nil {
			results[i].Err = budgetErr
			continue
		}

		results[i].Err = l.syncOne(source, reserve)
		l.metrics.RecordBackingSync(results[i].Err)
	}

	return results
}

func (l *Ledger) syncBudgetErr(ctx context.Context, processed int) error {
	if processed >= int(l.cfg.SyncBatchSize) {
		return errorsmod.Wrapf(ErrBatchBudgetExhausted, "at most %d reserves per call", l.cfg.SyncBatchSize)
	}
	if err := ctx.Err(); err != nil {
		return errorsmod.Wrap(ErrBatchBudgetExhausted, err.Error())
	}
	return nil
}

func (l *Ledger) syncOne(source BackingSource, reserve string) error {
	if source == nil {
		return fmt.Errorf("no backing source configured")
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	r, err := l.store.GetReserve(reserve)
	if err != nil {
		return l.mapStoreErr(reserve, err)
	}

	now := l.clock()
	if !r.LastSyncAt.IsZero() && now.Unix()-r.LastSyncAt.Unix() < int64(l.cfg.MinSyncInterval/time.Second) {
		return errorsmod.Wrapf(ErrSyncTooFrequent, "last synced at %s", r.LastSyncAt.UTC())
	}

	backing, found, err := source.LastFinalizedBacking(reserve)
	if err != nil {
		return fmt.Errorf("failed to read finalized backing of %s: %w", reserve, err)
	}
	if !found {
		return errorsmod.Wrap(ErrNoFinalizedBacking, reserve)
	}

	if _, err := l.setBacking(reserve, backing, true); err != nil {
		return err
	}

	l.logger.Debug("synced backing from oracle",
		log.Reserve(reserve),
		zap.Uint64("backing", backing),
	)

	return nil
}
