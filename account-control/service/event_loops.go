package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/ledger"
	"github.com/babylonlabs-io/account-control/log"
)

const relayRefreshInterval = time.Minute

// runTicker calls fn every interval until the app quits.
func (app *AccountControlApp) runTicker(name string, interval time.Duration, fn func(ctx context.Context)) {
	defer app.wg.Done()

	app.logger.Info("starting "+name+" loop", zap.Float64("interval seconds", interval.Seconds()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-app.quit
		cancel()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-app.quit:
			app.logger.Info("exiting " + name + " loop")
			return
		}
	}
}

func (app *AccountControlApp) metricsUpdateLoop() {
	app.runTicker("metrics update", app.config.Metrics.UpdateInterval, func(_ context.Context) {
		reserves, err := app.ledger.ListReserves()
		if err != nil {
			app.logger.Error("failed to list reserves", zap.Error(err))
			return
		}
		var total uint64
		for _, r := range reserves {
			app.metrics.RecordReserve(r.ID, r.Backing, r.MintedAmount)
			total += r.MintedAmount
		}
		app.metrics.RecordTotalMinted(total)
	})
}

func (app *AccountControlApp) backingSyncLoop() {
	app.runTicker("backing sync", app.config.LedgerConfig.SyncInterval, func(ctx context.Context) {
		app.SyncAllBackings(ctx)
	})
}

func (app *AccountControlApp) redemptionScanLoop() {
	app.runTicker("redemption timeout scan", app.config.RedemptionConfig.ScanInterval, func(_ context.Context) {
		app.ScanOverdueRedemptions()
	})
}

func (app *AccountControlApp) relayRefreshLoop(refresher epochRefresher) {
	app.runTicker("relay refresh", relayRefreshInterval, func(ctx context.Context) {
		current, previous, err := refresher.Refresh(ctx)
		if err != nil {
			app.logger.Warn("failed to refresh epoch difficulty", zap.Error(err))
			return
		}
		app.metrics.RecordEpochDifficulty(current, previous)
	})
}

// SyncAllBackings pulls the oracle's finalized balances into every reserve,
// in chunks of the ledger's sync batch size. It returns the number of
// reserves updated.
func (app *AccountControlApp) SyncAllBackings(ctx context.Context) int {
	reserves, err := app.ledger.ListReserves()
	if err != nil {
		app.logger.Error("failed to list reserves", zap.Error(err))
		return 0
	}

	ids := make([]string, 0, len(reserves))
	for _, r := range reserves {
		ids = append(ids, r.ID)
	}

	chunk := int(app.config.LedgerConfig.SyncBatchSize)
	synced := 0
	for start := 0; start < len(ids) && ctx.Err() == nil; start += chunk {
		end := min(start+chunk, len(ids))
		for _, res := range app.ledger.SyncBackingFromOracle(ctx, ids[start:end]) {
			switch {
			case res.Succeeded():
				synced++
			case errors.Is(res.Err, ledger.ErrSyncTooFrequent), errors.Is(res.Err, ledger.ErrNoFinalizedBacking):
				app.logger.Debug("skipped backing sync", log.Reserve(res.Key), zap.Error(res.Err))
			default:
				app.logger.Warn("failed to sync backing", log.Reserve(res.Key), zap.Error(res.Err))
			}
		}
	}

	return synced
}

// ScanOverdueRedemptions logs every pending redemption past its deadline. The
// redemptions stay pending until an arbiter defaults them.
func (app *AccountControlApp) ScanOverdueRedemptions() int {
	overdue, err := app.redemption.Overdue()
	if err != nil {
		app.logger.Error("failed to scan redemptions", zap.Error(err))
		return 0
	}

	for _, r := range overdue {
		app.logger.Warn("redemption is overdue",
			zap.Stringer("redemption", r.ID),
			log.Reserve(r.Reserve),
			log.Sats("amount", r.Amount),
			zap.Time("deadline", r.Deadline),
		)
	}

	return len(overdue)
}
