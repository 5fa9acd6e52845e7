package service_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/testutil/actest"
)

func TestAppStartStop(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t, actest.WithConfig(func(cfg *config.Config) {
		cfg.Metrics.UpdateInterval = 10 * time.Millisecond
		cfg.LedgerConfig.SyncInterval = 10 * time.Millisecond
		cfg.RedemptionConfig.ScanInterval = 10 * time.Millisecond
	}))
	h.RegisterReserve(t, "qc-1", 1000)

	require.False(t, h.IsRunning())
	require.NoError(t, h.Start())
	require.True(t, h.IsRunning())
	require.NoError(t, h.Start())

	// let every loop tick at least once
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, h.Stop())
	require.False(t, h.IsRunning())
	require.NoError(t, h.Stop())
}

func TestSyncAllBackings(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t, actest.WithConfig(func(cfg *config.Config) {
		cfg.LedgerConfig.SyncBatchSize = 1
	}))
	ctx := context.Background()

	for _, id := range []string{"qc-1", "qc-2", "qc-3"} {
		h.RegisterReserve(t, id, 1000)
	}
	h.Attest(t, "qc-1", 500)
	h.Attest(t, "qc-2", 700)

	// qc-3 has no finalized attestation yet
	require.Equal(t, 2, h.SyncAllBackings(ctx))
	require.Equal(t, 0, h.SyncAllBackings(ctx))

	h.Clock.Advance(h.Cfg.LedgerConfig.MinSyncInterval)
	require.Equal(t, 2, h.SyncAllBackings(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	h.Clock.Advance(h.Cfg.LedgerConfig.MinSyncInterval)
	require.Equal(t, 0, h.SyncAllBackings(cancelled))

	r, err := h.Ledger().GetReserve("qc-2")
	require.NoError(t, err)
	require.Equal(t, uint64(700), r.Backing)
}

func TestScanOverdueRedemptions(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	h.FundedReserve(t, "qc-1", 1_000_000, 1_000_000, 500_000, "alice")
	wallet := actest.NewWallet(t, r)
	require.NoError(t, h.Ledger().RegisterWallet(ctx, actest.Admin, "qc-1", wallet))

	_, err := h.Redemptions().Initiate(ctx, "alice", "qc-1", 100_000, actest.NewWallet(t, r), wallet)
	require.NoError(t, err)
	require.Equal(t, 0, h.ScanOverdueRedemptions())

	h.Clock.Advance(h.Cfg.RedemptionConfig.Timeout / 2)
	_, err = h.Redemptions().Initiate(ctx, "alice", "qc-1", 100_000, actest.NewWallet(t, r), wallet)
	require.NoError(t, err)

	h.Clock.Advance(h.Cfg.RedemptionConfig.Timeout/2 + time.Second)
	require.Equal(t, 1, h.ScanOverdueRedemptions())

	h.Clock.Advance(h.Cfg.RedemptionConfig.Timeout)
	require.Equal(t, 2, h.ScanOverdueRedemptions())
}
