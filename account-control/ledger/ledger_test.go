package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/ledger"
	"github.com/babylonlabs-io/account-control/testutil"
	"github.com/babylonlabs-io/account-control/testutil/actest"
	"github.com/babylonlabs-io/account-control/testutil/mocks"
	"github.com/babylonlabs-io/account-control/types"
)

const holder = "alice"

func TestMintCapBoundary(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 2000)

	require.True(t, h.Ledger().CanMint("qc-1", 1000))
	require.False(t, h.Ledger().CanMint("qc-1", 1001))

	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1000))
	err := h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1)
	require.ErrorIs(t, err, ledger.ErrMintingCapExceeded)

	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), r.MintedAmount)
	require.Equal(t, uint64(1000), h.Token.BalanceOf(holder))
}

func TestMintInsufficientBacking(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 10_000)
	h.Attest(t, "qc-1", 500)

	err := h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 501)
	require.ErrorIs(t, err, ledger.ErrInsufficientBacking)
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 500))

	err = h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, ^uint64(0))
	require.ErrorIs(t, err, ledger.ErrInsufficientBacking)
}

func TestMintAuthorization(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)

	err := h.Ledger().Mint(ctx, "mallory", "qc-1", holder, 10)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// the reserve holder mints against itself without the minter role
	require.NoError(t, h.Ledger().Mint(ctx, "qc-1", "qc-1", holder, 10))

	require.ErrorIs(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 0), ledger.ErrInvalidAmount)
	require.ErrorIs(t, h.Ledger().Mint(ctx, actest.Minter, "qc-unknown", holder, 1), ledger.ErrReserveNotFound)
}

func TestRegisterReserve(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	_, err := h.Ledger().RegisterReserve(ctx, "mallory", "qc-1", 1000)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	r := h.RegisterReserve(t, "qc-1", 1000)
	require.Equal(t, types.ReserveStatusActive, r.Status)
	require.Equal(t, actest.Genesis, r.RegisteredAt)

	_, err = h.Ledger().RegisterReserve(ctx, actest.Admin, "qc-1", 1000)
	require.ErrorIs(t, err, ledger.ErrReserveExists)

	_, err = h.Ledger().RegisterReserve(ctx, actest.Admin, "qc-2", 0)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestSetMintingCap(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	h.FundedReserve(t, "qc-1", 1000, 1000, 600, holder)

	_, err := h.Ledger().SetMintingCap(actest.Admin, "qc-1", 599)
	require.ErrorIs(t, err, ledger.ErrMintingCapExceeded)

	r, err := h.Ledger().SetMintingCap(actest.Admin, "qc-1", 600)
	require.NoError(t, err)
	require.Equal(t, uint64(600), r.MintingCap)
	require.False(t, h.Ledger().CanMint("qc-1", 1))

	_, err = h.Ledger().SetMintingCap(actest.Minter, "qc-1", 2000)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestMintStaleBacking(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)

	h.Clock.Advance(h.Cfg.LedgerConfig.MaxBackingStaleness)
	require.True(t, h.Ledger().CanMint("qc-1", 1))

	h.Clock.Advance(time.Second)
	require.False(t, h.Ledger().CanMint("qc-1", 1))
	err := h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1)
	require.ErrorIs(t, err, ledger.ErrStaleBacking)

	// a fresh attestation makes the backing usable again
	h.Attest(t, "qc-1", 1000)
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1))
}

func TestUndercollateralizationDisablesMinting(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	h.FundedReserve(t, "qc-1", 10_000, 1000, 800, holder)

	require.NoError(t, h.Ledger().SetBacking(ctx, "qc-1", 500))
	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.True(t, r.MintingDisabled)
	require.True(t, r.Undercollateralized())

	err = h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1)
	require.ErrorIs(t, err, ledger.ErrMintingDisabled)

	// burning down to the backing lifts the restriction
	require.NoError(t, h.Ledger().Redeem(ctx, "qc-1", holder, 300))
	r, err = h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.False(t, r.MintingDisabled)
	require.Equal(t, uint64(500), r.MintedAmount)

	require.NoError(t, h.Ledger().SetBacking(ctx, "qc-1", 1000))
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 100))
}

func TestRedeem(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	h.FundedReserve(t, "qc-1", 1000, 1000, 400, holder)

	err := h.Ledger().Redeem(ctx, "qc-1", holder, 401)
	require.ErrorIs(t, err, ledger.ErrInsufficientMinted)

	require.NoError(t, h.Ledger().Redeem(ctx, "qc-1", holder, 150))
	total, err := h.Ledger().TotalMinted()
	require.NoError(t, err)
	require.Equal(t, uint64(250), total)
	require.Equal(t, uint64(250), h.Token.BalanceOf(holder))

	// the burn failing leaves the reserve untouched
	err = h.Ledger().Redeem(ctx, "qc-1", "bob", 100)
	require.ErrorIs(t, err, ledger.ErrTokenLedger)
	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Equal(t, uint64(250), r.MintedAmount)
}

func TestMintTokenFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctl := gomock.NewController(t)
	tl := mocks.NewMockTokenLedger(ctl)
	h := actest.NewHarness(t, actest.WithTokenLedger(tl))
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)

	tl.EXPECT().Mint(gomock.Any(), holder, uint64(100)).Return(errors.New("token paused")).Times(1)
	err := h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 100)
	require.ErrorIs(t, err, ledger.ErrTokenLedger)

	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Zero(t, r.MintedAmount)
	total, err := h.Ledger().TotalMinted()
	require.NoError(t, err)
	require.Zero(t, total)

	tl.EXPECT().Mint(gomock.Any(), holder, uint64(100)).Return(nil).Times(1)
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 100))
}

func TestRedeemTokenFailureRestoresReserve(t *testing.T) {
	t.Parallel()

	ctl := gomock.NewController(t)
	tl := mocks.NewMockTokenLedger(ctl)
	h := actest.NewHarness(t, actest.WithTokenLedger(tl))
	ctx := context.Background()

	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)

	tl.EXPECT().Mint(gomock.Any(), holder, uint64(1000)).Return(nil).Times(1)
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1000))
	require.NoError(t, h.Ledger().SetBacking(ctx, "qc-1", 500))

	tl.EXPECT().Burn(gomock.Any(), holder, uint64(600)).Return(errors.New("token paused")).Times(1)
	err := h.Ledger().Redeem(ctx, "qc-1", holder, 600)
	require.ErrorIs(t, err, ledger.ErrTokenLedger)

	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), r.MintedAmount)
	require.True(t, r.MintingDisabled)
	total, err := h.Ledger().TotalMinted()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), total)
}

func TestConcurrentLedgerOperations(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()

	const mintingCap = 100_000
	h.RegisterReserve(t, "qc-1", mintingCap)
	h.Attest(t, "qc-1", mintingCap)

	var wg sync.WaitGroup
	worker := func(seed int64, op func(r *rand.Rand)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 100; i++ {
				op(r)
			}
		}()
	}

	for i := int64(0); i < 4; i++ {
		worker(i, func(r *rand.Rand) {
			_ = h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, uint64(r.Int63n(2_000)+1))
		})
	}
	for i := int64(0); i < 2; i++ {
		worker(10+i, func(r *rand.Rand) {
			_ = h.Ledger().Redeem(ctx, "qc-1", holder, uint64(r.Int63n(1_000)+1))
		})
	}
	worker(20, func(r *rand.Rand) {
		_ = h.Ledger().SetBacking(ctx, "qc-1", uint64(r.Int63n(120_000)))
	})
	wg.Wait()

	res, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.LessOrEqual(t, res.MintedAmount, res.MintingCap)
	if !res.MintingDisabled {
		require.GreaterOrEqual(t, res.Backing, res.MintedAmount)
	}

	total, err := h.Ledger().TotalMinted()
	require.NoError(t, err)
	require.Equal(t, res.MintedAmount, total)
	require.Equal(t, total, h.Token.TotalSupply())
	require.Equal(t, total, h.Token.BalanceOf(holder))
}

// FuzzLedgerInvariants runs random mints, redemptions and backing updates
// over a few reserves and checks the accounting after every step.
func FuzzLedgerInvariants(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))
		h := actest.NewHarness(t)
		ctx := context.Background()

		reserves := []string{"qc-a", "qc-b", "qc-c"}
		for _, id := range reserves {
			h.RegisterReserve(t, id, uint64(r.Int63n(100_000)+1))
			require.NoError(t, h.Ledger().SetBacking(ctx, id, uint64(r.Int63n(150_000))))
		}

		for i := 0; i < 50; i++ {
			id := reserves[r.Intn(len(reserves))]
			before, err := h.Ledger().GetReserve(id)
			require.NoError(t, err)

			switch r.Intn(3) {
			case 0:
				amount := uint64(r.Int63n(20_000) + 1)
				err := h.Ledger().Mint(ctx, actest.Minter, id, holder, amount)
				if err == nil {
					require.LessOrEqual(t, before.MintedAmount+amount, before.Backing)
				}
			case 1:
				if before.MintedAmount == 0 {
					continue
				}
				amount := uint64(r.Int63n(int64(before.MintedAmount)) + 1)
				require.NoError(t, h.Ledger().Redeem(ctx, id, holder, amount))
			default:
				require.NoError(t, h.Ledger().SetBacking(ctx, id, uint64(r.Int63n(150_000))))
			}

			var sum uint64
			all, err := h.Ledger().ListReserves()
			require.NoError(t, err)
			for _, res := range all {
				require.LessOrEqual(t, res.MintedAmount, res.MintingCap)
				if !res.MintingDisabled {
					require.GreaterOrEqual(t, res.Backing, res.MintedAmount)
				}
				sum += res.MintedAmount
			}

			total, err := h.Ledger().TotalMinted()
			require.NoError(t, err)
			require.Equal(t, sum, total)
			require.Equal(t, total, h.Token.TotalSupply())
		}
	})
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)

	require.ErrorIs(t, h.Ledger().SelfPause(ctx, "qc-2", "qc-1"), ledger.ErrUnauthorized)
	require.ErrorIs(t, h.Ledger().Resume(ctx, "qc-1", "qc-1"), ledger.ErrInvalidStatusTransition)

	require.NoError(t, h.Ledger().SelfPause(ctx, "qc-1", "qc-1"))
	err := h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1)
	require.ErrorIs(t, err, ledger.ErrReserveNotActive)
	require.NoError(t, h.Ledger().Resume(ctx, "qc-1", "qc-1"))
	require.NoError(t, h.Ledger().Mint(ctx, actest.Minter, "qc-1", holder, 1))

	require.NoError(t, h.Ledger().SetStatus(ctx, "qc-1", types.ReserveStatusUnderReview))
	require.ErrorIs(t, h.Ledger().CheckStatusTransition("qc-1", types.ReserveStatusSelfPaused), ledger.ErrInvalidStatusTransition)
	require.ErrorIs(t, h.Ledger().Resume(ctx, "qc-1", "qc-1"), ledger.ErrInvalidStatusTransition)

	require.NoError(t, h.Ledger().SetStatus(ctx, "qc-1", types.ReserveStatusRevoked))
	for _, st := range []types.ReserveStatus{
		types.ReserveStatusActive,
		types.ReserveStatusSelfPaused,
		types.ReserveStatusUnderReview,
	} {
		require.ErrorIs(t, h.Ledger().SetStatus(ctx, "qc-1", st), ledger.ErrInvalidStatusTransition)
	}
}

func TestEmergencyPauseMasksStatus(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	h.RegisterReserve(t, "qc-1", 1000)
	h.Attest(t, "qc-1", 1000)
	require.NoError(t, h.Ledger().SelfPause(ctx, "qc-1", "qc-1"))

	require.NoError(t, h.Ledger().SetEmergencyPause(ctx, "qc-1", true))
	r, err := h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Equal(t, types.ReserveStatusEmergencyPaused, r.EffectiveStatus())
	require.Equal(t, actest.Genesis, r.PausedAt)

	require.NoError(t, h.Ledger().SetEmergencyPause(ctx, "qc-1", false))
	r, err = h.Ledger().GetReserve("qc-1")
	require.NoError(t, err)
	require.Equal(t, types.ReserveStatusSelfPaused, r.EffectiveStatus())
	require.True(t, r.PausedAt.IsZero())
}

func TestSyncBackingFromOracle(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t)
	ctx := context.Background()
	for _, id := range []string{"qc-a", "qc-b", "qc-c"} {
		h.RegisterReserve(t, id, 1000)
	}
	h.Attest(t, "qc-a", 100)
	h.Attest(t, "qc-b", 200)

	_, err := h.Oracle().OverrideAttestation(ctx, actest.Arbiter, "qc-b", 250, "custodian statement")
	require.NoError(t, err)

	results := h.Ledger().SyncBackingFromOracle(ctx, []string{"qc-a", "qc-b", "qc-c", "qc-unknown"})
	require.Len(t, results, 4)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	require.ErrorIs(t, results[2].Err, ledger.ErrNoFinalizedBacking)
	require.ErrorIs(t, results[3].Err, ledger.ErrReserveNotFound)

	r, err := h.Ledger().GetReserve("qc-b")
	require.NoError(t, err)
	require.Equal(t, uint64(250), r.Backing)
	require.Equal(t, actest.Genesis, r.LastSyncAt)

	results = h.Ledger().SyncBackingFromOracle(ctx, []string{"qc-a"})
	require.ErrorIs(t, results[0].Err, ledger.ErrSyncTooFrequent)

	h.Clock.Advance(h.Cfg.LedgerConfig.MinSyncInterval)
	results = h.Ledger().SyncBackingFromOracle(ctx, []string{"qc-a"})
	require.NoError(t, results[0].Err)
}

func TestSyncBackingBudget(t *testing.T) {
	t.Parallel()

	h := actest.NewHarness(t, actest.WithConfig(func(cfg *config.Config) {
		cfg.LedgerConfig.SyncBatchSize = 2
	}))
	ids := []string{"qc-a", "qc-b", "qc-c"}
	for _, id := range ids {
		h.RegisterReserve(t, id, 1000)
		h.Attest(t, id, 100)
	}

	results := h.Ledger().SyncBackingFromOracle(context.Background(), ids)
	require.True(t, results[0].Succeeded())
	require.True(t, results[1].Succeeded())
	require.ErrorIs(t, results[2].Err, ledger.ErrBatchBudgetExhausted)

	// progress is kept, the skipped reserve can be synced in the next call
	results = h.Ledger().SyncBackingFromOracle(context.Background(), ids[2:])
	require.True(t, results[0].Succeeded())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Clock.Advance(time.Hour)
	results = h.Ledger().SyncBackingFromOracle(ctx, ids[:1])
	require.ErrorIs(t, results[0].Err, ledger.ErrBatchBudgetExhausted)
}

func TestWalletRegistration(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(7))
	h := actest.NewHarness(t)
	ctx := context.Background()
	h.RegisterReserve(t, "qc-1", 1000)
	h.RegisterReserve(t, "qc-2", 1000)
	wallet := actest.NewWallet(t, r)

	err := h.Ledger().RegisterWallet(ctx, "qc-1", "qc-1", "not-an-address")
	require.ErrorIs(t, err, ledger.ErrInvalidWalletAddress)
	err = h.Ledger().RegisterWallet(ctx, "qc-2", "qc-1", wallet)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	require.NoError(t, h.Ledger().RegisterWallet(ctx, "qc-1", "qc-1", wallet))
	require.True(t, h.Ledger().IsWalletRegistered("qc-1", wallet))
	require.False(t, h.Ledger().IsWalletRegistered("qc-2", wallet))

	err = h.Ledger().RegisterWallet(ctx, actest.Admin, "qc-2", wallet)
	require.ErrorIs(t, err, ledger.ErrWalletAlreadyRegistered)
	err = h.Ledger().RegisterWallet(ctx, actest.Admin, "qc-unknown", actest.NewWallet(t, r))
	require.ErrorIs(t, err, ledger.ErrReserveNotFound)

	err = h.Ledger().DeregisterWallet(ctx, "qc-2", "qc-2", wallet)
	require.ErrorIs(t, err, ledger.ErrWalletNotRegistered)

	require.NoError(t, h.Ledger().DeregisterWallet(ctx, actest.Admin, "qc-1", wallet))
	require.False(t, h.Ledger().IsWalletRegistered("qc-1", wallet))

	// freed wallets can move to another reserve
	require.NoError(t, h.Ledger().RegisterWallet(ctx, "qc-2", "qc-2", wallet))
}

func TestDeregisterWalletWithPendingRedemption(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(8))
	h := actest.NewHarness(t)
	ctx := context.Background()
	h.FundedReserve(t, "qc-1", 1_000_000, 1_000_000, 500_000, holder)
	wallet := actest.NewWallet(t, r)
	require.NoError(t, h.Ledger().RegisterWallet(ctx, "qc-1", "qc-1", wallet))

	_, err := h.Redemptions().Initiate(ctx, holder, "qc-1", 200_000, actest.NewWallet(t, r), wallet)
	require.NoError(t, err)

	err = h.Ledger().DeregisterWallet(ctx, "qc-1", "qc-1", wallet)
	require.ErrorIs(t, err, ledger.ErrWalletHasPendingRedemptions)
	require.True(t, h.Ledger().IsWalletRegistered("qc-1", wallet))
}
