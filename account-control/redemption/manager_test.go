package redemption_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/ledger"
	"github.com/babylonlabs-io/account-control/account-control/redemption"
	"github.com/babylonlabs-io/account-control/spv"
	"github.com/babylonlabs-io/account-control/testutil/actest"
	"github.com/babylonlabs-io/account-control/types"
)

const (
	reserve = "qc-1"
	holder  = "alice"
)

type fixture struct {
	*actest.Harness
	r      *rand.Rand
	wallet string
}

func newFixture(t *testing.T, seed int64, opts ...actest.Option) *fixture {
	t.Helper()

	h := actest.NewHarness(t, opts...)
	h.FundedReserve(t, reserve, 10_000_000, 10_000_000, 5_000_000, holder)

	r := rand.New(rand.NewSource(seed))
	wallet := actest.NewWallet(t, r)
	require.NoError(t, h.Ledger().RegisterWallet(context.Background(), reserve, reserve, wallet))

	return &fixture{Harness: h, r: r, wallet: wallet}
}

func (f *fixture) initiate(t *testing.T, amount uint64) *types.Redemption {
	t.Helper()

	red, err := f.Redemptions().Initiate(context.Background(), holder, reserve, amount, actest.NewWallet(t, f.r), f.wallet)
	require.NoError(t, err)

	return red
}

func TestInitiateMinimumAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, actest.WithConfig(func(cfg *config.Config) {
		cfg.RedemptionConfig.MinRedemptionSats = 1000
	}))
	ctx := context.Background()
	dest := actest.NewWallet(t, f.r)

	_, err := f.Redemptions().Initiate(ctx, holder, reserve, 500, dest, f.wallet)
	require.ErrorIs(t, err, redemption.ErrRedemptionBelowMinimum)

	red, err := f.Redemptions().Initiate(ctx, holder, reserve, 1000, dest, f.wallet)
	require.NoError(t, err)
	require.Equal(t, types.RedemptionStatusPending, red.Status)
	require.Equal(t, uint64(1000), red.Amount)
	require.Equal(t, actest.Genesis.Add(f.Cfg.RedemptionConfig.Timeout), red.Deadline)

	r, err := f.Ledger().GetReserve(reserve)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000-1000), r.MintedAmount)
	require.Equal(t, uint64(5_000_000-1000), f.Token.BalanceOf(holder))
}

func TestInitiateRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	ctx := context.Background()
	dest := actest.NewWallet(t, f.r)
	amount := f.Cfg.RedemptionConfig.MinRedemptionSats

	_, err := f.Redemptions().Initiate(ctx, holder, reserve, amount, "bc1notanaddress", f.wallet)
	require.ErrorIs(t, err, redemption.ErrInvalidAddressFormat)

	_, err = f.Redemptions().Initiate(ctx, holder, reserve, amount, dest, actest.NewWallet(t, f.r))
	require.ErrorIs(t, err, redemption.ErrWalletNotRegistered)

	_, err = f.Redemptions().Initiate(ctx, holder, "qc-unknown", amount, dest, f.wallet)
	require.ErrorIs(t, err, ledger.ErrReserveNotFound)

	_, err = f.Redemptions().Initiate(ctx, holder, reserve, 6_000_000, dest, f.wallet)
	require.ErrorIs(t, err, ledger.ErrInsufficientMinted)

	// the burn fails when the user does not hold the tokens
	_, err = f.Redemptions().Initiate(ctx, "bob", reserve, amount, dest, f.wallet)
	require.ErrorIs(t, err, ledger.ErrTokenLedger)

	active, err := f.Redemptions().Active(reserve)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestInitiateReserveOperability(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	ctx := context.Background()
	amount := f.Cfg.RedemptionConfig.MinRedemptionSats

	// self paused reserves still honor redemptions
	require.NoError(t, f.Ledger().SelfPause(ctx, reserve, reserve))
	f.initiate(t, amount)

	require.NoError(t, f.Ledger().SetEmergencyPause(ctx, reserve, true))
	_, err := f.Redemptions().Initiate(ctx, holder, reserve, amount, actest.NewWallet(t, f.r), f.wallet)
	require.ErrorIs(t, err, redemption.ErrReserveNotOperational)
	require.NoError(t, f.Ledger().SetEmergencyPause(ctx, reserve, false))

	require.NoError(t, f.Ledger().SetStatus(ctx, reserve, types.ReserveStatusRevoked))
	_, err = f.Redemptions().Initiate(ctx, holder, reserve, amount, actest.NewWallet(t, f.r), f.wallet)
	require.ErrorIs(t, err, redemption.ErrReserveNotOperational)
}

func TestFulfillWithProof(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4)
	ctx := context.Background()

	red := f.initiate(t, 200_000)
	payment := f.PayTo(t, f.r, red.DestinationAddress, 120_000, 130_000)

	_, err := f.Redemptions().Fulfill(ctx, "mallory", red.ID, 200_000, payment.TxInfo, payment.Proof)
	require.ErrorIs(t, err, redemption.ErrUnauthorized)

	fulfilled, err := f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 250_000, payment.TxInfo, payment.Proof)
	require.NoError(t, err)
	require.Equal(t, types.RedemptionStatusFulfilled, fulfilled.Status)
	require.Equal(t, uint64(250_000), fulfilled.PaidAmount)
	require.Equal(t, payment.Tx.TxHash(), *fulfilled.FulfillmentTxHash)
	require.False(t, fulfilled.TrustedFulfillment)

	active, err := f.Redemptions().Active(reserve)
	require.NoError(t, err)
	require.Empty(t, active)

	_, err = f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 250_000, payment.TxInfo, payment.Proof)
	require.ErrorIs(t, err, redemption.ErrRedemptionNotPending)

	// the same payment cannot settle a second redemption to the same address
	other, err := f.Redemptions().Initiate(ctx, holder, reserve, 200_000, red.DestinationAddress, f.wallet)
	require.NoError(t, err)
	_, err = f.Redemptions().Fulfill(ctx, actest.Relayer, other.ID, 250_000, payment.TxInfo, payment.Proof)
	require.ErrorIs(t, err, redemption.ErrPaymentAlreadyUsed)
}

func TestFulfillPaymentChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5, actest.WithConfig(func(cfg *config.Config) {
		cfg.RedemptionConfig.MinRedemptionSats = 1000
	}))
	ctx := context.Background()

	tcs := []struct {
		name        string
		requested   uint64
		claimed     uint64
		paid        []int64
		otherDest   bool
		expectedErr error
	}{
		{"below dust", 1000, 1000, []int64{500}, false, redemption.ErrPaymentBelowDust},
		{"paid elsewhere", 1000, 1000, []int64{5000}, true, redemption.ErrPaymentBelowDust},
		{"underpaid", 200_000, 150_000, []int64{150_000}, false, redemption.ErrInsufficientPayment},
		{"claim above payment", 200_000, 300_000, []int64{250_000}, false, redemption.ErrAmountMismatch},
		{"claim below request", 200_000, 199_999, []int64{250_000}, false, redemption.ErrAmountMismatch},
		{"exact", 1000, 1000, []int64{1000}, false, nil},
		{"overpaid", 200_000, 210_000, []int64{210_000}, false, nil},
	}

	for _, tc := range tcs {
		red := f.initiate(t, tc.requested)

		dest := red.DestinationAddress
		if tc.otherDest {
			dest = actest.NewWallet(t, f.r)
		}
		payment := f.PayTo(t, f.r, dest, tc.paid...)

		_, err := f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, tc.claimed, payment.TxInfo, payment.Proof)
		if tc.expectedErr != nil {
			require.ErrorIs(t, err, tc.expectedErr, tc.name)

			stored, err := f.Redemptions().Get(red.ID)
			require.NoError(t, err)
			require.Equal(t, types.RedemptionStatusPending, stored.Status, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
	}
}

func TestFulfillInvalidProof(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 6)
	ctx := context.Background()

	red := f.initiate(t, 200_000)
	payment := f.PayTo(t, f.r, red.DestinationAddress, 200_000)

	proof := payment.Proof
	proof.MerkleProof = append([]byte{}, payment.Proof.MerkleProof...)
	proof.MerkleProof[0] ^= 0xff
	_, err := f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 200_000, payment.TxInfo, proof)
	require.ErrorIs(t, err, spv.ErrMerkleProofInvalid)

	f.Relay.Retarget(2)
	f.Relay.Retarget(4)
	_, err = f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 200_000, payment.TxInfo, payment.Proof)
	require.ErrorIs(t, err, spv.ErrDifficultyMismatch)

	stored, err := f.Redemptions().Get(red.ID)
	require.NoError(t, err)
	require.Equal(t, types.RedemptionStatusPending, stored.Status)
}

func TestFulfillPermissionless(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 7, actest.WithConfig(func(cfg *config.Config) {
		cfg.RedemptionConfig.PermissionlessFulfillment = true
	}))

	red := f.initiate(t, 200_000)
	payment := f.PayTo(t, f.r, red.DestinationAddress, 200_000)

	_, err := f.Redemptions().Fulfill(context.Background(), "anyone", red.ID, 200_000, payment.TxInfo, payment.Proof)
	require.NoError(t, err)
}

func TestFulfillTrusted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	disabled := newFixture(t, 8)
	red := disabled.initiate(t, 200_000)
	_, err := disabled.Redemptions().FulfillTrusted(ctx, actest.TrustedFulfiller, red.ID, 200_000)
	require.ErrorIs(t, err, redemption.ErrTrustedFulfillmentDisabled)

	enabled := newFixture(t, 9, actest.WithConfig(func(cfg *config.Config) {
		cfg.RedemptionConfig.AllowTrustedFulfillment = true
	}))
	red = enabled.initiate(t, 200_000)

	_, err = enabled.Redemptions().FulfillTrusted(ctx, actest.Relayer, red.ID, 200_000)
	require.ErrorIs(t, err, redemption.ErrUnauthorized)
	_, err = enabled.Redemptions().FulfillTrusted(ctx, actest.TrustedFulfiller, red.ID, 100_000)
	require.ErrorIs(t, err, redemption.ErrInsufficientPayment)

	fulfilled, err := enabled.Redemptions().FulfillTrusted(ctx, actest.TrustedFulfiller, red.ID, 200_000)
	require.NoError(t, err)
	require.True(t, fulfilled.TrustedFulfillment)
	require.Nil(t, fulfilled.FulfillmentTxHash)

	_, err = enabled.Redemptions().FulfillTrusted(ctx, actest.TrustedFulfiller, red.ID, 200_000)
	require.ErrorIs(t, err, redemption.ErrRedemptionNotPending)
}

func TestDefaultAfterTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	ctx := context.Background()
	day := 24 * time.Hour

	red := f.initiate(t, 200_000)
	require.Equal(t, 7*day, f.Cfg.RedemptionConfig.Timeout)

	_, err := f.Redemptions().Default(ctx, actest.Relayer, red.ID, "no payment")
	require.ErrorIs(t, err, redemption.ErrUnauthorized)
	_, err = f.Redemptions().Default(ctx, actest.Arbiter, red.ID, "")
	require.ErrorIs(t, err, redemption.ErrEmptyReason)

	f.Clock.Advance(6 * day)
	timedOut, err := f.Redemptions().IsTimedOut(red.ID)
	require.NoError(t, err)
	require.False(t, timedOut)
	_, err = f.Redemptions().Default(ctx, actest.Arbiter, red.ID, "no payment")
	require.ErrorIs(t, err, redemption.ErrDeadlineNotReached)

	// exactly at the deadline the reserve still has time
	f.Clock.Advance(day)
	timedOut, err = f.Redemptions().IsTimedOut(red.ID)
	require.NoError(t, err)
	require.False(t, timedOut)

	f.Clock.Advance(day)
	timedOut, err = f.Redemptions().IsTimedOut(red.ID)
	require.NoError(t, err)
	require.True(t, timedOut)

	overdue, err := f.Redemptions().Overdue()
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, red.ID, overdue[0].ID)

	defaulted, err := f.Redemptions().Default(ctx, actest.Arbiter, red.ID, "no payment")
	require.NoError(t, err)
	require.Equal(t, types.RedemptionStatusDefaulted, defaulted.Status)
	require.Equal(t, "no payment", defaulted.DefaultReason)

	// defaults are final
	payment := f.PayTo(t, f.r, red.DestinationAddress, 200_000)
	_, err = f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 200_000, payment.TxInfo, payment.Proof)
	require.ErrorIs(t, err, redemption.ErrRedemptionNotPending)
	_, err = f.Redemptions().Default(ctx, actest.Arbiter, red.ID, "again")
	require.ErrorIs(t, err, redemption.ErrRedemptionNotPending)

	timedOut, err = f.Redemptions().IsTimedOut(red.ID)
	require.NoError(t, err)
	require.False(t, timedOut)
	overdue, err = f.Redemptions().Overdue()
	require.NoError(t, err)
	require.Empty(t, overdue)
}

func TestUnfulfilledForWallet(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 11)
	ctx := context.Background()

	pending, err := f.Redemptions().HasUnfulfilledForWallet(reserve, f.wallet)
	require.NoError(t, err)
	require.False(t, pending)

	red := f.initiate(t, 200_000)
	pending, err = f.Redemptions().HasUnfulfilledForWallet(reserve, f.wallet)
	require.NoError(t, err)
	require.True(t, pending)

	payment := f.PayTo(t, f.r, red.DestinationAddress, 200_000)
	_, err = f.Redemptions().Fulfill(ctx, actest.Relayer, red.ID, 200_000, payment.TxInfo, payment.Proof)
	require.NoError(t, err)

	pending, err = f.Redemptions().HasUnfulfilledForWallet(reserve, f.wallet)
	require.NoError(t, err)
	require.False(t, pending)
	require.NoError(t, f.Ledger().DeregisterWallet(ctx, reserve, reserve, f.wallet))

	_, err = f.Redemptions().Get(types.RedemptionID{})
	require.ErrorIs(t, err, redemption.ErrRedemptionNotFound)
}

func TestInitiateDeregisterInterleaving(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 12, actest.WithConfig(func(cfg *config.Config) {
		cfg.RedemptionConfig.MinRedemptionSats = 10_000
	}))
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		wallet := actest.NewWallet(t, f.r)
		dest := actest.NewWallet(t, f.r)
		require.NoError(t, f.Ledger().RegisterWallet(ctx, actest.Admin, reserve, wallet))

		var (
			wg                sync.WaitGroup
			initErr, deregErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, initErr = f.Redemptions().Initiate(ctx, holder, reserve, 10_000, dest, wallet)
		}()
		go func() {
			defer wg.Done()
			deregErr = f.Ledger().DeregisterWallet(ctx, actest.Admin, reserve, wallet)
		}()
		wg.Wait()

		if initErr == nil {
			require.ErrorIs(t, deregErr, ledger.ErrWalletHasPendingRedemptions)
			require.True(t, f.Ledger().IsWalletRegistered(reserve, wallet))
		} else {
			require.ErrorIs(t, initErr, redemption.ErrWalletNotRegistered)
			require.NoError(t, deregErr)
			require.False(t, f.Ledger().IsWalletRegistered(reserve, wallet))
		}
	}

	active, err := f.Redemptions().Active(reserve)
	require.NoError(t, err)
	for _, red := range active {
		require.True(t, f.Ledger().IsWalletRegistered(reserve, red.SourceWallet),
			"pending redemption %s references deregistered wallet %s", red.ID, red.SourceWallet)
	}
}
