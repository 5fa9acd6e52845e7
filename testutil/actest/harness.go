// Package actest assembles an account control app over a temporary database
// with a manual clock and a fixed set of role holders.
package actest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/service"
	"github.com/babylonlabs-io/account-control/bitcoin/addrcodec"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/spv/relay"
	"github.com/babylonlabs-io/account-control/testutil"
	"github.com/babylonlabs-io/account-control/testutil/btcgen"
	"github.com/babylonlabs-io/account-control/token"
	"github.com/babylonlabs-io/account-control/types"
)

const (
	Governance       = "governance"
	Admin            = "reserve-admin"
	Minter           = "minter"
	Arbiter          = "arbiter"
	Relayer          = "relayer"
	TrustedFulfiller = "trusted-fulfiller"
)

var (
	Attesters = []string{"attester-1", "attester-2", "attester-3"}
	Watchdogs = []string{"watchdog-1", "watchdog-2", "watchdog-3"}

	Genesis = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type Harness struct {
	*service.AccountControlApp

	Cfg   *config.Config
	Clock *testutil.ManualClock
	Relay *relay.Static
	// Token is nil when the app was built over a custom token ledger
	Token *token.Ledger
}

type options struct {
	tokenLedger types.TokenLedger
	mutate      []func(cfg *config.Config)
}

type Option func(o *options)

// WithConfig adjusts the config before the app is built.
func WithConfig(fn func(cfg *config.Config)) Option {
	return func(o *options) {
		o.mutate = append(o.mutate, fn)
	}
}

func WithTokenLedger(tl types.TokenLedger) Option {
	return func(o *options) {
		o.tokenLedger = tl
	}
}

func NewHarness(t *testing.T, opts ...Option) *Harness {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.DefaultConfigWithHome(t.TempDir())
	cfg.Metrics.Port = testutil.AllocateUniquePort(t)
	cfg.Roles = &config.RolesConfig{
		Governance:       []string{Governance},
		ReserveAdmin:     []string{Admin},
		Minter:           []string{Minter},
		Attester:         Attesters,
		DisputeArbiter:   []string{Arbiter},
		Watchdog:         Watchdogs,
		Relayer:          []string{Relayer},
		TrustedFulfiller: []string{TrustedFulfiller},
	}
	for _, fn := range o.mutate {
		fn(&cfg)
	}
	require.NoError(t, cfg.Validate())

	db, err := cfg.DatabaseConfig.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	logger := testutil.GetTestLogger(t)
	h := &Harness{
		Cfg:   &cfg,
		Clock: testutil.NewManualClock(Genesis),
		Relay: relay.NewStatic(1, 1),
	}

	tl := o.tokenLedger
	if tl == nil {
		h.Token = token.NewLedger(logger)
		tl = h.Token
	}

	h.AccountControlApp, err = service.NewAccountControlApp(
		&cfg, db, h.Relay, tl, h.Clock.Now, metrics.NewAccountControlMetrics(), logger,
	)
	require.NoError(t, err)

	return h
}

// RegisterReserve registers a reserve with the given cap.
func (h *Harness) RegisterReserve(t *testing.T, reserve string, mintingCap uint64) *types.Reserve {
	t.Helper()

	r, err := h.Ledger().RegisterReserve(context.Background(), Admin, reserve, mintingCap)
	require.NoError(t, err)

	return r
}

// Attest has every attester agree on amount, finalizing a round and pushing
// the backing to the ledger.
func (h *Harness) Attest(t *testing.T, reserve string, amount uint64) {
	t.Helper()

	var round *types.AttestationRound
	for _, a := range Attesters {
		var err error
		round, err = h.Oracle().SubmitAttestation(context.Background(), a, reserve, amount, chainhash.Hash{})
		require.NoError(t, err)
	}
	require.Equal(t, types.RoundStateFinalized, round.State)
}

// FundedReserve registers a reserve backed by backing and mints minted of it
// to holder.
func (h *Harness) FundedReserve(t *testing.T, reserve string, mintingCap, backing, minted uint64, holder string) {
	t.Helper()

	h.RegisterReserve(t, reserve, mintingCap)
	h.Attest(t, reserve, backing)
	if minted > 0 {
		require.NoError(t, h.Ledger().Mint(context.Background(), Minter, reserve, holder, minted))
	}
}

// NewWallet returns a fresh P2WPKH address on the harness network.
func NewWallet(t *testing.T, r *rand.Rand) string {
	t.Helper()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(testutil.GenRandomByteArray(r, 20), btcgen.Params)
	require.NoError(t, err)

	return addr.EncodeAddress()
}

// PayTo mines a block with a transaction paying amounts to destination, one
// output each, buried under enough headers to pass verification.
func (h *Harness) PayTo(t *testing.T, r *rand.Rand, destination string, amounts ...int64) *btcgen.Fixture {
	t.Helper()

	decoded, err := addrcodec.NewCodec(btcgen.Params).Decode(destination)
	require.NoError(t, err)
	script, err := decoded.PkScript()
	require.NoError(t, err)

	outs := make([]*wire.TxOut, 0, len(amounts))
	for _, amount := range amounts {
		outs = append(outs, wire.NewTxOut(amount, script))
	}

	confirmations := int(h.Cfg.BitcoinConfig.DifficultyFactor) - 1

	return btcgen.NewFixture(t, r, btcgen.PaymentTx(r, outs...), r.Intn(4), confirmations)
}
