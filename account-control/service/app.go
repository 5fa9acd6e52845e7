package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/ledger"
	"github.com/babylonlabs-io/account-control/account-control/oracle"
	"github.com/babylonlabs-io/account-control/account-control/redemption"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/account-control/watchdog"
	"github.com/babylonlabs-io/account-control/auth"
	"github.com/babylonlabs-io/account-control/bitcoin/addrcodec"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/spv"
	"github.com/babylonlabs-io/account-control/spv/relay"
	"github.com/babylonlabs-io/account-control/token"
	"github.com/babylonlabs-io/account-control/types"
)

// epochRefresher is implemented by relays that follow the Bitcoin chain.
type epochRefresher interface {
	Refresh(ctx context.Context) (current, previous uint64, err error)
	Close()
}

// AccountControlApp hosts the reserve ledger, the oracle, the redemption
// manager and the watchdogs on one database, and runs their background
// loops.
type AccountControlApp struct {
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	quit      chan struct{}
	isStarted *atomic.Bool

	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.AccountControlMetrics
	clock   types.Clock

	roles      *auth.RoleTable
	token      types.TokenLedger
	relay      spv.Relay
	verifier   *spv.Verifier
	ledger     *ledger.Ledger
	oracle     *oracle.Oracle
	redemption *redemption.Manager
	consensus  *watchdog.Consensus
	escalator  *watchdog.Escalator

	metricsServer *metrics.Server
}

// NewAccountControlAppFromConfig builds the app with the relay selected in
// the bitcoin config, an in-memory token ledger and the wall clock.
func NewAccountControlAppFromConfig(
	cfg *config.Config,
	db kvdb.Backend,
	logger *zap.Logger,
) (*AccountControlApp, error) {
	params, err := cfg.BitcoinConfig.NetParams()
	if err != nil {
		return nil, err
	}

	var r spv.Relay
	switch cfg.BitcoinConfig.RelayMode {
	case config.RelayModeBitcoind:
		bitcoind, err := relay.NewBitcoind(cfg.BitcoinConfig.BitcoindConfig(), params, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create the bitcoind relay: %w", err)
		}
		r = bitcoind
	default:
		r = relay.NewStatic(cfg.BitcoinConfig.StaticCurrentDifficulty, cfg.BitcoinConfig.StaticPreviousDifficulty)
	}

	return NewAccountControlApp(cfg, db, r, token.NewLedger(logger), time.Now, metrics.NewAccountControlMetrics(), logger)
}

func NewAccountControlApp(
	cfg *config.Config,
	db kvdb.Backend,
	r spv.Relay,
	tokenLedger types.TokenLedger,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) (*AccountControlApp, error) {
	params, err := cfg.BitcoinConfig.NetParams()
	if err != nil {
		return nil, err
	}

	reserveStore, err := store.NewReserveStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate reserve store: %w", err)
	}
	attestationStore, err := store.NewAttestationStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate attestation store: %w", err)
	}
	redemptionStore, err := store.NewRedemptionStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate redemption store: %w", err)
	}
	watchdogStore, err := store.NewWatchdogStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate watchdog store: %w", err)
	}

	verifier, err := spv.NewVerifier(r, params, cfg.BitcoinConfig.DifficultyFactor, logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create the spv verifier: %w", err)
	}

	roles := auth.NewRoleTable(cfg.Roles.Assignments())
	codec := addrcodec.NewCodec(params)

	l := ledger.NewLedger(cfg.LedgerConfig, reserveStore, tokenLedger, roles, codec, clock, m, logger)
	o := oracle.NewOracle(cfg.OracleConfig, attestationStore, l, roles, clock, m, logger)
	rm := redemption.NewManager(cfg.RedemptionConfig, redemptionStore, l, verifier, codec, roles, clock, m, logger)
	l.SetBackingSource(o)
	l.SetRedemptionTracker(rm)

	return &AccountControlApp{
		quit:       make(chan struct{}),
		isStarted:  atomic.NewBool(false),
		config:     cfg,
		logger:     logger,
		metrics:    m,
		clock:      clock,
		roles:      roles,
		token:      tokenLedger,
		relay:      r,
		verifier:   verifier,
		ledger:     l,
		oracle:     o,
		redemption: rm,
		consensus:  watchdog.NewConsensus(cfg.WatchdogConfig, watchdogStore, l, roles, clock, m, logger),
		escalator:  watchdog.NewEscalator(cfg.WatchdogConfig, watchdogStore, l, roles, clock, m, logger),
	}, nil
}

func (app *AccountControlApp) GetConfig() *config.Config {
	return app.config
}

func (app *AccountControlApp) Roles() *auth.RoleTable {
	return app.roles
}

func (app *AccountControlApp) TokenLedger() types.TokenLedger {
	return app.token
}

func (app *AccountControlApp) Verifier() *spv.Verifier {
	return app.verifier
}

func (app *AccountControlApp) Ledger() *ledger.Ledger {
	return app.ledger
}

func (app *AccountControlApp) Oracle() *oracle.Oracle {
	return app.oracle
}

func (app *AccountControlApp) Redemptions() *redemption.Manager {
	return app.redemption
}

func (app *AccountControlApp) Consensus() *watchdog.Consensus {
	return app.consensus
}

func (app *AccountControlApp) Escalator() *watchdog.Escalator {
	return app.escalator
}

func (app *AccountControlApp) IsRunning() bool {
	return app.isStarted.Load()
}

// Start launches the background loops and, if an address is configured,
// the metrics server.
func (app *AccountControlApp) Start() error {
	var startErr error
	app.startOnce.Do(func() {
		app.logger.Info("Starting AccountControlApp")

		addr, err := app.config.Metrics.Address()
		if err != nil {
			startErr = fmt.Errorf("invalid metrics config: %w", err)
			return
		}
		app.metricsServer = metrics.Start(addr, app.logger)

		app.wg.Add(3)
		go app.metricsUpdateLoop()
		go app.backingSyncLoop()
		go app.redemptionScanLoop()

		if refresher, ok := app.relay.(epochRefresher); ok {
			app.wg.Add(1)
			go app.relayRefreshLoop(refresher)
		}

		app.isStarted.Store(true)
	})

	return startErr
}

func (app *AccountControlApp) Stop() error {
	var stopErr error
	app.stopOnce.Do(func() {
		app.logger.Info("Stopping AccountControlApp")

		close(app.quit)
		app.wg.Wait()

		if app.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			app.metricsServer.Stop(ctx)
			cancel()
		}

		if refresher, ok := app.relay.(epochRefresher); ok {
			refresher.Close()
		}

		app.isStarted.Store(false)
		app.logger.Debug("AccountControlApp successfully stopped")
	})

	return stopErr
}
