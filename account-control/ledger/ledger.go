package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/bitcoin/addrcodec"
	"github.com/babylonlabs-io/account-control/lib/keylock"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/types"
)

// Ledger keeps the backing and minted accounting of every reserve. Operations
// on one reserve run one at a time in arrival order.
type Ledger struct {
	cfg        *config.LedgerConfig
	store      *store.ReserveStore
	token      types.TokenLedger
	authorizer types.Authorizer
	codec      *addrcodec.Codec
	clock      types.Clock
	metrics    *metrics.AccountControlMetrics
	logger     *zap.Logger

	locks *keylock.Locker

	// Protects source and tracker, which are wired after construction
	mu      sync.RWMutex
	source  BackingSource
	tracker RedemptionTracker
}

func NewLedger(
	cfg *config.LedgerConfig,
	rs *store.ReserveStore,
	token types.TokenLedger,
	authorizer types.Authorizer,
	codec *addrcodec.Codec,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		cfg:        cfg,
		store:      rs,
		token:      token,
		authorizer: authorizer,
		codec:      codec,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(zap.String("module", ModuleName)),
		locks:      keylock.New(),
	}
}

func (l *Ledger) SetBackingSource(source BackingSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.source = source
}

func (l *Ledger) SetRedemptionTracker(tracker RedemptionTracker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracker = tracker
}

func (l *Ledger) backingSource() BackingSource {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.source
}

func (l *Ledger) redemptionTracker() RedemptionTracker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tracker
}

func (l *Ledger) authorize(actor string, capability types.Capability) error {
	if !l.authorizer.Check(actor, capability) {
		return errorsmod.Wrapf(ErrUnauthorized, "%s does not hold %s", actor, capability)
	}
	return nil
}

// RegisterReserve creates an active reserve allowed to mint up to mintingCap.
func (l *Ledger) RegisterReserve(_ context.Context, actor, reserve string, mintingCap uint64) (*types.Reserve, error) {
	if err := l.authorize(actor, types.CapReserveAdmin); err != nil {
		return nil, err
	}
	if reserve == "" {
		return nil, fmt.Errorf("reserve id cannot be empty")
	}
	if mintingCap == 0 {
		return nil, errorsmod.Wrap(ErrInvalidAmount, "minting cap")
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	r := &types.Reserve{
		ID:           reserve,
		MintingCap:   mintingCap,
		Status:       types.ReserveStatusActive,
		RegisteredAt: l.clock(),
	}
	if err := l.store.CreateReserve(r); err != nil {
		if errors.Is(err, store.ErrDuplicateReserve) {
			return nil, errorsmod.Wrap(ErrReserveExists, reserve)
		}
		return nil, err
	}

	l.logger.Info("registered reserve",
		log.Reserve(reserve),
		log.Sats("minting_cap", mintingCap),
	)
	l.metrics.RecordReserve(reserve, 0, 0)

	return r, nil
}

// SetMintingCap changes the cap of a reserve. The cap cannot drop below what
// is already minted.
func (l *Ledger) SetMintingCap(actor, reserve string, mintingCap uint64) (*types.Reserve, error) {
	if err := l.authorize(actor, types.CapReserveAdmin); err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	return l.update(reserve, func(r *types.Reserve) error {
		if r.Status == types.ReserveStatusRevoked {
			return errorsmod.Wrap(ErrReserveNotActive, "reserve is revoked")
		}
		if mintingCap < r.MintedAmount {
			return errorsmod.Wrapf(ErrMintingCapExceeded,
				"cap %d is below minted amount %d", mintingCap, r.MintedAmount)
		}
		r.MintingCap = mintingCap
		return nil
	})
}

func (l *Ledger) GetReserve(reserve string) (*types.Reserve, error) {
	r, err := l.store.GetReserve(reserve)
	if err != nil {
		return nil, l.mapStoreErr(reserve, err)
	}
	return r, nil
}

func (l *Ledger) ListReserves() ([]*types.Reserve, error) {
	return l.store.ListReserves()
}

func (l *Ledger) TotalMinted() (uint64, error) {
	return l.store.TotalMinted()
}

// update applies fn to the stored reserve in one transaction. Callers hold
// the reserve lock.
func (l *Ledger) update(reserve string, fn func(r *types.Reserve) error) (*types.Reserve, error) {
	r, err := l.store.UpdateReserve(reserve, fn)
	if err != nil {
		return nil, l.mapStoreErr(reserve, err)
	}

	l.metrics.RecordReserve(r.ID, r.Backing, r.MintedAmount)

	return r, nil
}

func (l *Ledger) mapStoreErr(reserve string, err error) error {
	if errors.Is(err, store.ErrReserveNotFound) {
		return errorsmod.Wrap(ErrReserveNotFound, reserve)
	}
	return err
}

func (l *Ledger) recordTotal() {
	total, err := l.store.TotalMinted()
	if err != nil {
		l.logger.Error("failed to read total minted", zap.Error(err))
		return
	}
	l.metrics.RecordTotalMinted(total)
}
