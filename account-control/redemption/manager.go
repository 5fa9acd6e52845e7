package redemption

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/bitcoin"
	"github.com/babylonlabs-io/account-control/bitcoin/addrcodec"
	"github.com/babylonlabs-io/account-control/lib/keylock"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/spv"
	"github.com/babylonlabs-io/account-control/types"
)

// Manager drives redemptions from the token burn to a proven payment or a
// default. Operations on redemptions of one reserve run one at a time.
type Manager struct {
	cfg        *config.RedemptionConfig
	store      *store.RedemptionStore
	ledger     ReserveLedger
	verifier   ProofVerifier
	codec      *addrcodec.Codec
	authorizer types.Authorizer
	clock      types.Clock
	metrics    *metrics.AccountControlMetrics
	logger     *zap.Logger

	locks *keylock.Locker
}

func NewManager(
	cfg *config.RedemptionConfig,
	rs *store.RedemptionStore,
	ledger ReserveLedger,
	verifier ProofVerifier,
	codec *addrcodec.Codec,
	authorizer types.Authorizer,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      rs,
		ledger:     ledger,
		verifier:   verifier,
		codec:      codec,
		authorizer: authorizer,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(zap.String("module", ModuleName)),
		locks:      keylock.New(),
	}
}

func (m *Manager) authorize(actor string, capability types.Capability) error {
	if !m.authorizer.Check(actor, capability) {
		return errorsmod.Wrapf(ErrUnauthorized, "%s does not hold %s", actor, capability)
	}
	return nil
}

// redemptionID hashes the store counter, the creation time, the reserve and
// the user.
func redemptionID(seq uint64, now time.Time, reserve, user string) types.RedemptionID {
	buf := make([]byte, 0, 16+len(reserve)+len(user))
	buf = binary.BigEndian.AppendUint64(buf, seq)
	buf = binary.BigEndian.AppendUint64(buf, uint64(now.UnixNano()))
	buf = append(buf, reserve...)
	buf = append(buf, user...)

	return sha256.Sum256(buf)
}

// Initiate burns amount tokens of user and opens a redemption the reserve
// must pay to destination from sourceWallet before the deadline.
func (m *Manager) Initiate(
	ctx context.Context,
	user, reserve string,
	amount uint64,
	destination, sourceWallet string,
) (*types.Redemption, error) {
	if amount < m.cfg.MinRedemptionSats {
		return nil, errorsmod.Wrapf(ErrRedemptionBelowMinimum, "%d < %d", amount, m.cfg.MinRedemptionSats)
	}
	if _, err := m.codec.Decode(destination); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidAddressFormat, err.Error())
	}

	unlock := m.locks.Lock(reserve)
	defer unlock()

	now := m.clock()
	var redemption *types.Redemption
	err := m.ledger.WithReserveLocked(reserve, func(r *types.Reserve) error {
		if !r.IsOperational() {
			return errorsmod.Wrapf(ErrReserveNotOperational, "reserve %s is %s", reserve, r.EffectiveStatus())
		}
		if !m.ledger.IsWalletRegistered(reserve, sourceWallet) {
			return errorsmod.Wrap(ErrWalletNotRegistered, sourceWallet)
		}

		var err error
		redemption, err = m.store.CreateRedemption(func(seq uint64) (*types.Redemption, error) {
			return &types.Redemption{
				ID:                 redemptionID(seq, now, reserve, user),
				Reserve:            reserve,
				User:               user,
				Amount:             amount,
				DestinationAddress: destination,
				SourceWallet:       sourceWallet,
				CreatedAt:          now,
				Deadline:           now.Add(m.cfg.Timeout),
				Status:             types.RedemptionStatusPending,
			}, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := m.ledger.Redeem(ctx, reserve, user, amount); err != nil {
		if delErr := m.store.DeleteRedemption(redemption.ID); delErr != nil {
			m.logger.Error("failed to remove redemption after a failed burn",
				zap.Stringer("redemption", redemption.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	m.metrics.RecordRedemptionEvent("initiated")
	m.logger.Info("redemption initiated",
		zap.Stringer("redemption", redemption.ID),
		log.Reserve(reserve),
		zap.String("user", user),
		log.Sats("amount", amount),
		zap.Time("deadline", redemption.Deadline),
	)

	return redemption, nil
}

// Fulfill settles a redemption with an SPV proven payment. Without the
// permissionless policy only relayers may submit proofs.
func (m *Manager) Fulfill(
	ctx context.Context,
	relayer string,
	id types.RedemptionID,
	satoshiAmount uint64,
	tx bitcoin.TxInfo,
	proof spv.Proof,
) (*types.Redemption, error) {
	if !m.cfg.PermissionlessFulfillment {
		if err := m.authorize(relayer, types.CapRelayer); err != nil {
			return nil, err
		}
	}

	current, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if current.Status != types.RedemptionStatusPending {
		return nil, errorsmod.Wrapf(ErrRedemptionNotPending, "redemption is %s", current.Status)
	}

	unlock := m.locks.Lock(current.Reserve)
	defer unlock()

	txHash, err := m.verifier.Verify(ctx, tx, proof)
	if err != nil {
		m.metrics.RecordRedemptionEvent("proof_rejected")
		return nil, errorsmod.Wrap(err, "payment proof rejected")
	}

	usedBy, used, err := m.store.PaymentRedemption(txHash)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, errorsmod.Wrapf(ErrPaymentAlreadyUsed, "%s fulfilled %s", txHash, usedBy)
	}

	decoded, err := m.codec.Decode(current.DestinationAddress)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidAddressFormat, err.Error())
	}
	paid, err := bitcoin.SumPaidTo(tx.OutputVector, decoded.Type, decoded.Hash)
	if err != nil {
		return nil, errorsmod.Wrap(spv.ErrBadOutputVector, err.Error())
	}

	return m.resolveFulfilled(id, satoshiAmount, paid, &txHash)
}

// FulfillTrusted settles a redemption on the word of a trusted fulfiller. It
// is only available when enabled in the configuration.
func (m *Manager) FulfillTrusted(
	_ context.Context,
	actor string,
	id types.RedemptionID,
	satoshiAmount uint64,
) (*types.Redemption, error) {
	if !m.cfg.AllowTrustedFulfillment {
		return nil, ErrTrustedFulfillmentDisabled
	}
	if err := m.authorize(actor, types.CapTrustedFulfiller); err != nil {
		return nil, err
	}

	current, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(current.Reserve)
	defer unlock()

	return m.resolveFulfilled(id, satoshiAmount, satoshiAmount, nil)
}

func (m *Manager) resolveFulfilled(
	id types.RedemptionID,
	satoshiAmount, paid uint64,
	txHash *chainhash.Hash,
) (*types.Redemption, error) {
	now := m.clock()
	r, err := m.store.UpdateRedemption(id, func(r *types.Redemption) error {
		if r.Status != types.RedemptionStatusPending {
			return errorsmod.Wrapf(ErrRedemptionNotPending, "redemption is %s", r.Status)
		}
		if err := checkPayment(r.Amount, satoshiAmount, paid); err != nil {
			return err
		}

		r.Status = types.RedemptionStatusFulfilled
		r.FulfillmentTxHash = txHash
		r.PaidAmount = paid
		r.TrustedFulfillment = txHash == nil
		r.ResolvedAt = now

		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrPaymentAlreadyUsed) {
			return nil, errorsmod.Wrap(ErrPaymentAlreadyUsed, txHash.String())
		}
		return nil, m.mapStoreErr(id, err)
	}

	m.metrics.RecordRedemptionEvent("fulfilled")
	m.logger.Info("redemption fulfilled",
		zap.Stringer("redemption", id),
		log.Reserve(r.Reserve),
		log.Sats("paid", paid),
		zap.Bool("trusted", r.TrustedFulfillment),
	)

	return r, nil
}

// checkPayment accepts overpayment. The claimed amount must lie between the
// requested and the paid amount.
func checkPayment(requested, claimed, paid uint64) error {
	if paid < bitcoin.DustThreshold {
		return errorsmod.Wrapf(ErrPaymentBelowDust, "paid %d < %d", paid, bitcoin.DustThreshold)
	}
	if paid < requested {
		return errorsmod.Wrapf(ErrInsufficientPayment, "paid %d, requested %d", paid, requested)
	}
	if claimed < requested || claimed > paid {
		return errorsmod.Wrapf(ErrAmountMismatch, "claimed %d, requested %d, paid %d", claimed, requested, paid)
	}
	return nil
}

// Default marks a redemption the reserve failed to pay in time. It can only
// happen after the deadline and cannot be undone.
func (m *Manager) Default(
	_ context.Context,
	arbiter string,
	id types.RedemptionID,
	reason string,
) (*types.Redemption, error) {
	if err := m.authorize(arbiter, types.CapDisputeArbiter); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrEmptyReason
	}

	current, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(current.Reserve)
	defer unlock()

	now := m.clock()
	r, err := m.store.UpdateRedemption(id, func(r *types.Redemption) error {
		if r.Status != types.RedemptionStatusPending {
			return errorsmod.Wrapf(ErrRedemptionNotPending, "redemption is %s", r.Status)
		}
		if !r.IsTimedOut(now) {
			return errorsmod.Wrapf(ErrDeadlineNotReached, "deadline is %s", r.Deadline.UTC())
		}

		r.Status = types.RedemptionStatusDefaulted
		r.DefaultReason = reason
		r.ResolvedAt = now

		return nil
	})
	if err != nil {
		return nil, m.mapStoreErr(id, err)
	}

	m.metrics.RecordRedemptionEvent("defaulted")
	m.logger.Warn("redemption defaulted",
		zap.Stringer("redemption", id),
		log.Reserve(r.Reserve),
		zap.String("arbiter", arbiter),
		zap.String("reason", reason),
	)

	return r, nil
}

func (m *Manager) mapStoreErr(id types.RedemptionID, err error) error {
	if errors.Is(err, store.ErrRedemptionNotFound) {
		return errorsmod.Wrap(ErrRedemptionNotFound, id.String())
	}
	return err
}

func (m *Manager) Get(id types.RedemptionID) (*types.Redemption, error) {
	r, err := m.store.GetRedemption(id)
	if err != nil {
		return nil, m.mapStoreErr(id, err)
	}
	return r, nil
}

// Active returns the reserve's pending redemptions.
func (m *Manager) Active(reserve string) ([]*types.Redemption, error) {
	return m.store.ListActive(reserve)
}

func (m *Manager) HasUnfulfilledForWallet(reserve, wallet string) (bool, error) {
	active, err := m.store.ListActive(reserve)
	if err != nil {
		return false, err
	}
	for _, r := range active {
		if r.SourceWallet == wallet {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) IsTimedOut(id types.RedemptionID) (bool, error) {
	r, err := m.Get(id)
	if err != nil {
		return false, err
	}
	return r.Status == types.RedemptionStatusPending && r.IsTimedOut(m.clock()), nil
}

// Overdue returns every pending redemption past its deadline.
func (m *Manager) Overdue() ([]*types.Redemption, error) {
	active, err := m.store.ListAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list active redemptions: %w", err)
	}

	now := m.clock()
	var overdue []*types.Redemption
	for _, r := range active {
		if r.IsTimedOut(now) {
			overdue = append(overdue, r)
		}
	}
	m.metrics.RecordOverdueRedemptions(len(overdue))

	return overdue, nil
}
