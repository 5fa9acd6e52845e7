package oracle

import (
	"context"
	"errors"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/lib/keylock"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/types"
)

// Oracle runs attestation rounds per reserve. A round finalizes once at least
// the threshold of attesters submitted and a strict majority of the threshold
// agrees on one amount.
type Oracle struct {
	cfg        *config.OracleConfig
	store      *store.AttestationStore
	syncer     BackingSyncer
	authorizer types.Authorizer
	clock      types.Clock
	metrics    *metrics.AccountControlMetrics
	logger     *zap.Logger

	locks *keylock.Locker
}

func NewOracle(
	cfg *config.OracleConfig,
	as *store.AttestationStore,
	syncer BackingSyncer,
	authorizer types.Authorizer,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) *Oracle {
	return &Oracle{
		cfg:        cfg,
		store:      as,
		syncer:     syncer,
		authorizer: authorizer,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(zap.String("module", ModuleName)),
		locks:      keylock.New(),
	}
}

func (o *Oracle) threshold() int {
	return int(o.cfg.AttestationThreshold)
}

func (o *Oracle) quorum() int {
	return o.threshold()/2 + 1
}

func (o *Oracle) authorize(actor string, capability types.Capability) error {
	if !o.authorizer.Check(actor, capability) {
		return errorsmod.Wrapf(ErrUnauthorized, "%s does not hold %s", actor, capability)
	}
	return nil
}

// SubmitAttestation records the attester's claimed balance of the reserve in
// the reserve's open round, opening one if needed.
func (o *Oracle) SubmitAttestation(
	ctx context.Context,
	attester, reserve string,
	amount uint64,
	proofHash chainhash.Hash,
) (round *types.AttestationRound, err error) {
	defer func() {
		o.metrics.RecordAttestation(err)
	}()

	if err := o.authorize(attester, types.CapAttester); err != nil {
		return nil, err
	}

	return o.submit(ctx, attester, reserve, amount, proofHash)
}

func (o *Oracle) submit(
	ctx context.Context,
	attester, reserve string,
	amount uint64,
	proofHash chainhash.Hash,
) (*types.AttestationRound, error) {
	if _, err := o.syncer.GetReserve(reserve); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(reserve)
	defer unlock()

	now := o.clock()
	round, err := o.openRound(reserve, now)
	if err != nil {
		return nil, err
	}

	if now.Unix() > round.Deadline.Unix() {
		round.State = types.RoundStateExpired
		if err := o.store.SaveRound(round); err != nil {
			return nil, err
		}
		o.metrics.RecordRoundClosed(round.State.String())
		o.logger.Info("attestation round expired",
			log.Reserve(reserve),
			zap.Uint64("round", round.ID),
			zap.Int("submissions", len(round.Submissions)),
		)

		return nil, errorsmod.Wrapf(ErrAttestationRoundExpired,
			"round %d of %s closed at %s", round.ID, reserve, round.Deadline.UTC())
	}

	if round.HasAttester(attester) {
		return nil, errorsmod.Wrapf(ErrDuplicateAttestation, "%s in round %d", attester, round.ID)
	}

	round.Submissions = append(round.Submissions, types.Submission{
		Attester:  attester,
		Amount:    amount,
		ProofHash: proofHash,
		At:        now,
	})

	if len(round.Submissions) < o.threshold() {
		if err := o.store.SaveRound(round); err != nil {
			return nil, err
		}
		return round, nil
	}

	value, count := round.Tally()
	if count < o.quorum() {
		o.logger.Debug("attestation round has no majority yet",
			log.Reserve(reserve),
			zap.Uint64("round", round.ID),
			zap.Int("submissions", len(round.Submissions)),
			zap.Int("agreeing", count),
		)
		if err := o.store.SaveRound(round); err != nil {
			return nil, err
		}
		return round, nil
	}

	if err := o.finalize(ctx, round, value, now); err != nil {
		return round, err
	}

	return round, nil
}

// openRound returns the reserve's pending round or a fresh one following the
// last closed round.
func (o *Oracle) openRound(reserve string, now time.Time) (*types.AttestationRound, error) {
	latest, err := o.store.LatestRound(reserve)
	switch {
	case err == nil && latest.State == types.RoundStatePending:
		return latest, nil
	case err == nil:
		return o.newRound(reserve, latest.ID+1, now), nil
	case errors.Is(err, store.ErrRoundNotFound):
		return o.newRound(reserve, 1, now), nil
	default:
		return nil, err
	}
}

func (o *Oracle) newRound(reserve string, id uint64, now time.Time) *types.AttestationRound {
	return &types.AttestationRound{
		Reserve:  reserve,
		ID:       id,
		OpenedAt: now,
		Deadline: now.Add(o.cfg.AttestationTimeout),
		State:    types.RoundStatePending,
	}
}

func (o *Oracle) finalize(ctx context.Context, round *types.AttestationRound, value uint64, now time.Time) error {
	round.State = types.RoundStateFinalized
	round.FinalizedAmount = value

	finalized := &types.FinalizedAttestation{
		Reserve:     round.Reserve,
		RoundID:     round.ID,
		Amount:      value,
		FinalizedAt: now,
	}
	if err := o.store.SaveFinalizedRound(round, finalized); err != nil {
		return err
	}

	o.metrics.RecordRoundClosed(round.State.String())
	o.logger.Info("attestation round finalized",
		log.Reserve(round.Reserve),
		zap.Uint64("round", round.ID),
		log.Sats("amount", value),
	)

	return o.syncBacking(ctx, round.Reserve, value)
}

func (o *Oracle) syncBacking(ctx context.Context, reserve string, value uint64) error {
	if err := o.syncer.SetBacking(ctx, reserve, value); err != nil {
		o.logger.Error("failed to apply finalized backing",
			log.Reserve(reserve),
			zap.Error(err),
		)
		return errorsmod.Wrap(ErrBackingSyncFailed, err.Error())
	}
	return nil
}

// SubmitAttestations submits one attestation per reserve. The inputs must have
// the same length. Each item succeeds or fails on its own; items past the
// batch budget or the context deadline fail with ErrBatchBudgetExhausted.
func (o *Oracle) SubmitAttestations(
	ctx context.Context,
	attester string,
	reserves []string,
	amounts []uint64,
	proofHash chainhash.Hash,
) ([]types.BatchResult, error) {
	if len(reserves) != len(amounts) {
		return nil, errorsmod.Wrapf(ErrBatchLengthMismatch, "%d reserves, %d amounts", len(reserves), len(amounts))
	}
	if err := o.authorize(attester, types.CapAttester); err != nil {
		return nil, err
	}

	results := make([]types.BatchResult, len(reserves))
	for i, reserve := range reserves {
		results[i].Key = reserve

		switch {
		case i >= int(o.cfg.MaxBatchSize):
			results[i].Err = errorsmod.Wrapf(ErrBatchBudgetExhausted, "at most %d attestations per call", o.cfg.MaxBatchSize)
		case ctx.Err() != nil:
			results[i].Err = errorsmod.Wrap(ErrBatchBudgetExhausted, ctx.Err().Error())
		default:
			_, results[i].Err = o.submit(ctx, attester, reserve, amounts[i], proofHash)
			o.metrics.RecordAttestation(results[i].Err)
		}
	}

	return results, nil
}

// OverrideAttestation replaces the reserve's finalized amount regardless of
// the attesters and pushes it to the ledger. The prior value is kept in the
// override record.
func (o *Oracle) OverrideAttestation(
	ctx context.Context,
	arbiter, reserve string,
	amount uint64,
	justification string,
) (*types.OverrideRecord, error) {
	if err := o.authorize(arbiter, types.CapDisputeArbiter); err != nil {
		return nil, err
	}
	if strings.TrimSpace(justification) == "" {
		return nil, ErrEmptyJustification
	}
	if _, err := o.syncer.GetReserve(reserve); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(reserve)
	defer unlock()

	now := o.clock()
	record := &types.OverrideRecord{
		Reserve:       reserve,
		Arbiter:       arbiter,
		NewAmount:     amount,
		Justification: justification,
		At:            now,
	}
	finalized := &types.FinalizedAttestation{
		Reserve:     reserve,
		Amount:      amount,
		FinalizedAt: now,
		Overridden:  true,
	}

	prior, err := o.store.GetFinalized(reserve)
	switch {
	case err == nil:
		record.HadPrior = true
		record.PriorAmount = prior.Amount
		finalized.RoundID = prior.RoundID
	case !errors.Is(err, store.ErrFinalizedNotFound):
		return nil, err
	}

	if err := o.store.SaveOverride(record, finalized); err != nil {
		return nil, err
	}

	o.metrics.RecordOverride(reserve)
	o.logger.Warn("attestation overridden",
		log.Reserve(reserve),
		zap.String("arbiter", arbiter),
		zap.Bool("had_prior", record.HadPrior),
		zap.Uint64("prior", record.PriorAmount),
		log.Sats("amount", amount),
		zap.String("justification", justification),
	)

	if err := o.syncBacking(ctx, reserve, amount); err != nil {
		return record, err
	}

	return record, nil
}

func (o *Oracle) LastFinalized(reserve string) (*types.FinalizedAttestation, error) {
	finalized, err := o.store.GetFinalized(reserve)
	if errors.Is(err, store.ErrFinalizedNotFound) {
		return nil, errorsmod.Wrap(ErrNoFinalizedAttestation, reserve)
	}
	return finalized, err
}

// LastFinalizedBacking returns the last finalized amount of the reserve and
// whether there is one.
func (o *Oracle) LastFinalizedBacking(reserve string) (uint64, bool, error) {
	finalized, err := o.store.GetFinalized(reserve)
	if errors.Is(err, store.ErrFinalizedNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return finalized.Amount, true, nil
}

// CurrentRound returns the reserve's latest round, pending or closed.
func (o *Oracle) CurrentRound(reserve string) (*types.AttestationRound, error) {
	return o.store.LatestRound(reserve)
}

func (o *Oracle) Overrides(reserve string) ([]*types.OverrideRecord, error) {
	return o.store.ListOverrides(reserve)
}
