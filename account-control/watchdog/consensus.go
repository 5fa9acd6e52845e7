package watchdog

import (
	"context"
	"errors"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/lib/keylock"
	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/types"
)

// Consensus lets a quorum of watchdogs change the status of a reserve.
type Consensus struct {
	cfg        *config.WatchdogConfig
	store      *store.WatchdogStore
	ledger     ReserveLedger
	authorizer types.Authorizer
	clock      types.Clock
	metrics    *metrics.AccountControlMetrics
	logger     *zap.Logger

	locks *keylock.Locker
}

func NewConsensus(
	cfg *config.WatchdogConfig,
	ws *store.WatchdogStore,
	ledger ReserveLedger,
	authorizer types.Authorizer,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) *Consensus {
	return &Consensus{
		cfg:        cfg,
		store:      ws,
		ledger:     ledger,
		authorizer: authorizer,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(zap.String("module", ModuleName)),
		locks:      keylock.New(),
	}
}

func authorize(authorizer types.Authorizer, actor string, capability types.Capability) error {
	if !authorizer.Check(actor, capability) {
		return errorsmod.Wrapf(ErrUnauthorized, "%s does not hold %s", actor, capability)
	}
	return nil
}

func (c *Consensus) quorum() int {
	return int(c.cfg.Quorum)
}

// Propose opens a proposal to move reserve to newStatus. The proposer's vote
// is counted.
func (c *Consensus) Propose(
	_ context.Context,
	watchdog, reserve string,
	newStatus types.ReserveStatus,
	reason string,
) (types.ProposalID, error) {
	if err := authorize(c.authorizer, watchdog, types.CapWatchdog); err != nil {
		return 0, err
	}
	if strings.TrimSpace(reason) == "" {
		return 0, ErrEmptyReason
	}
	if err := c.ledger.CheckStatusTransition(reserve, newStatus); err != nil {
		return 0, err
	}

	now := c.clock()
	p, err := c.store.CreateProposal(func(id types.ProposalID) (*types.Proposal, error) {
		return &types.Proposal{
			ID: id,
			Action: types.ProposalAction{
				Reserve:   reserve,
				NewStatus: newStatus,
				Reason:    reason,
			},
			Proposer:  watchdog,
			CreatedAt: now,
			Deadline:  now.Add(c.cfg.VotingPeriod),
			Voters:    []string{watchdog},
		}, nil
	})
	if err != nil {
		return 0, err
	}

	c.metrics.RecordProposalEvent("proposed")
	c.logger.Info("status change proposed",
		zap.Uint64("proposal", uint64(p.ID)),
		log.Reserve(reserve),
		zap.Stringer("status", newStatus),
		zap.String("proposer", watchdog),
		zap.String("reason", reason),
	)

	return p.ID, nil
}

func (c *Consensus) Vote(_ context.Context, watchdog string, id types.ProposalID) error {
	if err := authorize(c.authorizer, watchdog, types.CapWatchdog); err != nil {
		return err
	}

	unlock, err := c.lockProposal(id)
	if err != nil {
		return err
	}
	defer unlock()

	now := c.clock()
	p, err := c.store.UpdateProposal(id, func(p *types.Proposal) error {
		switch {
		case p.Executed:
			return errorsmod.Wrapf(ErrProposalAlreadyExecuted, "proposal %d", id)
		case p.VotingClosed(now):
			return errorsmod.Wrapf(ErrVotingEnded, "voting closed at %s", p.Deadline.UTC())
		case p.HasVoted(watchdog):
			return errorsmod.Wrapf(ErrAlreadyVoted, "%s on proposal %d", watchdog, id)
		}

		p.Voters = append(p.Voters, watchdog)
		return nil
	})
	if err != nil {
		return c.mapStoreErr(id, err)
	}

	c.metrics.RecordProposalEvent("voted")
	c.logger.Debug("vote recorded",
		zap.Uint64("proposal", uint64(id)),
		zap.String("voter", watchdog),
		zap.Int("votes", len(p.Voters)),
	)

	return nil
}

// Execute applies an approved proposal. A proposal takes effect at most once:
// it is marked executed before the status change and unmarked if that fails.
func (c *Consensus) Execute(ctx context.Context, actor string, id types.ProposalID) error {
	if err := authorize(c.authorizer, actor, types.CapWatchdog); err != nil {
		return err
	}

	unlock, err := c.lockProposal(id)
	if err != nil {
		return err
	}
	defer unlock()

	now := c.clock()
	p, err := c.store.UpdateProposal(id, func(p *types.Proposal) error {
		if err := c.checkExecutable(p, now); err != nil {
			return err
		}
		p.Executed = true
		p.ExecutedAt = now
		return nil
	})
	if err != nil {
		return c.mapStoreErr(id, err)
	}

	if err := c.ledger.SetStatus(ctx, p.Action.Reserve, p.Action.NewStatus); err != nil {
		c.metrics.RecordProposalEvent("execution_failed")
		if _, rbErr := c.store.UpdateProposal(id, func(p *types.Proposal) error {
			p.Executed = false
			p.ExecutedAt = time.Time{}
			return nil
		}); rbErr != nil {
			c.logger.Error("failed to clear execution mark",
				zap.Uint64("proposal", uint64(id)),
				zap.Error(rbErr),
			)
		}
		return err
	}

	c.metrics.RecordProposalEvent("executed")
	c.logger.Info("proposal executed",
		zap.Uint64("proposal", uint64(id)),
		log.Reserve(p.Action.Reserve),
		zap.Stringer("status", p.Action.NewStatus),
		zap.String("executor", actor),
	)

	return nil
}

func (c *Consensus) checkExecutable(p *types.Proposal, now time.Time) error {
	if p.Executed {
		return errorsmod.Wrapf(ErrProposalAlreadyExecuted, "proposal %d executed at %s", p.ID, p.ExecutedAt.UTC())
	}
	if len(p.Voters) < c.quorum() {
		return errorsmod.Wrapf(ErrProposalNotApproved, "%d of %d votes", len(p.Voters), c.quorum())
	}

	closed := p.VotingClosed(now)
	switch c.cfg.ExecutionPolicy {
	case config.ExecutionPolicyAfter:
		if !closed {
			return errorsmod.Wrapf(ErrVotingNotEnded, "voting closes at %s", p.Deadline.UTC())
		}
	default:
		if closed {
			return errorsmod.Wrapf(ErrExecutionWindowClosed, "voting closed at %s", p.Deadline.UTC())
		}
	}

	return nil
}

// lockProposal takes the lock of the reserve the proposal targets.
func (c *Consensus) lockProposal(id types.ProposalID) (func(), error) {
	p, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return c.locks.Lock(p.Action.Reserve), nil
}

func (c *Consensus) Get(id types.ProposalID) (*types.Proposal, error) {
	p, err := c.store.GetProposal(id)
	if err != nil {
		return nil, c.mapStoreErr(id, err)
	}
	return p, nil
}

func (c *Consensus) State(id types.ProposalID) (types.ProposalState, error) {
	p, err := c.Get(id)
	if err != nil {
		return 0, err
	}
	return p.State(c.clock(), c.quorum()), nil
}

func (c *Consensus) mapStoreErr(id types.ProposalID, err error) error {
	if errors.Is(err, store.ErrProposalNotFound) {
		return errorsmod.Wrapf(ErrProposalNotFound, "proposal %d", id)
	}
	return err
}
