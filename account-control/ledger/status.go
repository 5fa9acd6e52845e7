package ledger

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/log"
	"github.com/babylonlabs-io/account-control/types"
)

// SetStatus moves a reserve to another stored status. It is applied by
// executed watchdog proposals.
func (l *Ledger) SetStatus(_ context.Context, reserve string, status types.ReserveStatus) error {
	unlock := l.locks.Lock(reserve)
	defer unlock()

	return l.setStatus(reserve, status, nil)
}

// SelfPause lets a reserve holder stop its own minting.
func (l *Ledger) SelfPause(_ context.Context, actor, reserve string) error {
	if actor != reserve {
		return errorsmod.Wrapf(ErrUnauthorized, "only %s can pause itself", reserve)
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	return l.setStatus(reserve, types.ReserveStatusSelfPaused, nil)
}

// Resume reactivates a reserve that paused itself. A reserve under review
// can only be reactivated through a watchdog proposal.
func (l *Ledger) Resume(_ context.Context, actor, reserve string) error {
	if actor != reserve {
		return errorsmod.Wrapf(ErrUnauthorized, "only %s can resume itself", reserve)
	}

	unlock := l.locks.Lock(reserve)
	defer unlock()

	return l.setStatus(reserve, types.ReserveStatusActive, func(r *types.Reserve) error {
		if r.Status != types.ReserveStatusSelfPaused {
			return errorsmod.Wrapf(ErrInvalidStatusTransition, "reserve is %s, not self paused", r.Status)
		}
		return nil
	})
}

// CheckStatusTransition reports whether the reserve could currently move to
// status.
func (l *Ledger) CheckStatusTransition(reserve string, status types.ReserveStatus) error {
	r, err := l.GetReserve(reserve)
	if err != nil {
		return err
	}
	return checkTransition(r, status)
}

func checkTransition(r *types.Reserve, status types.ReserveStatus) error {
	if !types.ValidStatusTransition(r.Status, status) {
		return errorsmod.Wrapf(ErrInvalidStatusTransition, "%s to %s", r.Status, status)
	}
	return nil
}

func (l *Ledger) setStatus(reserve string, status types.ReserveStatus, precondition func(r *types.Reserve) error) error {
	var from types.ReserveStatus
	_, err := l.update(reserve, func(r *types.Reserve) error {
		if precondition != nil {
			if err := precondition(r); err != nil {
				return err
			}
		}
		if err := checkTransition(r, status); err != nil {
			return err
		}
		from = r.Status
		r.Status = status
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("reserve status changed",
		log.Reserve(reserve),
		zap.Stringer("from", from),
		zap.Stringer("to", status),
	)

	return nil
}

// SetEmergencyPause raises or clears the emergency pause. The stored status
// is left as is, so clearing restores whatever the reserve was before.
func (l *Ledger) SetEmergencyPause(_ context.Context, reserve string, paused bool) error {
	unlock := l.locks.Lock(reserve)
	defer unlock()

	now := l.clock()
	_, err := l.update(reserve, func(r *types.Reserve) error {
		r.EmergencyPaused = paused
		if paused {
			r.PausedAt = now
		} else {
			r.PausedAt = time.Time{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Warn("emergency pause updated",
		log.Reserve(reserve),
		zap.Bool("paused", paused),
	)

	return nil
}
