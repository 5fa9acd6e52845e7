package watchdog

import (
	"context"
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

// Escalator raises an emergency pause on a reserve once enough distinct
// watchdogs report it within the report window. Only governance clears it.
type Escalator struct {
	cfg        *config.WatchdogConfig
	store      *store.WatchdogStore
	ledger     ReserveLedger
	authorizer types.Authorizer
	clock      types.Clock
	metrics    *metrics.AccountControlMetrics
	logger     *zap.Logger

	locks *keylock.Locker
}

func NewEscalator(
	cfg *config.WatchdogConfig,
	ws *store.WatchdogStore,
	ledger ReserveLedger,
	authorizer types.Authorizer,
	clock types.Clock,
	m *metrics.AccountControlMetrics,
	logger *zap.Logger,
) *Escalator {
	return &Escalator{
		cfg:        cfg,
		store:      ws,
		ledger:     ledger,
		authorizer: authorizer,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(zap.String("module", ModuleName), zap.String("component", "escalator")),
		locks:      keylock.New(),
	}
}

// ReportCritical records a critical report against reserve and reports
// whether it triggered the emergency pause.
func (e *Escalator) ReportCritical(ctx context.Context, watchdog, reserve, reason string) (bool, error) {
	if err := authorize(e.authorizer, watchdog, types.CapWatchdog); err != nil {
		return false, err
	}
	if strings.TrimSpace(reason) == "" {
		return false, ErrEmptyReason
	}
	if _, err := e.ledger.GetReserve(reserve); err != nil {
		return false, err
	}

	unlock := e.locks.Lock(reserve)
	defer unlock()

	now := e.clock()
	reports, err := e.store.GetReports(reserve)
	if err != nil {
		return false, err
	}
	reports = e.live(reports, now)

	for _, r := range reports {
		if r.Reporter == watchdog {
			return false, errorsmod.Wrapf(ErrAlreadyReported, "%s reported %s at %s", watchdog, reserve, r.At.UTC())
		}
	}
	reports = append(reports, types.CriticalReport{
		Reserve:  reserve,
		Reporter: watchdog,
		Reason:   reason,
		At:       now,
	})
	e.metrics.RecordCriticalReport(reserve)

	if len(reports) < int(e.cfg.EscalationThreshold) {
		if err := e.store.SaveReports(reserve, reports); err != nil {
			return false, err
		}
		e.logger.Info("critical report recorded",
			log.Reserve(reserve),
			zap.String("reporter", watchdog),
			zap.Int("reports", len(reports)),
			zap.Uint32("threshold", e.cfg.EscalationThreshold),
		)
		return false, nil
	}

	if err := e.ledger.SetEmergencyPause(ctx, reserve, true); err != nil {
		return false, err
	}

	record := &types.EscalationRecord{
		Reserve: reserve,
		Action:  types.EscalationPaused,
		At:      now,
	}
	for _, r := range reports {
		record.Actors = append(record.Actors, r.Reporter)
		record.Reasons = append(record.Reasons, r.Reason)
	}
	if err := e.store.AddEscalation(record); err != nil {
		return true, err
	}

	e.metrics.RecordEmergencyPause(types.EscalationPaused.String())
	e.logger.Warn("reserve emergency paused",
		log.Reserve(reserve),
		zap.Strings("reporters", record.Actors),
	)

	return true, nil
}

// live drops the reports that fell out of the report window.
func (e *Escalator) live(reports []types.CriticalReport, now time.Time) []types.CriticalReport {
	cutoff := now.Add(-e.cfg.ReportWindow).Unix()

	kept := reports[:0]
	for _, r := range reports {
		if r.At.Unix() >= cutoff {
			kept = append(kept, r)
		}
	}
	return kept
}

// ClearEmergencyPause lifts the pause and discards outstanding reports. The
// reserve returns to its stored status.
func (e *Escalator) ClearEmergencyPause(ctx context.Context, governance, reserve string) error {
	if err := authorize(e.authorizer, governance, types.CapGovernance); err != nil {
		return err
	}

	unlock := e.locks.Lock(reserve)
	defer unlock()

	r, err := e.ledger.GetReserve(reserve)
	if err != nil {
		return err
	}
	if !r.EmergencyPaused {
		return errorsmod.Wrap(ErrNotEmergencyPaused, reserve)
	}

	if err := e.ledger.SetEmergencyPause(ctx, reserve, false); err != nil {
		return err
	}

	if err := e.store.AddEscalation(&types.EscalationRecord{
		Reserve: reserve,
		Action:  types.EscalationCleared,
		Actors:  []string{governance},
		At:      e.clock(),
	}); err != nil {
		return err
	}

	e.metrics.RecordEmergencyPause(types.EscalationCleared.String())
	e.logger.Info("emergency pause cleared",
		log.Reserve(reserve),
		zap.String("governance", governance),
		zap.Stringer("status", r.Status),
	)

	return nil
}

func (e *Escalator) Reports(reserve string) ([]types.CriticalReport, error) {
	reports, err := e.store.GetReports(reserve)
	if err != nil {
		return nil, err
	}
	return e.live(reports, e.clock()), nil
}

func (e *Escalator) Escalations(reserve string) ([]*types.EscalationRecord, error) {
	return e.store.ListEscalations(reserve)
}
