package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AccountControlMetrics holds the collectors shared by the account control
// components. A single instance is registered with the default registry.
type AccountControlMetrics struct {
	totalMinted          prometheus.Gauge
	reserveBacking       *prometheus.GaugeVec
	reserveMinted        *prometheus.GaugeVec
	reserveUndercollat   *prometheus.GaugeVec
	mints                *prometheus.CounterVec
	redeems              *prometheus.CounterVec
	spvVerifications     *prometheus.CounterVec
	attestations         *prometheus.CounterVec
	roundsFinalized      *prometheus.CounterVec
	attestationOverrides *prometheus.CounterVec
	redemptions          *prometheus.CounterVec
	overdueRedemptions   prometheus.Gauge
	proposals            *prometheus.CounterVec
	criticalReports      *prometheus.CounterVec
	emergencyPauses      *prometheus.CounterVec
	relayEpochDifficulty *prometheus.GaugeVec
	backingSyncs         *prometheus.CounterVec
}

var (
	acMetrics     *AccountControlMetrics
	acMetricsOnce sync.Once
)

// NewAccountControlMetrics returns the process wide collectors, registering
// them on first use.
func NewAccountControlMetrics() *AccountControlMetrics {
	acMetricsOnce.Do(func() {
		acMetrics = newAccountControlMetrics()
		prometheus.MustRegister(
			acMetrics.totalMinted,
			acMetrics.reserveBacking,
			acMetrics.reserveMinted,
			acMetrics.reserveUndercollat,
			acMetrics.mints,
			acMetrics.redeems,
			acMetrics.spvVerifications,
			acMetrics.attestations,
			acMetrics.roundsFinalized,
			acMetrics.attestationOverrides,
			acMetrics.redemptions,
			acMetrics.overdueRedemptions,
			acMetrics.proposals,
			acMetrics.criticalReports,
			acMetrics.emergencyPauses,
			acMetrics.relayEpochDifficulty,
			acMetrics.backingSyncs,
		)
	})

	return acMetrics
}

func newAccountControlMetrics() *AccountControlMetrics {
	return &AccountControlMetrics{
		totalMinted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ac_total_minted_sats",
			Help: "Total token supply minted across all reserves",
		}),
		reserveBacking: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ac_reserve_backing_sats",
			Help: "Attested Bitcoin backing of a reserve",
		}, []string{"reserve"}),
		reserveMinted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ac_reserve_minted_sats",
			Help: "Tokens minted against a reserve",
		}, []string{"reserve"}),
		reserveUndercollat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ac_reserve_undercollateralized",
			Help: "1 if the reserve backing is below its minted amount",
		}, []string{"reserve"}),
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_mints_total",
			Help: "Mint requests by result",
		}, []string{"result"}),
		redeems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_redeems_total",
			Help: "Token burns for redemption by result",
		}, []string{"result"}),
		spvVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_spv_verifications_total",
			Help: "SPV proof evaluations by outcome",
		}, []string{"outcome"}),
		attestations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_attestations_total",
			Help: "Attestation submissions by result",
		}, []string{"result"}),
		roundsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_attestation_rounds_total",
			Help: "Attestation rounds closed by final state",
		}, []string{"state"}),
		attestationOverrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_attestation_overrides_total",
			Help: "Dispute overrides of finalized attestations",
		}, []string{"reserve"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_redemptions_total",
			Help: "Redemptions by lifecycle event",
		}, []string{"event"}),
		overdueRedemptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ac_redemptions_overdue",
			Help: "Pending redemptions past their deadline",
		}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_watchdog_proposals_total",
			Help: "Watchdog proposal events",
		}, []string{"event"}),
		criticalReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_critical_reports_total",
			Help: "Critical reports accepted per reserve",
		}, []string{"reserve"}),
		emergencyPauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_emergency_pauses_total",
			Help: "Emergency pause escalations by action",
		}, []string{"action"}),
		relayEpochDifficulty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ac_relay_epoch_difficulty",
			Help: "Epoch difficulty reported by the relay",
		}, []string{"epoch"}),
		backingSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ac_backing_syncs_total",
			Help: "Oracle to ledger backing sync items by result",
		}, []string{"result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *AccountControlMetrics) RecordReserve(reserve string, backing, minted uint64) {
	m.reserveBacking.WithLabelValues(reserve).Set(float64(backing))
	m.reserveMinted.WithLabelValues(reserve).Set(float64(minted))
	undercollat := 0.0
	if backing < minted {
		undercollat = 1
	}
	m.reserveUndercollat.WithLabelValues(reserve).Set(undercollat)
}

func (m *AccountControlMetrics) RecordTotalMinted(total uint64) {
	m.totalMinted.Set(float64(total))
}

func (m *AccountControlMetrics) RecordMint(err error) {
	m.mints.WithLabelValues(result(err)).Inc()
}

func (m *AccountControlMetrics) RecordRedeem(err error) {
	m.redeems.WithLabelValues(result(err)).Inc()
}

func (m *AccountControlMetrics) RecordSPVVerification(outcome string) {
	m.spvVerifications.WithLabelValues(outcome).Inc()
}

func (m *AccountControlMetrics) RecordAttestation(err error) {
	m.attestations.WithLabelValues(result(err)).Inc()
}

func (m *AccountControlMetrics) RecordRoundClosed(state string) {
	m.roundsFinalized.WithLabelValues(state).Inc()
}

func (m *AccountControlMetrics) RecordOverride(reserve string) {
	m.attestationOverrides.WithLabelValues(reserve).Inc()
}

func (m *AccountControlMetrics) RecordRedemptionEvent(event string) {
	m.redemptions.WithLabelValues(event).Inc()
}

func (m *AccountControlMetrics) RecordOverdueRedemptions(n int) {
	m.overdueRedemptions.Set(float64(n))
}

func (m *AccountControlMetrics) RecordProposalEvent(event string) {
	m.proposals.WithLabelValues(event).Inc()
}

func (m *AccountControlMetrics) RecordCriticalReport(reserve string) {
	m.criticalReports.WithLabelValues(reserve).Inc()
}

func (m *AccountControlMetrics) RecordEmergencyPause(action string) {
	m.emergencyPauses.WithLabelValues(action).Inc()
}

func (m *AccountControlMetrics) RecordEpochDifficulty(current, previous uint64) {
	m.relayEpochDifficulty.WithLabelValues("current").Set(float64(current))
	m.relayEpochDifficulty.WithLabelValues("previous").Set(float64(previous))
}

func (m *AccountControlMetrics) RecordBackingSync(err error) {
	m.backingSyncs.WithLabelValues(result(err)).Inc()
}
