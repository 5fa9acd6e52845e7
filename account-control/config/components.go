package config

import (
	"fmt"
	"time"

	"github.com/babylonlabs-io/account-control/bitcoin"
)

const (
	ExecutionPolicyWithin = "within"
	ExecutionPolicyAfter  = "after"

	// MaxBatchSize bounds the items processed by one batch call
	MaxBatchSize = 1000
)

var (
	defaultMaxBackingStaleness = 24 * time.Hour
	defaultMinSyncInterval     = 10 * time.Minute
	defaultSyncInterval        = 30 * time.Minute
	defaultSyncBatchSize       = uint32(50)

	defaultAttestationThreshold = uint32(3)
	defaultAttestationTimeout   = 6 * time.Hour
	defaultAttestationBatchSize = uint32(100)

	defaultMinRedemptionSats  = uint64(100_000)
	defaultRedemptionTimeout  = 7 * 24 * time.Hour
	defaultRedemptionScanFreq = 10 * time.Minute

	defaultWatchdogQuorum      = uint32(3)
	defaultVotingPeriod        = 48 * time.Hour
	defaultEscalationThreshold = uint32(3)
	defaultReportWindow        = time.Hour
)

type LedgerConfig struct {
	MaxBackingStaleness time.Duration `long:"maxbackingstaleness" description:"Minting is refused once the backing is older than this; 0 disables the check"`
	MinSyncInterval     time.Duration `long:"minsyncinterval" description:"The minimum time between two oracle syncs of the same reserve"`
	SyncInterval        time.Duration `long:"syncinterval" description:"The interval between each background backing sync from the oracle"`
	SyncBatchSize       uint32        `long:"syncbatchsize" description:"The maximum number of reserves synced in one call"`
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxBackingStaleness: defaultMaxBackingStaleness,
		MinSyncInterval:     defaultMinSyncInterval,
		SyncInterval:        defaultSyncInterval,
		SyncBatchSize:       defaultSyncBatchSize,
	}
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.MaxBackingStaleness < 0 {
		return fmt.Errorf("max backing staleness cannot be negative, got %v", cfg.MaxBackingStaleness)
	}
	if cfg.MinSyncInterval < 0 {
		return fmt.Errorf("min sync interval cannot be negative, got %v", cfg.MinSyncInterval)
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %v", cfg.SyncInterval)
	}
	if cfg.SyncBatchSize == 0 || cfg.SyncBatchSize > MaxBatchSize {
		return fmt.Errorf("sync batch size must be in [1, %d], got %d", MaxBatchSize, cfg.SyncBatchSize)
	}

	return nil
}

type OracleConfig struct {
	AttestationThreshold uint32        `long:"attestationthreshold" description:"The number of attester submissions needed before a round can finalize; must be odd and at least 3"`
	AttestationTimeout   time.Duration `long:"attestationtimeout" description:"How long an attestation round stays open"`
	MaxBatchSize         uint32        `long:"maxbatchsize" description:"The maximum number of attestations accepted in one batch"`
}

func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		AttestationThreshold: defaultAttestationThreshold,
		AttestationTimeout:   defaultAttestationTimeout,
		MaxBatchSize:         defaultAttestationBatchSize,
	}
}

func (cfg *OracleConfig) Validate() error {
	if cfg.AttestationThreshold < 3 || cfg.AttestationThreshold%2 == 0 {
		return fmt.Errorf("attestation threshold must be odd and at least 3, got %d", cfg.AttestationThreshold)
	}
	if cfg.AttestationTimeout <= 0 {
		return fmt.Errorf("attestation timeout must be positive, got %v", cfg.AttestationTimeout)
	}
	if cfg.MaxBatchSize == 0 || cfg.MaxBatchSize > MaxBatchSize {
		return fmt.Errorf("attestation batch size must be in [1, %d], got %d", MaxBatchSize, cfg.MaxBatchSize)
	}

	return nil
}

type RedemptionConfig struct {
	MinRedemptionSats         uint64        `long:"minredemptionsats" description:"The smallest redemption accepted, in satoshis"`
	Timeout                   time.Duration `long:"timeout" description:"How long a reserve has to pay a redemption before it can be defaulted"`
	ScanInterval              time.Duration `long:"scaninterval" description:"The interval between each scan for overdue redemptions"`
	AllowTrustedFulfillment   bool          `long:"allowtrustedfulfillment" description:"Accept fulfillments attested by a trusted fulfiller without an SPV proof"`
	PermissionlessFulfillment bool          `long:"permissionlessfulfillment" description:"Let anyone submit SPV proofs of redemption payments, not only relayers"`
}

func DefaultRedemptionConfig() RedemptionConfig {
	return RedemptionConfig{
		MinRedemptionSats: defaultMinRedemptionSats,
		Timeout:           defaultRedemptionTimeout,
		ScanInterval:      defaultRedemptionScanFreq,
	}
}

func (cfg *RedemptionConfig) Validate() error {
	if cfg.MinRedemptionSats < bitcoin.DustThreshold {
		return fmt.Errorf("min redemption must not be below the dust threshold %d, got %d",
			bitcoin.DustThreshold, cfg.MinRedemptionSats)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("redemption timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.ScanInterval <= 0 {
		return fmt.Errorf("redemption scan interval must be positive, got %v", cfg.ScanInterval)
	}

	return nil
}

type WatchdogConfig struct {
	Quorum              uint32        `long:"quorum" description:"The number of distinct watchdog votes that approve a proposal"`
	VotingPeriod        time.Duration `long:"votingperiod" description:"How long a proposal accepts votes"`
	ExecutionPolicy     string        `long:"executionpolicy" description:"Whether approved proposals execute within the voting period or only after it closed" choice:"within" choice:"after"`
	EscalationThreshold uint32        `long:"escalationthreshold" description:"The number of distinct critical reports that trigger an emergency pause"`
	ReportWindow        time.Duration `long:"reportwindow" description:"Critical reports older than this no longer count"`
}

func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Quorum:              defaultWatchdogQuorum,
		VotingPeriod:        defaultVotingPeriod,
		ExecutionPolicy:     ExecutionPolicyWithin,
		EscalationThreshold: defaultEscalationThreshold,
		ReportWindow:        defaultReportWindow,
	}
}

func (cfg *WatchdogConfig) Validate() error {
	if cfg.Quorum == 0 {
		return fmt.Errorf("watchdog quorum must be positive")
	}
	if cfg.VotingPeriod <= 0 {
		return fmt.Errorf("voting period must be positive, got %v", cfg.VotingPeriod)
	}
	if cfg.ExecutionPolicy != ExecutionPolicyWithin && cfg.ExecutionPolicy != ExecutionPolicyAfter {
		return fmt.Errorf("unsupported execution policy: %s", cfg.ExecutionPolicy)
	}
	if cfg.EscalationThreshold == 0 {
		return fmt.Errorf("escalation threshold must be positive")
	}
	if cfg.ReportWindow <= 0 {
		return fmt.Errorf("report window must be positive, got %v", cfg.ReportWindow)
	}

	return nil
}
