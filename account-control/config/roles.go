package config

import (
	"github.com/babylonlabs-io/account-control/types"
)

// RolesConfig lists the actors holding each capability.
type RolesConfig struct {
	Governance       []string `long:"governance" description:"Actors allowed to manage roles and clear emergency pauses"`
	ReserveAdmin     []string `long:"reserveadmin" description:"Actors allowed to register reserves and set minting caps"`
	Minter           []string `long:"minter" description:"Actors allowed to mint against reserves"`
	Attester         []string `long:"attester" description:"Actors allowed to attest reserve balances"`
	DisputeArbiter   []string `long:"disputearbiter" description:"Actors allowed to override attestations and default redemptions"`
	Watchdog         []string `long:"watchdog" description:"Actors allowed to propose, vote and report critical issues"`
	Relayer          []string `long:"relayer" description:"Actors allowed to submit redemption payment proofs"`
	TrustedFulfiller []string `long:"trustedfulfiller" description:"Actors allowed to fulfill redemptions without a proof when enabled"`
}

func (cfg *RolesConfig) Assignments() map[types.Capability][]string {
	return map[types.Capability][]string{
		types.CapGovernance:       cfg.Governance,
		types.CapReserveAdmin:     cfg.ReserveAdmin,
		types.CapMinter:           cfg.Minter,
		types.CapAttester:         cfg.Attester,
		types.CapDisputeArbiter:   cfg.DisputeArbiter,
		types.CapWatchdog:         cfg.Watchdog,
		types.CapRelayer:          cfg.Relayer,
		types.CapTrustedFulfiller: cfg.TrustedFulfiller,
	}
}
