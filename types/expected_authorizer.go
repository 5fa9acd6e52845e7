package types

// Capability names a permission checked through an Authorizer.
type Capability string

const (
	CapGovernance       Capability = "governance"
	CapReserveAdmin     Capability = "reserve_admin"
	CapMinter           Capability = "minter"
	CapAttester         Capability = "attester"
	CapDisputeArbiter   Capability = "dispute_arbiter"
	CapWatchdog         Capability = "watchdog"
	CapRelayer          Capability = "relayer"
	CapTrustedFulfiller Capability = "trusted_fulfiller"
)

func AllCapabilities() []Capability {
	return []Capability{
		CapGovernance,
		CapReserveAdmin,
		CapMinter,
		CapAttester,
		CapDisputeArbiter,
		CapWatchdog,
		CapRelayer,
		CapTrustedFulfiller,
	}
}

type Authorizer interface {
	Check(actor string, capability Capability) bool
}
