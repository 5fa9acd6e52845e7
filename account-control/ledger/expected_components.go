package ledger

// BackingSource provides the last finalized reserve balance, in satoshis.
type BackingSource interface {
	LastFinalizedBacking(reserve string) (uint64, bool, error)
}

// RedemptionTracker reports whether a wallet still owes redemption payments.
type RedemptionTracker interface {
	HasUnfulfilledForWallet(reserve, wallet string) (bool, error)
}
