package store

import "errors"

var (
	// ErrCorruptedReserveDB For some reason, db on disk representation have changed
	ErrCorruptedReserveDB = errors.New("reserve db is corrupted")

	// ErrReserveNotFound The reserve we try update is not found in db
	ErrReserveNotFound = errors.New("reserve not found")

	// ErrDuplicateReserve The reserve we try to add already exists in db
	ErrDuplicateReserve = errors.New("reserve already exists")

	// ErrWalletAlreadyRegistered The wallet is registered to a reserve already
	ErrWalletAlreadyRegistered = errors.New("wallet already registered")

	ErrWalletNotFound = errors.New("wallet not registered to reserve")

	ErrCorruptedAttestationDB = errors.New("attestation db is corrupted")

	ErrRoundNotFound = errors.New("attestation round not found")

	ErrFinalizedNotFound = errors.New("no finalized attestation for reserve")

	ErrCorruptedRedemptionDB = errors.New("redemption db is corrupted")

	ErrRedemptionNotFound = errors.New("redemption not found")

	ErrDuplicateRedemption = errors.New("redemption already exists")

	// ErrPaymentAlreadyUsed The bitcoin transaction already fulfilled another redemption
	ErrPaymentAlreadyUsed = errors.New("payment transaction already used")

	ErrCorruptedWatchdogDB = errors.New("watchdog db is corrupted")

	ErrProposalNotFound = errors.New("proposal not found")
)
