package spv

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "spv"

// Verification failures. Each carries a stable code so callers can tell the
// failing step apart without matching on messages.
var (
	ErrBadInputVector              = errorsmod.Register(ModuleName, 2, "bad input vector")
	ErrBadOutputVector             = errorsmod.Register(ModuleName, 3, "bad output vector")
	ErrProofLengthMismatch         = errorsmod.Register(ModuleName, 4, "merkle and coinbase proof lengths differ")
	ErrBadHeaders                  = errorsmod.Register(ModuleName, 5, "malformed header chain")
	ErrMerkleProofInvalid          = errorsmod.Register(ModuleName, 6, "tx merkle proof is not valid for provided header and tx hash")
	ErrCoinbaseProofInvalid        = errorsmod.Register(ModuleName, 7, "coinbase merkle proof is not valid for provided header and hash")
	ErrRelayUnavailable            = errorsmod.Register(ModuleName, 8, "difficulty relay unavailable")
	ErrDifficultyMismatch          = errorsmod.Register(ModuleName, 9, "not at current or previous difficulty")
	ErrInvalidHeaderChain          = errorsmod.Register(ModuleName, 10, "invalid headers chain")
	ErrInsufficientHeaderWork      = errorsmod.Register(ModuleName, 11, "insufficient work in a header")
	ErrInsufficientAccumulatedWork = errorsmod.Register(ModuleName, 12, "insufficient accumulated difficulty in header chain")
	ErrInvalidTarget               = errorsmod.Register(ModuleName, 13, "header target exceeds the proof-of-work limit")
)

// Code returns the registered code of a verification error, 0 for a nil
// error and 1 for errors this package did not produce.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}

	var regErr *errorsmod.Error
	if errors.As(err, &regErr) && regErr.Codespace() == ModuleName {
		return regErr.ABCICode()
	}

	return 1
}

// Reason returns the short description of a verification error, "ok" for a
// nil error.
func Reason(err error) string {
	if err == nil {
		return "ok"
	}

	var regErr *errorsmod.Error
	if errors.As(err, &regErr) {
		return regErr.Error()
	}

	return "internal"
}
