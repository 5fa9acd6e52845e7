package oracle

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "oracle"

var (
	ErrUnauthorized            = errorsmod.Register(ModuleName, 2, "actor lacks the required capability")
	ErrDuplicateAttestation    = errorsmod.Register(ModuleName, 3, "attester already submitted in this round")
	ErrAttestationRoundExpired = errorsmod.Register(ModuleName, 4, "attestation round expired")
	ErrBatchLengthMismatch     = errorsmod.Register(ModuleName, 5, "reserves and amounts differ in length")
	ErrBatchBudgetExhausted    = errorsmod.Register(ModuleName, 6, "batch budget exhausted")
	ErrInvalidSignature        = errorsmod.Register(ModuleName, 7, "invalid attestation signature")
	ErrEmptyJustification      = errorsmod.Register(ModuleName, 8, "override requires a justification")
	ErrBackingSyncFailed       = errorsmod.Register(ModuleName, 9, "finalized backing could not be applied to the ledger")
	ErrNoFinalizedAttestation  = errorsmod.Register(ModuleName, 10, "no finalized attestation")
)
