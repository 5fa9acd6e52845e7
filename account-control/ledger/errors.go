package ledger

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "ledger"

var (
	ErrUnauthorized                = errorsmod.Register(ModuleName, 2, "actor lacks the required capability")
	ErrReserveNotFound             = errorsmod.Register(ModuleName, 3, "reserve not found")
	ErrReserveExists               = errorsmod.Register(ModuleName, 4, "reserve already registered")
	ErrInvalidAmount               = errorsmod.Register(ModuleName, 5, "amount must be positive")
	ErrReserveNotActive            = errorsmod.Register(ModuleName, 6, "reserve is not active")
	ErrMintingDisabled             = errorsmod.Register(ModuleName, 7, "minting disabled until backing covers the minted amount")
	ErrStaleBacking                = errorsmod.Register(ModuleName, 8, "reserve backing is stale")
	ErrInsufficientBacking         = errorsmod.Register(ModuleName, 9, "insufficient backing")
	ErrMintingCapExceeded          = errorsmod.Register(ModuleName, 10, "minting cap exceeded")
	ErrInsufficientMinted          = errorsmod.Register(ModuleName, 11, "insufficient minted amount")
	ErrInvalidStatusTransition     = errorsmod.Register(ModuleName, 12, "invalid status transition")
	ErrSyncTooFrequent             = errorsmod.Register(ModuleName, 13, "reserve synced too recently")
	ErrNoFinalizedBacking          = errorsmod.Register(ModuleName, 14, "no finalized backing for reserve")
	ErrBatchBudgetExhausted        = errorsmod.Register(ModuleName, 15, "batch budget exhausted")
	ErrWalletNotRegistered         = errorsmod.Register(ModuleName, 16, "wallet not registered to reserve")
	ErrWalletAlreadyRegistered     = errorsmod.Register(ModuleName, 17, "wallet already registered")
	ErrWalletHasPendingRedemptions = errorsmod.Register(ModuleName, 18, "wallet has unfulfilled redemptions")
	ErrInvalidWalletAddress        = errorsmod.Register(ModuleName, 19, "invalid wallet address")
	ErrTokenLedger                 = errorsmod.Register(ModuleName, 20, "token ledger rejected the operation")
)
