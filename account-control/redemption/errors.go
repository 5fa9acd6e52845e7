package redemption

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "redemption"

var (
	ErrUnauthorized               = errorsmod.Register(ModuleName, 2, "actor lacks the required capability")
	ErrRedemptionBelowMinimum     = errorsmod.Register(ModuleName, 3, "redemption amount below minimum")
	ErrInvalidAddressFormat       = errorsmod.Register(ModuleName, 4, "invalid destination address")
	ErrWalletNotRegistered        = errorsmod.Register(ModuleName, 5, "source wallet not registered to reserve")
	ErrReserveNotOperational      = errorsmod.Register(ModuleName, 6, "reserve is not operational")
	ErrRedemptionNotFound         = errorsmod.Register(ModuleName, 7, "redemption not found")
	ErrRedemptionNotPending       = errorsmod.Register(ModuleName, 8, "redemption already resolved")
	ErrPaymentAlreadyUsed         = errorsmod.Register(ModuleName, 9, "payment transaction already fulfilled a redemption")
	ErrInsufficientPayment        = errorsmod.Register(ModuleName, 10, "payment below requested amount")
	ErrPaymentBelowDust           = errorsmod.Register(ModuleName, 11, "payment below dust threshold")
	ErrAmountMismatch             = errorsmod.Register(ModuleName, 12, "claimed amount does not match the payment")
	ErrDeadlineNotReached         = errorsmod.Register(ModuleName, 13, "redemption deadline not reached")
	ErrEmptyReason                = errorsmod.Register(ModuleName, 14, "default requires a reason")
	ErrTrustedFulfillmentDisabled = errorsmod.Register(ModuleName, 15, "trusted fulfillment is disabled")
)
