package watchdog

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "watchdog"

var (
	ErrUnauthorized            = errorsmod.Register(ModuleName, 2, "actor lacks the required capability")
	ErrProposalNotFound        = errorsmod.Register(ModuleName, 3, "proposal not found")
	ErrAlreadyVoted            = errorsmod.Register(ModuleName, 4, "watchdog already voted on proposal")
	ErrVotingEnded             = errorsmod.Register(ModuleName, 5, "voting period ended")
	ErrProposalNotApproved     = errorsmod.Register(ModuleName, 6, "proposal has not reached quorum")
	ErrProposalAlreadyExecuted = errorsmod.Register(ModuleName, 7, "proposal already executed")
	ErrExecutionWindowClosed   = errorsmod.Register(ModuleName, 8, "proposal can no longer be executed")
	ErrVotingNotEnded          = errorsmod.Register(ModuleName, 9, "proposal can only be executed after voting closed")
	ErrEmptyReason             = errorsmod.Register(ModuleName, 10, "a reason is required")
	ErrAlreadyReported         = errorsmod.Register(ModuleName, 11, "watchdog already reported the reserve")
	ErrNotEmergencyPaused      = errorsmod.Register(ModuleName, 12, "reserve is not emergency paused")
)
