package addrcodec

import (
	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "addrcodec"

var (
	ErrInvalidAddressFormat  = errorsmod.Register(ModuleName, 2, "invalid address format")
	ErrUnsupportedScriptType = errorsmod.Register(ModuleName, 3, "unsupported script type")
)
