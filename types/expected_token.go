package types

import "context"

// TokenLedger is the fungible token the reserves back.
type TokenLedger interface {
	Mint(ctx context.Context, to string, amount uint64) error
	Burn(ctx context.Context, from string, amount uint64) error
}
