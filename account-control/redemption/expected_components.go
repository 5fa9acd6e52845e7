package redemption

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/babylonlabs-io/account-control/bitcoin"
	"github.com/babylonlabs-io/account-control/spv"
	"github.com/babylonlabs-io/account-control/types"
)

type ReserveLedger interface {
	IsWalletRegistered(reserve, wallet string) bool
	WithReserveLocked(reserve string, fn func(r *types.Reserve) error) error
	Redeem(ctx context.Context, reserve, from string, amount uint64) error
}

type ProofVerifier interface {
	Verify(ctx context.Context, tx bitcoin.TxInfo, proof spv.Proof) (chainhash.Hash, error)
}
