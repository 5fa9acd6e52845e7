package spv

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Proof is everything needed to show a transaction was included in a block
// buried under enough proof of work.
type Proof struct {
	// MerkleProof holds the intermediate nodes from the tx leaf to the
	// first header's merkle root, 32 bytes each.
	MerkleProof    []byte `json:"merkle_proof"`
	TxIndexInBlock uint64 `json:"tx_index_in_block"`
	// BitcoinHeaders is a chain of 80-byte headers. The first one contains
	// the transaction.
	BitcoinHeaders []byte `json:"bitcoin_headers"`
	// CoinbasePreimage is the single SHA-256 of the serialized coinbase tx.
	CoinbasePreimage chainhash.Hash `json:"coinbase_preimage"`
	CoinbaseProof    []byte         `json:"coinbase_proof"`
}

// Result is the outcome of evaluating a proof. Err is nil on success and
// otherwise one of the registered verification errors, possibly wrapped.
type Result struct {
	TxHash chainhash.Hash
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) Code() uint32 {
	return Code(r.Err)
}
