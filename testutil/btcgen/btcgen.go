// Package btcgen builds Bitcoin blocks, header chains and SPV proofs at
// regtest difficulty for tests.
package btcgen

import (
	"bytes"
	"crypto/sha256"
	"math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/bitcoin"
	"github.com/babylonlabs-io/account-control/spv"
)

// Params are the network parameters fixtures are mined for. Every header has
// difficulty 1 under these parameters.
var Params = &chaincfg.RegressionNetParams

// Fixture is a mined block containing a payment transaction, together with
// the proof of its inclusion.
type Fixture struct {
	Block   *wire.MsgBlock
	Tx      *wire.MsgTx
	TxInfo  bitcoin.TxInfo
	TxIndex int
	Headers []wire.BlockHeader
	Proof   spv.Proof
}

// PaymentTx returns a transaction paying every output in outs from a random
// outpoint.
func PaymentTx(r *rand.Rand, outs ...*wire.TxOut) *wire.MsgTx {
	tx := wire.NewMsgTx(2)

	var prev chainhash.Hash
	r.Read(prev[:])
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, r.Uint32()%4), []byte{txscript.OP_TRUE}, nil))
	for _, out := range outs {
		tx.AddTxOut(out)
	}

	return tx
}

func coinbaseTx(r *rand.Rand) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		[]byte{0x03, byte(r.Intn(256)), byte(r.Intn(256)), byte(r.Intn(256))}, nil))
	tx.AddTxOut(wire.NewTxOut(50*btcutil.SatoshiPerBitcoin, []byte{txscript.OP_TRUE}))

	return tx
}

// NewFixture mines a block holding tx at a random position among numOther
// filler transactions, followed by confirmations further headers.
func NewFixture(t *testing.T, r *rand.Rand, tx *wire.MsgTx, numOther, confirmations int) *Fixture {
	t.Helper()

	coinbase := coinbaseTx(r)

	txs := []*wire.MsgTx{coinbase}
	for i := 0; i < numOther; i++ {
		txs = append(txs, PaymentTx(r, wire.NewTxOut(r.Int63n(1e6)+1, []byte{txscript.OP_TRUE})))
	}
	txIndex := 1 + r.Intn(numOther+1)
	txs = append(txs[:txIndex], append([]*wire.MsgTx{tx}, txs[txIndex:]...)...)

	utxs := make([]*btcutil.Tx, len(txs))
	for i, msgTx := range txs {
		utxs[i] = btcutil.NewTx(msgTx)
	}
	store := blockchain.BuildMerkleTreeStore(utxs, false)

	var prev chainhash.Hash
	r.Read(prev[:])
	start := time.Unix(1_700_000_000+r.Int63n(1e6), 0)

	block := &wire.MsgBlock{
		Header: MineHeader(wire.BlockHeader{
			Version:    0x20000000,
			PrevBlock:  prev,
			MerkleRoot: *store[len(store)-1],
			Timestamp:  start,
			Bits:       Params.PowLimitBits,
		}),
		Transactions: txs,
	}

	headers := append([]wire.BlockHeader{block.Header}, ExtendChain(block.Header, confirmations)...)
	raw, err := bitcoin.SerializeHeaders(headers)
	require.NoError(t, err)

	info, err := bitcoin.NewTxInfo(tx)
	require.NoError(t, err)

	var coinbaseBytes bytes.Buffer
	require.NoError(t, coinbase.SerializeNoWitness(&coinbaseBytes))

	return &Fixture{
		Block:   block,
		Tx:      tx,
		TxInfo:  info,
		TxIndex: txIndex,
		Headers: headers,
		Proof: spv.Proof{
			MerkleProof:      MerkleBranch(store, txIndex),
			TxIndexInBlock:   uint64(txIndex),
			BitcoinHeaders:   raw,
			CoinbasePreimage: sha256.Sum256(coinbaseBytes.Bytes()),
			CoinbaseProof:    MerkleBranch(store, 0),
		},
	}
}

// MineHeader increments the nonce of h until its hash meets its target.
func MineHeader(h wire.BlockHeader) wire.BlockHeader {
	for !bitcoin.MeetsTarget(&h) {
		h.Nonce++
	}
	return h
}

// ExtendChain mines n headers on top of tip.
func ExtendChain(tip wire.BlockHeader, n int) []wire.BlockHeader {
	headers := make([]wire.BlockHeader, 0, n)
	prev := tip
	for i := 0; i < n; i++ {
		next := MineHeader(wire.BlockHeader{
			Version:    prev.Version,
			PrevBlock:  prev.BlockHash(),
			MerkleRoot: chainhash.DoubleHashH(prev.MerkleRoot[:]),
			Timestamp:  prev.Timestamp.Add(10 * time.Minute),
			Bits:       prev.Bits,
		})
		headers = append(headers, next)
		prev = next
	}

	return headers
}

// MerkleBranch returns the intermediate nodes proving the leaf at index of a
// tree built by blockchain.BuildMerkleTreeStore.
func MerkleBranch(store []*chainhash.Hash, index int) []byte {
	var branch []byte

	offset := 0
	width := len(store)/2 + 1
	for width > 1 {
		node := store[offset+(index^1)]
		if node == nil {
			node = store[offset+index]
		}
		branch = append(branch, node[:]...)

		offset += width
		width /= 2
		index >>= 1
	}

	return branch
}
