package spv

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/account-control/bitcoin"
	"github.com/babylonlabs-io/account-control/lib/math"
	"github.com/babylonlabs-io/account-control/metrics"
)

// Verifier checks that a Bitcoin transaction is included in a block that is
// buried under at least difficultyFactor epochs worth of work.
type Verifier struct {
	relay            Relay
	params           *chaincfg.Params
	difficultyFactor uint64

	logger  *zap.Logger
	metrics *metrics.AccountControlMetrics
}

func NewVerifier(
	relay Relay,
	params *chaincfg.Params,
	difficultyFactor uint64,
	logger *zap.Logger,
	m *metrics.AccountControlMetrics,
) (*Verifier, error) {
	if relay == nil {
		return nil, fmt.Errorf("difficulty relay is required")
	}
	if params == nil {
		return nil, fmt.Errorf("network params are required")
	}
	if difficultyFactor == 0 {
		return nil, fmt.Errorf("difficulty factor must be positive")
	}

	return &Verifier{
		relay:            relay,
		params:           params,
		difficultyFactor: difficultyFactor,
		logger:           logger,
		metrics:          m,
	}, nil
}

// Verify returns the hash of tx if proof shows it was mined with enough
// work on top, and the failing step's error otherwise.
func (v *Verifier) Verify(ctx context.Context, tx bitcoin.TxInfo, proof Proof) (chainhash.Hash, error) {
	res := v.Evaluate(ctx, tx, proof)
	return res.TxHash, res.Err
}

// VerifySafe is Verify reporting success as a boolean.
func (v *Verifier) VerifySafe(ctx context.Context, tx bitcoin.TxInfo, proof Proof) (bool, chainhash.Hash) {
	res := v.Evaluate(ctx, tx, proof)
	if res.Err != nil {
		return false, chainhash.Hash{}
	}
	return true, res.TxHash
}

// Evaluate runs every verification step and records the outcome.
func (v *Verifier) Evaluate(ctx context.Context, tx bitcoin.TxInfo, proof Proof) Result {
	res := v.evaluate(ctx, tx, proof)

	v.metrics.RecordSPVVerification(Reason(res.Err))
	if res.Err != nil {
		v.logger.Debug("SPV proof rejected",
			zap.String("tx_hash", res.TxHash.String()),
			zap.Uint32("code", res.Code()),
			zap.Error(res.Err),
		)
	}

	return res
}

func (v *Verifier) evaluate(ctx context.Context, tx bitcoin.TxInfo, proof Proof) Result {
	if err := bitcoin.ValidateVin(tx.InputVector); err != nil {
		return Result{Err: errorsmod.Wrap(ErrBadInputVector, err.Error())}
	}
	if err := bitcoin.ValidateVout(tx.OutputVector); err != nil {
		return Result{Err: errorsmod.Wrap(ErrBadOutputVector, err.Error())}
	}

	if len(proof.MerkleProof) != len(proof.CoinbaseProof) ||
		len(proof.MerkleProof)%chainhash.HashSize != 0 {
		return Result{Err: errorsmod.Wrapf(ErrProofLengthMismatch,
			"merkle proof %d bytes, coinbase proof %d bytes", len(proof.MerkleProof), len(proof.CoinbaseProof))}
	}

	txHash := tx.Hash()

	headers, err := bitcoin.ParseHeaders(proof.BitcoinHeaders)
	if err != nil {
		return Result{TxHash: txHash, Err: errorsmod.Wrap(ErrBadHeaders, err.Error())}
	}
	root := headers[0].MerkleRoot

	if !bitcoin.ProveMerkle(txHash, root, proof.MerkleProof, proof.TxIndexInBlock) {
		return Result{TxHash: txHash, Err: ErrMerkleProofInvalid}
	}

	coinbaseHash := chainhash.HashH(proof.CoinbasePreimage[:])
	if !bitcoin.ProveMerkle(coinbaseHash, root, proof.CoinbaseProof, 0) {
		return Result{TxHash: txHash, Err: ErrCoinbaseProofInvalid}
	}

	if err := v.evaluateProofDifficulty(ctx, headers); err != nil {
		return Result{TxHash: txHash, Err: err}
	}

	return Result{TxHash: txHash}
}

func (v *Verifier) evaluateProofDifficulty(ctx context.Context, headers []wire.BlockHeader) error {
	current, err := v.relay.CurrentEpochDifficulty(ctx)
	if err != nil {
		return errorsmod.Wrap(ErrRelayUnavailable, err.Error())
	}
	previous, err := v.relay.PrevEpochDifficulty(ctx)
	if err != nil {
		return errorsmod.Wrap(ErrRelayUnavailable, err.Error())
	}

	first := bitcoin.HeaderDifficulty(&headers[0], v.params)

	var requested uint64
	switch {
	case first == 0:
		return errorsmod.Wrapf(ErrInvalidTarget, "bits 0x%08x", headers[0].Bits)
	case first == current:
		requested = current
	case first == previous:
		requested = previous
	default:
		return errorsmod.Wrapf(ErrDifficultyMismatch,
			"header difficulty %d, current %d, previous %d", first, current, previous)
	}

	observed, err := v.accumulatedDifficulty(headers)
	if err != nil {
		return err
	}

	required, ok := math.SafeMul(requested, v.difficultyFactor)
	if !ok || observed < required {
		return errorsmod.Wrapf(ErrInsufficientAccumulatedWork,
			"observed %d, required %d x %d", observed, requested, v.difficultyFactor)
	}

	return nil
}

// accumulatedDifficulty checks that headers form a chain where every header
// satisfies its own target, and sums their difficulty.
func (v *Verifier) accumulatedDifficulty(headers []wire.BlockHeader) (uint64, error) {
	var total uint64
	for i := range headers {
		h := &headers[i]

		if i > 0 && h.PrevBlock != headers[i-1].BlockHash() {
			return 0, errorsmod.Wrapf(ErrInvalidHeaderChain, "header %d does not link to header %d", i, i-1)
		}

		diff := bitcoin.HeaderDifficulty(h, v.params)
		if diff == 0 {
			return 0, errorsmod.Wrapf(ErrInvalidTarget, "header %d bits 0x%08x", i, h.Bits)
		}
		if !bitcoin.MeetsTarget(h) {
			return 0, errorsmod.Wrapf(ErrInsufficientHeaderWork, "header %d hash %s", i, h.BlockHash())
		}

		var ok bool
		if total, ok = math.SafeAdd(total, diff); !ok {
			total = ^uint64(0)
		}
	}

	return total, nil
}
