package bitcoin

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// HeaderSize is the size of a serialized block header.
const HeaderSize = 80

// ParseHeaders decodes a concatenation of 80-byte block headers.
func ParseHeaders(raw []byte) ([]wire.BlockHeader, error) {
	if len(raw) == 0 || len(raw)%HeaderSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadHeaderLength, len(raw))
	}

	headers := make([]wire.BlockHeader, len(raw)/HeaderSize)
	r := bytes.NewReader(raw)
	for i := range headers {
		if err := headers[i].Deserialize(r); err != nil {
			return nil, fmt.Errorf("failed to decode header %d: %w", i, err)
		}
	}

	return headers, nil
}

// SerializeHeaders is the inverse of ParseHeaders.
func SerializeHeaders(headers []wire.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(headers) * HeaderSize)
	for i := range headers {
		if err := headers[i].Serialize(&buf); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// HeaderTarget returns the proof-of-work target encoded in the header bits.
func HeaderTarget(h *wire.BlockHeader) *big.Int {
	return blockchain.CompactToBig(h.Bits)
}

// MeetsTarget reports whether the header hash is at or below its target.
func MeetsTarget(h *wire.BlockHeader) bool {
	target := HeaderTarget(h)
	if target.Sign() <= 0 {
		return false
	}

	hash := h.BlockHash()

	return blockchain.HashToBig(&hash).Cmp(target) <= 0
}

// HeaderDifficulty returns powLimit / target for the header, saturated at
// MaxUint64. A header whose target is non-positive or above the network's
// proof-of-work limit has difficulty 0.
func HeaderDifficulty(h *wire.BlockHeader, params *chaincfg.Params) uint64 {
	return TargetDifficulty(HeaderTarget(h), params)
}

func TargetDifficulty(target *big.Int, params *chaincfg.Params) uint64 {
	limit := blockchain.CompactToBig(params.PowLimitBits)
	if target.Sign() <= 0 || target.Cmp(limit) > 0 {
		return 0
	}

	diff := new(big.Int).Quo(limit, target)
	if !diff.IsUint64() {
		return math.MaxUint64
	}

	return diff.Uint64()
}
