package bitcoin

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash256 is Bitcoin's double SHA-256.
func Hash256(b []byte) chainhash.Hash {
	return chainhash.DoubleHashH(b)
}

// Hash256Pair hashes the concatenation of two merkle nodes.
func Hash256Pair(left, right *chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])

	return chainhash.DoubleHashH(buf[:])
}

// ProveMerkle reports whether leaf is committed to by root at position index.
// intermediate holds the sibling nodes from the leaf level upwards, 32 bytes
// each, in internal byte order. Neither the leaf nor the root is included.
func ProveMerkle(leaf, root chainhash.Hash, intermediate []byte, index uint64) bool {
	if len(intermediate)%chainhash.HashSize != 0 {
		return false
	}

	depth := len(intermediate) / chainhash.HashSize
	if depth == 0 {
		return index == 0 && leaf == root
	}
	if depth < 64 && index>>uint(depth) != 0 {
		return false
	}

	cur := leaf
	for i := 0; i < depth; i++ {
		var sibling chainhash.Hash
		copy(sibling[:], intermediate[i*chainhash.HashSize:(i+1)*chainhash.HashSize])

		if index&1 == 1 {
			cur = Hash256Pair(&sibling, &cur)
		} else {
			cur = Hash256Pair(&cur, &sibling)
		}
		index >>= 1
	}

	return cur == root
}
