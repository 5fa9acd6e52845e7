package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/babylonlabs-io/account-control/types"
)

// SignedAttestation is an attestation authenticated by a BIP-340 signature
// of the attester's x-only key. The attester is identified by the hex of
// that key.
type SignedAttestation struct {
	Reserve   string         `json:"reserve"`
	Amount    uint64         `json:"amount"`
	ProofHash chainhash.Hash `json:"proof_hash"`
	PubKey    []byte         `json:"pub_key"`
	Signature []byte         `json:"signature"`
}

// AttestationDigest is sha256(reserve || amount as 8 byte big endian || proofHash).
func AttestationDigest(reserve string, amount uint64, proofHash chainhash.Hash) [32]byte {
	msg := make([]byte, 0, len(reserve)+8+chainhash.HashSize)
	msg = append(msg, reserve...)
	msg = binary.BigEndian.AppendUint64(msg, amount)
	msg = append(msg, proofHash[:]...)

	return sha256.Sum256(msg)
}

// AttesterID returns the identifier an attester key submits under.
func AttesterID(pk *btcec.PublicKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(pk))
}

// ParseAttesterKey decodes a hex encoded secp256k1 private key. btcec does not
// reject out of range scalars itself.
func ParseAttesterKey(keyHex string) (*btcec.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	if len(keyBytes) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(keyBytes))
	}

	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(keyBytes); overflow {
		return nil, fmt.Errorf("private key is greater than or equal to the secp256k1 curve order")
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("private key cannot be zero")
	}

	return btcec.PrivKeyFromScalar(&scalar), nil
}

func SignAttestation(
	sk *btcec.PrivateKey,
	reserve string,
	amount uint64,
	proofHash chainhash.Hash,
) (*SignedAttestation, error) {
	digest := AttestationDigest(reserve, amount, proofHash)
	sig, err := schnorr.Sign(sk, digest[:])
	if err != nil {
		return nil, err
	}

	return &SignedAttestation{
		Reserve:   reserve,
		Amount:    amount,
		ProofHash: proofHash,
		PubKey:    schnorr.SerializePubKey(sk.PubKey()),
		Signature: sig.Serialize(),
	}, nil
}

// Verify checks the signature and returns the attester id.
func (sa *SignedAttestation) Verify() (string, error) {
	pk, err := schnorr.ParsePubKey(sa.PubKey)
	if err != nil {
		return "", errorsmod.Wrapf(ErrInvalidSignature, "bad public key: %v", err)
	}

	sig, err := schnorr.ParseSignature(sa.Signature)
	if err != nil {
		return "", errorsmod.Wrapf(ErrInvalidSignature, "bad signature encoding: %v", err)
	}

	digest := AttestationDigest(sa.Reserve, sa.Amount, sa.ProofHash)
	if !sig.Verify(digest[:], pk) {
		return "", errorsmod.Wrap(ErrInvalidSignature, "signature does not match attestation")
	}

	return AttesterID(pk), nil
}

// SubmitSignedAttestation verifies the signature and submits the attestation
// on behalf of the signing key.
func (o *Oracle) SubmitSignedAttestation(ctx context.Context, sa *SignedAttestation) (*types.AttestationRound, error) {
	attester, err := sa.Verify()
	if err != nil {
		o.metrics.RecordAttestation(err)
		return nil, err
	}

	return o.SubmitAttestation(ctx, attester, sa.Reserve, sa.Amount, sa.ProofHash)
}
