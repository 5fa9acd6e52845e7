package types

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type RedemptionID [32]byte

func (id RedemptionID) String() string {
	return hex.EncodeToString(id[:])
}

func (id RedemptionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RedemptionID) UnmarshalText(text []byte) error {
	parsed, err := ParseRedemptionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseRedemptionID(s string) (RedemptionID, error) {
	var id RedemptionID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid redemption id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("invalid redemption id length %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

type RedemptionStatus uint8

const (
	RedemptionStatusPending RedemptionStatus = iota + 1
	RedemptionStatusFulfilled
	RedemptionStatusDefaulted
)

func (s RedemptionStatus) String() string {
	switch s {
	case RedemptionStatusPending:
		return "PENDING"
	case RedemptionStatusFulfilled:
		return "FULFILLED"
	case RedemptionStatusDefaulted:
		return "DEFAULTED"
	default:
		return "UNKNOWN"
	}
}

func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionStatusFulfilled || s == RedemptionStatusDefaulted
}

// Redemption is a burn of tokens awaiting a Bitcoin payment from the
// reserve to the redeemer.
type Redemption struct {
	ID                 RedemptionID     `json:"id"`
	Reserve            string           `json:"reserve"`
	User               string           `json:"user"`
	Amount             uint64           `json:"amount"`
	DestinationAddress string           `json:"destination_address"`
	SourceWallet       string           `json:"source_wallet"`
	CreatedAt          time.Time        `json:"created_at"`
	Deadline           time.Time        `json:"deadline"`
	Status             RedemptionStatus `json:"status"`
	FulfillmentTxHash  *chainhash.Hash  `json:"fulfillment_tx_hash,omitempty"`
	PaidAmount         uint64           `json:"paid_amount"`
	TrustedFulfillment bool             `json:"trusted_fulfillment"`
	DefaultReason      string           `json:"default_reason,omitempty"`
	ResolvedAt         time.Time        `json:"resolved_at"`
}

// IsTimedOut reports whether the deadline passed, compared at whole-second
// granularity.
func (r *Redemption) IsTimedOut(now time.Time) bool {
	return now.Unix() > r.Deadline.Unix()
}
