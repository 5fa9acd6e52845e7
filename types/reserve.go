package types

import (
	"time"
)

type ReserveStatus uint8

const (
	ReserveStatusActive ReserveStatus = iota + 1
	ReserveStatusSelfPaused
	ReserveStatusUnderReview
	ReserveStatusRevoked
	// ReserveStatusEmergencyPaused is only ever reported by
	// Reserve.EffectiveStatus. It is never stored as a reserve's status.
	ReserveStatusEmergencyPaused
)

func (s ReserveStatus) String() string {
	switch s {
	case ReserveStatusActive:
		return "ACTIVE"
	case ReserveStatusSelfPaused:
		return "SELF_PAUSED"
	case ReserveStatusUnderReview:
		return "UNDER_REVIEW"
	case ReserveStatusRevoked:
		return "REVOKED"
	case ReserveStatusEmergencyPaused:
		return "EMERGENCY_PAUSED"
	default:
		return "UNKNOWN"
	}
}

// ParseReserveStatus is the inverse of ReserveStatus.String for the statuses
// that can be stored.
func ParseReserveStatus(s string) (ReserveStatus, bool) {
	for _, st := range []ReserveStatus{
		ReserveStatusActive,
		ReserveStatusSelfPaused,
		ReserveStatusUnderReview,
		ReserveStatusRevoked,
	} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// ValidStatusTransition reports whether a reserve may move from one stored
// status to another. Revoked is terminal and the emergency pause is not a
// status transition.
func ValidStatusTransition(from, to ReserveStatus) bool {
	if from == to {
		return false
	}

	switch from {
	case ReserveStatusActive:
		return to == ReserveStatusSelfPaused || to == ReserveStatusUnderReview || to == ReserveStatusRevoked
	case ReserveStatusSelfPaused:
		return to == ReserveStatusActive || to == ReserveStatusUnderReview || to == ReserveStatusRevoked
	case ReserveStatusUnderReview:
		return to == ReserveStatusActive || to == ReserveStatusRevoked
	default:
		return false
	}
}

// Reserve is the account of a single reserve holder. Reserves are never
// deleted.
type Reserve struct {
	ID               string        `json:"id"`
	MintingCap       uint64        `json:"minting_cap"`
	Backing          uint64        `json:"backing"`
	MintedAmount     uint64        `json:"minted_amount"`
	Status           ReserveStatus `json:"status"`
	MintingDisabled  bool          `json:"minting_disabled"`
	EmergencyPaused  bool          `json:"emergency_paused"`
	PausedAt         time.Time     `json:"paused_at"`
	BackingUpdatedAt time.Time     `json:"backing_updated_at"`
	LastSyncAt       time.Time     `json:"last_sync_at"`
	RegisteredAt     time.Time     `json:"registered_at"`
	Wallets          []string      `json:"wallets"`
}

// EffectiveStatus is the status as seen by operations: an emergency pause
// masks the stored status until it is cleared.
func (r *Reserve) EffectiveStatus() ReserveStatus {
	if r.EmergencyPaused && r.Status != ReserveStatusRevoked {
		return ReserveStatusEmergencyPaused
	}
	return r.Status
}

// IsOperational reports whether redemptions may be initiated against the
// reserve.
func (r *Reserve) IsOperational() bool {
	switch r.EffectiveStatus() {
	case ReserveStatusRevoked, ReserveStatusEmergencyPaused:
		return false
	default:
		return true
	}
}

func (r *Reserve) Undercollateralized() bool {
	return r.Backing < r.MintedAmount
}

func (r *Reserve) HasWallet(wallet string) bool {
	for _, w := range r.Wallets {
		if w == wallet {
			return true
		}
	}
	return false
}
