package types

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type RoundState uint8

const (
	RoundStatePending RoundState = iota + 1
	RoundStateFinalized
	RoundStateExpired
)

func (s RoundState) String() string {
	switch s {
	case RoundStatePending:
		return "PENDING"
	case RoundStateFinalized:
		return "FINALIZED"
	case RoundStateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

type Submission struct {
	Attester  string         `json:"attester"`
	Amount    uint64         `json:"amount"`
	ProofHash chainhash.Hash `json:"proof_hash"`
	At        time.Time      `json:"at"`
}

// AttestationRound collects attester submissions for one reserve until they
// agree on a balance or the round times out.
type AttestationRound struct {
	Reserve         string       `json:"reserve"`
	ID              uint64       `json:"id"`
	OpenedAt        time.Time    `json:"opened_at"`
	Deadline        time.Time    `json:"deadline"`
	Submissions     []Submission `json:"submissions"`
	State           RoundState   `json:"state"`
	FinalizedAmount uint64       `json:"finalized_amount"`
}

func (r *AttestationRound) HasAttester(attester string) bool {
	for _, s := range r.Submissions {
		if s.Attester == attester {
			return true
		}
	}
	return false
}

// Tally returns the amount claimed by the most submissions and the number of
// submissions claiming it. Ties go to the amount submitted first.
func (r *AttestationRound) Tally() (uint64, int) {
	counts := make(map[uint64]int, len(r.Submissions))
	var (
		best      uint64
		bestCount int
	)
	for _, s := range r.Submissions {
		counts[s.Amount]++
	}
	for _, s := range r.Submissions {
		if c := counts[s.Amount]; c > bestCount {
			best, bestCount = s.Amount, c
		}
	}
	return best, bestCount
}

// FinalizedAttestation is the last agreed balance of a reserve.
type FinalizedAttestation struct {
	Reserve     string    `json:"reserve"`
	RoundID     uint64    `json:"round_id"`
	Amount      uint64    `json:"amount"`
	FinalizedAt time.Time `json:"finalized_at"`
	Overridden  bool      `json:"overridden"`
}

type OverrideRecord struct {
	Reserve       string    `json:"reserve"`
	Arbiter       string    `json:"arbiter"`
	HadPrior      bool      `json:"had_prior"`
	PriorAmount   uint64    `json:"prior_amount"`
	NewAmount     uint64    `json:"new_amount"`
	Justification string    `json:"justification"`
	At            time.Time `json:"at"`
}
