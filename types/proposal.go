package types

import "time"

type ProposalID uint64

type ProposalState uint8

const (
	ProposalStateVoting ProposalState = iota + 1
	ProposalStateApproved
	ProposalStateExpired
	ProposalStateExecuted
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStateVoting:
		return "VOTING"
	case ProposalStateApproved:
		return "APPROVED"
	case ProposalStateExpired:
		return "EXPIRED"
	case ProposalStateExecuted:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

type ProposalAction struct {
	Reserve   string        `json:"reserve"`
	NewStatus ReserveStatus `json:"new_status"`
	Reason    string        `json:"reason"`
}

// Proposal is a watchdog request to change a reserve's status.
type Proposal struct {
	ID         ProposalID     `json:"id"`
	Action     ProposalAction `json:"action"`
	Proposer   string         `json:"proposer"`
	CreatedAt  time.Time      `json:"created_at"`
	Deadline   time.Time      `json:"deadline"`
	Voters     []string       `json:"voters"`
	Executed   bool           `json:"executed"`
	ExecutedAt time.Time      `json:"executed_at"`
}

func (p *Proposal) HasVoted(voter string) bool {
	for _, v := range p.Voters {
		if v == voter {
			return true
		}
	}
	return false
}

func (p *Proposal) VotingClosed(now time.Time) bool {
	return now.Unix() > p.Deadline.Unix()
}

// State derives the lifecycle state of the proposal at now.
func (p *Proposal) State(now time.Time, quorum int) ProposalState {
	switch {
	case p.Executed:
		return ProposalStateExecuted
	case len(p.Voters) >= quorum:
		return ProposalStateApproved
	case p.VotingClosed(now):
		return ProposalStateExpired
	default:
		return ProposalStateVoting
	}
}

type CriticalReport struct {
	Reserve  string    `json:"reserve"`
	Reporter string    `json:"reporter"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type EscalationAction uint8

const (
	EscalationPaused EscalationAction = iota + 1
	EscalationCleared
)

func (a EscalationAction) String() string {
	switch a {
	case EscalationPaused:
		return "paused"
	case EscalationCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// EscalationRecord is an audit entry for an emergency pause being raised or
// cleared.
type EscalationRecord struct {
	Reserve string           `json:"reserve"`
	Action  EscalationAction `json:"action"`
	Actors  []string         `json:"actors"`
	Reasons []string         `json:"reasons"`
	At      time.Time        `json:"at"`
}
