package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/types"
)

func TestValidStatusTransition(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		from, to types.ReserveStatus
		valid    bool
	}{
		{"active to self paused", types.ReserveStatusActive, types.ReserveStatusSelfPaused, true},
		{"self paused to active", types.ReserveStatusSelfPaused, types.ReserveStatusActive, true},
		{"active to under review", types.ReserveStatusActive, types.ReserveStatusUnderReview, true},
		{"under review to active", types.ReserveStatusUnderReview, types.ReserveStatusActive, true},
		{"under review to self paused", types.ReserveStatusUnderReview, types.ReserveStatusSelfPaused, false},
		{"any to revoked", types.ReserveStatusSelfPaused, types.ReserveStatusRevoked, true},
		{"revoked is terminal", types.ReserveStatusRevoked, types.ReserveStatusActive, false},
		{"no self transition", types.ReserveStatusActive, types.ReserveStatusActive, false},
		{"emergency pause is not a status", types.ReserveStatusActive, types.ReserveStatusEmergencyPaused, false},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.valid, types.ValidStatusTransition(tc.from, tc.to))
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	t.Parallel()

	r := &types.Reserve{Status: types.ReserveStatusSelfPaused, EmergencyPaused: true}
	require.Equal(t, types.ReserveStatusEmergencyPaused, r.EffectiveStatus())
	require.False(t, r.IsOperational())

	r.EmergencyPaused = false
	require.Equal(t, types.ReserveStatusSelfPaused, r.EffectiveStatus())
	require.True(t, r.IsOperational())

	r.Status = types.ReserveStatusRevoked
	r.EmergencyPaused = true
	require.Equal(t, types.ReserveStatusRevoked, r.EffectiveStatus())
}

func TestTallyTieGoesToFirstSubmitted(t *testing.T) {
	t.Parallel()

	round := &types.AttestationRound{Submissions: []types.Submission{
		{Attester: "a", Amount: 7},
		{Attester: "b", Amount: 9},
		{Attester: "c", Amount: 9},
		{Attester: "d", Amount: 7},
	}}

	amount, count := round.Tally()
	require.Equal(t, uint64(7), amount)
	require.Equal(t, 2, count)
}

func TestProposalState(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_000, 0)
	p := &types.Proposal{Deadline: now.Add(time.Hour), Voters: []string{"w1"}}

	require.Equal(t, types.ProposalStateVoting, p.State(now, 2))
	require.Equal(t, types.ProposalStateExpired, p.State(now.Add(2*time.Hour), 2))

	p.Voters = append(p.Voters, "w2")
	require.Equal(t, types.ProposalStateApproved, p.State(now, 2))

	p.Executed = true
	require.Equal(t, types.ProposalStateExecuted, p.State(now, 2))
}

func TestRedemptionIDText(t *testing.T) {
	t.Parallel()

	var id types.RedemptionID
	id[0], id[31] = 0xab, 0xcd

	b, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded types.RedemptionID
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, id, decoded)

	_, err = types.ParseRedemptionID("abcd")
	require.Error(t, err)
}
