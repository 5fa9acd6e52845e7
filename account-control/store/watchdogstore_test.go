package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/types"
)

func TestWatchdogStoreProposals(t *testing.T) {
	t.Parallel()

	ws, err := store.NewWatchdogStore(openTestDB(t))
	require.NoError(t, err)

	build := func(id types.ProposalID) (*types.Proposal, error) {
		return &types.Proposal{
			ID:       id,
			Action:   types.ProposalAction{Reserve: "qc-1", NewStatus: types.ReserveStatusUnderReview},
			Proposer: "wd-1",
			Voters:   []string{"wd-1"},
		}, nil
	}

	first, err := ws.CreateProposal(build)
	require.NoError(t, err)
	second, err := ws.CreateProposal(build)
	require.NoError(t, err)
	require.Equal(t, types.ProposalID(1), first.ID)
	require.Equal(t, types.ProposalID(2), second.ID)

	updated, err := ws.UpdateProposal(first.ID, func(p *types.Proposal) error {
		p.Voters = append(p.Voters, "wd-2")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, updated.Voters, 2)

	got, err := ws.GetProposal(first.ID)
	require.NoError(t, err)
	require.True(t, got.HasVoted("wd-2"))

	_, err = ws.GetProposal(99)
	require.ErrorIs(t, err, store.ErrProposalNotFound)
}

func TestWatchdogStoreReportsAndEscalations(t *testing.T) {
	t.Parallel()

	ws, err := store.NewWatchdogStore(openTestDB(t))
	require.NoError(t, err)

	reports, err := ws.GetReports("qc-1")
	require.NoError(t, err)
	require.Empty(t, reports)

	now := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, ws.SaveReports("qc-1", []types.CriticalReport{
		{Reserve: "qc-1", Reporter: "wd-1", Reason: "missing funds", At: now},
		{Reserve: "qc-1", Reporter: "wd-2", Reason: "missing funds", At: now},
	}))

	reports, err = ws.GetReports("qc-1")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	require.NoError(t, ws.AddEscalation(&types.EscalationRecord{
		Reserve: "qc-1",
		Action:  types.EscalationPaused,
		Actors:  []string{"wd-1", "wd-2"},
		At:      now,
	}))

	// escalating consumes the outstanding reports
	reports, err = ws.GetReports("qc-1")
	require.NoError(t, err)
	require.Empty(t, reports)

	records, err := ws.ListEscalations("qc-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, types.EscalationPaused, records[0].Action)
}
