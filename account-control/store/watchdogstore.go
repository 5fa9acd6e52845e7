package store

import (
	"bytes"
	"fmt"

	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/babylonlabs-io/account-control/types"
)

var (
	// mapping proposal id -> types.Proposal
	proposalsBucketName = []byte("proposals")

	// mapping reserve -> []types.CriticalReport
	reportsBucketName = []byte("criticalreports")

	// mapping reserve||0x00||seq -> types.EscalationRecord
	escalationsBucketName = []byte("escalations")
)

type WatchdogStore struct {
	db kvdb.Backend
}

// NewWatchdogStore returns a new store backed by db
func NewWatchdogStore(db kvdb.Backend) (*WatchdogStore, error) {
	store := &WatchdogStore{db}
	if err := store.initBuckets(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *WatchdogStore) initBuckets() error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{proposalsBucketName, reportsBucketName, escalationsBucketName} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to initialize watchdog buckets: %w", err)
	}

	return nil
}

// CreateProposal assigns the next proposal id and persists what build
// returns for it. Ids start at 1.
func (s *WatchdogStore) CreateProposal(
	build func(id types.ProposalID) (*types.Proposal, error),
) (*types.Proposal, error) {
	var created *types.Proposal

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(proposalsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		p, err := build(types.ProposalID(seq))
		if err != nil {
			return err
		}

		if err := putRecord(bucket, uint64ToBytes(uint64(p.ID)), p); err != nil {
			return err
		}
		created = p

		return nil
	}, func() {
		created = nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	return created, nil
}

func (s *WatchdogStore) GetProposal(id types.ProposalID) (*types.Proposal, error) {
	var p *types.Proposal

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(proposalsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		var stored types.Proposal
		found, err := getRecord(bucket, uint64ToBytes(uint64(id)), &stored, ErrCorruptedWatchdogDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrProposalNotFound
		}
		p = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return p, nil
}

// UpdateProposal applies stateTransitionFn to the stored proposal. Nothing is
// written if it returns an error.
func (s *WatchdogStore) UpdateProposal(
	id types.ProposalID,
	stateTransitionFn func(p *types.Proposal) error,
) (*types.Proposal, error) {
	var updated *types.Proposal

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(proposalsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		key := uint64ToBytes(uint64(id))
		var p types.Proposal
		found, err := getRecord(bucket, key, &p, ErrCorruptedWatchdogDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrProposalNotFound
		}

		if err := stateTransitionFn(&p); err != nil {
			return err
		}

		if err := putRecord(bucket, key, &p); err != nil {
			return err
		}
		updated = &p

		return nil
	}, func() {
		updated = nil
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetReports returns the outstanding critical reports against a reserve.
func (s *WatchdogStore) GetReports(reserve string) ([]types.CriticalReport, error) {
	var reports []types.CriticalReport

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(reportsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		_, err := getRecord(bucket, []byte(reserve), &reports, ErrCorruptedWatchdogDB)

		return err
	}, func() {
		reports = nil
	})

	if err != nil {
		return nil, err
	}

	return reports, nil
}

// SaveReports replaces the outstanding reports of a reserve. An empty slice
// removes them.
func (s *WatchdogStore) SaveReports(reserve string, reports []types.CriticalReport) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(reportsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		if len(reports) == 0 {
			return bucket.Delete([]byte(reserve))
		}

		return putRecord(bucket, []byte(reserve), reports)
	}); err != nil {
		return fmt.Errorf("failed to save critical reports: %w", err)
	}

	return nil
}

// AddEscalation appends to the reserve's escalation audit trail and clears its
// outstanding reports in the same transaction.
func (s *WatchdogStore) AddEscalation(record *types.EscalationRecord) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		escalations := tx.ReadWriteBucket(escalationsBucketName)
		reports := tx.ReadWriteBucket(reportsBucketName)
		if escalations == nil || reports == nil {
			return ErrCorruptedWatchdogDB
		}

		seq, err := escalations.NextSequence()
		if err != nil {
			return err
		}
		if err := putRecord(escalations, compositeKey(record.Reserve, uint64ToBytes(seq)), record); err != nil {
			return err
		}

		return reports.Delete([]byte(record.Reserve))
	}); err != nil {
		return fmt.Errorf("failed to save escalation: %w", err)
	}

	return nil
}

func (s *WatchdogStore) ListEscalations(reserve string) ([]*types.EscalationRecord, error) {
	var records []*types.EscalationRecord

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(escalationsBucketName)
		if bucket == nil {
			return ErrCorruptedWatchdogDB
		}

		prefix := reservePrefix(reserve)
		c := bucket.ReadCursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec types.EscalationRecord
			if err := decodeRecord(v, &rec, ErrCorruptedWatchdogDB); err != nil {
				return err
			}
			records = append(records, &rec)
		}

		return nil
	}, func() {
		records = nil
	})

	if err != nil {
		return nil, err
	}

	return records, nil
}
