package store

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/babylonlabs-io/account-control/types"
)

var (
	// mapping reserve||0x00||round id -> types.AttestationRound
	roundsBucketName = []byte("attestationrounds")

	// mapping reserve -> types.FinalizedAttestation
	finalizedBucketName = []byte("finalizedattestations")

	// mapping reserve||0x00||seq -> types.OverrideRecord
	overridesBucketName = []byte("attestationoverrides")
)

type AttestationStore struct {
	db kvdb.Backend
}

// NewAttestationStore returns a new store backed by db
func NewAttestationStore(db kvdb.Backend) (*AttestationStore, error) {
	store := &AttestationStore{db}
	if err := store.initBuckets(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *AttestationStore) initBuckets() error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{roundsBucketName, finalizedBucketName, overridesBucketName} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to initialize attestation buckets: %w", err)
	}

	return nil
}

// LatestRound returns the round with the highest id for the reserve.
func (s *AttestationStore) LatestRound(reserve string) (*types.AttestationRound, error) {
	var round *types.AttestationRound

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(roundsBucketName)
		if bucket == nil {
			return ErrCorruptedAttestationDB
		}

		prefix := reservePrefix(reserve)
		c := bucket.ReadCursor()

		// seek past the last key of the reserve and step back
		upper := append(bytes.Clone(prefix), bytes.Repeat([]byte{0xff}, 8)...)
		k, v := c.Seek(upper)
		if k == nil || !bytes.Equal(k, upper) {
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		}
		if k == nil || !bytes.HasPrefix(k, prefix) || len(k) != len(prefix)+8 {
			return ErrRoundNotFound
		}

		var stored types.AttestationRound
		if err := decodeRecord(v, &stored, ErrCorruptedAttestationDB); err != nil {
			return err
		}
		round = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return round, nil
}

func (s *AttestationStore) GetRound(reserve string, id uint64) (*types.AttestationRound, error) {
	var round *types.AttestationRound

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(roundsBucketName)
		if bucket == nil {
			return ErrCorruptedAttestationDB
		}

		var stored types.AttestationRound
		found, err := getRecord(bucket, compositeKey(reserve, uint64ToBytes(id)), &stored, ErrCorruptedAttestationDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotFound
		}
		round = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return round, nil
}

func (s *AttestationStore) SaveRound(round *types.AttestationRound) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(roundsBucketName)
		if bucket == nil {
			return ErrCorruptedAttestationDB
		}

		return saveRound(bucket, round)
	}); err != nil {
		return fmt.Errorf("failed to save attestation round: %w", err)
	}

	return nil
}

func saveRound(bucket walletdb.ReadWriteBucket, round *types.AttestationRound) error {
	return putRecord(bucket, compositeKey(round.Reserve, uint64ToBytes(round.ID)), round)
}

// SaveFinalizedRound persists a finalized round and the reserve's new
// finalized attestation atomically.
func (s *AttestationStore) SaveFinalizedRound(round *types.AttestationRound, finalized *types.FinalizedAttestation) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		rounds := tx.ReadWriteBucket(roundsBucketName)
		finalizedBucket := tx.ReadWriteBucket(finalizedBucketName)
		if rounds == nil || finalizedBucket == nil {
			return ErrCorruptedAttestationDB
		}

		if err := saveRound(rounds, round); err != nil {
			return err
		}

		return putRecord(finalizedBucket, []byte(finalized.Reserve), finalized)
	}); err != nil {
		return fmt.Errorf("failed to save finalized attestation: %w", err)
	}

	return nil
}

func (s *AttestationStore) GetFinalized(reserve string) (*types.FinalizedAttestation, error) {
	var finalized *types.FinalizedAttestation

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(finalizedBucketName)
		if bucket == nil {
			return ErrCorruptedAttestationDB
		}

		var stored types.FinalizedAttestation
		found, err := getRecord(bucket, []byte(reserve), &stored, ErrCorruptedAttestationDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrFinalizedNotFound
		}
		finalized = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return finalized, nil
}

// SaveOverride replaces the reserve's finalized attestation and appends the
// override to its audit trail atomically.
func (s *AttestationStore) SaveOverride(record *types.OverrideRecord, finalized *types.FinalizedAttestation) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		overrides := tx.ReadWriteBucket(overridesBucketName)
		finalizedBucket := tx.ReadWriteBucket(finalizedBucketName)
		if overrides == nil || finalizedBucket == nil {
			return ErrCorruptedAttestationDB
		}

		seq, err := overrides.NextSequence()
		if err != nil {
			return err
		}
		if err := putRecord(overrides, compositeKey(record.Reserve, uint64ToBytes(seq)), record); err != nil {
			return err
		}

		return putRecord(finalizedBucket, []byte(finalized.Reserve), finalized)
	}); err != nil {
		return fmt.Errorf("failed to save attestation override: %w", err)
	}

	return nil
}

func (s *AttestationStore) ListOverrides(reserve string) ([]*types.OverrideRecord, error) {
	var records []*types.OverrideRecord

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(overridesBucketName)
		if bucket == nil {
			return ErrCorruptedAttestationDB
		}

		prefix := reservePrefix(reserve)
		c := bucket.ReadCursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec types.OverrideRecord
			if err := decodeRecord(v, &rec, ErrCorruptedAttestationDB); err != nil {
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
