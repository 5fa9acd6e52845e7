package store

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/babylonlabs-io/account-control/types"
)

var (
	// mapping redemption id -> types.Redemption
	redemptionsBucketName = []byte("redemptions")

	// set of reserve||0x00||redemption id for pending redemptions
	activeRedemptionsBucketName = []byte("activeredemptions")

	// mapping bitcoin tx hash -> redemption id it fulfilled
	paymentsBucketName = []byte("redemptionpayments")
)

type RedemptionStore struct {
	db kvdb.Backend
}

// NewRedemptionStore returns a new store backed by db
func NewRedemptionStore(db kvdb.Backend) (*RedemptionStore, error) {
	store := &RedemptionStore{db}
	if err := store.initBuckets(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *RedemptionStore) initBuckets() error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{redemptionsBucketName, activeRedemptionsBucketName, paymentsBucketName} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to initialize redemption buckets: %w", err)
	}

	return nil
}

// CreateRedemption draws the next value of the store wide redemption counter,
// passes it to build and persists the returned pending redemption.
func (s *RedemptionStore) CreateRedemption(
	build func(seq uint64) (*types.Redemption, error),
) (*types.Redemption, error) {
	var created *types.Redemption

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(redemptionsBucketName)
		active := tx.ReadWriteBucket(activeRedemptionsBucketName)
		if bucket == nil || active == nil {
			return ErrCorruptedRedemptionDB
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		r, err := build(seq)
		if err != nil {
			return err
		}

		if bucket.Get(r.ID[:]) != nil {
			return ErrDuplicateRedemption
		}

		if err := putRecord(bucket, r.ID[:], r); err != nil {
			return err
		}
		if err := active.Put(compositeKey(r.Reserve, r.ID[:]), []byte{}); err != nil {
			return err
		}
		created = r

		return nil
	}, func() {
		created = nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	return created, nil
}

func (s *RedemptionStore) GetRedemption(id types.RedemptionID) (*types.Redemption, error) {
	var r *types.Redemption

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(redemptionsBucketName)
		if bucket == nil {
			return ErrCorruptedRedemptionDB
		}

		var stored types.Redemption
		found, err := getRecord(bucket, id[:], &stored, ErrCorruptedRedemptionDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrRedemptionNotFound
		}
		r = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return r, nil
}

// UpdateRedemption applies stateTransitionFn to the stored redemption. A
// redemption moving to a terminal status leaves the active set, and its
// fulfillment transaction, if any, is recorded so it cannot be reused.
func (s *RedemptionStore) UpdateRedemption(
	id types.RedemptionID,
	stateTransitionFn func(r *types.Redemption) error,
) (*types.Redemption, error) {
	var updated *types.Redemption

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(redemptionsBucketName)
		active := tx.ReadWriteBucket(activeRedemptionsBucketName)
		payments := tx.ReadWriteBucket(paymentsBucketName)
		if bucket == nil || active == nil || payments == nil {
			return ErrCorruptedRedemptionDB
		}

		var r types.Redemption
		found, err := getRecord(bucket, id[:], &r, ErrCorruptedRedemptionDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrRedemptionNotFound
		}

		wasTerminal := r.Status.IsTerminal()
		if err := stateTransitionFn(&r); err != nil {
			return err
		}

		if !wasTerminal && r.Status.IsTerminal() {
			if err := active.Delete(compositeKey(r.Reserve, id[:])); err != nil {
				return err
			}

			if r.FulfillmentTxHash != nil {
				if used := payments.Get(r.FulfillmentTxHash[:]); used != nil {
					return ErrPaymentAlreadyUsed
				}
				if err := payments.Put(r.FulfillmentTxHash[:], id[:]); err != nil {
					return err
				}
			}
		}

		if err := putRecord(bucket, id[:], &r); err != nil {
			return err
		}
		updated = &r

		return nil
	}, func() {
		updated = nil
	})

	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteRedemption removes a pending redemption. It undoes a creation whose
// follow-up failed and refuses to touch resolved redemptions.
func (s *RedemptionStore) DeleteRedemption(id types.RedemptionID) error {
	return kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(redemptionsBucketName)
		active := tx.ReadWriteBucket(activeRedemptionsBucketName)
		if bucket == nil || active == nil {
			return ErrCorruptedRedemptionDB
		}

		var r types.Redemption
		found, err := getRecord(bucket, id[:], &r, ErrCorruptedRedemptionDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrRedemptionNotFound
		}
		if r.Status.IsTerminal() {
			return fmt.Errorf("cannot delete resolved redemption %s", id)
		}

		if err := active.Delete(compositeKey(r.Reserve, id[:])); err != nil {
			return err
		}

		return bucket.Delete(id[:])
	}, func() {})
}

// PaymentRedemption returns the redemption a bitcoin transaction fulfilled.
func (s *RedemptionStore) PaymentRedemption(txHash chainhash.Hash) (types.RedemptionID, bool, error) {
	var (
		id    types.RedemptionID
		found bool
	)

	err := s.db.View(func(tx kvdb.RTx) error {
		payments := tx.ReadBucket(paymentsBucketName)
		if payments == nil {
			return ErrCorruptedRedemptionDB
		}

		v := payments.Get(txHash[:])
		if v == nil {
			return nil
		}
		if len(v) != len(id) {
			return ErrCorruptedRedemptionDB
		}
		copy(id[:], v)
		found = true

		return nil
	}, func() {})

	return id, found, err
}

// ListActive returns the pending redemptions of a reserve.
func (s *RedemptionStore) ListActive(reserve string) ([]*types.Redemption, error) {
	return s.listActive(reservePrefix(reserve))
}

// ListAllActive returns every pending redemption.
func (s *RedemptionStore) ListAllActive() ([]*types.Redemption, error) {
	return s.listActive(nil)
}

func (s *RedemptionStore) listActive(prefix []byte) ([]*types.Redemption, error) {
	var redemptions []*types.Redemption

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(redemptionsBucketName)
		active := tx.ReadBucket(activeRedemptionsBucketName)
		if bucket == nil || active == nil {
			return ErrCorruptedRedemptionDB
		}

		c := active.ReadCursor()
		k, _ := c.First()
		if prefix != nil {
			k, _ = c.Seek(prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if len(k) < len(types.RedemptionID{}) {
				return ErrCorruptedRedemptionDB
			}
			id := k[len(k)-len(types.RedemptionID{}):]

			var r types.Redemption
			found, err := getRecord(bucket, id, &r, ErrCorruptedRedemptionDB)
			if err != nil {
				return err
			}
			if !found {
				return ErrCorruptedRedemptionDB
			}
			redemptions = append(redemptions, &r)
		}

		return nil
	}, func() {
		redemptions = nil
	})

	if err != nil {
		return nil, err
	}

	return redemptions, nil
}
