package store

import (
	"fmt"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/babylonlabs-io/account-control/lib/math"
	"github.com/babylonlabs-io/account-control/types"
)

var (
	// mapping reserve id -> types.Reserve
	reservesBucketName = []byte("reserves")

	// mapping wallet address -> reserve id
	walletIndexBucketName = []byte("walletindex")

	// single key holding the minted total across reserves
	totalsBucketName = []byte("totals")
	totalMintedKey   = []byte("minted")
)

type ReserveStore struct {
	db kvdb.Backend
}

// NewReserveStore returns a new store backed by db
func NewReserveStore(db kvdb.Backend) (*ReserveStore, error) {
	store := &ReserveStore{db}
	if err := store.initBuckets(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *ReserveStore) initBuckets() error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		for _, name := range [][]byte{reservesBucketName, walletIndexBucketName, totalsBucketName} {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to initialize reserve buckets: %w", err)
	}

	return nil
}

func (s *ReserveStore) CreateReserve(r *types.Reserve) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(reservesBucketName)
		if bucket == nil {
			return ErrCorruptedReserveDB
		}

		if bucket.Get([]byte(r.ID)) != nil {
			return ErrDuplicateReserve
		}

		return putRecord(bucket, []byte(r.ID), r)
	}); err != nil {
		return fmt.Errorf("failed to create reserve: %w", err)
	}

	return nil
}

func (s *ReserveStore) GetReserve(id string) (*types.Reserve, error) {
	var r *types.Reserve

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(reservesBucketName)
		if bucket == nil {
			return ErrCorruptedReserveDB
		}

		var stored types.Reserve
		found, err := getRecord(bucket, []byte(id), &stored, ErrCorruptedReserveDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrReserveNotFound
		}
		r = &stored

		return nil
	}, func() {})

	if err != nil {
		return nil, err
	}

	return r, nil
}

func (s *ReserveStore) ListReserves() ([]*types.Reserve, error) {
	var reserves []*types.Reserve

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(reservesBucketName)
		if bucket == nil {
			return ErrCorruptedReserveDB
		}

		return bucket.ForEach(func(_, v []byte) error {
			var r types.Reserve
			if err := decodeRecord(v, &r, ErrCorruptedReserveDB); err != nil {
				return err
			}
			reserves = append(reserves, &r)

			return nil
		})
	}, func() {
		reserves = nil
	})

	if err != nil {
		return nil, err
	}

	return reserves, nil
}

// UpdateReserve applies stateTransitionFn to the stored reserve and persists
// the result together with the global minted total in one transaction. The
// total moves by however much stateTransitionFn changed MintedAmount. If
// stateTransitionFn returns an error nothing is written.
func (s *ReserveStore) UpdateReserve(
	id string,
	stateTransitionFn func(r *types.Reserve) error,
) (*types.Reserve, error) {
	var updated *types.Reserve

	err := kvdb.Update(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(reservesBucketName)
		totals := tx.ReadWriteBucket(totalsBucketName)
		if bucket == nil || totals == nil {
			return ErrCorruptedReserveDB
		}

		var r types.Reserve
		found, err := getRecord(bucket, []byte(id), &r, ErrCorruptedReserveDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrReserveNotFound
		}

		before := r.MintedAmount
		if err := stateTransitionFn(&r); err != nil {
			return err
		}

		if r.MintedAmount != before {
			if err := adjustTotalMinted(totals, before, r.MintedAmount); err != nil {
				return err
			}
		}

		if err := putRecord(bucket, []byte(id), &r); err != nil {
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

func adjustTotalMinted(totals walletdb.ReadWriteBucket, before, after uint64) error {
	total := bytesToUint64(totals.Get(totalMintedKey))

	if after > before {
		var ok bool
		if total, ok = math.SafeAdd(total, after-before); !ok {
			return fmt.Errorf("total minted overflows")
		}
	} else {
		if before-after > total {
			return ErrCorruptedReserveDB
		}
		total -= before - after
	}

	return totals.Put(totalMintedKey, uint64ToBytes(total))
}

func (s *ReserveStore) TotalMinted() (uint64, error) {
	var total uint64

	err := s.db.View(func(tx kvdb.RTx) error {
		totals := tx.ReadBucket(totalsBucketName)
		if totals == nil {
			return ErrCorruptedReserveDB
		}
		total = bytesToUint64(totals.Get(totalMintedKey))

		return nil
	}, func() {})

	return total, err
}

// AddWallet registers wallet to the reserve. A wallet belongs to at most one
// reserve.
func (s *ReserveStore) AddWallet(reserveID, wallet string) error {
	return s.updateWallets(reserveID, wallet, func(r *types.Reserve, index walletdb.ReadWriteBucket) error {
		if owner := index.Get([]byte(wallet)); owner != nil {
			return fmt.Errorf("%w: owned by %s", ErrWalletAlreadyRegistered, owner)
		}

		r.Wallets = append(r.Wallets, wallet)

		return index.Put([]byte(wallet), []byte(reserveID))
	})
}

func (s *ReserveStore) RemoveWallet(reserveID, wallet string) error {
	return s.updateWallets(reserveID, wallet, func(r *types.Reserve, index walletdb.ReadWriteBucket) error {
		if !r.HasWallet(wallet) {
			return ErrWalletNotFound
		}

		kept := r.Wallets[:0]
		for _, w := range r.Wallets {
			if w != wallet {
				kept = append(kept, w)
			}
		}
		r.Wallets = kept

		return index.Delete([]byte(wallet))
	})
}

func (s *ReserveStore) updateWallets(
	reserveID, wallet string,
	fn func(r *types.Reserve, index walletdb.ReadWriteBucket) error,
) error {
	if err := kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		bucket := tx.ReadWriteBucket(reservesBucketName)
		index := tx.ReadWriteBucket(walletIndexBucketName)
		if bucket == nil || index == nil {
			return ErrCorruptedReserveDB
		}

		var r types.Reserve
		found, err := getRecord(bucket, []byte(reserveID), &r, ErrCorruptedReserveDB)
		if err != nil {
			return err
		}
		if !found {
			return ErrReserveNotFound
		}

		if err := fn(&r, index); err != nil {
			return err
		}

		return putRecord(bucket, []byte(reserveID), &r)
	}); err != nil {
		return fmt.Errorf("failed to update wallet %s: %w", wallet, err)
	}

	return nil
}

// WalletOwner returns the reserve the wallet is registered to.
func (s *ReserveStore) WalletOwner(wallet string) (string, error) {
	var owner string

	err := s.db.View(func(tx kvdb.RTx) error {
		index := tx.ReadBucket(walletIndexBucketName)
		if index == nil {
			return ErrCorruptedReserveDB
		}

		v := index.Get([]byte(wallet))
		if v == nil {
			return ErrWalletNotFound
		}
		owner = string(v)

		return nil
	}, func() {})

	return owner, err
}
