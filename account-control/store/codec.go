package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcwallet/walletdb"
)

// Records are stored as JSON documents keyed by their identifier.

func putRecord(bucket walletdb.ReadWriteBucket, key []byte, v any) error {
	marshalled, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := bucket.Put(key, marshalled); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}

	return nil
}

// getRecord decodes the record at key into v. It returns false if the key
// does not exist.
func getRecord(bucket walletdb.ReadBucket, key []byte, v any, corrupted error) (bool, error) {
	raw := bucket.Get(key)
	if raw == nil {
		return false, nil
	}

	return true, decodeRecord(raw, v, corrupted)
}

func decodeRecord(raw []byte, v any, corrupted error) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return corrupted
	}

	return nil
}

func uint64ToBytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func bytesToUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// compositeKey joins a reserve id and a suffix with a zero byte separator so
// that a prefix scan over reserve||0x00 visits only that reserve's entries.
func compositeKey(reserve string, suffix []byte) []byte {
	key := make([]byte, 0, len(reserve)+1+len(suffix))
	key = append(key, reserve...)
	key = append(key, 0x00)
	key = append(key, suffix...)
	return key
}

func reservePrefix(reserve string) []byte {
	return compositeKey(reserve, nil)
}
