package keeper

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	storetypes "cosmossdk.io/store/types"
)

// getJSON loads and decodes the value at key. Values are stored as JSON.
func getJSON[T any](store storetypes.KVStore, key []byte) (T, bool, error) {
	var v T
	bz := store.Get(key)
	if bz == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(bz, &v); err != nil {
		return v, false, fmt.Errorf("unmarshal %x: %w", key, err)
	}
	return v, true, nil
}

// setJSON encodes v and stores it at key.
func setJSON(store storetypes.KVStore, key []byte, v any) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %x: %w", key, err)
	}
	store.Set(key, bz)
	return nil
}

// iterateJSON decodes every value under prefix in key order. Returning true from cb stops iteration.
func iterateJSON[T any](store storetypes.KVStore, prefix []byte, cb func(key []byte, v T) (stop bool, err error)) error {
	iter := storetypes.KVStorePrefixIterator(store, prefix)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		var v T
		if err := json.Unmarshal(iter.Value(), &v); err != nil {
			return fmt.Errorf("unmarshal %x: %w", iter.Key(), err)
		}
		stop, err := cb(iter.Key(), v)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// collectKeys returns up to limit keys under prefix; limit <= 0 means no limit.
func collectKeys(store storetypes.KVStore, prefix []byte, limit int) [][]byte {
	iter := storetypes.KVStorePrefixIterator(store, prefix)
	defer iter.Close()

	var keys [][]byte
	for ; iter.Valid(); iter.Next() {
		if limit > 0 && len(keys) >= limit {
			break
		}
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	return keys
}

// getCounter reads a big-endian uint64 counter; an absent counter is zero.
func getCounter(store storetypes.KVStore, key []byte) uint64 {
	bz := store.Get(key)
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func setCounter(store storetypes.KVStore, key []byte, v uint64) {
	store.Set(key, uint64Bytes(v))
}

// nextID returns the counter's current value and advances it.
func nextID(store storetypes.KVStore, key []byte) uint64 {
	id := getCounter(store, key)
	setCounter(store, key, id+1)
	return id
}
