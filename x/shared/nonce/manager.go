// Package nonce tracks strictly increasing per-scope sequence numbers, used to
// reject replayed or out-of-order submissions.
package nonce

import (
	"encoding/binary"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// ErrorProvider allows modules to provide their own error types while using shared nonce logic.
type ErrorProvider interface {
	// StaleError returns the module error for a nonce that does not advance.
	StaleError(msg string) error
}

// Manager stores the last accepted nonce for each scope under a fixed store prefix.
type Manager struct {
	storeKey      storetypes.StoreKey
	prefix        []byte
	errorProvider ErrorProvider
}

// NewManager creates a nonce manager writing under prefix in the module store.
func NewManager(storeKey storetypes.StoreKey, prefix []byte, errorProvider ErrorProvider) *Manager {
	return &Manager{
		storeKey:      storeKey,
		prefix:        append([]byte(nil), prefix...),
		errorProvider: errorProvider,
	}
}

func encodeNonce(n uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, n)
	return bz
}

func (m *Manager) key(scope []byte) []byte {
	return append(append([]byte(nil), m.prefix...), scope...)
}

// Last returns the last accepted nonce for scope.
func (m *Manager) Last(ctx sdk.Context, scope []byte) (uint64, bool) {
	bz := ctx.KVStore(m.storeKey).Get(m.key(scope))
	if len(bz) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(bz), true
}

// Advance accepts value for scope if it is strictly greater than the last
// accepted one. The first value of a scope is always accepted.
func (m *Manager) Advance(ctx sdk.Context, scope []byte, value uint64) error {
	if last, ok := m.Last(ctx, scope); ok && value <= last {
		return m.errorProvider.StaleError(fmt.Sprintf("nonce %d not greater than last accepted %d", value, last))
	}
	ctx.KVStore(m.storeKey).Set(m.key(scope), encodeNonce(value))
	return nil
}

// Clear forgets scope, so its next value is accepted unconditionally.
func (m *Manager) Clear(ctx sdk.Context, scope []byte) {
	ctx.KVStore(m.storeKey).Delete(m.key(scope))
}

// ClearPrefix forgets every scope starting with scopePrefix and returns how many were removed.
func (m *Manager) ClearPrefix(ctx sdk.Context, scopePrefix []byte) int {
	store := ctx.KVStore(m.storeKey)
	iter := storetypes.KVStorePrefixIterator(store, m.key(scopePrefix))
	var keys [][]byte
	for ; iter.Valid(); iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	iter.Close()
	for _, k := range keys {
		store.Delete(k)
	}
	return len(keys)
}
