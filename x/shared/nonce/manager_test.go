package nonce_test

import (
	"errors"
	"testing"

	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/testutil"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/shared/nonce"
)

var errStale = errors.New("stale")

type mockErrorProvider struct{}

func (mockErrorProvider) StaleError(msg string) error {
	return errors.Join(errStale, errors.New(msg))
}

func setupManager(t *testing.T) (*nonce.Manager, sdk.Context) {
	t.Helper()
	storeKey := storetypes.NewKVStoreKey("test")
	ctx := testutil.DefaultContext(storeKey, storetypes.NewTransientStoreKey("transient_test"))
	return nonce.NewManager(storeKey, []byte{0x42}, mockErrorProvider{}), ctx
}

func TestAdvance_StrictlyIncreasing(t *testing.T) {
	manager, ctx := setupManager(t)
	scope := []byte("svc-1/op-a")

	_, ok := manager.Last(ctx, scope)
	require.False(t, ok)

	require.NoError(t, manager.Advance(ctx, scope, 0))
	require.NoError(t, manager.Advance(ctx, scope, 5))

	err := manager.Advance(ctx, scope, 5)
	require.ErrorIs(t, err, errStale)
	err = manager.Advance(ctx, scope, 4)
	require.ErrorIs(t, err, errStale)

	last, ok := manager.Last(ctx, scope)
	require.True(t, ok)
	require.Equal(t, uint64(5), last)
}

func TestAdvance_ScopesAreIndependent(t *testing.T) {
	manager, ctx := setupManager(t)

	require.NoError(t, manager.Advance(ctx, []byte("a"), 10))
	require.NoError(t, manager.Advance(ctx, []byte("b"), 1))
}

func TestClear(t *testing.T) {
	manager, ctx := setupManager(t)

	require.NoError(t, manager.Advance(ctx, []byte("svc-1/a"), 3))
	require.NoError(t, manager.Advance(ctx, []byte("svc-1/b"), 3))
	require.NoError(t, manager.Advance(ctx, []byte("svc-2/a"), 3))

	manager.Clear(ctx, []byte("svc-2/a"))
	require.NoError(t, manager.Advance(ctx, []byte("svc-2/a"), 1))

	require.Equal(t, 2, manager.ClearPrefix(ctx, []byte("svc-1/")))
	require.NoError(t, manager.Advance(ctx, []byte("svc-1/a"), 0))
	require.ErrorIs(t, manager.Advance(ctx, []byte("svc-2/a"), 1), errStale)
}
