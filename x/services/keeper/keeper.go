package keeper

import (
	"context"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedkeeper "github.com/tangle-network/tangle-sub001/x/shared/keeper"
	"github.com/tangle-network/tangle-sub001/x/shared/nonce"
)

// Keeper of the services store
type Keeper struct {
	storeKey         storetypes.StoreKey
	accountKeeper    types.AccountKeeper
	bankKeeper       types.BankKeeper
	delegationKeeper types.DelegationKeeper
	evm              types.EVMBridge
	verifier         types.SignatureVerifier
	authority        string

	heartbeats *nonce.Manager
	metrics    *ServicesMetrics
}

type kvStoreProvider interface {
	KVStore(key storetypes.StoreKey) storetypes.KVStore
}

// NewKeeper creates a new services Keeper instance. A nil verifier selects
// the secp256k1 verifier and an empty authority the gov module account.
func NewKeeper(
	key storetypes.StoreKey,
	accountKeeper types.AccountKeeper,
	bankKeeper types.BankKeeper,
	delegationKeeper types.DelegationKeeper,
	evm types.EVMBridge,
	verifier types.SignatureVerifier,
	authority string,
) *Keeper {
	if verifier == nil {
		verifier = types.Secp256k1Verifier{}
	}
	if authority == "" {
		authority = sharedkeeper.DefaultAuthority()
	}
	return &Keeper{
		storeKey:         key,
		accountKeeper:    accountKeeper,
		bankKeeper:       bankKeeper,
		delegationKeeper: delegationKeeper,
		evm:              evm,
		verifier:         verifier,
		authority:        authority,
		heartbeats:       nonce.NewManager(key, HeartbeatRoundKeyPrefix, heartbeatErrors{}),
		metrics:          NewServicesMetrics(),
	}
}

// getStore returns the KVStore for the services module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	if provider, ok := ctx.(kvStoreProvider); ok {
		return provider.KVStore(k.storeKey)
	}

	unwrapped := sdk.UnwrapSDKContext(ctx)
	return unwrapped.KVStore(k.storeKey)
}

// GetAuthority returns the module's governance authority.
func (k Keeper) GetAuthority() string {
	return k.authority
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	return sdk.UnwrapSDKContext(ctx).Logger().With("module", "x/"+types.ModuleName)
}

// ModuleAddress is the sovereign account that holds escrowed bank assets.
func (k Keeper) ModuleAddress() sdk.AccAddress {
	return k.accountKeeper.GetModuleAddress(types.ModuleName)
}

// moduleEVMAddress is the module's identity towards EVM contracts.
func (k Keeper) moduleEVMAddress() types.EVMAddress {
	return types.EVMAddressFromAccount(k.ModuleAddress())
}

// atomically runs fn on a branched context and commits its writes and events
// only when fn succeeds.
func (k Keeper) atomically(ctx context.Context, fn func(ctx sdk.Context) error) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	cacheCtx, write := sdkCtx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

type heartbeatErrors struct{}

func (heartbeatErrors) StaleError(msg string) error { return types.ErrStaleHeartbeat.Wrap(msg) }
