package keeper

import (
	"context"
	"encoding/binary"
	"strconv"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedkeeper "github.com/tangle-network/tangle-sub001/x/shared/keeper"
)

// CreateBlueprint validates and stores a new blueprint and returns its id.
// Ids come from a monotonic counter that only advances on success.
func (k Keeper) CreateBlueprint(ctx context.Context, owner sdk.AccAddress, blueprint types.Blueprint) (uint64, error) {
	if len(owner) == 0 {
		return 0, types.ErrInvalidAddress.Wrap("blueprint owner is empty")
	}
	if err := blueprint.Validate(); err != nil {
		return 0, err
	}
	if blueprint.MasterManagerRevision.Kind == types.RevisionSpecific {
		if _, err := k.GetMasterManager(ctx, blueprint.MasterManagerRevision.Revision); err != nil {
			return 0, err
		}
	}

	var id uint64
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		store := k.getStore(ctx)
		id = nextID(store, NextBlueprintIDKey)
		blueprint.ID = id
		blueprint.Owner = owner
		if err := setJSON(store, GetBlueprintKey(id), blueprint); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeBlueprintCreated,
				sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(id, 10)),
				sdk.NewAttribute(types.AttributeKeyOwner, owner.String()),
				sdk.NewAttribute(types.AttributeKeyManager, blueprint.Manager.Hex()),
			),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}

	k.metrics.BlueprintsCreated.Inc()
	k.notifyManager(ctx, blueprint, "onBlueprintCreated",
		types.EncodeCall(types.SigOnBlueprintCreated, types.Uint64Word(id), types.AddressWord(types.EVMAddressFromAccount(owner))))
	return id, nil
}

// GetBlueprint returns a blueprint by id.
func (k Keeper) GetBlueprint(ctx context.Context, id uint64) (types.Blueprint, error) {
	bp, found, err := getJSON[types.Blueprint](k.getStore(ctx), GetBlueprintKey(id))
	if err != nil {
		return types.Blueprint{}, err
	}
	if !found {
		return types.Blueprint{}, types.ErrBlueprintNotFound.Wrapf("blueprint %d", id)
	}
	return bp, nil
}

// SetBlueprint stores a blueprint as-is; used by genesis import.
func (k Keeper) SetBlueprint(ctx context.Context, bp types.Blueprint) error {
	return setJSON(k.getStore(ctx), GetBlueprintKey(bp.ID), bp)
}

// IterateBlueprints calls cb for every blueprint in id order until cb returns true.
func (k Keeper) IterateBlueprints(ctx context.Context, cb func(types.Blueprint) bool) error {
	return iterateJSON(k.getStore(ctx), BlueprintKeyPrefix, func(_ []byte, bp types.Blueprint) (bool, error) {
		return cb(bp), nil
	})
}

// UpdateMasterManager appends a master blueprint service manager revision.
// Blueprints following the latest revision resolve to it immediately.
func (k Keeper) UpdateMasterManager(ctx context.Context, authority string, manager types.EVMAddress) (uint32, error) {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority); err != nil {
		return 0, types.ErrNotAuthorized.Wrap(err.Error())
	}
	if manager.IsZero() {
		return 0, types.ErrInvalidAddress.Wrap("master manager cannot be the zero address")
	}

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	revision := k.masterManagerCount(ctx)
	store := k.getStore(ctx)
	store.Set(GetMasterManagerKey(revision), manager.Bytes())

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeMasterManagerUpdated,
			sdk.NewAttribute(types.AttributeKeyRevision, strconv.FormatUint(uint64(revision), 10)),
			sdk.NewAttribute(types.AttributeKeyManager, manager.Hex()),
		),
	)
	k.Logger(ctx).Info("master blueprint service manager updated", "revision", revision, "address", manager.Hex())
	return revision, nil
}

// GetMasterManager returns the address of a master manager revision.
func (k Keeper) GetMasterManager(ctx context.Context, revision uint32) (types.EVMAddress, error) {
	bz := k.getStore(ctx).Get(GetMasterManagerKey(revision))
	if bz == nil {
		return types.EVMAddress{}, types.ErrMasterManagerRevisionNotFound.Wrapf("revision %d", revision)
	}
	return types.BytesToEVMAddress(bz), nil
}

// GetMasterManagers returns every revision in order.
func (k Keeper) GetMasterManagers(ctx context.Context) []types.EVMAddress {
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), MasterManagerKeyPrefix)
	defer iter.Close()

	var out []types.EVMAddress
	for ; iter.Valid(); iter.Next() {
		out = append(out, types.BytesToEVMAddress(iter.Value()))
	}
	return out
}

func (k Keeper) masterManagerCount(ctx context.Context) uint32 {
	iter := storetypes.KVStoreReversePrefixIterator(k.getStore(ctx), MasterManagerKeyPrefix)
	defer iter.Close()

	if !iter.Valid() {
		return 0
	}
	key := iter.Key()
	return binary.BigEndian.Uint32(key[len(key)-4:]) + 1
}

// MBSMAddressOf resolves the master blueprint service manager of a blueprint.
// Latest follows the newest revision, or the blueprint's own manager while no
// revision exists. Specific(n) requires revision n.
func (k Keeper) MBSMAddressOf(ctx context.Context, bp types.Blueprint) (types.EVMAddress, error) {
	switch bp.MasterManagerRevision.Kind {
	case types.RevisionLatest:
		count := k.masterManagerCount(ctx)
		if count == 0 {
			return bp.Manager, nil
		}
		return k.GetMasterManager(ctx, count-1)
	case types.RevisionSpecific:
		return k.GetMasterManager(ctx, bp.MasterManagerRevision.Revision)
	default:
		return types.EVMAddress{}, types.ErrInvalidBlueprint.Wrapf("unknown revision kind %d", bp.MasterManagerRevision.Kind)
	}
}

// ManagerAccountOf is the native account that receives released payments for a blueprint.
func (k Keeper) ManagerAccountOf(ctx context.Context, bp types.Blueprint) (sdk.AccAddress, error) {
	mbsm, err := k.MBSMAddressOf(ctx, bp)
	if err != nil {
		return nil, err
	}
	return types.AccountFromEVMAddress(mbsm), nil
}

// NextBlueprintID returns the id the next blueprint will receive.
func (k Keeper) NextBlueprintID(ctx context.Context) uint64 {
	return getCounter(k.getStore(ctx), NextBlueprintIDKey)
}
