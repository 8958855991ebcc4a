package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedkeeper "github.com/tangle-network/tangle-sub001/x/shared/keeper"
)

var _ sharedkeeper.ServicesKeeperV1Extended = Keeper{}

// Register adds operator to a blueprint's directory. initialStake is the
// native stake the operator pledges to the blueprint; the delegation module
// must already hold at least that much live native stake for the operator.
func (k Keeper) Register(
	ctx context.Context,
	operator sdk.AccAddress,
	blueprintID uint64,
	preferences types.OperatorPreferences,
	registrationArgs []types.Field,
	initialStake math.Int,
) error {
	bp, err := k.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return err
	}
	if k.IsRegistered(ctx, blueprintID, operator) {
		return types.ErrAlreadyRegistered.Wrapf("operator %s, blueprint %d", operator, blueprintID)
	}
	if !k.delegationKeeper.IsOperatorActive(ctx, operator) {
		return types.ErrOperatorNotActive.Wrapf("operator %s", operator)
	}
	if err := preferences.Validate(); err != nil {
		return err
	}
	if err := types.CheckFields(registrationArgs, bp.RegistrationParams); err != nil {
		return types.ErrInvalidRegistrationInput.Wrap(err.Error())
	}
	if initialStake.IsNil() {
		initialStake = math.ZeroInt()
	}
	if initialStake.IsNegative() {
		return types.ErrInvalidAmount.Wrapf("initial stake %s is negative", initialStake)
	}
	if initialStake.IsPositive() {
		if live := k.delegationKeeper.GetLiveStake(ctx, operator, types.NativeAsset()); live.LT(initialStake) {
			return types.ErrInsufficientStake.Wrapf("live native stake %s below initial stake %s", live, initialStake)
		}
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		reg := types.OperatorRegistration{
			BlueprintID:      blueprintID,
			Operator:         operator,
			Preferences:      preferences,
			RegistrationArgs: registrationArgs,
			InitialStake:     initialStake,
		}
		if err := k.SetOperatorRegistration(ctx, reg); err != nil {
			return err
		}
		profile, err := k.GetOperatorProfile(ctx, operator)
		if err != nil {
			return err
		}
		profile.Blueprints = types.AddUnique(profile.Blueprints, blueprintID)
		if err := k.setOperatorProfile(ctx, profile); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOperatorRegistered,
				sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(blueprintID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyPreference, preferences.ApprovalPreference.String()),
				sdk.NewAttribute(types.AttributeKeyInitialStake, initialStake.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.metrics.OperatorsRegistered.WithLabelValues("register").Inc()
	return nil
}

// Unregister removes operator from a blueprint's directory. An operator still
// serving an instance of the blueprint cannot leave it.
func (k Keeper) Unregister(ctx context.Context, operator sdk.AccAddress, blueprintID uint64) error {
	if !k.IsRegistered(ctx, blueprintID, operator) {
		return types.ErrNotRegistered.Wrapf("operator %s, blueprint %d", operator, blueprintID)
	}
	for _, serviceID := range k.GetOperatorServices(ctx, operator) {
		svc, err := k.GetService(ctx, serviceID)
		if err != nil {
			return err
		}
		if svc.BlueprintID == blueprintID {
			return types.ErrOperatorHasActiveServices.Wrapf("operator %s serves service %d", operator, serviceID)
		}
	}
	var pending []uint64
	err := k.IterateServiceRequests(ctx, func(req types.ServiceRequest) bool {
		if req.BlueprintID == blueprintID && req.OperatorIndex(operator) >= 0 {
			pending = append(pending, req.ID)
		}
		return false
	})
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return types.ErrOperatorHasPendingRequests.Wrapf("operator %s, requests %v", operator, pending)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		k.getStore(ctx).Delete(GetOperatorKey(blueprintID, operator))
		profile, err := k.GetOperatorProfile(ctx, operator)
		if err != nil {
			return err
		}
		profile.Blueprints = types.RemoveID(profile.Blueprints, blueprintID)
		if err := k.setOperatorProfile(ctx, profile); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOperatorUnregistered,
				sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(blueprintID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.metrics.OperatorsRegistered.WithLabelValues("unregister").Inc()
	return nil
}

// UpdateApprovalPreference changes whether new requests need the operator's approval.
func (k Keeper) UpdateApprovalPreference(ctx context.Context, operator sdk.AccAddress, blueprintID uint64, preference types.ApprovalPreference) error {
	return k.updatePreferences(ctx, operator, blueprintID, func(p *types.OperatorPreferences) (sdk.Event, error) {
		if preference != types.ApprovalNone && preference != types.ApprovalRequired {
			return sdk.Event{}, types.ErrInvalidRegistrationInput.Wrapf("unknown approval preference %d", preference)
		}
		p.ApprovalPreference = preference
		return sdk.NewEvent(types.EventTypeApprovalPreferenceUpdated,
			sdk.NewAttribute(types.AttributeKeyPreference, preference.String())), nil
	})
}

// UpdatePriceTargets replaces the operator's advertised prices.
func (k Keeper) UpdatePriceTargets(ctx context.Context, operator sdk.AccAddress, blueprintID uint64, targets types.PriceTargets) error {
	return k.updatePreferences(ctx, operator, blueprintID, func(p *types.OperatorPreferences) (sdk.Event, error) {
		p.PriceTargets = targets
		return sdk.NewEvent(types.EventTypePriceTargetsUpdated), nil
	})
}

// UpdateRPCAddress replaces the operator's RPC endpoint.
func (k Keeper) UpdateRPCAddress(ctx context.Context, operator sdk.AccAddress, blueprintID uint64, rpcAddress string) error {
	return k.updatePreferences(ctx, operator, blueprintID, func(p *types.OperatorPreferences) (sdk.Event, error) {
		if len(rpcAddress) > types.MaxRPCAddressLength {
			return sdk.Event{}, types.ErrInvalidRegistrationInput.Wrapf("rpc address exceeds %d bytes", types.MaxRPCAddressLength)
		}
		p.RPCAddress = rpcAddress
		return sdk.NewEvent(types.EventTypeRPCAddressUpdated,
			sdk.NewAttribute(types.AttributeKeyRPCAddress, rpcAddress)), nil
	})
}

func (k Keeper) updatePreferences(
	ctx context.Context,
	operator sdk.AccAddress,
	blueprintID uint64,
	mutate func(*types.OperatorPreferences) (sdk.Event, error),
) error {
	reg, err := k.GetOperatorRegistration(ctx, blueprintID, operator)
	if err != nil {
		return err
	}
	event, err := mutate(&reg.Preferences)
	if err != nil {
		return err
	}
	if err := k.SetOperatorRegistration(ctx, reg); err != nil {
		return err
	}
	event = event.AppendAttributes(
		sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(blueprintID, 10)),
		sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
	)
	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(event)
	return nil
}

// IsRegistered reports whether operator is registered for the blueprint.
func (k Keeper) IsRegistered(ctx context.Context, blueprintID uint64, operator sdk.AccAddress) bool {
	return k.getStore(ctx).Has(GetOperatorKey(blueprintID, operator))
}

// GetOperatorRegistration returns the directory entry of (blueprint, operator).
func (k Keeper) GetOperatorRegistration(ctx context.Context, blueprintID uint64, operator sdk.AccAddress) (types.OperatorRegistration, error) {
	reg, found, err := getJSON[types.OperatorRegistration](k.getStore(ctx), GetOperatorKey(blueprintID, operator))
	if err != nil {
		return types.OperatorRegistration{}, err
	}
	if !found {
		return types.OperatorRegistration{}, types.ErrNotRegistered.Wrapf("operator %s, blueprint %d", operator, blueprintID)
	}
	return reg, nil
}

// SetOperatorRegistration stores a directory entry.
func (k Keeper) SetOperatorRegistration(ctx context.Context, reg types.OperatorRegistration) error {
	return setJSON(k.getStore(ctx), GetOperatorKey(reg.BlueprintID, reg.Operator), reg)
}

// IterateOperatorRegistrations calls cb for every directory entry.
func (k Keeper) IterateOperatorRegistrations(ctx context.Context, cb func(types.OperatorRegistration) bool) error {
	return iterateJSON(k.getStore(ctx), OperatorKeyPrefix, func(_ []byte, reg types.OperatorRegistration) (bool, error) {
		return cb(reg), nil
	})
}

// GetBlueprintOperators returns every operator registered for a blueprint.
func (k Keeper) GetBlueprintOperators(ctx context.Context, blueprintID uint64) ([]types.OperatorRegistration, error) {
	var out []types.OperatorRegistration
	err := iterateJSON(k.getStore(ctx), GetOperatorsByBlueprintPrefix(blueprintID), func(_ []byte, reg types.OperatorRegistration) (bool, error) {
		out = append(out, reg)
		return false, nil
	})
	return out, err
}

// GetOperatorProfile returns the operator's aggregate profile, empty if unknown.
func (k Keeper) GetOperatorProfile(ctx context.Context, operator sdk.AccAddress) (types.OperatorProfile, error) {
	profile, found, err := getJSON[types.OperatorProfile](k.getStore(ctx), GetOperatorProfileKey(operator))
	if err != nil {
		return types.OperatorProfile{}, err
	}
	if !found {
		return types.OperatorProfile{Operator: operator, Blueprints: []uint64{}, Services: []uint64{}}, nil
	}
	return profile, nil
}

func (k Keeper) setOperatorProfile(ctx context.Context, profile types.OperatorProfile) error {
	key := GetOperatorProfileKey(profile.Operator)
	if profile.IsEmpty() {
		k.getStore(ctx).Delete(key)
		return nil
	}
	return setJSON(k.getStore(ctx), key, profile)
}

// GetOperatorServices returns the ids of the services operator serves, ascending.
func (k Keeper) GetOperatorServices(ctx context.Context, operator sdk.AccAddress) []uint64 {
	keys := collectKeys(k.getStore(ctx), GetServicesByOperatorPrefix(operator), 0)
	ids := make([]uint64, len(keys))
	for i, key := range keys {
		ids[i] = trailingUint64(key)
	}
	return ids
}

// GetActiveServicesCount returns how many live services operator serves.
func (k Keeper) GetActiveServicesCount(ctx context.Context, operator sdk.AccAddress) uint64 {
	return uint64(len(collectKeys(k.getStore(ctx), GetServicesByOperatorPrefix(operator), 0)))
}

// CanExit reports whether operator serves no live service and may leave the delegation system.
func (k Keeper) CanExit(ctx context.Context, operator sdk.AccAddress) bool {
	return k.GetActiveServicesCount(ctx, operator) == 0
}
