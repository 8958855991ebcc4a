package keeper

import (
	"context"
	"errors"
	"strconv"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/hashicorp/go-metrics"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedkeeper "github.com/tangle-network/tangle-sub001/x/shared/keeper"
)

const (
	slashTriggerExplicit = "explicit"
	slashTriggerMature   = "mature"
)

// Slash records a deferred penalty against an operator of a service. Only the
// service's slashing origin may slash. The slash snapshots the operator's
// committed exposures; stake is only touched when the slash is applied.
func (k Keeper) Slash(
	ctx context.Context,
	authority sdk.AccAddress,
	operator sdk.AccAddress,
	serviceID uint64,
	slashPercent types.Percent,
) (era uint64, index uint32, err error) {
	span := startSpan(ctx, "slash")
	defer func() { endSpan(span, err) }()

	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return 0, 0, err
	}
	bp, err := k.GetBlueprint(ctx, svc.BlueprintID)
	if err != nil {
		return 0, 0, err
	}
	if origin := k.SlashingOrigin(ctx, bp, serviceID); !origin.Equals(authority) {
		return 0, 0, types.ErrBadOrigin.Wrapf("%s is not the slashing origin of service %d", authority, serviceID)
	}
	if err := slashPercent.Validate(); err != nil {
		return 0, 0, types.ErrInvalidSlashPercent.Wrap(err.Error())
	}
	entry, ok := svc.Operator(operator)
	if !ok {
		return 0, 0, types.ErrOffenderNotOperator.Wrapf("operator %s, service %d", operator, serviceID)
	}

	totalStake := math.ZeroInt()
	for _, c := range entry.Commitments {
		totalStake = totalStake.Add(k.delegationKeeper.GetLiveStake(ctx, operator, c.Asset))
	}
	if !totalStake.IsPositive() {
		return 0, 0, types.ErrInsufficientStake.Wrapf("operator %s has no live stake behind service %d", operator, serviceID)
	}
	if pending := k.pendingSlashPercent(ctx, operator, serviceID); pending+uint64(slashPercent) > uint64(types.MaxPercent) {
		return 0, 0, types.ErrInsufficientStakeRemaining.Wrapf("%d%% already pending, cannot add %s", pending, slashPercent)
	}

	era = k.delegationKeeper.CurrentRound(ctx)
	err = k.atomically(ctx, func(ctx sdk.Context) error {
		store := k.getStore(ctx)
		counterKey := GetNextSlashIndexKey(era)
		next := getCounter(store, counterKey)
		if next > uint64(^uint32(0)) {
			return sdkerrors.ErrInvalidRequest.Wrapf("era %d has no free slash index", era)
		}
		index = uint32(next)
		setCounter(store, counterKey, next+1)

		slash := types.UnappliedSlash{
			Era:          era,
			Index:        index,
			Operator:     operator,
			ServiceID:    serviceID,
			BlueprintID:  bp.ID,
			SlashPercent: slashPercent,
			Exposures:    entry.Commitments,
			CreatedAt:    ctx.BlockHeight(),
		}
		if err := k.setUnappliedSlash(ctx, slash); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeUnappliedSlash,
				sdk.NewAttribute(types.AttributeKeyEra, strconv.FormatUint(era, 10)),
				sdk.NewAttribute(types.AttributeKeyIndex, strconv.FormatUint(uint64(index), 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeySlashPercent, slashPercent.String()),
			),
		)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	k.metrics.SlashesRecorded.Inc()
	k.Logger(ctx).Info("slash recorded", "era", era, "index", index, "operator", operator.String(), "service_id", serviceID, "percent", uint8(slashPercent))
	return era, index, nil
}

// Dispute cancels an unapplied slash on behalf of the service's dispute origin.
func (k Keeper) Dispute(ctx context.Context, disputer sdk.AccAddress, era uint64, index uint32) (err error) {
	span := startSpan(ctx, "dispute")
	defer func() { endSpan(span, err) }()

	slash, err := k.GetUnappliedSlash(ctx, era, index)
	if err != nil {
		return err
	}
	bp, err := k.GetBlueprint(ctx, slash.BlueprintID)
	if err != nil {
		return err
	}
	if origin := k.DisputeOrigin(ctx, bp, slash.ServiceID); !origin.Equals(disputer) {
		return types.ErrBadOrigin.Wrapf("%s is not the dispute origin of service %d", disputer, slash.ServiceID)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		k.deleteUnappliedSlash(ctx, slash)
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeSlashDisputed,
				sdk.NewAttribute(types.AttributeKeyEra, strconv.FormatUint(era, 10)),
				sdk.NewAttribute(types.AttributeKeyIndex, strconv.FormatUint(uint64(index), 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, slash.Operator.String()),
				sdk.NewAttribute(types.AttributeKeyDisputer, disputer.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.metrics.SlashesDisputed.Inc()
	return nil
}

// ApplySlash executes an unapplied slash against the operator's live stake.
// The slashing origin or the module authority may apply it.
func (k Keeper) ApplySlash(ctx context.Context, authority sdk.AccAddress, era uint64, index uint32) (outcomes []types.SlashOutcome, err error) {
	span := startSpan(ctx, "apply_slash")
	defer func() { endSpan(span, err) }()

	slash, err := k.GetUnappliedSlash(ctx, era, index)
	if err != nil {
		return nil, err
	}
	bp, err := k.GetBlueprint(ctx, slash.BlueprintID)
	if err != nil {
		return nil, err
	}
	origin := k.SlashingOrigin(ctx, bp, slash.ServiceID)
	if !origin.Equals(authority) && sharedkeeper.ValidateAuthority(k.authority, authority.String()) != nil {
		return nil, types.ErrBadOrigin.Wrapf("%s may not apply slashes of service %d", authority, slash.ServiceID)
	}
	return k.applySlash(ctx, bp, slash, slashTriggerExplicit)
}

func (k Keeper) applySlash(ctx context.Context, bp types.Blueprint, slash types.UnappliedSlash, trigger string) ([]types.SlashOutcome, error) {
	outcomes := make([]types.SlashOutcome, 0, len(slash.Exposures))
	err := k.atomically(ctx, func(ctx sdk.Context) error {
		outcomes = outcomes[:0]
		for _, exposure := range slash.Exposures {
			fraction := slash.SlashPercent.Dec().Mul(exposure.ExposurePercent.Dec())
			live := k.delegationKeeper.GetLiveStake(ctx, slash.Operator, exposure.Asset)
			deducted, err := k.delegationKeeper.SlashDelegatorsOf(ctx, slash.Operator, exposure.Asset, fraction)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, types.SlashOutcome{Asset: exposure.Asset, Fraction: fraction, Deducted: deducted})
			ctx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeAssetSlashed,
					sdk.NewAttribute(types.AttributeKeyOperator, slash.Operator.String()),
					sdk.NewAttribute(types.AttributeKeyAsset, exposure.Asset.String()),
					sdk.NewAttribute(types.AttributeKeyLiveStake, live.String()),
					sdk.NewAttribute(types.AttributeKeyDeduction, fraction.MulInt(live).TruncateInt().String()),
					sdk.NewAttribute(types.AttributeKeyDeducted, deducted.String()),
				),
			)
		}
		k.deleteUnappliedSlash(ctx, slash)
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeSlashApplied,
				sdk.NewAttribute(types.AttributeKeyEra, strconv.FormatUint(slash.Era, 10)),
				sdk.NewAttribute(types.AttributeKeyIndex, strconv.FormatUint(uint64(slash.Index), 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, slash.Operator.String()),
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(slash.ServiceID, 10)),
				sdk.NewAttribute(types.AttributeKeyReason, trigger),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.metrics.SlashesApplied.WithLabelValues(trigger).Inc()
	for _, o := range outcomes {
		if o.Deducted.IsInt64() {
			telemetry.IncrCounterWithLabels(
				[]string{types.ModuleName, "slash", "deducted"},
				float32(o.Deducted.Int64()),
				[]metrics.Label{
					telemetry.NewLabel("asset_kind", o.Asset.Kind.String()),
					telemetry.NewLabel("trigger", trigger),
				},
			)
		}
	}
	k.notifyManager(ctx, bp, "onSlash", types.EncodeCall(types.SigOnSlash,
		types.Uint64Word(slash.ServiceID), types.AddressWord(types.EVMAddressFromAccount(slash.Operator)),
		types.Uint8Word(uint8(slash.SlashPercent))))
	return outcomes, nil
}

// ApplyMatureSlashes applies, oldest first, up to limit unapplied slashes
// whose era lies at least SlashDeferRounds rounds in the past. It does nothing
// while SlashDeferRounds is zero.
func (k Keeper) ApplyMatureSlashes(ctx context.Context, limit int) (int, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return 0, err
	}
	if params.SlashDeferRounds == 0 {
		return 0, nil
	}
	current := k.delegationKeeper.CurrentRound(ctx)
	if current < params.SlashDeferRounds {
		return 0, nil
	}
	cutoff := current - params.SlashDeferRounds

	var due []types.UnappliedSlash
	err = k.IterateUnappliedSlashes(ctx, func(s types.UnappliedSlash) bool {
		if s.Era > cutoff || (limit > 0 && len(due) >= limit) {
			return true
		}
		due = append(due, s)
		return false
	})
	if err != nil {
		return 0, err
	}

	applied := 0
	var errs []error
	for _, slash := range due {
		bp, err := k.GetBlueprint(ctx, slash.BlueprintID)
		if err == nil {
			_, err = k.applySlash(ctx, bp, slash, slashTriggerMature)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}

// pendingSlashPercent sums the unapplied slash percents against (operator, service).
func (k Keeper) pendingSlashPercent(ctx context.Context, operator sdk.AccAddress, serviceID uint64) uint64 {
	store := k.getStore(ctx)
	var sum uint64
	for _, key := range collectKeys(store, GetPendingSlashesPrefix(operator, serviceID), 0) {
		if bz := store.Get(key); len(bz) == 1 {
			sum += uint64(bz[0])
		}
	}
	return sum
}

// GetUnappliedSlash returns the slash at (era, index).
func (k Keeper) GetUnappliedSlash(ctx context.Context, era uint64, index uint32) (types.UnappliedSlash, error) {
	slash, found, err := getJSON[types.UnappliedSlash](k.getStore(ctx), GetUnappliedSlashKey(era, index))
	if err != nil {
		return types.UnappliedSlash{}, err
	}
	if !found {
		return types.UnappliedSlash{}, types.ErrUnappliedSlashNotFound.Wrapf("era %d, index %d", era, index)
	}
	return slash, nil
}

// IterateUnappliedSlashes calls cb for every unapplied slash ordered by (era, index).
func (k Keeper) IterateUnappliedSlashes(ctx context.Context, cb func(types.UnappliedSlash) bool) error {
	return iterateJSON(k.getStore(ctx), UnappliedSlashKeyPrefix, func(_ []byte, s types.UnappliedSlash) (bool, error) {
		return cb(s), nil
	})
}

// setUnappliedSlash stores a slash with its pending index and keeps the era's
// index counter ahead of it.
func (k Keeper) setUnappliedSlash(ctx context.Context, slash types.UnappliedSlash) error {
	store := k.getStore(ctx)
	if err := setJSON(store, GetUnappliedSlashKey(slash.Era, slash.Index), slash); err != nil {
		return err
	}
	store.Set(GetPendingSlashKey(slash.Operator, slash.ServiceID, slash.Era, slash.Index), []byte{byte(slash.SlashPercent)})
	counterKey := GetNextSlashIndexKey(slash.Era)
	if getCounter(store, counterKey) <= uint64(slash.Index) {
		setCounter(store, counterKey, uint64(slash.Index)+1)
	}
	return nil
}

func (k Keeper) deleteUnappliedSlash(ctx context.Context, slash types.UnappliedSlash) {
	store := k.getStore(ctx)
	store.Delete(GetUnappliedSlashKey(slash.Era, slash.Index))
	store.Delete(GetPendingSlashKey(slash.Operator, slash.ServiceID, slash.Era, slash.Index))
}
