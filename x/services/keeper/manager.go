package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"go.opentelemetry.io/otel/trace"

	"github.com/tangle-network/tangle-sub001/app/telemetry"
	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// notifyManager delivers a hook to the blueprint's service manager contract.
// Delivery is best-effort: the call runs on its own branch, a failure is
// logged and counted, and the caller's state transition stands either way.
func (k Keeper) notifyManager(ctx context.Context, bp types.Blueprint, hook string, data []byte) {
	if k.evm == nil || bp.Manager.IsZero() {
		return
	}
	_, span := telemetry.StartManagerCallSpan(ctx, bp.Manager.Hex(), hook)
	defer span.End()

	sdkCtx := sdk.UnwrapSDKContext(ctx)
	cacheCtx, write := sdkCtx.CacheContext()
	if _, err := k.evm.CallMutating(cacheCtx, k.moduleEVMAddress(), bp.Manager, data); err != nil {
		telemetry.RecordError(span, err)
		k.metrics.ManagerCallFailures.WithLabelValues(hook).Inc()
		k.Logger(ctx).Error("manager hook failed",
			"hook", hook,
			"blueprint_id", bp.ID,
			"manager", bp.Manager.Hex(),
			"error", err.Error(),
		)
		sdkCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeManagerCallFail,
				sdk.NewAttribute(types.AttributeKeyHook, hook),
				sdk.NewAttribute(types.AttributeKeyManager, bp.Manager.Hex()),
				sdk.NewAttribute(types.AttributeKeyError, err.Error()),
			),
		)
		return
	}
	write()
}

// queryOrigin asks the blueprint's manager for an origin address through a
// view call. Any failure, a malformed answer or the zero address selects the
// account of that same manager contract, bp.Manager, even when a master
// manager revision routes payments elsewhere.
func (k Keeper) queryOrigin(ctx context.Context, bp types.Blueprint, signature string, serviceID uint64) sdk.AccAddress {
	fallback := types.AccountFromEVMAddress(bp.Manager)
	if k.evm == nil || bp.Manager.IsZero() {
		return fallback
	}

	out, err := k.evm.CallView(ctx, k.moduleEVMAddress(), bp.Manager, types.EncodeCall(signature, types.Uint64Word(serviceID)))
	if err != nil {
		k.Logger(ctx).Debug("origin query failed, using manager account", "query", signature, "service_id", serviceID, "error", err.Error())
		return fallback
	}
	origin, err := types.DecodeAddress(out)
	if err != nil || origin.IsZero() {
		return fallback
	}
	return types.AccountFromEVMAddress(origin)
}

// SlashingOrigin is the account allowed to slash operators of a service.
func (k Keeper) SlashingOrigin(ctx context.Context, bp types.Blueprint, serviceID uint64) sdk.AccAddress {
	return k.queryOrigin(ctx, bp, types.SigQuerySlashingOrigin, serviceID)
}

// DisputeOrigin is the account allowed to dispute slashes of a service.
func (k Keeper) DisputeOrigin(ctx context.Context, bp types.Blueprint, serviceID uint64) sdk.AccAddress {
	return k.queryOrigin(ctx, bp, types.SigQueryDisputeOrigin, serviceID)
}

func startSpan(ctx context.Context, operation string) trace.Span {
	_, span := telemetry.StartModuleSpan(ctx, types.ModuleName, operation)
	return span
}

func endSpan(span trace.Span, err error) {
	telemetry.RecordError(span, err)
	span.End()
}
