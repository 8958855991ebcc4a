package keeper

import (
	"context"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedabci "github.com/tangle-network/tangle-sub001/x/shared/abci"
)

// EndBlocker closes expired requests, removes expired services and applies
// mature slashes. Failures are logged and counted; they never halt the chain.
func (k Keeper) EndBlocker(ctx context.Context) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	handler := sharedabci.NewBlockerErrorHandler(sdkCtx, types.ModuleName).
		WithObserver(func(operation string, severity sharedabci.ErrorSeverity) {
			k.metrics.BlockerErrors.WithLabelValues(operation, severity.String()).Inc()
		})

	params, err := k.GetParams(ctx)
	if handler.WrapError("load_params", sharedabci.SeverityCritical, err) {
		return nil
	}
	limit := int(params.MaxSweepPerBlock)

	closed, err := k.SweepExpiredRequests(ctx, limit)
	handler.WrapError("sweep_requests", sharedabci.SeverityHigh, err)

	removed, err := k.SweepExpiredServices(ctx, limit)
	handler.WrapError("sweep_services", sharedabci.SeverityMedium, err)

	applied, err := k.ApplyMatureSlashes(ctx, limit)
	handler.WrapError("apply_mature_slashes", sharedabci.SeverityHigh, err)

	if closed+removed+applied > 0 {
		sdkCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				"services_end_block",
				sdk.NewAttribute("height", strconv.FormatInt(sdkCtx.BlockHeight(), 10)),
				sdk.NewAttribute("requests_expired", strconv.Itoa(closed)),
				sdk.NewAttribute("services_expired", strconv.Itoa(removed)),
				sdk.NewAttribute("slashes_applied", strconv.Itoa(applied)),
			),
		)
	}
	return nil
}
