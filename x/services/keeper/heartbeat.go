package keeper

import (
	"context"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// Heartbeat records an operator's signed liveness report for a service. One
// heartbeat is accepted per (service, operator) and delegation round.
func (k Keeper) Heartbeat(
	ctx context.Context,
	operator sdk.AccAddress,
	blueprintID, serviceID uint64,
	metrics, signature []byte,
) error {
	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.BlueprintID != blueprintID {
		return types.ErrServiceBlueprintMismatch.Wrapf("service %d belongs to blueprint %d, not %d", serviceID, svc.BlueprintID, blueprintID)
	}
	if _, ok := svc.Operator(operator); !ok {
		return types.ErrNotOperatorOfService.Wrapf("operator %s, service %d", operator, serviceID)
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	if uint32(len(metrics)) > params.MaxHeartbeatMetricsBytes {
		return types.ErrInvalidHeartbeat.Wrapf("metrics of %d bytes exceed %d", len(metrics), params.MaxHeartbeatMetricsBytes)
	}
	reg, err := k.GetOperatorRegistration(ctx, blueprintID, operator)
	if err != nil {
		return err
	}
	msg := types.HeartbeatMessage(serviceID, blueprintID, metrics)
	if !k.verifier.Verify(reg.Preferences.PublicKey, msg, signature) {
		return types.ErrInvalidHeartbeatSignature.Wrapf("operator %s, service %d", operator, serviceID)
	}

	round := k.delegationKeeper.CurrentRound(ctx)
	err = k.atomically(ctx, func(ctx sdk.Context) error {
		if err := k.heartbeats.Advance(ctx, GetHeartbeatRoundScope(serviceID, operator), round); err != nil {
			return err
		}
		record := types.HeartbeatRecord{
			ServiceID:   serviceID,
			BlueprintID: blueprintID,
			Operator:    operator,
			Round:       round,
			Height:      ctx.BlockHeight(),
			Metrics:     metrics,
		}
		if err := setJSON(k.getStore(ctx), GetHeartbeatKey(serviceID, operator), record); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeHeartbeat,
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyRound, strconv.FormatUint(round, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.metrics.Heartbeats.Inc()
	return nil
}

// GetHeartbeat returns the last heartbeat of operator for a service.
func (k Keeper) GetHeartbeat(ctx context.Context, serviceID uint64, operator sdk.AccAddress) (types.HeartbeatRecord, bool, error) {
	return getJSON[types.HeartbeatRecord](k.getStore(ctx), GetHeartbeatKey(serviceID, operator))
}

// LastHeartbeatRound returns the last round operator reported a heartbeat in
// for a service, if any.
func (k Keeper) LastHeartbeatRound(ctx context.Context, serviceID uint64, operator sdk.AccAddress) (uint64, bool) {
	return k.heartbeats.Last(sdk.UnwrapSDKContext(ctx), GetHeartbeatRoundScope(serviceID, operator))
}

// IterateHeartbeats calls cb for every stored heartbeat.
func (k Keeper) IterateHeartbeats(ctx context.Context, cb func(types.HeartbeatRecord) bool) error {
	return iterateJSON(k.getStore(ctx), HeartbeatKeyPrefix, func(_ []byte, h types.HeartbeatRecord) (bool, error) {
		return cb(h), nil
	})
}

// setHeartbeat restores a heartbeat record and its round; used by genesis import.
func (k Keeper) setHeartbeat(ctx sdk.Context, h types.HeartbeatRecord) error {
	if err := setJSON(k.getStore(ctx), GetHeartbeatKey(h.ServiceID, h.Operator), h); err != nil {
		return err
	}
	return k.heartbeats.Advance(ctx, GetHeartbeatRoundScope(h.ServiceID, h.Operator), h.Round)
}
