package keeper

import (
	"context"
	"errors"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

const (
	closeReasonRejected = "rejected"
	closeReasonExpired  = "expired"
)

// Approve records operator's approval of a pending request. Approving the last
// pending entry instantiates the service and releases the escrow. A request
// whose ttl has elapsed is closed and refunded instead, with outcome Expired.
func (k Keeper) Approve(
	ctx context.Context,
	operator sdk.AccAddress,
	requestID uint64,
	exposurePercent types.Percent,
	commitments []types.AssetSecurityCommitment,
) (outcome types.ApproveOutcome, err error) {
	span := startSpan(ctx, "approve")
	defer func() { endSpan(span, err) }()

	var (
		bp      types.Blueprint
		request types.ServiceRequest
	)
	err = k.atomically(ctx, func(ctx sdk.Context) error {
		var err error
		request, err = k.GetServiceRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.IsExpired(ctx.BlockHeight()) {
			outcome = types.ApproveOutcome{Kind: types.OutcomeExpired}
			return k.closeRequest(ctx, request, closeReasonExpired)
		}

		idx := request.OperatorIndex(operator)
		if idx < 0 || request.OperatorsWithState[idx].State.Kind != types.ApprovalPending {
			return types.ErrNotRequested.Wrapf("operator %s, request %d", operator, requestID)
		}
		if err := exposurePercent.Validate(); err != nil {
			return types.ErrInvalidSecurityCommitment.Wrap(err.Error())
		}
		if err := types.ValidateCommitments(request.Requirements, commitments); err != nil {
			return err
		}
		request.OperatorsWithState[idx].State = types.ApprovalState{
			Kind:            types.ApprovalApproved,
			ExposurePercent: exposurePercent,
			Commitments:     commitments,
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeServiceRequestApproved,
				sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyExposurePercent, exposurePercent.String()),
			),
		)

		bp, err = k.GetBlueprint(ctx, request.BlueprintID)
		if err != nil {
			return err
		}
		if !request.IsApproved() {
			outcome = types.ApproveOutcome{Kind: types.OutcomeStillPending}
			return k.SetServiceRequest(ctx, request)
		}

		serviceID, err := k.instantiate(ctx, bp, request)
		if err != nil {
			return err
		}
		k.deleteRequest(ctx, request)
		outcome = types.ApproveOutcome{Kind: types.OutcomeServiceCreated, ServiceID: serviceID}
		return nil
	})
	if err != nil {
		return types.ApproveOutcome{}, err
	}

	k.metrics.Approvals.WithLabelValues(outcome.Kind.String()).Inc()
	if outcome.Kind == types.OutcomeExpired {
		k.afterRequestClosed(ctx, request, closeReasonExpired)
		return outcome, nil
	}
	k.notifyManager(ctx, bp, "onApprove", types.EncodeCall(types.SigOnApprove,
		types.Uint64Word(bp.ID), types.Uint64Word(requestID),
		types.AddressWord(types.EVMAddressFromAccount(operator)), types.Uint8Word(uint8(exposurePercent))))
	if outcome.Kind == types.OutcomeServiceCreated {
		k.metrics.RequestsPending.Dec()
		k.notifyServiceInitialized(ctx, bp, requestID, outcome.ServiceID, request.Owner, request.TTL)
	}
	return outcome, nil
}

// Reject closes the whole request on behalf of one of its candidate
// operators and refunds the escrow in full to the requester.
func (k Keeper) Reject(ctx context.Context, operator sdk.AccAddress, requestID uint64) (err error) {
	span := startSpan(ctx, "reject")
	defer func() { endSpan(span, err) }()

	var (
		request types.ServiceRequest
		reason  = closeReasonRejected
	)
	err = k.atomically(ctx, func(ctx sdk.Context) error {
		var err error
		request, err = k.GetServiceRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.IsExpired(ctx.BlockHeight()) {
			reason = closeReasonExpired
			return k.closeRequest(ctx, request, reason)
		}
		idx := request.OperatorIndex(operator)
		if idx < 0 {
			return types.ErrNotRequested.Wrapf("operator %s, request %d", operator, requestID)
		}
		request.OperatorsWithState[idx].State = types.ApprovalState{Kind: types.ApprovalRejected}
		return k.closeRequest(ctx, request, reason)
	})
	if err != nil {
		return err
	}

	k.afterRequestClosed(ctx, request, reason)
	if reason == closeReasonRejected {
		if bp, err := k.GetBlueprint(ctx, request.BlueprintID); err == nil {
			k.notifyManager(ctx, bp, "onReject", types.EncodeCall(types.SigOnReject,
				types.Uint64Word(bp.ID), types.Uint64Word(requestID), types.AddressWord(types.EVMAddressFromAccount(operator))))
		}
	}
	return nil
}

// closeRequest refunds the escrow and removes the request.
func (k Keeper) closeRequest(ctx sdk.Context, request types.ServiceRequest, reason string) error {
	if err := k.refundPayment(ctx, request.ID); err != nil {
		return err
	}
	k.deleteRequest(ctx, request)

	eventType := types.EventTypeServiceRequestRejected
	if reason == closeReasonExpired {
		eventType = types.EventTypeServiceRequestExpired
	}
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			eventType,
			sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(request.ID, 10)),
			sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(request.BlueprintID, 10)),
			sdk.NewAttribute(types.AttributeKeyRefundTo, request.Owner.String()),
			sdk.NewAttribute(types.AttributeKeyReason, reason),
		),
	)
	return nil
}

func (k Keeper) afterRequestClosed(ctx context.Context, request types.ServiceRequest, reason string) {
	k.metrics.RequestsClosed.WithLabelValues(reason).Inc()
	k.metrics.RequestsPending.Dec()
	k.Logger(ctx).Info("service request closed", "request_id", request.ID, "reason", reason)
}

// SweepExpiredRequests closes up to limit requests whose ttl has elapsed,
// oldest first, and returns how many it closed. A request that fails to close
// is left in place and reported in the returned error.
func (k Keeper) SweepExpiredRequests(ctx context.Context, limit int) (int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	keys := k.dueKeys(ctx, RequestExpiryPrefix, sdkCtx.BlockHeight(), limit)

	closed := 0
	var errs []error
	for _, key := range keys {
		requestID := trailingUint64(key)
		var (
			request types.ServiceRequest
			found   bool
		)
		err := k.atomically(ctx, func(ctx sdk.Context) error {
			var err error
			request, err = k.GetServiceRequest(ctx, requestID)
			if err != nil {
				// stale index entry
				k.getStore(ctx).Delete(key)
				return nil
			}
			found = true
			return k.closeRequest(ctx, request, closeReasonExpired)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if found {
			closed++
			k.afterRequestClosed(ctx, request, closeReasonExpired)
		}
	}
	return closed, errors.Join(errs...)
}

// dueKeys returns up to limit expiry index keys under prefix with height <= now.
func (k Keeper) dueKeys(ctx context.Context, prefix []byte, now int64, limit int) [][]byte {
	store := k.getStore(ctx)
	end := concat(prefix, heightBytes(now+1))
	iter := store.Iterator(prefix, end)
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
