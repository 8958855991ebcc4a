package keeper

import (
	"context"
	"errors"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

const (
	removeReasonTerminated = "terminated"
	removeReasonExpired    = "expired"
)

// instantiate turns a fully approved request into a live service, releasing
// the escrow to the blueprint's master manager. The request record itself is
// left to the caller.
func (k Keeper) instantiate(ctx sdk.Context, bp types.Blueprint, request types.ServiceRequest) (uint64, error) {
	mbsm, err := k.MBSMAddressOf(ctx, bp)
	if err != nil {
		return 0, err
	}
	if err := k.releasePayment(ctx, request.ID, mbsm); err != nil {
		return 0, err
	}

	operators := make([]types.ServiceOperator, 0, len(request.OperatorsWithState))
	for _, entry := range request.OperatorsWithState {
		if entry.State.Kind != types.ApprovalApproved {
			return 0, types.ErrNotRequested.Wrapf("operator %s has not approved request %d", entry.Operator, request.ID)
		}
		operators = append(operators, types.ServiceOperator{
			Operator:        entry.Operator,
			ExposurePercent: entry.State.ExposurePercent,
			Commitments:     entry.State.Commitments,
		})
	}

	svc := types.Service{
		ID:               nextID(k.getStore(ctx), NextServiceIDKey),
		BlueprintID:      bp.ID,
		RequestID:        request.ID,
		Owner:            request.Owner,
		Operators:        operators,
		PermittedCallers: request.PermittedCallers,
		Args:             request.Args,
		Requirements:     request.Requirements,
		TTL:              request.TTL,
		CreatedAt:        ctx.BlockHeight(),
		MembershipModel:  request.MembershipModel,
	}
	if err := k.storeService(ctx, svc); err != nil {
		return 0, err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeServiceInitiated,
			sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(svc.ID, 10)),
			sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(request.ID, 10)),
			sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(bp.ID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, svc.Owner.String()),
			sdk.NewAttribute(types.AttributeKeyOperatorCount, strconv.Itoa(len(operators))),
		),
	)
	return svc.ID, nil
}

func (k Keeper) notifyServiceInitialized(ctx context.Context, bp types.Blueprint, requestID, serviceID uint64, owner sdk.AccAddress, ttl uint64) {
	k.metrics.ServicesCreated.Inc()
	k.metrics.ServicesActive.Inc()
	k.Logger(ctx).Info("service initiated", "service_id", serviceID, "request_id", requestID, "blueprint_id", bp.ID)
	k.notifyManager(ctx, bp, "onServiceInitialized", types.EncodeCall(types.SigOnServiceInitialized,
		types.Uint64Word(bp.ID), types.Uint64Word(requestID), types.Uint64Word(serviceID),
		types.AddressWord(types.EVMAddressFromAccount(owner)), types.Uint64Word(ttl)))
}

// storeService writes a new service together with its operator and expiry indexes.
func (k Keeper) storeService(ctx context.Context, svc types.Service) error {
	if err := k.SetService(ctx, svc); err != nil {
		return err
	}
	for _, op := range svc.Operators {
		if err := k.linkOperator(ctx, op.Operator, svc.ID); err != nil {
			return err
		}
	}
	k.getStore(ctx).Set(GetServiceExpiryKey(svc.ExpiresAt(), svc.ID), []byte{1})
	return nil
}

func (k Keeper) linkOperator(ctx context.Context, operator sdk.AccAddress, serviceID uint64) error {
	k.getStore(ctx).Set(GetServiceByOperatorKey(operator, serviceID), []byte{1})
	profile, err := k.GetOperatorProfile(ctx, operator)
	if err != nil {
		return err
	}
	profile.Services = types.AddUnique(profile.Services, serviceID)
	return k.setOperatorProfile(ctx, profile)
}

func (k Keeper) unlinkOperator(ctx sdk.Context, operator sdk.AccAddress, serviceID uint64) error {
	store := k.getStore(ctx)
	store.Delete(GetServiceByOperatorKey(operator, serviceID))
	store.Delete(GetHeartbeatKey(serviceID, operator))
	profile, err := k.GetOperatorProfile(ctx, operator)
	if err != nil {
		return err
	}
	profile.Services = types.RemoveID(profile.Services, serviceID)
	return k.setOperatorProfile(ctx, profile)
}

// removeService deletes a service and every index pointing at it. Job calls,
// results and unapplied slashes are kept for later reference.
func (k Keeper) removeService(ctx sdk.Context, svc types.Service, reason string) error {
	for _, op := range svc.Operators {
		if err := k.unlinkOperator(ctx, op.Operator, svc.ID); err != nil {
			return err
		}
	}
	k.heartbeats.ClearPrefix(ctx, GetHeartbeatServiceScope(svc.ID))
	store := k.getStore(ctx)
	store.Delete(GetServiceKey(svc.ID))
	store.Delete(GetServiceExpiryKey(svc.ExpiresAt(), svc.ID))

	eventType := types.EventTypeServiceTerminated
	if reason == removeReasonExpired {
		eventType = types.EventTypeServiceExpired
	}
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			eventType,
			sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(svc.ID, 10)),
			sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(svc.BlueprintID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, svc.Owner.String()),
		),
	)
	return nil
}

func (k Keeper) afterServiceRemoved(ctx context.Context, svc types.Service, reason string) {
	k.metrics.ServicesRemoved.WithLabelValues(reason).Inc()
	k.metrics.ServicesActive.Dec()
	k.Logger(ctx).Info("service removed", "service_id", svc.ID, "reason", reason)
	bp, err := k.GetBlueprint(ctx, svc.BlueprintID)
	if err != nil {
		return
	}
	k.notifyManager(ctx, bp, "onServiceTermination", types.EncodeCall(types.SigOnServiceTermination,
		types.Uint64Word(svc.ID), types.AddressWord(types.EVMAddressFromAccount(svc.Owner))))
}

// Terminate ends a service on its owner's behalf.
func (k Keeper) Terminate(ctx context.Context, caller sdk.AccAddress, serviceID uint64) (err error) {
	span := startSpan(ctx, "terminate")
	defer func() { endSpan(span, err) }()

	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if !svc.Owner.Equals(caller) {
		return types.ErrNotAuthorized.Wrapf("%s does not own service %d", caller, serviceID)
	}
	if err := k.atomically(ctx, func(ctx sdk.Context) error {
		return k.removeService(ctx, svc, removeReasonTerminated)
	}); err != nil {
		return err
	}
	k.afterServiceRemoved(ctx, svc, removeReasonTerminated)
	return nil
}

// JoinService adds operator to a running Dynamic-membership service.
func (k Keeper) JoinService(
	ctx context.Context,
	operator sdk.AccAddress,
	serviceID uint64,
	exposurePercent types.Percent,
	commitments []types.AssetSecurityCommitment,
) error {
	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.IsExpired(sdk.UnwrapSDKContext(ctx).BlockHeight()) {
		return types.ErrServiceExpired.Wrapf("service %d", serviceID)
	}
	if svc.MembershipModel.Kind != types.MembershipDynamic {
		return types.ErrMembershipBoundViolation.Wrapf("service %d has %s membership", serviceID, svc.MembershipModel.Kind)
	}
	if _, ok := svc.Operator(operator); ok {
		return types.ErrAlreadyOperator.Wrapf("operator %s, service %d", operator, serviceID)
	}
	if !svc.MembershipModel.Allows(len(svc.Operators) + 1) {
		return types.ErrMembershipBoundViolation.Wrapf("service %d is full", serviceID)
	}
	if !k.IsRegistered(ctx, svc.BlueprintID, operator) {
		return types.ErrNotRegistered.Wrapf("operator %s, blueprint %d", operator, svc.BlueprintID)
	}
	if !k.delegationKeeper.IsOperatorActive(ctx, operator) {
		return types.ErrOperatorNotActive.Wrapf("operator %s", operator)
	}
	if err := exposurePercent.Validate(); err != nil {
		return types.ErrInvalidSecurityCommitment.Wrap(err.Error())
	}
	if err := types.ValidateCommitments(svc.Requirements, commitments); err != nil {
		return err
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		svc.Operators = append(svc.Operators, types.ServiceOperator{
			Operator:        operator,
			ExposurePercent: exposurePercent,
			Commitments:     commitments,
		})
		if err := k.SetService(ctx, svc); err != nil {
			return err
		}
		if err := k.linkOperator(ctx, operator, serviceID); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOperatorJoined,
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
				sdk.NewAttribute(types.AttributeKeyExposurePercent, exposurePercent.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.Logger(ctx).Info("operator joined service", "service_id", serviceID, "operator", operator.String())
	return nil
}

// LeaveService removes operator from a running Dynamic-membership service.
// The remaining operator set must still satisfy the membership bounds.
func (k Keeper) LeaveService(ctx context.Context, operator sdk.AccAddress, serviceID uint64) error {
	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.MembershipModel.Kind != types.MembershipDynamic {
		return types.ErrMembershipBoundViolation.Wrapf("service %d has %s membership", serviceID, svc.MembershipModel.Kind)
	}
	idx := -1
	for i, o := range svc.Operators {
		if o.Operator.Equals(operator) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.ErrNotOperatorOfService.Wrapf("operator %s, service %d", operator, serviceID)
	}
	if !svc.MembershipModel.Allows(len(svc.Operators) - 1) {
		return types.ErrMembershipBoundViolation.Wrapf("service %d would fall below %d operators", serviceID, svc.MembershipModel.MinOperators)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		svc.Operators = append(svc.Operators[:idx:idx], svc.Operators[idx+1:]...)
		if err := k.SetService(ctx, svc); err != nil {
			return err
		}
		if err := k.unlinkOperator(ctx, operator, serviceID); err != nil {
			return err
		}
		k.heartbeats.Clear(ctx, GetHeartbeatRoundScope(serviceID, operator))
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOperatorLeft,
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}
	k.Logger(ctx).Info("operator left service", "service_id", serviceID, "operator", operator.String())
	return nil
}

// SweepExpiredServices removes up to limit services whose ttl has elapsed.
func (k Keeper) SweepExpiredServices(ctx context.Context, limit int) (int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	keys := k.dueKeys(ctx, ServiceExpiryPrefix, sdkCtx.BlockHeight(), limit)

	removed := 0
	var errs []error
	for _, key := range keys {
		serviceID := trailingUint64(key)
		var (
			svc   types.Service
			found bool
		)
		err := k.atomically(ctx, func(ctx sdk.Context) error {
			var err error
			svc, err = k.GetService(ctx, serviceID)
			if err != nil {
				k.getStore(ctx).Delete(key)
				return nil
			}
			found = true
			return k.removeService(ctx, svc, removeReasonExpired)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if found {
			removed++
			k.afterServiceRemoved(ctx, svc, removeReasonExpired)
		}
	}
	return removed, errors.Join(errs...)
}

// GetService returns a live service by id.
func (k Keeper) GetService(ctx context.Context, id uint64) (types.Service, error) {
	svc, found, err := getJSON[types.Service](k.getStore(ctx), GetServiceKey(id))
	if err != nil {
		return types.Service{}, err
	}
	if !found {
		return types.Service{}, types.ErrServiceNotFound.Wrapf("service %d", id)
	}
	return svc, nil
}

// SetService stores a service without touching indexes.
func (k Keeper) SetService(ctx context.Context, svc types.Service) error {
	return setJSON(k.getStore(ctx), GetServiceKey(svc.ID), svc)
}

// IterateServices calls cb for every live service in id order.
func (k Keeper) IterateServices(ctx context.Context, cb func(types.Service) bool) error {
	return iterateJSON(k.getStore(ctx), ServiceKeyPrefix, func(_ []byte, svc types.Service) (bool, error) {
		return cb(svc), nil
	})
}

// NextServiceID returns the id the next service will receive.
func (k Keeper) NextServiceID(ctx context.Context) uint64 {
	return getCounter(k.getStore(ctx), NextServiceIDKey)
}
