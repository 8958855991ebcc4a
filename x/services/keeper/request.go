package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// Request asks the named operators to run an instance of a blueprint and
// escrows the payment. When no operator requires approval the service is
// created at once and the payment released; otherwise a pending request is stored.
func (k Keeper) Request(
	ctx context.Context,
	caller sdk.AccAddress,
	blueprintID uint64,
	permittedCallers []sdk.AccAddress,
	operators []sdk.AccAddress,
	args []types.Field,
	requirements []types.AssetSecurityRequirement,
	ttl uint64,
	paymentAsset types.Asset,
	paymentAmount math.Int,
	membership types.MembershipModel,
) (result types.RequestResult, err error) {
	span := startSpan(ctx, "request")
	defer func() { endSpan(span, err) }()

	bp, err := k.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return result, err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return result, err
	}
	if len(caller) == 0 {
		return result, types.ErrInvalidAddress.Wrap("requester is empty")
	}

	if err := membership.Validate(); err != nil {
		return result, err
	}
	if !bp.SupportsMembership(membership.Kind) {
		return result, types.ErrUnsupportedMembershipModel.Wrapf("blueprint %d does not support %s membership", blueprintID, membership.Kind)
	}
	if len(operators) == 0 {
		return result, types.ErrNoOperatorsProvided
	}
	if !membership.Allows(len(operators)) {
		return result, types.ErrMembershipBoundViolation.Wrapf("%d operators do not satisfy %s", len(operators), membership)
	}
	if uint32(len(operators)) > params.MaxOperatorsPerRequest {
		return result, types.ErrMembershipBoundViolation.Wrapf("%d operators exceed the limit of %d", len(operators), params.MaxOperatorsPerRequest)
	}
	registrations := make([]types.OperatorRegistration, len(operators))
	seen := make(map[string]struct{}, len(operators))
	for i, op := range operators {
		if _, dup := seen[string(op)]; dup {
			return result, types.ErrDuplicateOperator.Wrapf("operator %s", op)
		}
		seen[string(op)] = struct{}{}
		reg, err := k.GetOperatorRegistration(ctx, blueprintID, op)
		if err != nil {
			return result, err
		}
		registrations[i] = reg
	}

	if err := types.ValidateRequirements(requirements); err != nil {
		return result, err
	}
	for _, req := range requirements {
		if err := k.ensureAssetExists(ctx, req.Asset); err != nil {
			return result, err
		}
	}

	if err := types.CheckFields(args, bp.RequestParams); err != nil {
		return result, types.ErrInvalidRequestInput.Wrap(err.Error())
	}
	for _, pc := range permittedCallers {
		if len(pc) == 0 {
			return result, types.ErrInvalidAddress.Wrap("empty permitted caller")
		}
	}

	if ttl == 0 {
		return result, types.ErrInvalidTTL.Wrap("ttl must be positive")
	}
	if ttl > params.MaxTTL {
		return result, types.ErrInvalidTTL.Wrapf("ttl %d exceeds maximum %d", ttl, params.MaxTTL)
	}

	if paymentAmount.IsNil() || !paymentAmount.IsPositive() {
		return result, types.ErrInvalidAmount.Wrap("payment amount must be positive")
	}
	if err := k.ensureAssetExists(ctx, paymentAsset); err != nil {
		return result, err
	}
	balance, err := k.BalanceOf(ctx, paymentAsset, caller)
	if err != nil {
		return result, err
	}
	if balance.LT(paymentAmount) {
		return result, types.ErrInsufficientBalance.Wrapf("balance %s of %s below payment %s", balance, paymentAsset, paymentAmount)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		store := k.getStore(ctx)
		requestID := nextID(store, NextRequestIDKey)
		result.RequestID = requestID

		if err := k.holdPayment(ctx, caller, paymentAsset, paymentAmount); err != nil {
			return err
		}
		staging := types.StagingServicePayment{
			RequestID: requestID,
			RefundTo:  caller,
			Asset:     paymentAsset,
			Amount:    paymentAmount,
		}
		if err := k.SetStagingPayment(ctx, staging); err != nil {
			return err
		}

		request := types.ServiceRequest{
			ID:                 requestID,
			BlueprintID:        blueprintID,
			Owner:              caller,
			PermittedCallers:   permittedCallers,
			OperatorsWithState: initialApprovals(registrations, requirements),
			Args:               args,
			Requirements:       requirements,
			TTL:                ttl,
			CreatedAt:          ctx.BlockHeight(),
			Payment:            types.Payment{Asset: paymentAsset, Amount: paymentAmount},
			MembershipModel:    membership,
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeServiceRequested,
				sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
				sdk.NewAttribute(types.AttributeKeyBlueprintID, strconv.FormatUint(blueprintID, 10)),
				sdk.NewAttribute(types.AttributeKeyOwner, caller.String()),
				sdk.NewAttribute(types.AttributeKeyOperatorCount, strconv.Itoa(len(operators))),
				sdk.NewAttribute(types.AttributeKeyTTL, strconv.FormatUint(ttl, 10)),
				sdk.NewAttribute(types.AttributeKeyFastPath, strconv.FormatBool(request.IsApproved())),
			),
		)

		if request.IsApproved() {
			serviceID, err := k.instantiate(ctx, bp, request)
			if err != nil {
				return err
			}
			result.ServiceID = serviceID
			result.Instantiated = true
			return nil
		}
		return k.storeRequest(ctx, request)
	})
	if err != nil {
		return types.RequestResult{}, err
	}

	requester := types.AddressWord(types.EVMAddressFromAccount(caller))
	k.notifyManager(ctx, bp, "onRequest", types.EncodeCall(types.SigOnRequest,
		types.Uint64Word(blueprintID), types.Uint64Word(result.RequestID), requester, types.Uint64Word(ttl)))
	if result.Instantiated {
		k.metrics.RequestsCreated.WithLabelValues("fast").Inc()
		k.notifyServiceInitialized(ctx, bp, result.RequestID, result.ServiceID, caller, ttl)
	} else {
		k.metrics.RequestsCreated.WithLabelValues("pending").Inc()
		k.metrics.RequestsPending.Inc()
	}
	return result, nil
}

// initialApprovals pre-approves operators that need no approval, committing
// each requirement's minimum exposure, and leaves the rest pending.
func initialApprovals(registrations []types.OperatorRegistration, requirements []types.AssetSecurityRequirement) []types.OperatorApproval {
	out := make([]types.OperatorApproval, len(registrations))
	for i, reg := range registrations {
		state := types.ApprovalState{Kind: types.ApprovalPending}
		if reg.Preferences.ApprovalPreference == types.ApprovalNone {
			state = types.ApprovalState{
				Kind:            types.ApprovalApproved,
				ExposurePercent: defaultExposure(requirements),
				Commitments:     types.DefaultCommitments(requirements),
			}
		}
		out[i] = types.OperatorApproval{Operator: reg.Operator, State: state}
	}
	return out
}

// defaultExposure is the largest minimum exposure among the requirements.
func defaultExposure(requirements []types.AssetSecurityRequirement) types.Percent {
	var p types.Percent
	for _, req := range requirements {
		if req.MinExposurePercent > p {
			p = req.MinExposurePercent
		}
	}
	return p
}

func (k Keeper) storeRequest(ctx context.Context, request types.ServiceRequest) error {
	if err := k.SetServiceRequest(ctx, request); err != nil {
		return err
	}
	k.getStore(ctx).Set(GetRequestExpiryKey(request.ExpiresAt(), request.ID), []byte{1})
	return nil
}

func (k Keeper) deleteRequest(ctx context.Context, request types.ServiceRequest) {
	store := k.getStore(ctx)
	store.Delete(GetServiceRequestKey(request.ID))
	store.Delete(GetRequestExpiryKey(request.ExpiresAt(), request.ID))
}

// GetServiceRequest returns a pending request by id.
func (k Keeper) GetServiceRequest(ctx context.Context, id uint64) (types.ServiceRequest, error) {
	req, found, err := getJSON[types.ServiceRequest](k.getStore(ctx), GetServiceRequestKey(id))
	if err != nil {
		return types.ServiceRequest{}, err
	}
	if !found {
		return types.ServiceRequest{}, types.ErrServiceRequestNotFound.Wrapf("request %d", id)
	}
	return req, nil
}

// SetServiceRequest stores a request without touching indexes.
func (k Keeper) SetServiceRequest(ctx context.Context, req types.ServiceRequest) error {
	return setJSON(k.getStore(ctx), GetServiceRequestKey(req.ID), req)
}

// IterateServiceRequests calls cb for every pending request.
func (k Keeper) IterateServiceRequests(ctx context.Context, cb func(types.ServiceRequest) bool) error {
	return iterateJSON(k.getStore(ctx), ServiceRequestKeyPrefix, func(_ []byte, req types.ServiceRequest) (bool, error) {
		return cb(req), nil
	})
}

// NextRequestID returns the id the next request will receive.
func (k Keeper) NextRequestID(ctx context.Context) uint64 {
	return getCounter(k.getStore(ctx), NextRequestIDKey)
}
