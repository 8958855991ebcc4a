package keeper

import (
	"context"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// Call records a job invocation on a live service and returns its call id.
// Call ids are global and only advance on success.
func (k Keeper) Call(ctx context.Context, caller sdk.AccAddress, serviceID uint64, jobIndex uint8, args []types.Field) (callID uint64, err error) {
	span := startSpan(ctx, "call")
	defer func() { endSpan(span, err) }()

	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	if !svc.IsPermittedCaller(caller) {
		return 0, types.ErrNotAuthorized.Wrapf("%s may not call jobs on service %d", caller, serviceID)
	}
	bp, err := k.GetBlueprint(ctx, svc.BlueprintID)
	if err != nil {
		return 0, err
	}
	job, ok := bp.Job(jobIndex)
	if !ok {
		return 0, types.ErrJobDefinitionNotFound.Wrapf("blueprint %d has no job %d", bp.ID, jobIndex)
	}
	if err := types.CheckFields(args, job.Params); err != nil {
		return 0, types.ErrInvalidJobCallInput.Wrapf("job %q: %s", job.Name, err)
	}
	if svc.IsExpired(sdk.UnwrapSDKContext(ctx).BlockHeight()) {
		return 0, types.ErrServiceExpired.Wrapf("service %d", serviceID)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		store := k.getStore(ctx)
		callID = nextID(store, NextCallIDKey)
		call := types.JobCall{
			ID:        callID,
			ServiceID: serviceID,
			JobIndex:  jobIndex,
			Caller:    caller,
			Args:      args,
			Height:    ctx.BlockHeight(),
		}
		if err := setJSON(store, GetJobCallKey(serviceID, callID), call); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeJobCalled,
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeyCallID, strconv.FormatUint(callID, 10)),
				sdk.NewAttribute(types.AttributeKeyJobIndex, strconv.FormatUint(uint64(jobIndex), 10)),
				sdk.NewAttribute(types.AttributeKeyCaller, caller.String()),
			),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}

	k.metrics.JobCalls.Inc()
	k.notifyManager(ctx, bp, "onJobCall", types.EncodeCall(types.SigOnJobCall,
		types.Uint64Word(serviceID), types.Uint8Word(jobIndex), types.Uint64Word(callID)))
	return callID, nil
}

// SubmitResult stores operator's result for a job call. Each operator submits
// at most once per call.
func (k Keeper) SubmitResult(ctx context.Context, operator sdk.AccAddress, serviceID, callID uint64, result []types.Field) (err error) {
	span := startSpan(ctx, "submit_result")
	defer func() { endSpan(span, err) }()

	svc, err := k.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if _, ok := svc.Operator(operator); !ok {
		return types.ErrNotOperatorOfService.Wrapf("operator %s, service %d", operator, serviceID)
	}
	call, err := k.GetJobCall(ctx, serviceID, callID)
	if err != nil {
		return err
	}
	bp, err := k.GetBlueprint(ctx, svc.BlueprintID)
	if err != nil {
		return err
	}
	job, ok := bp.Job(call.JobIndex)
	if !ok {
		return types.ErrJobDefinitionNotFound.Wrapf("blueprint %d has no job %d", bp.ID, call.JobIndex)
	}
	if err := types.CheckFields(result, job.Result); err != nil {
		return types.ErrInvalidJobResult.Wrapf("job %q: %s", job.Name, err)
	}
	key := GetJobResultKey(serviceID, callID, operator)
	if k.getStore(ctx).Has(key) {
		return types.ErrResultAlreadySubmitted.Wrapf("operator %s, call %d", operator, callID)
	}

	err = k.atomically(ctx, func(ctx sdk.Context) error {
		record := types.JobCallResult{
			ServiceID: serviceID,
			CallID:    callID,
			Operator:  operator,
			Result:    result,
			Height:    ctx.BlockHeight(),
		}
		if err := setJSON(k.getStore(ctx), key, record); err != nil {
			return err
		}
		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeJobResultSubmitted,
				sdk.NewAttribute(types.AttributeKeyServiceID, strconv.FormatUint(serviceID, 10)),
				sdk.NewAttribute(types.AttributeKeyCallID, strconv.FormatUint(callID, 10)),
				sdk.NewAttribute(types.AttributeKeyOperator, operator.String()),
			),
		)
		return nil
	})
	if err != nil {
		return err
	}

	k.metrics.JobResults.Inc()
	k.notifyManager(ctx, bp, "onJobResult", types.EncodeCall(types.SigOnJobResult,
		types.Uint64Word(serviceID), types.Uint8Word(call.JobIndex), types.Uint64Word(callID),
		types.AddressWord(types.EVMAddressFromAccount(operator))))
	return nil
}

// GetJobCall returns a recorded job call.
func (k Keeper) GetJobCall(ctx context.Context, serviceID, callID uint64) (types.JobCall, error) {
	call, found, err := getJSON[types.JobCall](k.getStore(ctx), GetJobCallKey(serviceID, callID))
	if err != nil {
		return types.JobCall{}, err
	}
	if !found {
		return types.JobCall{}, types.ErrJobCallNotFound.Wrapf("service %d, call %d", serviceID, callID)
	}
	return call, nil
}

// GetJobResults returns every result submitted for a call, ordered by operator key.
func (k Keeper) GetJobResults(ctx context.Context, serviceID, callID uint64) ([]types.JobCallResult, error) {
	var out []types.JobCallResult
	err := iterateJSON(k.getStore(ctx), GetJobResultsByCallPrefix(serviceID, callID), func(_ []byte, r types.JobCallResult) (bool, error) {
		out = append(out, r)
		return false, nil
	})
	return out, err
}

// IterateJobCalls calls cb for every recorded job call.
func (k Keeper) IterateJobCalls(ctx context.Context, cb func(types.JobCall) bool) error {
	return iterateJSON(k.getStore(ctx), JobCallKeyPrefix, func(_ []byte, c types.JobCall) (bool, error) {
		return cb(c), nil
	})
}

// IterateJobResults calls cb for every stored job result.
func (k Keeper) IterateJobResults(ctx context.Context, cb func(types.JobCallResult) bool) error {
	return iterateJSON(k.getStore(ctx), JobResultKeyPrefix, func(_ []byte, r types.JobCallResult) (bool, error) {
		return cb(r), nil
	})
}

// NextCallID returns the id the next job call will receive.
func (k Keeper) NextCallID(ctx context.Context) uint64 {
	return getCounter(k.getStore(ctx), NextCallIDKey)
}
