package keeper

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// InitGenesis initializes the services module's state from a genesis state.
// Indexes are rebuilt from the primary records.
func (k Keeper) InitGenesis(ctx context.Context, data types.GenesisState) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	store := k.getStore(ctx)

	if err := k.SetParams(ctx, data.Params); err != nil {
		return fmt.Errorf("failed to set params: %w", err)
	}

	for i, manager := range data.MasterManagers {
		store.Set(GetMasterManagerKey(uint32(i)), manager.Bytes())
	}

	for _, bp := range data.Blueprints {
		if err := k.SetBlueprint(ctx, bp); err != nil {
			return fmt.Errorf("failed to initialize blueprint %d: %w", bp.ID, err)
		}
	}

	for _, reg := range data.Operators {
		if err := k.SetOperatorRegistration(ctx, reg); err != nil {
			return fmt.Errorf("failed to initialize operator %s: %w", reg.Operator, err)
		}
		profile, err := k.GetOperatorProfile(ctx, reg.Operator)
		if err != nil {
			return err
		}
		profile.Blueprints = types.AddUnique(profile.Blueprints, reg.BlueprintID)
		if err := k.setOperatorProfile(ctx, profile); err != nil {
			return err
		}
	}

	for _, req := range data.Requests {
		if err := k.storeRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to initialize request %d: %w", req.ID, err)
		}
	}
	for _, p := range data.StagingPayments {
		if err := k.SetStagingPayment(ctx, p); err != nil {
			return fmt.Errorf("failed to initialize staging payment %d: %w", p.RequestID, err)
		}
	}

	for _, svc := range data.Services {
		if err := k.storeService(ctx, svc); err != nil {
			return fmt.Errorf("failed to initialize service %d: %w", svc.ID, err)
		}
	}
	for _, call := range data.JobCalls {
		if err := setJSON(store, GetJobCallKey(call.ServiceID, call.ID), call); err != nil {
			return fmt.Errorf("failed to initialize job call %d: %w", call.ID, err)
		}
	}
	for _, res := range data.JobResults {
		if err := setJSON(store, GetJobResultKey(res.ServiceID, res.CallID, res.Operator), res); err != nil {
			return fmt.Errorf("failed to initialize job result %d: %w", res.CallID, err)
		}
	}
	for _, c := range data.SlashIndexes {
		setCounter(store, GetNextSlashIndexKey(c.Era), c.Next)
	}
	for _, s := range data.UnappliedSlashes {
		if err := k.setUnappliedSlash(ctx, s); err != nil {
			return fmt.Errorf("failed to initialize unapplied slash (%d, %d): %w", s.Era, s.Index, err)
		}
	}
	for _, h := range data.Heartbeats {
		if err := k.setHeartbeat(sdkCtx, h); err != nil {
			return fmt.Errorf("failed to initialize heartbeat of %s for service %d: %w", h.Operator, h.ServiceID, err)
		}
	}

	setCounter(store, NextBlueprintIDKey, data.NextBlueprintID)
	setCounter(store, NextRequestIDKey, data.NextRequestID)
	setCounter(store, NextServiceIDKey, data.NextServiceID)
	setCounter(store, NextCallIDKey, data.NextCallID)

	k.metrics.ServicesActive.Set(float64(len(data.Services)))
	k.metrics.RequestsPending.Set(float64(len(data.Requests)))
	return nil
}

// ExportGenesis returns the services module's exported genesis.
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	gs := types.DefaultGenesis()
	gs.Params = params
	gs.MasterManagers = append(gs.MasterManagers, k.GetMasterManagers(ctx)...)

	if err := k.IterateBlueprints(ctx, func(bp types.Blueprint) bool {
		gs.Blueprints = append(gs.Blueprints, bp)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export blueprints: %w", err)
	}
	if err := k.IterateOperatorRegistrations(ctx, func(reg types.OperatorRegistration) bool {
		gs.Operators = append(gs.Operators, reg)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export operators: %w", err)
	}
	if err := k.IterateServiceRequests(ctx, func(req types.ServiceRequest) bool {
		gs.Requests = append(gs.Requests, req)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export requests: %w", err)
	}
	if err := k.IterateStagingPayments(ctx, func(p types.StagingServicePayment) bool {
		gs.StagingPayments = append(gs.StagingPayments, p)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export staging payments: %w", err)
	}
	if err := k.IterateServices(ctx, func(svc types.Service) bool {
		gs.Services = append(gs.Services, svc)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export services: %w", err)
	}
	if err := k.IterateJobCalls(ctx, func(call types.JobCall) bool {
		gs.JobCalls = append(gs.JobCalls, call)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export job calls: %w", err)
	}
	if err := k.IterateJobResults(ctx, func(res types.JobCallResult) bool {
		gs.JobResults = append(gs.JobResults, res)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export job results: %w", err)
	}
	if err := k.IterateUnappliedSlashes(ctx, func(s types.UnappliedSlash) bool {
		gs.UnappliedSlashes = append(gs.UnappliedSlashes, s)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export unapplied slashes: %w", err)
	}
	if err := k.IterateHeartbeats(ctx, func(h types.HeartbeatRecord) bool {
		gs.Heartbeats = append(gs.Heartbeats, h)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to export heartbeats: %w", err)
	}

	for _, key := range collectKeys(k.getStore(ctx), NextSlashIndexKeyPrefix, 0) {
		gs.SlashIndexes = append(gs.SlashIndexes, types.SlashIndexCounter{
			Era:  trailingUint64(key),
			Next: getCounter(k.getStore(ctx), key),
		})
	}

	gs.NextBlueprintID = k.NextBlueprintID(ctx)
	gs.NextRequestID = k.NextRequestID(ctx)
	gs.NextServiceID = k.NextServiceID(ctx)
	gs.NextCallID = k.NextCallID(ctx)
	return gs, nil
}
