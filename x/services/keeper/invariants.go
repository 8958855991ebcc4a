package keeper

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// RegisterInvariants registers all services module invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "staging-pairing", StagingPairingInvariant(k))
	ir.RegisterRoute(types.ModuleName, "approval-state", ApprovalStateInvariant(k))
	ir.RegisterRoute(types.ModuleName, "escrow-coverage", EscrowCoverageInvariant(k))
	ir.RegisterRoute(types.ModuleName, "id-counters", IDCounterInvariant(k))
}

// AllInvariants runs all invariants of the services module
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		for _, inv := range []sdk.Invariant{
			StagingPairingInvariant(k),
			ApprovalStateInvariant(k),
			EscrowCoverageInvariant(k),
			IDCounterInvariant(k),
		} {
			if res, stop := inv(ctx); stop {
				return res, stop
			}
		}
		return "", false
	}
}

func formatIssues(route string, issues []string, err error) (string, bool) {
	if err != nil {
		issues = append(issues, fmt.Sprintf("iteration failed: %v", err))
	}
	msg := ""
	if len(issues) > 0 {
		msg = fmt.Sprintf("%d issues\n%s\n", len(issues), strings.Join(issues, "\n"))
	}
	return sdk.FormatInvariant(types.ModuleName, route, msg), len(issues) > 0
}

// StagingPairingInvariant checks that a staging payment exists exactly for every pending request.
func StagingPairingInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var issues []string
		pending := make(map[uint64]struct{})
		err := k.IterateServiceRequests(ctx, func(req types.ServiceRequest) bool {
			pending[req.ID] = struct{}{}
			if !k.HasStagingPayment(ctx, req.ID) {
				issues = append(issues, fmt.Sprintf("request %d has no staging payment", req.ID))
			}
			return false
		})
		if err == nil {
			err = k.IterateStagingPayments(ctx, func(p types.StagingServicePayment) bool {
				if _, ok := pending[p.RequestID]; !ok {
					issues = append(issues, fmt.Sprintf("staging payment for request %d has no pending request", p.RequestID))
				}
				return false
			})
		}
		return formatIssues("staging-pairing", issues, err)
	}
}

// ApprovalStateInvariant checks that stored requests are still pending: no
// rejected entries and at least one operator left to approve.
func ApprovalStateInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var issues []string
		err := k.IterateServiceRequests(ctx, func(req types.ServiceRequest) bool {
			approved, pending, rejected := req.Counts()
			switch {
			case approved+pending+rejected != len(req.OperatorsWithState):
				issues = append(issues, fmt.Sprintf("request %d has inconsistent approval counts", req.ID))
			case rejected > 0:
				issues = append(issues, fmt.Sprintf("request %d kept after %d rejections", req.ID, rejected))
			case pending == 0:
				issues = append(issues, fmt.Sprintf("request %d is fully approved but was not instantiated", req.ID))
			}
			return false
		})
		return formatIssues("approval-state", issues, err)
	}
}

// EscrowCoverageInvariant checks that the module holds at least the sum of
// staged payments of every asset.
func EscrowCoverageInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		totals := make(map[types.Asset]math.Int)
		var order []types.Asset
		err := k.IterateStagingPayments(ctx, func(p types.StagingServicePayment) bool {
			if _, ok := totals[p.Asset]; !ok {
				totals[p.Asset] = math.ZeroInt()
				order = append(order, p.Asset)
			}
			totals[p.Asset] = totals[p.Asset].Add(p.Amount)
			return false
		})

		var issues []string
		module := k.ModuleAddress()
		for _, asset := range order {
			held, balErr := k.BalanceOf(ctx, asset, module)
			if balErr != nil {
				issues = append(issues, fmt.Sprintf("balance of %s: %v", asset, balErr))
				continue
			}
			if held.LT(totals[asset]) {
				issues = append(issues, fmt.Sprintf("module holds %s of %s, staged %s", held, asset, totals[asset]))
			}
		}
		return formatIssues("escrow-coverage", issues, err)
	}
}

// IDCounterInvariant checks that every stored id lies below its counter.
func IDCounterInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var issues []string
		check := func(kind string, id, next uint64) {
			if id >= next {
				issues = append(issues, fmt.Sprintf("%s id %d not below counter %d", kind, id, next))
			}
		}

		nextBlueprint := k.NextBlueprintID(ctx)
		err := k.IterateBlueprints(ctx, func(bp types.Blueprint) bool {
			check("blueprint", bp.ID, nextBlueprint)
			return false
		})
		if err == nil {
			nextRequest := k.NextRequestID(ctx)
			err = k.IterateServiceRequests(ctx, func(req types.ServiceRequest) bool {
				check("request", req.ID, nextRequest)
				return false
			})
		}
		if err == nil {
			nextService := k.NextServiceID(ctx)
			err = k.IterateServices(ctx, func(svc types.Service) bool {
				check("service", svc.ID, nextService)
				return false
			})
		}
		if err == nil {
			nextCall := k.NextCallID(ctx)
			err = k.IterateJobCalls(ctx, func(call types.JobCall) bool {
				check("call", call.ID, nextCall)
				return false
			})
		}
		return formatIssues("id-counters", issues, err)
	}
}
