package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"pgregory.net/rapid"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// TestRequestEscrowConservation drives random request, approve and reject
// sequences and checks that USDC is neither created nor lost and that
// request ids only advance on success.
func TestRequestEscrowConservation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := setupEnv(t)
		ops := []testOperator{e.register(types.ApprovalRequired), e.register(types.ApprovalRequired)}
		module := e.Keeper.ModuleAddress()
		total := func() math.Int {
			return e.usdcBalance(e.requester).
				Add(e.usdcBalance(module)).
				Add(e.EVM.TokenBalance(e.Ctx, usdcAddr, managerAddr))
		}
		start := total()

		var open []uint64
		var nextID uint64
		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "action") {
			case 0:
				op := rapid.SampledFrom(ops).Draw(rt, "operator")
				amount := rapid.Int64Range(0, 8_000_000).Draw(rt, "amount")
				res, err := e.Keeper.Request(e.Ctx, e.requester, e.blueprintID, nil, []sdk.AccAddress{op.addr}, nil,
					usdcRequirement(1, 50), 100, usdc, math.NewInt(amount), types.FixedMembership(1))
				if err == nil {
					if res.RequestID != nextID {
						rt.Fatalf("request id %d, want %d", res.RequestID, nextID)
					}
					nextID++
					open = append(open, res.RequestID)
				}
			case 1, 2:
				if len(open) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(open)-1).Draw(rt, "request")
				id := open[idx]
				req, err := e.Keeper.GetServiceRequest(e.Ctx, id)
				if err != nil {
					rt.Fatalf("open request %d missing: %v", id, err)
				}
				operator := req.OperatorsWithState[0].Operator
				if rapid.Bool().Draw(rt, "approve") {
					_, err = e.Keeper.Approve(e.Ctx, operator, id, 10, commit(10))
				} else {
					err = e.Keeper.Reject(e.Ctx, operator, id)
				}
				if err != nil {
					rt.Fatalf("closing request %d: %v", id, err)
				}
				open = append(open[:idx], open[idx+1:]...)
			}
			if !total().Equal(start) {
				rt.Fatalf("usdc total changed from %s to %s", start, total())
			}
			if got := e.Keeper.NextRequestID(e.Ctx); got != nextID {
				rt.Fatalf("next request id %d, want %d", got, nextID)
			}
		}
	})
}

// TestSlashDeductionMatchesFraction checks deducted == floor(stake * slash% * exposure%).
func TestSlashDeductionMatchesFraction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := setupEnv(t)
		op := e.register(types.ApprovalRequired)
		exposure := types.Percent(rapid.Uint8Range(1, 100).Draw(rt, "exposure"))
		slashPct := types.Percent(rapid.Uint8Range(0, 100).Draw(rt, "slash"))
		stake := rapid.Int64Range(1, 1_000_000_000).Draw(rt, "stake")

		serviceID := e.serviceWith(op, exposure)
		e.Delegation.SetStake(e.Ctx, op.addr, usdc, math.NewInt(stake))

		era, index, err := e.Keeper.Slash(e.Ctx, origin(), op.addr, serviceID, slashPct)
		if err != nil {
			rt.Fatalf("slash: %v", err)
		}
		outcomes, err := e.Keeper.ApplySlash(e.Ctx, origin(), era, index)
		if err != nil {
			rt.Fatalf("apply: %v", err)
		}
		want := math.NewInt(stake * int64(slashPct) * int64(exposure) / 10_000)
		if !outcomes[0].Deducted.Equal(want) {
			rt.Fatalf("deducted %s, want %s", outcomes[0].Deducted, want)
		}
		left := e.Delegation.GetLiveStake(e.Ctx, op.addr, usdc)
		if !left.Equal(math.NewInt(stake).Sub(want)) {
			rt.Fatalf("stake left %s", left)
		}
	})
}
