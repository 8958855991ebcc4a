package keeper_test

import (
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func hasEvent(ctx sdk.Context, eventType string) bool {
	for _, ev := range ctx.EventManager().Events() {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func TestEndBlocker_SweepsExpiredState(t *testing.T) {
	e := setupEnv(t)
	a := e.register(types.ApprovalRequired)
	b := e.register(types.ApprovalRequired)

	serviceID := e.serviceWith(a, 20)
	pending, err := e.request([]sdk.AccAddress{b.addr}, types.FixedMembership(1), usdcRequirement(1, 10))
	require.NoError(t, err)

	e.Ctx = e.Ctx.WithEventManager(sdk.NewEventManager())
	require.NoError(t, e.Keeper.EndBlocker(e.Ctx))
	require.False(t, hasEvent(e.Ctx, "services_end_block"))

	e.AdvanceHeight(100)
	require.NoError(t, e.Keeper.EndBlocker(e.Ctx))
	require.True(t, hasEvent(e.Ctx, "services_end_block"))
	require.True(t, hasEvent(e.Ctx, types.EventTypeServiceRequestExpired))

	_, err = e.Keeper.GetServiceRequest(e.Ctx, pending.RequestID)
	require.ErrorIs(t, err, types.ErrServiceRequestNotFound)
	_, err = e.Keeper.GetService(e.Ctx, serviceID)
	require.ErrorIs(t, err, types.ErrServiceNotFound)
	require.Equal(t, sdkInt(15_000_000), e.usdcBalance(e.requester))
}

func TestEndBlocker_AppliesMatureSlashes(t *testing.T) {
	s := staked(t)
	params := types.DefaultParams()
	params.SlashDeferRounds = 1
	require.NoError(t, s.Keeper.SetParams(s.Ctx, params))

	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 40)
	require.NoError(t, err)

	require.NoError(t, s.Keeper.EndBlocker(s.Ctx))
	_, err = s.Keeper.GetUnappliedSlash(s.Ctx, era, index)
	require.NoError(t, err)

	s.Delegation.SetRound(1)
	require.NoError(t, s.Keeper.EndBlocker(s.Ctx))
	_, err = s.Keeper.GetUnappliedSlash(s.Ctx, era, index)
	require.ErrorIs(t, err, types.ErrUnappliedSlashNotFound)
	require.Equal(t, sdkInt(8_000), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))
}

func TestEndBlocker_FailuresDoNotHalt(t *testing.T) {
	s := staked(t)
	params := types.DefaultParams()
	params.SlashDeferRounds = 1
	require.NoError(t, s.Keeper.SetParams(s.Ctx, params))
	_, _, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 40)
	require.NoError(t, err)

	s.Delegation.FailSlashes(types.ErrInsufficientStake)
	s.Delegation.SetRound(1)
	require.NoError(t, s.Keeper.EndBlocker(s.Ctx))
}
