package keeper_test

import (
	"errors"
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

type slashEnv struct {
	*env
	op        testOperator
	serviceID uint64
}

// staked runs a service with an operator exposing 50% of a 10,000 USDC stake.
func staked(t *testing.T) slashEnv {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 50)
	e.Delegation.SetStake(e.Ctx, op.addr, usdc, math.NewInt(10_000))
	return slashEnv{env: e, op: op, serviceID: serviceID}
}

func origin() sdk.AccAddress { return types.AccountFromEVMAddress(managerAddr) }

func TestSlash_AppliedDeductsExposedFraction(t *testing.T) {
	s := staked(t)

	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 50)
	require.NoError(t, err)

	slash, err := s.Keeper.GetUnappliedSlash(s.Ctx, era, index)
	require.NoError(t, err)
	require.Equal(t, types.Percent(50), slash.SlashPercent)
	require.Equal(t, s.serviceID, slash.ServiceID)
	// recording alone does not touch stake
	require.Equal(t, math.NewInt(10_000), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))

	outcomes, err := s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, math.LegacyMustNewDecFromStr("0.25").Equal(outcomes[0].Fraction))
	require.Equal(t, math.NewInt(2_500), outcomes[0].Deducted)
	require.Equal(t, math.NewInt(7_500), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))

	_, err = s.Keeper.GetUnappliedSlash(s.Ctx, era, index)
	require.ErrorIs(t, err, types.ErrUnappliedSlashNotFound)
	_, err = s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.ErrorIs(t, err, types.ErrUnappliedSlashNotFound)
	require.Len(t, s.EVM.HooksTo(managerAddr, types.SigOnSlash), 1)
}

func TestSlash_UsesStakeAtApplyTime(t *testing.T) {
	s := staked(t)

	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 50)
	require.NoError(t, err)

	s.Delegation.SetStake(s.Ctx, s.op.addr, usdc, math.NewInt(20_000))
	outcomes, err := s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(5_000), outcomes[0].Deducted)
	require.Equal(t, math.NewInt(15_000), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))
}

func TestDispute_CancelsSlash(t *testing.T) {
	s := staked(t)

	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 50)
	require.NoError(t, err)

	require.ErrorIs(t, s.Keeper.Dispute(s.Ctx, newAccount(), era, index), types.ErrBadOrigin)
	require.NoError(t, s.Keeper.Dispute(s.Ctx, origin(), era, index))
	require.Equal(t, math.NewInt(10_000), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))

	_, err = s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.ErrorIs(t, err, types.ErrUnappliedSlashNotFound)
	require.ErrorIs(t, s.Keeper.Dispute(s.Ctx, origin(), era, index), types.ErrUnappliedSlashNotFound)
}

func TestSlash_CustomOrigins(t *testing.T) {
	s := staked(t)
	s.manager.SlashingOrigin = types.BytesToEVMAddress([]byte{0x51})
	s.manager.DisputeOrigin = types.BytesToEVMAddress([]byte{0xD1})
	slasher := types.AccountFromEVMAddress(s.manager.SlashingOrigin)
	disputer := types.AccountFromEVMAddress(s.manager.DisputeOrigin)

	_, _, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 10)
	require.ErrorIs(t, err, types.ErrBadOrigin)

	era, index, err := s.Keeper.Slash(s.Ctx, slasher, s.op.addr, s.serviceID, 10)
	require.NoError(t, err)
	require.ErrorIs(t, s.Keeper.Dispute(s.Ctx, slasher, era, index), types.ErrBadOrigin)
	require.NoError(t, s.Keeper.Dispute(s.Ctx, disputer, era, index))
}

func TestSlash_Validation(t *testing.T) {
	s := staked(t)
	outsider := s.register(types.ApprovalRequired)

	_, _, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID+1, 10)
	require.ErrorIs(t, err, types.ErrServiceNotFound)
	_, _, err = s.Keeper.Slash(s.Ctx, newAccount(), s.op.addr, s.serviceID, 10)
	require.ErrorIs(t, err, types.ErrBadOrigin)
	_, _, err = s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 101)
	require.ErrorIs(t, err, types.ErrInvalidSlashPercent)
	_, _, err = s.Keeper.Slash(s.Ctx, origin(), outsider.addr, s.serviceID, 10)
	require.ErrorIs(t, err, types.ErrOffenderNotOperator)

	s.Delegation.SetStake(s.Ctx, s.op.addr, usdc, math.ZeroInt())
	_, _, err = s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 10)
	require.ErrorIs(t, err, types.ErrInsufficientStake)
}

func TestSlash_PendingPercentCapped(t *testing.T) {
	s := staked(t)

	_, first, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 60)
	require.NoError(t, err)
	_, _, err = s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 50)
	require.ErrorIs(t, err, types.ErrInsufficientStakeRemaining)

	_, second, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 40)
	require.NoError(t, err)
	require.Equal(t, first+1, second)
}

func TestApplySlash_ByAuthority(t *testing.T) {
	s := staked(t)
	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 20)
	require.NoError(t, err)

	_, err = s.Keeper.ApplySlash(s.Ctx, newAccount(), era, index)
	require.ErrorIs(t, err, types.ErrBadOrigin)

	outcomes, err := s.Keeper.ApplySlash(s.Ctx, s.Authority, era, index)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1_000), outcomes[0].Deducted)
}

func TestApplySlash_DelegationFailureKeepsSlash(t *testing.T) {
	s := staked(t)
	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 20)
	require.NoError(t, err)

	boom := errors.New("delegation unavailable")
	s.Delegation.FailSlashes(boom)
	_, err = s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.ErrorIs(t, err, boom)
	_, err = s.Keeper.GetUnappliedSlash(s.Ctx, era, index)
	require.NoError(t, err)

	s.Delegation.FailSlashes(nil)
	_, err = s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.NoError(t, err)
}

func TestApplyMatureSlashes(t *testing.T) {
	s := staked(t)
	_, _, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 20)
	require.NoError(t, err)

	// disabled by default
	applied, err := s.Keeper.ApplyMatureSlashes(s.Ctx, 10)
	require.NoError(t, err)
	require.Zero(t, applied)

	params := types.DefaultParams()
	params.SlashDeferRounds = 2
	require.NoError(t, s.Keeper.SetParams(s.Ctx, params))

	s.Delegation.SetRound(1)
	applied, err = s.Keeper.ApplyMatureSlashes(s.Ctx, 10)
	require.NoError(t, err)
	require.Zero(t, applied)

	s.Delegation.SetRound(2)
	applied, err = s.Keeper.ApplyMatureSlashes(s.Ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	require.Equal(t, math.NewInt(9_000), s.Delegation.GetLiveStake(s.Ctx, s.op.addr, usdc))
}

func TestSlash_SurvivesTermination(t *testing.T) {
	s := staked(t)
	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 20)
	require.NoError(t, err)
	require.NoError(t, s.Keeper.Terminate(s.Ctx, s.requester, s.serviceID))

	_, err = s.Keeper.ApplySlash(s.Ctx, origin(), era, index)
	require.NoError(t, err)
}

func TestOrigins_FallBackToQueriedManager(t *testing.T) {
	s := staked(t)
	master := types.BytesToEVMAddress([]byte{0xAB, 0x01})
	_, err := s.Keeper.UpdateMasterManager(s.Ctx, s.Authority.String(), master)
	require.NoError(t, err)

	bp, err := s.Keeper.GetBlueprint(s.Ctx, s.blueprintID)
	require.NoError(t, err)
	payee, err := s.Keeper.ManagerAccountOf(s.Ctx, bp)
	require.NoError(t, err)
	require.Equal(t, types.AccountFromEVMAddress(master), payee)

	// the manager answers with the zero address, so its own account is the origin
	require.Equal(t, origin(), s.Keeper.SlashingOrigin(s.Ctx, bp, s.serviceID))
	require.Equal(t, origin(), s.Keeper.DisputeOrigin(s.Ctx, bp, s.serviceID))
	_, _, err = s.Keeper.Slash(s.Ctx, payee, s.op.addr, s.serviceID, 10)
	require.ErrorIs(t, err, types.ErrBadOrigin)
	era, index, err := s.Keeper.Slash(s.Ctx, origin(), s.op.addr, s.serviceID, 10)
	require.NoError(t, err)
	require.ErrorIs(t, s.Keeper.Dispute(s.Ctx, payee, era, index), types.ErrBadOrigin)
	require.NoError(t, s.Keeper.Dispute(s.Ctx, origin(), era, index))
}
