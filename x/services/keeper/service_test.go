package keeper_test

import (
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func TestCall_AndSubmitResult(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)

	callID, err := e.Keeper.Call(e.Ctx, e.requester, serviceID, 0, []types.Field{types.Uint64Field(7)})
	require.NoError(t, err)
	next, err := e.Keeper.Call(e.Ctx, e.requester, serviceID, 0, []types.Field{types.Uint64Field(8)})
	require.NoError(t, err)
	require.Equal(t, callID+1, next)

	call, err := e.Keeper.GetJobCall(e.Ctx, serviceID, callID)
	require.NoError(t, err)
	require.Equal(t, e.requester, call.Caller)

	require.NoError(t, e.Keeper.SubmitResult(e.Ctx, op.addr, serviceID, callID, []types.Field{types.BoolField(true)}))
	err = e.Keeper.SubmitResult(e.Ctx, op.addr, serviceID, callID, []types.Field{types.BoolField(true)})
	require.ErrorIs(t, err, types.ErrResultAlreadySubmitted)

	results, err := e.Keeper.GetJobResults(e.Ctx, serviceID, callID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, e.EVM.HooksTo(managerAddr, types.SigOnJobCall), 2)
	require.Len(t, e.EVM.HooksTo(managerAddr, types.SigOnJobResult), 1)
}

func TestCall_Validation(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)
	args := []types.Field{types.Uint64Field(1)}

	_, err := e.Keeper.Call(e.Ctx, e.requester, 99, 0, args)
	require.ErrorIs(t, err, types.ErrServiceNotFound)
	_, err = e.Keeper.Call(e.Ctx, newAccount(), serviceID, 0, args)
	require.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = e.Keeper.Call(e.Ctx, e.requester, serviceID, 1, args)
	require.ErrorIs(t, err, types.ErrJobDefinitionNotFound)
	_, err = e.Keeper.Call(e.Ctx, e.requester, serviceID, 0, []types.Field{types.StringField("x")})
	require.ErrorIs(t, err, types.ErrInvalidJobCallInput)

	e.AdvanceHeight(100)
	_, err = e.Keeper.Call(e.Ctx, e.requester, serviceID, 0, args)
	require.ErrorIs(t, err, types.ErrServiceExpired)
	require.Zero(t, e.Keeper.NextCallID(e.Ctx))
}

func TestCall_PermittedCaller(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalNone)
	caller := newAccount()

	res, err := e.Keeper.Request(e.Ctx, e.requester, e.blueprintID, []sdk.AccAddress{caller}, []sdk.AccAddress{op.addr}, nil,
		usdcRequirement(1, 10), 100, usdc, sdkInt(1), types.FixedMembership(1))
	require.NoError(t, err)
	_, err = e.Keeper.Call(e.Ctx, caller, res.ServiceID, 0, []types.Field{types.Uint64Field(1)})
	require.NoError(t, err)
}

func TestSubmitResult_Validation(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)
	callID, err := e.Keeper.Call(e.Ctx, e.requester, serviceID, 0, []types.Field{types.Uint64Field(1)})
	require.NoError(t, err)

	err = e.Keeper.SubmitResult(e.Ctx, newAccount(), serviceID, callID, []types.Field{types.BoolField(true)})
	require.ErrorIs(t, err, types.ErrNotOperatorOfService)
	err = e.Keeper.SubmitResult(e.Ctx, op.addr, serviceID, callID+5, []types.Field{types.BoolField(true)})
	require.ErrorIs(t, err, types.ErrJobCallNotFound)
	err = e.Keeper.SubmitResult(e.Ctx, op.addr, serviceID, callID, []types.Field{types.Uint64Field(1)})
	require.ErrorIs(t, err, types.ErrInvalidJobResult)
}

func TestTerminate(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)

	require.ErrorIs(t, e.Keeper.Terminate(e.Ctx, op.addr, serviceID), types.ErrNotAuthorized)
	require.False(t, e.Keeper.CanExit(e.Ctx, op.addr))
	require.ErrorIs(t, e.Keeper.Unregister(e.Ctx, op.addr, e.blueprintID), types.ErrOperatorHasActiveServices)

	require.NoError(t, e.Keeper.Terminate(e.Ctx, e.requester, serviceID))
	_, err := e.Keeper.GetService(e.Ctx, serviceID)
	require.ErrorIs(t, err, types.ErrServiceNotFound)
	require.Empty(t, e.Keeper.GetOperatorServices(e.Ctx, op.addr))
	require.True(t, e.Keeper.CanExit(e.Ctx, op.addr))
	require.Len(t, e.EVM.HooksTo(managerAddr, types.SigOnServiceTermination), 1)

	require.NoError(t, e.Keeper.Unregister(e.Ctx, op.addr, e.blueprintID))
}

func TestJoinAndLeave_Dynamic(t *testing.T) {
	e := setupEnv(t)
	a := e.register(types.ApprovalNone)
	b := e.register(types.ApprovalRequired)
	c := e.register(types.ApprovalRequired)

	res, err := e.Keeper.Request(e.Ctx, e.requester, e.blueprintID, nil, []sdk.AccAddress{a.addr}, nil,
		usdcRequirement(10, 50), 100, usdc, sdkInt(1), types.DynamicMembership(1, 2))
	require.NoError(t, err)
	require.True(t, res.Instantiated)
	serviceID := res.ServiceID

	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, b.addr, serviceID, 20, commit(60)), types.ErrInvalidSecurityCommitment)
	require.NoError(t, e.Keeper.JoinService(e.Ctx, b.addr, serviceID, 20, commit(20)))
	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, b.addr, serviceID, 20, commit(20)), types.ErrAlreadyOperator)
	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, c.addr, serviceID, 20, commit(20)), types.ErrMembershipBoundViolation)

	svc, err := e.Keeper.GetService(e.Ctx, serviceID)
	require.NoError(t, err)
	require.Len(t, svc.Operators, 2)
	require.Equal(t, []uint64{serviceID}, e.Keeper.GetOperatorServices(e.Ctx, b.addr))

	require.NoError(t, e.Keeper.LeaveService(e.Ctx, a.addr, serviceID))
	require.ErrorIs(t, e.Keeper.LeaveService(e.Ctx, b.addr, serviceID), types.ErrMembershipBoundViolation)
	require.ErrorIs(t, e.Keeper.LeaveService(e.Ctx, a.addr, serviceID), types.ErrNotOperatorOfService)
	require.Empty(t, e.Keeper.GetOperatorServices(e.Ctx, a.addr))
}

func TestJoin_RequiresRegisteredActiveOperator(t *testing.T) {
	e := setupEnv(t)
	a := e.register(types.ApprovalNone)
	res, err := e.Keeper.Request(e.Ctx, e.requester, e.blueprintID, nil, []sdk.AccAddress{a.addr}, nil,
		usdcRequirement(10, 50), 100, usdc, sdkInt(1), types.DynamicMembership(1, 0))
	require.NoError(t, err)

	stranger := newOperator()
	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, stranger.addr, res.ServiceID, 20, commit(20)), types.ErrNotRegistered)

	idle := e.register(types.ApprovalRequired)
	e.Delegation.Deactivate(e.Ctx, idle.addr)
	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, idle.addr, res.ServiceID, 20, commit(20)), types.ErrOperatorNotActive)
}

func TestJoin_FixedMembershipRejected(t *testing.T) {
	e := setupEnv(t)
	a := e.register(types.ApprovalRequired)
	b := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(a, 20)

	require.ErrorIs(t, e.Keeper.JoinService(e.Ctx, b.addr, serviceID, 20, commit(20)), types.ErrMembershipBoundViolation)
	require.ErrorIs(t, e.Keeper.LeaveService(e.Ctx, a.addr, serviceID), types.ErrMembershipBoundViolation)
}

func TestHeartbeat(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)
	metrics := []byte(`{"cpu":0.4}`)

	sig := op.signHeartbeat(t, serviceID, e.blueprintID, metrics)
	require.NoError(t, e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, serviceID, metrics, sig))

	rec, found, err := e.Keeper.GetHeartbeat(e.Ctx, serviceID, op.addr)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), rec.Round)

	// one heartbeat per round
	err = e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, serviceID, metrics, sig)
	require.ErrorIs(t, err, types.ErrStaleHeartbeat)

	e.Delegation.SetRound(1)
	require.NoError(t, e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, serviceID, metrics, sig))
}

func TestHeartbeat_RoundsClearedWithService(t *testing.T) {
	e := setupEnv(t)
	a := e.register(types.ApprovalNone)
	b := e.register(types.ApprovalNone)
	res, err := e.request([]sdk.AccAddress{a.addr, b.addr}, types.DynamicMembership(1, 2), usdcRequirement(1, 10))
	require.NoError(t, err)
	require.True(t, res.Instantiated)

	metrics := []byte(`{"cpu":0.1}`)
	e.Delegation.SetRound(4)
	for _, op := range []testOperator{a, b} {
		sig := op.signHeartbeat(t, res.ServiceID, e.blueprintID, metrics)
		require.NoError(t, e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, res.ServiceID, metrics, sig))
	}

	require.NoError(t, e.Keeper.LeaveService(e.Ctx, b.addr, res.ServiceID))
	_, found := e.Keeper.LastHeartbeatRound(e.Ctx, res.ServiceID, b.addr)
	require.False(t, found)
	round, found := e.Keeper.LastHeartbeatRound(e.Ctx, res.ServiceID, a.addr)
	require.True(t, found)
	require.Equal(t, uint64(4), round)

	require.NoError(t, e.Keeper.Terminate(e.Ctx, e.requester, res.ServiceID))
	_, found = e.Keeper.LastHeartbeatRound(e.Ctx, res.ServiceID, a.addr)
	require.False(t, found)
}

func TestHeartbeat_Validation(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)
	outsider := e.register(types.ApprovalRequired)
	metrics := []byte("ok")

	err := e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID+1, serviceID, metrics, op.signHeartbeat(t, serviceID, e.blueprintID+1, metrics))
	require.ErrorIs(t, err, types.ErrServiceBlueprintMismatch)

	err = e.Keeper.Heartbeat(e.Ctx, outsider.addr, e.blueprintID, serviceID, metrics, outsider.signHeartbeat(t, serviceID, e.blueprintID, metrics))
	require.ErrorIs(t, err, types.ErrNotOperatorOfService)

	err = e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, serviceID, metrics, outsider.signHeartbeat(t, serviceID, e.blueprintID, metrics))
	require.ErrorIs(t, err, types.ErrInvalidHeartbeatSignature)

	big := make([]byte, types.DefaultParams().MaxHeartbeatMetricsBytes+1)
	err = e.Keeper.Heartbeat(e.Ctx, op.addr, e.blueprintID, serviceID, big, op.signHeartbeat(t, serviceID, e.blueprintID, big))
	require.ErrorIs(t, err, types.ErrInvalidHeartbeat)
}

func TestSweepExpiredServices(t *testing.T) {
	e := setupEnv(t)
	op := e.register(types.ApprovalRequired)
	serviceID := e.serviceWith(op, 20)

	e.AdvanceHeight(99)
	removed, err := e.Keeper.SweepExpiredServices(e.Ctx, 10)
	require.NoError(t, err)
	require.Zero(t, removed)

	e.AdvanceHeight(1)
	removed, err = e.Keeper.SweepExpiredServices(e.Ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, err = e.Keeper.GetService(e.Ctx, serviceID)
	require.ErrorIs(t, err, types.ErrServiceNotFound)
	require.True(t, e.Keeper.CanExit(e.Ctx, op.addr))
}
