package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/tangle-network/tangle-sub001/testutil/keeper"
	"github.com/tangle-network/tangle-sub001/x/services/types"
)

var (
	managerAddr = types.BytesToEVMAddress([]byte{0xAA, 0x01})
	usdcAddr    = types.BytesToEVMAddress([]byte{0xC0, 0x01})
	usdc        = types.ERC20Asset(usdcAddr)
)

type testOperator struct {
	priv *secp256k1.PrivKey
	addr sdk.AccAddress
}

func newOperator() testOperator {
	priv := secp256k1.GenPrivKey()
	return testOperator{priv: priv, addr: sdk.AccAddress(priv.PubKey().Address())}
}

func (o testOperator) prefs(approval types.ApprovalPreference) types.OperatorPreferences {
	return types.OperatorPreferences{
		PublicKey:          o.priv.PubKey().Bytes(),
		RPCAddress:         "https://operator.example:9944",
		ApprovalPreference: approval,
	}
}

func (o testOperator) signHeartbeat(t testing.TB, serviceID, blueprintID uint64, metrics []byte) []byte {
	sig, err := o.priv.Sign(types.HeartbeatMessage(serviceID, blueprintID, metrics))
	require.NoError(t, err)
	return sig
}

func newAccount() sdk.AccAddress {
	return sdk.AccAddress(secp256k1.GenPrivKey().PubKey().Address())
}

func testBlueprint() types.Blueprint {
	return types.Blueprint{
		Metadata: types.BlueprintMetadata{Name: "echo", Category: "test"},
		Jobs: []types.JobDefinition{
			{
				Name:   "echo",
				Params: []types.FieldType{types.Primitive(types.FieldUint64)},
				Result: []types.FieldType{types.Primitive(types.FieldBool)},
			},
		},
		Manager:                   managerAddr,
		MasterManagerRevision:     types.LatestRevision(),
		SupportedMembershipModels: []types.MembershipModelKind{types.MembershipFixed, types.MembershipDynamic},
		PricingModel:              types.PayOnce(math.NewInt(5_000_000)),
	}
}

func usdcRequirement(min, max types.Percent) []types.AssetSecurityRequirement {
	return []types.AssetSecurityRequirement{{Asset: usdc, MinExposurePercent: min, MaxExposurePercent: max}}
}

// env is a fixture with one blueprint, a USDC token and a funded requester.
type env struct {
	*keepertest.ServicesFixture
	t           *testing.T
	blueprintID uint64
	requester   sdk.AccAddress
	manager     *keepertest.FakeManager
}

func setupEnv(t *testing.T) *env {
	f := keepertest.ServicesKeeper(t)
	e := &env{ServicesFixture: f, t: t, requester: newAccount()}
	e.manager = f.EVM.DeployManager(managerAddr)
	f.EVM.DeployToken(f.Ctx, usdcAddr)
	f.EVM.MintToken(f.Ctx, usdcAddr, types.EVMAddressFromAccount(e.requester), math.NewInt(20_000_000))

	id, err := f.Keeper.CreateBlueprint(f.Ctx, newAccount(), testBlueprint())
	require.NoError(t, err)
	e.blueprintID = id
	return e
}

func (e *env) register(approval types.ApprovalPreference) testOperator {
	op := newOperator()
	e.Delegation.Activate(e.Ctx, op.addr)
	require.NoError(e.t, e.Keeper.Register(e.Ctx, op.addr, e.blueprintID, op.prefs(approval), nil, sdkInt(0)))
	return op
}

func (e *env) usdcBalance(addr sdk.AccAddress) math.Int {
	return e.EVM.TokenBalance(e.Ctx, usdcAddr, types.EVMAddressFromAccount(addr))
}

func (e *env) request(operators []sdk.AccAddress, membership types.MembershipModel, requirements []types.AssetSecurityRequirement) (types.RequestResult, error) {
	return e.Keeper.Request(e.Ctx, e.requester, e.blueprintID, nil, operators, nil, requirements, 100, usdc, math.NewInt(5_000_000), membership)
}

// serviceWith creates a service served by op with the given USDC exposure.
func (e *env) serviceWith(op testOperator, exposure types.Percent) uint64 {
	res, err := e.request([]sdk.AccAddress{op.addr}, types.FixedMembership(1), usdcRequirement(1, 100))
	require.NoError(e.t, err)
	require.False(e.t, res.Instantiated)
	out, err := e.Keeper.Approve(e.Ctx, op.addr, res.RequestID, exposure,
		[]types.AssetSecurityCommitment{{Asset: usdc, ExposurePercent: exposure}})
	require.NoError(e.t, err)
	require.Equal(e.t, types.OutcomeServiceCreated, out.Kind)
	return out.ServiceID
}

func sdkInt(v int64) math.Int { return math.NewInt(v) }
