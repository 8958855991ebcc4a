package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

var token = types.ERC20Asset(types.BytesToEVMAddress([]byte{0x42}))

func TestAssetValidate(t *testing.T) {
	require.NoError(t, types.NativeAsset().Validate())
	require.NoError(t, types.CustomAsset(3).Validate())
	require.NoError(t, token.Validate())

	require.ErrorIs(t, types.ERC20Asset(types.EVMAddress{}).Validate(), types.ErrInvalidAsset)
	require.ErrorIs(t, types.Asset{Kind: types.AssetKindNative, ID: 1}.Validate(), types.ErrInvalidAsset)
	require.ErrorIs(t, types.Asset{Kind: types.AssetKindERC20, ID: 1, Address: token.Address}.Validate(), types.ErrInvalidAsset)
}

func TestAssetBankDenom(t *testing.T) {
	denom, ok := types.NativeAsset().BankDenom("utnt")
	require.True(t, ok)
	require.Equal(t, "utnt", denom)

	denom, ok = types.CustomAsset(3).BankDenom("utnt")
	require.True(t, ok)
	require.Equal(t, "asset/3", denom)

	_, ok = token.BankDenom("utnt")
	require.False(t, ok)
}

func TestAssetKeysAreDistinct(t *testing.T) {
	keys := map[string]types.Asset{}
	for _, a := range []types.Asset{types.NativeAsset(), types.CustomAsset(0), types.CustomAsset(1), token} {
		k := string(a.Key())
		_, dup := keys[k]
		require.False(t, dup, a.String())
		keys[k] = a
	}
}

func TestValidateRequirements(t *testing.T) {
	req := func(min, max types.Percent) types.AssetSecurityRequirement {
		return types.AssetSecurityRequirement{Asset: token, MinExposurePercent: min, MaxExposurePercent: max}
	}
	require.NoError(t, types.ValidateRequirements([]types.AssetSecurityRequirement{req(1, 100)}))
	require.ErrorIs(t, types.ValidateRequirements(nil), types.ErrNoAssetsProvided)
	require.ErrorIs(t, types.ValidateRequirements([]types.AssetSecurityRequirement{req(0, 10)}), types.ErrInvalidSecurityRequirement)
	require.ErrorIs(t, types.ValidateRequirements([]types.AssetSecurityRequirement{req(20, 10)}), types.ErrInvalidSecurityRequirement)
	require.ErrorIs(t, types.ValidateRequirements([]types.AssetSecurityRequirement{req(1, 101)}), types.ErrInvalidSecurityRequirement)
	require.ErrorIs(t, types.ValidateRequirements([]types.AssetSecurityRequirement{req(1, 10), req(2, 20)}), types.ErrDuplicateAsset)
}

func TestValidateCommitments(t *testing.T) {
	reqs := []types.AssetSecurityRequirement{
		{Asset: token, MinExposurePercent: 10, MaxExposurePercent: 50},
		{Asset: types.NativeAsset(), MinExposurePercent: 5, MaxExposurePercent: 5},
	}
	defaults := types.DefaultCommitments(reqs)
	require.NoError(t, types.ValidateCommitments(reqs, defaults))
	require.Equal(t, types.Percent(10), defaults[0].ExposurePercent)

	missing := defaults[:1]
	require.ErrorIs(t, types.ValidateCommitments(reqs, missing), types.ErrInvalidSecurityCommitment)

	out := []types.AssetSecurityCommitment{{Asset: token, ExposurePercent: 51}, defaults[1]}
	require.ErrorIs(t, types.ValidateCommitments(reqs, out), types.ErrInvalidSecurityCommitment)
}

func TestMembershipModel(t *testing.T) {
	require.NoError(t, types.FixedMembership(2).Validate())
	require.Error(t, types.FixedMembership(0).Validate())
	require.NoError(t, types.DynamicMembership(1, 0).Validate())
	require.Error(t, types.DynamicMembership(3, 2).Validate())
	require.ErrorIs(t, types.MembershipModel{Kind: types.MembershipModelKind(7), MinOperators: 1}.Validate(), types.ErrUnsupportedMembershipModel)

	fixed := types.FixedMembership(2)
	require.False(t, fixed.Allows(1))
	require.True(t, fixed.Allows(2))
	require.True(t, fixed.Allows(5))

	dyn := types.DynamicMembership(1, 3)
	require.False(t, dyn.Allows(0))
	require.True(t, dyn.Allows(3))
	require.False(t, dyn.Allows(4))
	require.True(t, types.DynamicMembership(1, 0).Allows(1_000))
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, types.DefaultParams().Validate())

	p := types.DefaultParams()
	p.NativeDenom = "!"
	require.ErrorIs(t, p.Validate(), types.ErrInvalidParams)

	p = types.DefaultParams()
	p.MaxTTL = 0
	require.ErrorIs(t, p.Validate(), types.ErrInvalidParams)

	p = types.DefaultParams()
	p.MaxOperatorsPerRequest = 0
	require.ErrorIs(t, p.Validate(), types.ErrInvalidParams)
}

func TestEVMAddressJSON(t *testing.T) {
	addr, err := types.HexToEVMAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	bz, err := addr.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"0x00000000000000000000000000000000000000aa"`, string(bz))

	var back types.EVMAddress
	require.NoError(t, back.UnmarshalJSON(bz))
	require.Equal(t, addr, back)

	_, err = types.HexToEVMAddress("0x1234")
	require.Error(t, err)
}
