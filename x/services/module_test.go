package services_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	keepertest "github.com/tangle-network/tangle-sub001/testutil/keeper"
	"github.com/tangle-network/tangle-sub001/x/services"
	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func TestAppModuleBasic_Name(t *testing.T) {
	require.Equal(t, "services", services.AppModuleBasic{}.Name())
}

func TestAppModuleBasic_DefaultGenesisValidates(t *testing.T) {
	amb := services.AppModuleBasic{}
	bz := amb.DefaultGenesis(nil)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(bz, &raw))
	require.Contains(t, raw, "params")
	require.NoError(t, amb.ValidateGenesis(nil, nil, bz))
}

func TestAppModuleBasic_ValidateGenesisRejects(t *testing.T) {
	amb := services.AppModuleBasic{}
	require.Error(t, amb.ValidateGenesis(nil, nil, json.RawMessage(`{"params":`)))
	require.Error(t, amb.ValidateGenesis(nil, nil, json.RawMessage(`{"unknown_field":1}`)))

	gs := types.DefaultGenesis()
	gs.Params.MaxTTL = 0
	bz, err := json.Marshal(gs)
	require.NoError(t, err)
	require.Error(t, amb.ValidateGenesis(nil, nil, bz))
}

func TestAppModule_GenesisRoundTrip(t *testing.T) {
	f := keepertest.ServicesKeeper(t)
	am := services.NewAppModule(f.Keeper)

	gs := types.DefaultGenesis()
	gs.Params.MaxSweepPerBlock = 7
	bz, err := json.Marshal(gs)
	require.NoError(t, err)

	require.NotPanics(t, func() { am.InitGenesis(f.Ctx, nil, bz) })
	exported := am.ExportGenesis(f.Ctx, nil)

	parsed, err := types.ParseGenesis(exported)
	require.NoError(t, err)
	require.Equal(t, uint32(7), parsed.Params.MaxSweepPerBlock)
	require.NoError(t, am.EndBlock(f.Ctx))
}

func TestAppModule_InitGenesisPanicsOnInvalidState(t *testing.T) {
	f := keepertest.ServicesKeeper(t)
	am := services.NewAppModule(f.Keeper)
	require.Panics(t, func() { am.InitGenesis(f.Ctx, nil, json.RawMessage(`{"params":{"native_denom":""}}`)) })
}
