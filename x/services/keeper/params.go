package keeper

import (
	"context"
	"fmt"

	"github.com/tangle-network/tangle-sub001/x/services/types"
	sharedkeeper "github.com/tangle-network/tangle-sub001/x/shared/keeper"
)

// GetParams retrieves the module parameters from the store
func (k Keeper) GetParams(ctx context.Context) (types.Params, error) {
	params, found, err := getJSON[types.Params](k.getStore(ctx), ParamsKey)
	if err != nil {
		return types.Params{}, fmt.Errorf("GetParams: %w", err)
	}
	if !found {
		return types.DefaultParams(), nil
	}
	return params, nil
}

// SetParams validates and stores the module parameters.
func (k Keeper) SetParams(ctx context.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := setJSON(k.getStore(ctx), ParamsKey, params); err != nil {
		return fmt.Errorf("SetParams: %w", err)
	}
	return nil
}

// UpdateParams replaces the parameters on behalf of the governance authority.
func (k Keeper) UpdateParams(ctx context.Context, authority string, params types.Params) error {
	if err := sharedkeeper.ValidateAuthority(k.authority, authority); err != nil {
		return types.ErrNotAuthorized.Wrap(err.Error())
	}
	return k.SetParams(ctx, params)
}
