package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// ServicesKeeperV1 is the surface the delegation module uses to decide whether
// an operator may leave.
// Version 1.0
// Modules should depend on this interface rather than the concrete keeper.
type ServicesKeeperV1 interface {
	// GetActiveServicesCount returns how many live service instances the operator serves.
	GetActiveServicesCount(ctx context.Context, operator sdk.AccAddress) uint64

	// CanExit reports whether the operator serves no live service and may unstake.
	CanExit(ctx context.Context, operator sdk.AccAddress) bool
}

// ServicesKeeperV1Extended adds read access to service membership.
type ServicesKeeperV1Extended interface {
	ServicesKeeperV1

	// GetOperatorServices returns the ids of the services the operator serves.
	GetOperatorServices(ctx context.Context, operator sdk.AccAddress) []uint64
}

// ServicesKeeperVersion is the current services keeper interface version.
const ServicesKeeperVersion = "v1.0.0"
