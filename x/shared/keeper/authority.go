// Package keeper provides shared keeper interfaces and utilities for cross-module communication.
package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
)

// DefaultAuthority is the gov module account, the usual authority for
// privileged module operations.
func DefaultAuthority() string {
	return authtypes.NewModuleAddress(govtypes.ModuleName).String()
}

// ValidateAuthority checks that actual names the same account as expected.
// Both are compared as addresses when they decode, so the bech32 prefix does
// not matter; otherwise they must match exactly.
//
// Usage example:
//
//	if err := keeper.ValidateAuthority(k.authority, authority); err != nil {
//	    return types.ErrNotAuthorized.Wrap(err.Error())
//	}
func ValidateAuthority(expected, actual string) error {
	if expected == "" {
		return govtypes.ErrInvalidSigner.Wrap("no authority configured")
	}
	if sameAccount(expected, actual) {
		return nil
	}
	return govtypes.ErrInvalidSigner.Wrapf(
		"invalid authority; expected %s, got %s",
		expected,
		actual,
	)
}

func sameAccount(a, b string) bool {
	if a == b {
		return true
	}
	addrA, errA := decodeAny(a)
	addrB, errB := decodeAny(b)
	return errA == nil && errB == nil && addrA.Equals(addrB)
}

func decodeAny(s string) (sdk.AccAddress, error) {
	_, bz, err := bech32.DecodeAndConvert(s)
	if err != nil {
		return nil, err
	}
	return sdk.AccAddress(bz), nil
}
