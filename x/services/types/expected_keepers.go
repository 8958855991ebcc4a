package types

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// AccountKeeper defines the expected account keeper used for the module account.
type AccountKeeper interface {
	GetModuleAddress(moduleName string) sdk.AccAddress
}

// BankKeeper defines the expected bank keeper used for native and custom asset escrow.
type BankKeeper interface {
	GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin
	HasSupply(ctx context.Context, denom string) bool
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
}

// EVMBridge executes calls against EVM contracts: ERC20 tokens and the
// blueprint service managers.
type EVMBridge interface {
	HasCode(ctx context.Context, addr EVMAddress) bool
	CallView(ctx context.Context, from, to EVMAddress, data []byte) ([]byte, error)
	CallMutating(ctx context.Context, from, to EVMAddress, data []byte) ([]byte, error)
}

// DelegationKeeper is the staking collaborator that owns operator stake.
// Live stake is always read fresh and never cached by this module.
type DelegationKeeper interface {
	IsOperatorActive(ctx context.Context, operator sdk.AccAddress) bool
	GetLiveStake(ctx context.Context, operator sdk.AccAddress, asset Asset) sdkmath.Int
	// SlashDelegatorsOf reduces every delegation backing operator in asset by
	// fraction and returns the total amount deducted.
	SlashDelegatorsOf(ctx context.Context, operator sdk.AccAddress, asset Asset, fraction sdkmath.LegacyDec) (sdkmath.Int, error)
	CurrentRound(ctx context.Context) uint64
}

// SignatureVerifier checks heartbeat signatures against an operator's registered key.
type SignatureVerifier interface {
	Verify(pubKey, msg, sig []byte) bool
}
