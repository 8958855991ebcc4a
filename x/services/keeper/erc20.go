package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// erc20Exists checks that token has code and answers balanceOf with a uint256.
func (k Keeper) erc20Exists(ctx context.Context, token types.EVMAddress) error {
	_, err := k.erc20BalanceOf(ctx, token, k.moduleEVMAddress())
	return err
}

// erc20BalanceOf calls token.balanceOf(owner).
func (k Keeper) erc20BalanceOf(ctx context.Context, token, owner types.EVMAddress) (math.Int, error) {
	if k.evm == nil || !k.evm.HasCode(ctx, token) {
		return math.Int{}, types.ErrERC20NotFound.Wrapf("no contract at %s", token.Hex())
	}
	out, err := k.evm.CallView(ctx, k.moduleEVMAddress(), token, types.EncodeBalanceOf(owner))
	if err != nil {
		return math.Int{}, types.ErrInvalidERC20Contract.Wrapf("balanceOf on %s: %s", token.Hex(), err)
	}
	balance, err := types.DecodeUint256(out)
	if err != nil {
		return math.Int{}, types.ErrInvalidERC20Contract.Wrapf("balanceOf on %s: %s", token.Hex(), err)
	}
	return balance, nil
}

// erc20TransferFrom pulls amount from `from` to `to` using the module's allowance.
func (k Keeper) erc20TransferFrom(ctx context.Context, token, from, to types.EVMAddress, amount math.Int) error {
	data, err := types.EncodeTransferFrom(from, to, amount)
	if err != nil {
		return types.ErrInvalidAmount.Wrap(err.Error())
	}
	return k.erc20Call(ctx, token, data, "transferFrom")
}

// erc20Transfer sends amount held by the module to `to`.
func (k Keeper) erc20Transfer(ctx context.Context, token, to types.EVMAddress, amount math.Int) error {
	data, err := types.EncodeTransfer(to, amount)
	if err != nil {
		return types.ErrInvalidAmount.Wrap(err.Error())
	}
	return k.erc20Call(ctx, token, data, "transfer")
}

// erc20Call executes a mutating token call; only an ABI bool true counts as success.
func (k Keeper) erc20Call(ctx context.Context, token types.EVMAddress, data []byte, method string) error {
	if k.evm == nil || !k.evm.HasCode(ctx, token) {
		return types.ErrERC20NotFound.Wrapf("no contract at %s", token.Hex())
	}
	out, err := k.evm.CallMutating(ctx, k.moduleEVMAddress(), token, data)
	if err != nil {
		return types.ErrERC20TransferFailed.Wrapf("%s on %s: %s", method, token.Hex(), err)
	}
	ok, err := types.DecodeBool(out)
	if err != nil {
		return types.ErrERC20TransferFailed.Wrapf("%s on %s: %s", method, token.Hex(), err)
	}
	if !ok {
		return types.ErrERC20TransferFailed.Wrapf("%s on %s returned false", method, token.Hex())
	}
	return nil
}
