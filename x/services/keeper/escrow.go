package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// ensureAssetExists checks that the asset ledger knows the asset.
func (k Keeper) ensureAssetExists(ctx context.Context, asset types.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	switch asset.Kind {
	case types.AssetKindNative:
		return nil
	case types.AssetKindCustom:
		denom := types.CustomAssetDenom(asset.ID)
		if !k.bankKeeper.HasSupply(ctx, denom) {
			return types.ErrAssetNotFound.Wrapf("asset %d (%s)", asset.ID, denom)
		}
		return nil
	case types.AssetKindERC20:
		return k.erc20Exists(ctx, asset.Address)
	default:
		return types.ErrInvalidAsset.Wrapf("unknown asset kind %d", asset.Kind)
	}
}

// BalanceOf returns account's balance of asset.
func (k Keeper) BalanceOf(ctx context.Context, asset types.Asset, account sdk.AccAddress) (math.Int, error) {
	switch asset.Kind {
	case types.AssetKindNative, types.AssetKindCustom:
		denom, err := k.bankDenom(ctx, asset)
		if err != nil {
			return math.Int{}, err
		}
		return k.bankKeeper.GetBalance(ctx, account, denom).Amount, nil
	case types.AssetKindERC20:
		return k.erc20BalanceOf(ctx, asset.Address, types.EVMAddressFromAccount(account))
	default:
		return math.Int{}, types.ErrInvalidAsset.Wrapf("unknown asset kind %d", asset.Kind)
	}
}

func (k Keeper) bankDenom(ctx context.Context, asset types.Asset) (string, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return "", err
	}
	denom, ok := asset.BankDenom(params.NativeDenom)
	if !ok {
		return "", types.ErrInvalidAsset.Wrapf("asset %s is not held in the bank", asset)
	}
	return denom, nil
}

// holdPayment moves amount of asset from payer into the module's sovereign
// account. It either moves the whole amount or fails.
func (k Keeper) holdPayment(ctx sdk.Context, payer sdk.AccAddress, asset types.Asset, amount math.Int) error {
	switch asset.Kind {
	case types.AssetKindNative, types.AssetKindCustom:
		denom, err := k.bankDenom(ctx, asset)
		if err != nil {
			return err
		}
		coins := sdk.NewCoins(sdk.NewCoin(denom, amount))
		if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, payer, types.ModuleName, coins); err != nil {
			return types.ErrEscrowTransferFailed.Wrapf("hold %s from %s: %s", coins, payer, err)
		}
	case types.AssetKindERC20:
		err := k.erc20TransferFrom(ctx, asset.Address, types.EVMAddressFromAccount(payer), k.moduleEVMAddress(), amount)
		if err != nil {
			return err
		}
	default:
		return types.ErrInvalidAsset.Wrapf("unknown asset kind %d", asset.Kind)
	}

	k.metrics.EscrowHeld.WithLabelValues(asset.Kind.String()).Inc()
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeEscrowHeld,
			sdk.NewAttribute(types.AttributeKeyOwner, payer.String()),
			sdk.NewAttribute(types.AttributeKeyAsset, asset.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// transferOut pays amount of asset out of the module: bank assets to account,
// ERC20 tokens to evmAddr.
func (k Keeper) transferOut(ctx sdk.Context, asset types.Asset, amount math.Int, account sdk.AccAddress, evmAddr types.EVMAddress) error {
	switch asset.Kind {
	case types.AssetKindNative, types.AssetKindCustom:
		denom, err := k.bankDenom(ctx, asset)
		if err != nil {
			return err
		}
		coins := sdk.NewCoins(sdk.NewCoin(denom, amount))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, account, coins); err != nil {
			return types.ErrEscrowTransferFailed.Wrapf("pay %s to %s: %s", coins, account, err)
		}
		return nil
	case types.AssetKindERC20:
		return k.erc20Transfer(ctx, asset.Address, evmAddr, amount)
	default:
		return types.ErrInvalidAsset.Wrapf("unknown asset kind %d", asset.Kind)
	}
}

// consumeStaging loads and deletes a request's staging payment. Its existence
// is what makes every escrow handle single-use.
func (k Keeper) consumeStaging(ctx sdk.Context, requestID uint64) (types.StagingServicePayment, error) {
	payment, err := k.GetStagingPayment(ctx, requestID)
	if err != nil {
		return types.StagingServicePayment{}, err
	}
	k.getStore(ctx).Delete(GetStagingPaymentKey(requestID))
	return payment, nil
}

// releasePayment forwards a request's escrow to the master manager: its derived
// account for bank assets, the contract address itself for ERC20.
func (k Keeper) releasePayment(ctx sdk.Context, requestID uint64, mbsm types.EVMAddress) error {
	payment, err := k.consumeStaging(ctx, requestID)
	if err != nil {
		return err
	}
	recipient := types.AccountFromEVMAddress(mbsm)
	if err := k.transferOut(ctx, payment.Asset, payment.Amount, recipient, mbsm); err != nil {
		return err
	}

	k.metrics.EscrowReleased.WithLabelValues(payment.Asset.Kind.String()).Inc()
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeEscrowReleased,
			sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
			sdk.NewAttribute(types.AttributeKeyRecipient, recipient.String()),
			sdk.NewAttribute(types.AttributeKeyManager, mbsm.Hex()),
			sdk.NewAttribute(types.AttributeKeyAsset, payment.Asset.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, payment.Amount.String()),
		),
	)
	return nil
}

// refundPayment returns a request's escrow to its refund account.
func (k Keeper) refundPayment(ctx sdk.Context, requestID uint64) error {
	payment, err := k.consumeStaging(ctx, requestID)
	if err != nil {
		return err
	}
	if err := k.transferOut(ctx, payment.Asset, payment.Amount, payment.RefundTo, types.EVMAddressFromAccount(payment.RefundTo)); err != nil {
		return err
	}

	k.metrics.EscrowRefunded.WithLabelValues(payment.Asset.Kind.String()).Inc()
	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeEscrowRefunded,
			sdk.NewAttribute(types.AttributeKeyRequestID, strconv.FormatUint(requestID, 10)),
			sdk.NewAttribute(types.AttributeKeyRefundTo, payment.RefundTo.String()),
			sdk.NewAttribute(types.AttributeKeyAsset, payment.Asset.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, payment.Amount.String()),
		),
	)
	return nil
}

// GetStagingPayment returns the escrow record of a request.
func (k Keeper) GetStagingPayment(ctx context.Context, requestID uint64) (types.StagingServicePayment, error) {
	payment, found, err := getJSON[types.StagingServicePayment](k.getStore(ctx), GetStagingPaymentKey(requestID))
	if err != nil {
		return types.StagingServicePayment{}, err
	}
	if !found {
		return types.StagingServicePayment{}, types.ErrEscrowInvariantBroken.Wrapf("request %d", requestID)
	}
	return payment, nil
}

// SetStagingPayment stores an escrow record.
func (k Keeper) SetStagingPayment(ctx context.Context, payment types.StagingServicePayment) error {
	return setJSON(k.getStore(ctx), GetStagingPaymentKey(payment.RequestID), payment)
}

// HasStagingPayment reports whether a request still holds escrow.
func (k Keeper) HasStagingPayment(ctx context.Context, requestID uint64) bool {
	return k.getStore(ctx).Has(GetStagingPaymentKey(requestID))
}

// IterateStagingPayments calls cb for every escrow record.
func (k Keeper) IterateStagingPayments(ctx context.Context, cb func(types.StagingServicePayment) bool) error {
	return iterateJSON(k.getStore(ctx), StagingPaymentKeyPrefix, func(_ []byte, p types.StagingServicePayment) (bool, error) {
		return cb(p), nil
	})
}
