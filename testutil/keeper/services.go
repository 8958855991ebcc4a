package keeper

import (
	"context"
	"fmt"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/runtime"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authkeeper "github.com/cosmos/cosmos-sdk/x/auth/keeper"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	bankkeeper "github.com/cosmos/cosmos-sdk/x/bank/keeper"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
	minttypes "github.com/cosmos/cosmos-sdk/x/mint/types"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/keeper"
	"github.com/tangle-network/tangle-sub001/x/services/types"
)

// ServicesFixture bundles a services keeper with the collaborators tests drive directly.
type ServicesFixture struct {
	Keeper     *keeper.Keeper
	Ctx        sdk.Context
	Bank       bankkeeper.BaseKeeper
	Delegation *FakeDelegation
	EVM        *FakeEVM
	Authority  sdk.AccAddress
}

// ServicesKeeper creates a test keeper for the services module backed by real
// auth and bank keepers and in-memory delegation and EVM fakes.
func ServicesKeeper(t testing.TB) *ServicesFixture {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	authStoreKey := storetypes.NewKVStoreKey(authtypes.StoreKey)
	bankStoreKey := storetypes.NewKVStoreKey(banktypes.StoreKey)
	evmStoreKey := storetypes.NewKVStoreKey("evm_mock")
	delegationStoreKey := storetypes.NewKVStoreKey("delegation_mock")

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	for _, key := range []*storetypes.KVStoreKey{storeKey, authStoreKey, bankStoreKey, evmStoreKey, delegationStoreKey} {
		stateStore.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	require.NoError(t, stateStore.LoadLatestVersion())

	registry := codectypes.NewInterfaceRegistry()
	authtypes.RegisterInterfaces(registry)
	banktypes.RegisterInterfaces(registry)
	cdc := codec.NewProtoCodec(registry)
	authority := authtypes.NewModuleAddress(govtypes.ModuleName)

	maccPerms := map[string][]string{
		minttypes.ModuleName: {authtypes.Minter},
		types.ModuleName:     nil,
	}
	accountKeeper := authkeeper.NewAccountKeeper(
		cdc,
		runtime.NewKVStoreService(authStoreKey),
		authtypes.ProtoBaseAccount,
		maccPerms,
		address.NewBech32Codec(sdk.GetConfig().GetBech32AccountAddrPrefix()),
		sdk.GetConfig().GetBech32AccountAddrPrefix(),
		authority.String(),
	)
	bankKeeper := bankkeeper.NewBaseKeeper(
		cdc,
		runtime.NewKVStoreService(bankStoreKey),
		accountKeeper,
		map[string]bool{},
		authority.String(),
		log.NewNopLogger(),
	)

	delegation := NewFakeDelegation(delegationStoreKey)
	evm := NewFakeEVM(evmStoreKey)

	k := keeper.NewKeeper(
		storeKey,
		accountKeeper,
		bankKeeper,
		delegation,
		evm,
		nil,
		authority.String(),
	)

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1}, false, log.NewNopLogger())
	require.NoError(t, k.SetParams(ctx, types.DefaultParams()))

	return &ServicesFixture{
		Keeper:     k,
		Ctx:        ctx,
		Bank:       bankKeeper,
		Delegation: delegation,
		EVM:        evm,
		Authority:  authority,
	}
}

// FundAccount mints coins straight into addr.
func (f *ServicesFixture) FundAccount(t testing.TB, addr sdk.AccAddress, coins sdk.Coins) {
	require.NoError(t, f.Bank.MintCoins(f.Ctx, minttypes.ModuleName, coins))
	require.NoError(t, f.Bank.SendCoinsFromModuleToAccount(f.Ctx, minttypes.ModuleName, addr, coins))
}

// Balance returns addr's bank balance of denom.
func (f *ServicesFixture) Balance(addr sdk.AccAddress, denom string) math.Int {
	return f.Bank.GetBalance(f.Ctx, addr, denom).Amount
}

// AdvanceHeight moves the fixture's context forward by n blocks.
func (f *ServicesFixture) AdvanceHeight(n int64) {
	f.Ctx = f.Ctx.WithBlockHeight(f.Ctx.BlockHeight() + n)
}

// FakeDelegation is a store-backed delegation keeper: operator activity and
// live stake per asset. Writes follow the caller's context branch.
type FakeDelegation struct {
	key   storetypes.StoreKey
	round uint64
	err   error
}

// NewFakeDelegation returns a delegation fake persisting under key.
func NewFakeDelegation(key storetypes.StoreKey) *FakeDelegation {
	return &FakeDelegation{key: key}
}

func (d *FakeDelegation) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(d.key)
}

func stakeKey(operator sdk.AccAddress, asset types.Asset) []byte {
	return append(append([]byte("stake/"), asset.Key()...), operator...)
}

// Activate marks operator as an active delegation operator.
func (d *FakeDelegation) Activate(ctx context.Context, operator sdk.AccAddress) {
	d.store(ctx).Set(append([]byte("active/"), operator...), []byte{1})
}

// Deactivate clears the operator's active flag.
func (d *FakeDelegation) Deactivate(ctx context.Context, operator sdk.AccAddress) {
	d.store(ctx).Delete(append([]byte("active/"), operator...))
}

// SetStake sets operator's live stake in asset.
func (d *FakeDelegation) SetStake(ctx context.Context, operator sdk.AccAddress, asset types.Asset, amount math.Int) {
	d.store(ctx).Set(stakeKey(operator, asset), []byte(amount.String()))
}

// SetRound sets the round returned by CurrentRound.
func (d *FakeDelegation) SetRound(round uint64) { d.round = round }

// FailSlashes makes SlashDelegatorsOf return err; nil restores success.
func (d *FakeDelegation) FailSlashes(err error) { d.err = err }

func (d *FakeDelegation) IsOperatorActive(ctx context.Context, operator sdk.AccAddress) bool {
	return d.store(ctx).Has(append([]byte("active/"), operator...))
}

func (d *FakeDelegation) GetLiveStake(ctx context.Context, operator sdk.AccAddress, asset types.Asset) math.Int {
	bz := d.store(ctx).Get(stakeKey(operator, asset))
	if bz == nil {
		return math.ZeroInt()
	}
	amount, ok := math.NewIntFromString(string(bz))
	if !ok {
		return math.ZeroInt()
	}
	return amount
}

func (d *FakeDelegation) SlashDelegatorsOf(ctx context.Context, operator sdk.AccAddress, asset types.Asset, fraction math.LegacyDec) (math.Int, error) {
	if d.err != nil {
		return math.Int{}, d.err
	}
	live := d.GetLiveStake(ctx, operator, asset)
	deducted := fraction.MulInt(live).TruncateInt()
	d.SetStake(ctx, operator, asset, live.Sub(deducted))
	return deducted, nil
}

func (d *FakeDelegation) CurrentRound(context.Context) uint64 { return d.round }

// HookCall is a manager hook delivered through the fake bridge.
type HookCall struct {
	Manager  types.EVMAddress
	Selector [4]byte
	Args     []types.ABIWord
}

// FakeEVM is an EVM bridge with store-backed ERC20 ledgers and scripted
// manager contracts.
type FakeEVM struct {
	key       storetypes.StoreKey
	managers  map[types.EVMAddress]*FakeManager
	malformed map[types.EVMAddress]bool
	returns   map[types.EVMAddress][]byte
	Hooks     []HookCall
}

// FakeManager scripts a blueprint service manager contract.
type FakeManager struct {
	SlashingOrigin types.EVMAddress
	DisputeOrigin  types.EVMAddress
	FailHooks      bool
}

// NewFakeEVM returns an EVM fake persisting token balances under key.
func NewFakeEVM(key storetypes.StoreKey) *FakeEVM {
	return &FakeEVM{
		key:       key,
		managers:  make(map[types.EVMAddress]*FakeManager),
		malformed: make(map[types.EVMAddress]bool),
		returns:   make(map[types.EVMAddress][]byte),
	}
}

func (e *FakeEVM) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(e.key)
}

func tokenKey(token types.EVMAddress) []byte {
	return append([]byte("code/"), token[:]...)
}

func balanceKey(token, holder types.EVMAddress) []byte {
	return append(append([]byte("bal/"), token[:]...), holder[:]...)
}

// DeployToken installs an ERC20 contract at token.
func (e *FakeEVM) DeployToken(ctx context.Context, token types.EVMAddress) {
	e.store(ctx).Set(tokenKey(token), []byte{1})
}

// DeployMalformedToken installs a contract whose balanceOf answer is not a uint256.
func (e *FakeEVM) DeployMalformedToken(ctx context.Context, token types.EVMAddress) {
	e.DeployToken(ctx, token)
	e.malformed[token] = true
}

// ScriptTransfers makes every transfer and transferFrom on token return ret
// without moving balances. A nil ret restores normal behaviour.
func (e *FakeEVM) ScriptTransfers(token types.EVMAddress, ret []byte) {
	if ret == nil {
		delete(e.returns, token)
		return
	}
	e.returns[token] = ret
}

// DeployManager installs a manager contract at addr.
func (e *FakeEVM) DeployManager(addr types.EVMAddress) *FakeManager {
	m := &FakeManager{}
	e.managers[addr] = m
	return m
}

// MintToken credits amount of token to holder.
func (e *FakeEVM) MintToken(ctx context.Context, token, holder types.EVMAddress, amount math.Int) {
	e.setBalance(ctx, token, holder, e.TokenBalance(ctx, token, holder).Add(amount))
}

// TokenBalance returns holder's balance of token.
func (e *FakeEVM) TokenBalance(ctx context.Context, token, holder types.EVMAddress) math.Int {
	bz := e.store(ctx).Get(balanceKey(token, holder))
	if bz == nil {
		return math.ZeroInt()
	}
	amount, _ := math.NewIntFromString(string(bz))
	return amount
}

func (e *FakeEVM) setBalance(ctx context.Context, token, holder types.EVMAddress, amount math.Int) {
	e.store(ctx).Set(balanceKey(token, holder), []byte(amount.String()))
}

// HooksTo returns the hooks delivered to manager with the given signature.
func (e *FakeEVM) HooksTo(manager types.EVMAddress, signature string) []HookCall {
	sel := types.ABISelector(signature)
	var out []HookCall
	for _, h := range e.Hooks {
		if h.Manager == manager && h.Selector == sel {
			out = append(out, h)
		}
	}
	return out
}

func (e *FakeEVM) HasCode(ctx context.Context, addr types.EVMAddress) bool {
	if _, ok := e.managers[addr]; ok {
		return true
	}
	return e.store(ctx).Has(tokenKey(addr))
}

func (e *FakeEVM) CallView(ctx context.Context, _, to types.EVMAddress, data []byte) ([]byte, error) {
	sel, words, err := types.SplitCall(data)
	if err != nil {
		return nil, err
	}
	if m, ok := e.managers[to]; ok {
		switch sel {
		case types.ABISelector(types.SigQuerySlashingOrigin):
			w := types.AddressWord(m.SlashingOrigin)
			return w[:], nil
		case types.ABISelector(types.SigQueryDisputeOrigin):
			w := types.AddressWord(m.DisputeOrigin)
			return w[:], nil
		}
		return nil, fmt.Errorf("manager %s: unknown view %x", to.Hex(), sel)
	}
	if !e.store(ctx).Has(tokenKey(to)) {
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}
	if sel != types.ABISelector(types.SigBalanceOf) || len(words) != 1 {
		return nil, fmt.Errorf("token %s: unsupported view %x", to.Hex(), sel)
	}
	if e.malformed[to] {
		return []byte{0x01}, nil
	}
	holder, err := words[0].Address()
	if err != nil {
		return nil, err
	}
	w, err := types.AmountWord(e.TokenBalance(ctx, to, holder))
	if err != nil {
		return nil, err
	}
	return w[:], nil
}

func (e *FakeEVM) CallMutating(ctx context.Context, from, to types.EVMAddress, data []byte) ([]byte, error) {
	sel, words, err := types.SplitCall(data)
	if err != nil {
		return nil, err
	}
	if m, ok := e.managers[to]; ok {
		if m.FailHooks {
			return nil, fmt.Errorf("manager %s reverted", to.Hex())
		}
		e.Hooks = append(e.Hooks, HookCall{Manager: to, Selector: sel, Args: words})
		return nil, nil
	}
	if !e.store(ctx).Has(tokenKey(to)) {
		return nil, fmt.Errorf("no contract at %s", to.Hex())
	}

	var src, dst types.EVMAddress
	var amount math.Int
	switch {
	case sel == types.ABISelector(types.SigTransfer) && len(words) == 2:
		src = from
		if dst, err = words[0].Address(); err != nil {
			return nil, err
		}
		amount = words[1].Amount()
	case sel == types.ABISelector(types.SigTransferFrom) && len(words) == 3:
		if src, err = words[0].Address(); err != nil {
			return nil, err
		}
		if dst, err = words[1].Address(); err != nil {
			return nil, err
		}
		amount = words[2].Amount()
	default:
		return nil, fmt.Errorf("token %s: unsupported call %x", to.Hex(), sel)
	}
	if ret, ok := e.returns[to]; ok {
		return ret, nil
	}

	balance := e.TokenBalance(ctx, to, src)
	if balance.LT(amount) {
		ret := types.Uint8Word(0)
		return ret[:], nil
	}
	e.setBalance(ctx, to, src, balance.Sub(amount))
	e.setBalance(ctx, to, dst, e.TokenBalance(ctx, to, dst).Add(amount))
	ret := types.Uint8Word(1)
	return ret[:], nil
}
