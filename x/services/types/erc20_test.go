package types_test

import (
	"encoding/hex"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func TestABISelectors(t *testing.T) {
	cases := map[string]string{
		types.SigBalanceOf:    "70a08231",
		types.SigTransfer:     "a9059cbb",
		types.SigTransferFrom: "23b872dd",
	}
	for sig, want := range cases {
		sel := types.ABISelector(sig)
		require.Equal(t, want, hex.EncodeToString(sel[:]), sig)
	}
}

func TestEncodeTransferLayout(t *testing.T) {
	to := types.BytesToEVMAddress([]byte{0xAB})
	data, err := types.EncodeTransfer(to, math.NewInt(258))
	require.NoError(t, err)
	require.Len(t, data, 4+2*types.ABIWordLength)

	sel, words, err := types.SplitCall(data)
	require.NoError(t, err)
	require.Equal(t, types.ABISelector(types.SigTransfer), sel)
	addr, err := words[0].Address()
	require.NoError(t, err)
	require.Equal(t, to, addr)
	require.True(t, math.NewInt(258).Equal(words[1].Amount()))
}

func TestAmountWordBounds(t *testing.T) {
	_, err := types.AmountWord(math.NewInt(-1))
	require.Error(t, err)

	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	w, err := types.AmountWord(math.NewIntFromBigInt(limit))
	require.NoError(t, err)
	require.Equal(t, 0, limit.Cmp(w.Amount().BigInt()))
	for _, b := range w {
		require.Equal(t, byte(0xFF), b)
	}
}

func TestDecodeBool(t *testing.T) {
	one := types.Uint8Word(1)
	ok, err := types.DecodeBool(one[:])
	require.NoError(t, err)
	require.True(t, ok)

	two := types.Uint8Word(2)
	_, err = types.DecodeBool(two[:])
	require.Error(t, err)

	_, err = types.DecodeBool([]byte{1})
	require.Error(t, err)

	dirty := types.Uint8Word(1)
	dirty[0] = 1
	_, err = types.DecodeBool(dirty[:])
	require.Error(t, err)
}

func TestDecodeAddressRejectsDirtyWord(t *testing.T) {
	w := types.AddressWord(types.BytesToEVMAddress([]byte{0x01}))
	w[0] = 0xFF
	_, err := types.DecodeAddress(w[:])
	require.Error(t, err)
}

func TestSplitCallMalformed(t *testing.T) {
	_, _, err := types.SplitCall([]byte{1, 2})
	require.Error(t, err)
	_, _, err = types.SplitCall(make([]byte, 4+10))
	require.Error(t, err)
}

func TestWordUint64Overflow(t *testing.T) {
	w := types.Uint64Word(7)
	v, err := w.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(7), v)
	w[0] = 1
	_, err = w.Uint64()
	require.Error(t, err)
}
