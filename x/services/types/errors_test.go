package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tangle-network/tangle-sub001/x/services/types"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want types.ErrorClass
	}{
		{types.ErrServiceNotFound, types.ErrorClassNotFound},
		{types.ErrUnappliedSlashNotFound.Wrap("era 1"), types.ErrorClassNotFound},
		{types.ErrBadOrigin, types.ErrorClassAuthz},
		{types.ErrInsufficientStake, types.ErrorClassResource},
		{fmt.Errorf("escrow: %w", types.ErrERC20TransferFailed), types.ErrorClassExternalCall},
		{types.ErrInvalidTTL, types.ErrorClassValidation},
		{errors.New("boom"), types.ErrorClassUnknown},
		{nil, types.ErrorClassUnknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, types.Classify(tc.err), "%v", tc.err)
	}
}

func TestIsRetryable(t *testing.T) {
	require.True(t, types.IsRetryable(types.ErrInsufficientBalance.Wrap("usdc")))
	require.False(t, types.IsRetryable(types.ErrServiceNotFound))
	require.False(t, types.IsRetryable(nil))
}
