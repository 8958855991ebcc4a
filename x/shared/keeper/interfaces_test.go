package keeper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionConstants(t *testing.T) {
	require.Equal(t, "v1.0.0", ServicesKeeperVersion)
}
