package types

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// DefaultParams returns default services parameters
func DefaultParams() Params {
	return Params{
		NativeDenom:              DefaultNativeDenom,
		MaxTTL:                   5_256_000, // about one year of 6s blocks
		MaxSweepPerBlock:         100,
		SlashDeferRounds:         0, // disabled, slashes are applied explicitly
		MaxOperatorsPerRequest:   64,
		MaxHeartbeatMetricsBytes: 4096,
	}
}

// Params are the governance-controlled module parameters.
type Params struct {
	// NativeDenom is the bank denom of the native asset.
	NativeDenom string `json:"native_denom"`
	// MaxTTL caps request and service lifetimes, in blocks.
	MaxTTL uint64 `json:"max_ttl"`
	// MaxSweepPerBlock bounds expired requests and services removed per EndBlock.
	MaxSweepPerBlock uint32 `json:"max_sweep_per_block"`
	// SlashDeferRounds applies unapplied slashes automatically once they are this
	// many rounds old. Zero disables automatic application.
	SlashDeferRounds uint64 `json:"slash_defer_rounds"`

	MaxOperatorsPerRequest   uint32 `json:"max_operators_per_request"`
	MaxHeartbeatMetricsBytes uint32 `json:"max_heartbeat_metrics_bytes"`
}

// Validate validates the set of params
func (p Params) Validate() error {
	if err := sdk.ValidateDenom(p.NativeDenom); err != nil {
		return ErrInvalidParams.Wrapf("native denom: %s", err)
	}
	if p.MaxTTL == 0 {
		return ErrInvalidParams.Wrap("max ttl must be positive")
	}
	if p.MaxSweepPerBlock == 0 {
		return ErrInvalidParams.Wrap("max sweep per block must be positive")
	}
	if p.MaxOperatorsPerRequest == 0 {
		return ErrInvalidParams.Wrap("max operators per request must be positive")
	}
	return nil
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return fmt.Sprintf(`Services Params:
  Native Denom:              %s
  Max TTL:                   %d
  Max Sweep Per Block:       %d
  Slash Defer Rounds:        %d
  Max Operators Per Request: %d
  Max Heartbeat Metrics:     %d`,
		p.NativeDenom, p.MaxTTL, p.MaxSweepPerBlock, p.SlashDeferRounds,
		p.MaxOperatorsPerRequest, p.MaxHeartbeatMetricsBytes)
}
