package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// UnappliedSlash is a recorded penalty awaiting dispute or application. It
// snapshots exposure percentages, never absolute stake.
type UnappliedSlash struct {
	Era          uint64                    `json:"era"`
	Index        uint32                    `json:"index"`
	Operator     sdk.AccAddress            `json:"operator"`
	ServiceID    uint64                    `json:"service_id"`
	BlueprintID  uint64                    `json:"blueprint_id"`
	SlashPercent Percent                   `json:"slash_percent"`
	Exposures    []AssetSecurityCommitment `json:"exposures"`
	CreatedAt    int64                     `json:"created_at"`
}

// SlashIndexCounter is the next unused slash index of an era. Indexes are
// never reused, even after the slash holding them was applied or disputed.
type SlashIndexCounter struct {
	Era  uint64 `json:"era"`
	Next uint64 `json:"next"`
}

// SlashOutcome records what ApplySlash deducted per asset.
type SlashOutcome struct {
	Asset    Asset          `json:"asset"`
	Fraction math.LegacyDec `json:"fraction"`
	Deducted math.Int       `json:"deducted"`
}
