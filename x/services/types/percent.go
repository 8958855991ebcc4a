package types

import (
	"fmt"

	"cosmossdk.io/math"
)

// MaxPercent is the largest valid Percent.
const MaxPercent Percent = 100

// Percent is an integral percentage in [0, 100] used for exposures and slash fractions.
type Percent uint8

// Validate rejects values above 100%.
func (p Percent) Validate() error {
	if p > MaxPercent {
		return fmt.Errorf("percent %d exceeds %d", p, MaxPercent)
	}
	return nil
}

// Dec returns the percentage as a fraction in [0, 1].
func (p Percent) Dec() math.LegacyDec {
	return math.LegacyNewDecWithPrec(int64(p), 2)
}

// String implements fmt.Stringer.
func (p Percent) String() string {
	return fmt.Sprintf("%d%%", uint8(p))
}
