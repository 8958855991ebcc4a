package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// StagingServicePayment tracks escrowed funds for a request. It exists exactly
// as long as the matching ServiceRequest and is consumed once, by release or refund.
type StagingServicePayment struct {
	RequestID uint64         `json:"request_id"`
	RefundTo  sdk.AccAddress `json:"refund_to"`
	Asset     Asset          `json:"asset"`
	Amount    math.Int       `json:"amount"`
}

// Validate checks the record's fields.
func (p StagingServicePayment) Validate() error {
	if len(p.RefundTo) == 0 {
		return ErrInvalidAddress.Wrap("staging payment has no refund account")
	}
	if err := p.Asset.Validate(); err != nil {
		return err
	}
	if p.Amount.IsNil() || !p.Amount.IsPositive() {
		return ErrInvalidAmount.Wrapf("staging payment %d amount must be positive", p.RequestID)
	}
	return nil
}
