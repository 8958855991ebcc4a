package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// CompressedPubKeyLength is the length of a compressed secp256k1 public key.
	CompressedPubKeyLength = 33
	MaxRPCAddressLength    = 256
)

// ApprovalPreference controls whether requests naming the operator need its explicit approval.
type ApprovalPreference uint8

const (
	// ApprovalNone pre-approves every request with default commitments.
	ApprovalNone ApprovalPreference = iota
	// ApprovalRequired waits for Approve or Reject.
	ApprovalRequired
)

// String implements fmt.Stringer.
func (p ApprovalPreference) String() string {
	switch p {
	case ApprovalNone:
		return "none"
	case ApprovalRequired:
		return "required"
	default:
		return fmt.Sprintf("approval_preference(%d)", uint8(p))
	}
}

// PriceTargets are the operator's advertised resource prices.
type PriceTargets struct {
	CPU         uint64 `json:"cpu"`
	Mem         uint64 `json:"mem"`
	StorageHDD  uint64 `json:"storage_hdd"`
	StorageSSD  uint64 `json:"storage_ssd"`
	StorageNVMe uint64 `json:"storage_nvme"`
}

// OperatorPreferences is what an operator declares when registering for a blueprint.
type OperatorPreferences struct {
	PublicKey          []byte             `json:"public_key"`
	RPCAddress         string             `json:"rpc_address"`
	ApprovalPreference ApprovalPreference `json:"approval_preference"`
	PriceTargets       PriceTargets       `json:"price_targets"`
}

// Validate checks key length, rpc address length and preference value.
func (p OperatorPreferences) Validate() error {
	if len(p.PublicKey) != CompressedPubKeyLength {
		return ErrInvalidRegistrationInput.Wrapf("public key must be %d bytes, got %d", CompressedPubKeyLength, len(p.PublicKey))
	}
	if len(p.RPCAddress) > MaxRPCAddressLength {
		return ErrInvalidRegistrationInput.Wrapf("rpc address exceeds %d bytes", MaxRPCAddressLength)
	}
	if p.ApprovalPreference != ApprovalNone && p.ApprovalPreference != ApprovalRequired {
		return ErrInvalidRegistrationInput.Wrapf("unknown approval preference %d", p.ApprovalPreference)
	}
	return nil
}

// OperatorRegistration is the stored (blueprint, operator) directory entry.
type OperatorRegistration struct {
	BlueprintID      uint64              `json:"blueprint_id"`
	Operator         sdk.AccAddress      `json:"operator"`
	Preferences      OperatorPreferences `json:"preferences"`
	RegistrationArgs []Field             `json:"registration_args,omitempty"`
	InitialStake     math.Int            `json:"initial_stake"`
}

// OperatorProfile aggregates the blueprints and services an operator takes part in.
type OperatorProfile struct {
	Operator   sdk.AccAddress `json:"operator"`
	Blueprints []uint64       `json:"blueprints"`
	Services   []uint64       `json:"services"`
}

// IsEmpty reports whether the profile references nothing.
func (p OperatorProfile) IsEmpty() bool {
	return len(p.Blueprints) == 0 && len(p.Services) == 0
}

// AddUnique appends id to ids unless it is already present.
func AddUnique(ids []uint64, id uint64) []uint64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// RemoveID returns ids without id.
func RemoveID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
