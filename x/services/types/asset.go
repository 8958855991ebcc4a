package types

import (
	"encoding/binary"
	"fmt"
)

// AssetKind discriminates the three asset representations the escrow understands.
type AssetKind uint8

const (
	AssetKindUnspecified AssetKind = iota
	// AssetKindNative is the chain's native currency.
	AssetKindNative
	// AssetKindCustom is a fungible asset registered under a numeric id.
	AssetKindCustom
	// AssetKindERC20 is a token contract reached through the EVM bridge.
	AssetKindERC20
)

// String implements fmt.Stringer.
func (k AssetKind) String() string {
	switch k {
	case AssetKindNative:
		return "native"
	case AssetKindCustom:
		return "custom"
	case AssetKindERC20:
		return "erc20"
	default:
		return "unspecified"
	}
}

// Asset identifies a payable or stakeable asset.
type Asset struct {
	Kind    AssetKind  `json:"kind"`
	ID      uint64     `json:"id,omitempty"`
	Address EVMAddress `json:"address,omitempty"`
}

// NativeAsset returns the native currency asset.
func NativeAsset() Asset {
	return Asset{Kind: AssetKindNative}
}

// CustomAsset returns the registered fungible asset with the given id.
func CustomAsset(id uint64) Asset {
	return Asset{Kind: AssetKindCustom, ID: id}
}

// ERC20Asset returns the bridged ERC20 token at addr.
func ERC20Asset(addr EVMAddress) Asset {
	return Asset{Kind: AssetKindERC20, Address: addr}
}

// Validate checks that exactly the fields of the asset's kind are populated.
func (a Asset) Validate() error {
	switch a.Kind {
	case AssetKindNative:
		if a.ID != 0 || !a.Address.IsZero() {
			return ErrInvalidAsset.Wrap("native asset carries no id or address")
		}
	case AssetKindCustom:
		if !a.Address.IsZero() {
			return ErrInvalidAsset.Wrap("custom asset carries no address")
		}
	case AssetKindERC20:
		if a.ID != 0 {
			return ErrInvalidAsset.Wrap("erc20 asset carries no id")
		}
		if a.Address.IsZero() {
			return ErrInvalidAsset.Wrap("erc20 asset requires a contract address")
		}
	default:
		return ErrInvalidAsset.Wrapf("unknown asset kind %d", a.Kind)
	}
	return nil
}

// Equal reports whether both assets name the same ledger entry.
func (a Asset) Equal(other Asset) bool {
	return a == other
}

// BankDenom returns the x/bank denom for native and custom assets.
// ERC20 assets are not held in the bank and return false.
func (a Asset) BankDenom(nativeDenom string) (string, bool) {
	switch a.Kind {
	case AssetKindNative:
		return nativeDenom, true
	case AssetKindCustom:
		return CustomAssetDenom(a.ID), true
	default:
		return "", false
	}
}

// Key returns a compact, unique byte encoding used inside store keys.
func (a Asset) Key() []byte {
	switch a.Kind {
	case AssetKindCustom:
		bz := make([]byte, 9)
		bz[0] = byte(a.Kind)
		binary.BigEndian.PutUint64(bz[1:], a.ID)
		return bz
	case AssetKindERC20:
		return append([]byte{byte(a.Kind)}, a.Address[:]...)
	default:
		return []byte{byte(a.Kind)}
	}
}

// String implements fmt.Stringer.
func (a Asset) String() string {
	switch a.Kind {
	case AssetKindNative:
		return "native"
	case AssetKindCustom:
		return fmt.Sprintf("custom:%d", a.ID)
	case AssetKindERC20:
		return "erc20:" + a.Address.Hex()
	default:
		return "unspecified"
	}
}

// AssetSecurityRequirement bounds the exposure an operator may commit for one asset.
type AssetSecurityRequirement struct {
	Asset              Asset   `json:"asset"`
	MinExposurePercent Percent `json:"min_exposure_percent"`
	MaxExposurePercent Percent `json:"max_exposure_percent"`
}

// Validate checks the asset and that 0 < min <= max <= 100.
func (r AssetSecurityRequirement) Validate() error {
	if err := r.Asset.Validate(); err != nil {
		return err
	}
	if err := r.MaxExposurePercent.Validate(); err != nil {
		return ErrInvalidSecurityRequirement.Wrap(err.Error())
	}
	if r.MinExposurePercent == 0 {
		return ErrInvalidSecurityRequirement.Wrapf("asset %s: minimum exposure must be positive", r.Asset)
	}
	if r.MinExposurePercent > r.MaxExposurePercent {
		return ErrInvalidSecurityRequirement.Wrapf("asset %s: minimum exposure %s above maximum %s",
			r.Asset, r.MinExposurePercent, r.MaxExposurePercent)
	}
	return nil
}

// Allows reports whether exposure lies inside [min, max].
func (r AssetSecurityRequirement) Allows(exposure Percent) bool {
	return exposure >= r.MinExposurePercent && exposure <= r.MaxExposurePercent
}

// AssetSecurityCommitment is the exposure an operator commits for one asset.
type AssetSecurityCommitment struct {
	Asset           Asset   `json:"asset"`
	ExposurePercent Percent `json:"exposure_percent"`
}

// ValidateRequirements checks a requester's requirement list: non-empty, valid, no duplicate assets.
func ValidateRequirements(requirements []AssetSecurityRequirement) error {
	if len(requirements) == 0 {
		return ErrNoAssetsProvided
	}
	seen := make(map[Asset]struct{}, len(requirements))
	for _, req := range requirements {
		if err := req.Validate(); err != nil {
			return err
		}
		if _, dup := seen[req.Asset]; dup {
			return ErrDuplicateAsset.Wrapf("asset %s", req.Asset)
		}
		seen[req.Asset] = struct{}{}
	}
	return nil
}

// ValidateCommitments checks that commitments cover every requirement exactly once
// and that each exposure lies inside its requirement's bounds.
func ValidateCommitments(requirements []AssetSecurityRequirement, commitments []AssetSecurityCommitment) error {
	byAsset := make(map[Asset]AssetSecurityRequirement, len(requirements))
	for _, req := range requirements {
		byAsset[req.Asset] = req
	}
	seen := make(map[Asset]struct{}, len(commitments))
	for _, c := range commitments {
		req, ok := byAsset[c.Asset]
		if !ok {
			return ErrInvalidSecurityCommitment.Wrapf("asset %s has no matching requirement", c.Asset)
		}
		if _, dup := seen[c.Asset]; dup {
			return ErrInvalidSecurityCommitment.Wrapf("asset %s committed twice", c.Asset)
		}
		seen[c.Asset] = struct{}{}
		if !req.Allows(c.ExposurePercent) {
			return ErrInvalidSecurityCommitment.Wrapf("asset %s: exposure %s outside [%s, %s]",
				c.Asset, c.ExposurePercent, req.MinExposurePercent, req.MaxExposurePercent)
		}
	}
	if len(seen) != len(byAsset) {
		return ErrInvalidSecurityCommitment.Wrapf("expected commitments for %d assets, got %d", len(byAsset), len(seen))
	}
	return nil
}

// DefaultCommitments commits the minimum exposure of every requirement; used for
// operators that do not require explicit approval.
func DefaultCommitments(requirements []AssetSecurityRequirement) []AssetSecurityCommitment {
	out := make([]AssetSecurityCommitment, len(requirements))
	for i, req := range requirements {
		out[i] = AssetSecurityCommitment{Asset: req.Asset, ExposurePercent: req.MinExposurePercent}
	}
	return out
}
