package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// EVMAddressLength is the byte length of an EVM account address.
const EVMAddressLength = 20

// EVMAddress is a 20-byte EVM account or contract address.
type EVMAddress [EVMAddressLength]byte

// HexToEVMAddress parses a 0x-prefixed (or bare) 40 character hex string.
func HexToEVMAddress(s string) (EVMAddress, error) {
	var addr EVMAddress
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*EVMAddressLength {
		return addr, fmt.Errorf("evm address must be %d hex characters, got %d", 2*EVMAddressLength, len(s))
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid evm address: %w", err)
	}
	copy(addr[:], bz)
	return addr, nil
}

// BytesToEVMAddress left-pads or truncates bz from the left into an address.
func BytesToEVMAddress(bz []byte) EVMAddress {
	var addr EVMAddress
	if len(bz) > EVMAddressLength {
		bz = bz[len(bz)-EVMAddressLength:]
	}
	copy(addr[EVMAddressLength-len(bz):], bz)
	return addr
}

// EVMAddressFromAccount returns the EVM address mapped to a native account:
// the first 20 bytes of the account address.
func EVMAddressFromAccount(acc sdk.AccAddress) EVMAddress {
	var addr EVMAddress
	copy(addr[:], acc)
	return addr
}

// AccountFromEVMAddress derives the native account controlled by an EVM address.
func AccountFromEVMAddress(addr EVMAddress) sdk.AccAddress {
	return sdk.AccAddress(address.Hash("evm", addr[:]))
}

// Bytes returns a copy of the raw address bytes.
func (a EVMAddress) Bytes() []byte {
	return bytes.Clone(a[:])
}

// IsZero reports whether a is the zero address.
func (a EVMAddress) IsZero() bool {
	return a == EVMAddress{}
}

// Hex returns the 0x-prefixed lowercase hex form.
func (a EVMAddress) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a EVMAddress) String() string {
	return a.Hex()
}

// MarshalJSON encodes the address as a hex string.
func (a EVMAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON decodes a hex string address.
func (a *EVMAddress) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := HexToEVMAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
