package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"golang.org/x/crypto/sha3"
)

// ABIWordLength is the size of one static ABI-encoded value.
const ABIWordLength = 32

// ABIWord is one 32-byte ABI slot.
type ABIWord [ABIWordLength]byte

// ERC20 and manager contract function signatures.
const (
	SigBalanceOf    = "balanceOf(address)"
	SigTransfer     = "transfer(address,uint256)"
	SigTransferFrom = "transferFrom(address,address,uint256)"

	SigOnBlueprintCreated   = "onBlueprintCreated(uint64,address)"
	SigOnRequest            = "onRequest(uint64,uint64,address,uint64)"
	SigOnApprove            = "onApprove(uint64,uint64,address,uint8)"
	SigOnReject             = "onReject(uint64,uint64,address)"
	SigOnServiceInitialized = "onServiceInitialized(uint64,uint64,uint64,address,uint64)"
	SigOnJobCall            = "onJobCall(uint64,uint8,uint64)"
	SigOnJobResult          = "onJobResult(uint64,uint8,uint64,address)"
	SigOnServiceTermination = "onServiceTermination(uint64,address)"
	SigOnSlash              = "onSlash(uint64,address,uint8)"
	SigQuerySlashingOrigin  = "querySlashingOrigin(uint64)"
	SigQueryDisputeOrigin   = "queryDisputeOrigin(uint64)"
)

// ABISelector returns the first four bytes of the Keccak-256 hash of a function signature.
func ABISelector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil))
	return sel
}

// EncodeCall ABI-encodes a call with static arguments.
func EncodeCall(signature string, args ...ABIWord) []byte {
	sel := ABISelector(signature)
	out := make([]byte, 0, 4+len(args)*ABIWordLength)
	out = append(out, sel[:]...)
	for _, arg := range args {
		out = append(out, arg[:]...)
	}
	return out
}

// Uint64Word encodes v as a uint256.
func Uint64Word(v uint64) ABIWord {
	var w ABIWord
	binary.BigEndian.PutUint64(w[ABIWordLength-8:], v)
	return w
}

// Uint8Word encodes v as a uint256.
func Uint8Word(v uint8) ABIWord {
	var w ABIWord
	w[ABIWordLength-1] = v
	return w
}

// AddressWord left-pads an address to a word.
func AddressWord(addr EVMAddress) ABIWord {
	var w ABIWord
	copy(w[ABIWordLength-EVMAddressLength:], addr[:])
	return w
}

// AmountWord encodes a non-negative amount as a uint256.
func AmountWord(amount math.Int) (ABIWord, error) {
	var w ABIWord
	if amount.IsNil() || amount.IsNegative() {
		return w, fmt.Errorf("amount must be non-negative")
	}
	if amount.BigInt().BitLen() > 8*ABIWordLength {
		return w, fmt.Errorf("amount overflows uint256")
	}
	amount.BigInt().FillBytes(w[:])
	return w, nil
}

// EncodeBalanceOf encodes balanceOf(owner).
func EncodeBalanceOf(owner EVMAddress) []byte {
	return EncodeCall(SigBalanceOf, AddressWord(owner))
}

// EncodeTransfer encodes transfer(to, amount).
func EncodeTransfer(to EVMAddress, amount math.Int) ([]byte, error) {
	amt, err := AmountWord(amount)
	if err != nil {
		return nil, err
	}
	return EncodeCall(SigTransfer, AddressWord(to), amt), nil
}

// EncodeTransferFrom encodes transferFrom(from, to, amount).
func EncodeTransferFrom(from, to EVMAddress, amount math.Int) ([]byte, error) {
	amt, err := AmountWord(amount)
	if err != nil {
		return nil, err
	}
	return EncodeCall(SigTransferFrom, AddressWord(from), AddressWord(to), amt), nil
}

// DecodeUint256 decodes a single uint256 return value.
func DecodeUint256(bz []byte) (math.Int, error) {
	if len(bz) != ABIWordLength {
		return math.Int{}, fmt.Errorf("expected %d bytes, got %d", ABIWordLength, len(bz))
	}
	return math.NewIntFromBigInt(new(big.Int).SetBytes(bz)), nil
}

// DecodeBool decodes a single bool return value. Anything but a canonical 0 or 1 word is rejected.
func DecodeBool(bz []byte) (bool, error) {
	if len(bz) != ABIWordLength {
		return false, fmt.Errorf("expected %d bytes, got %d", ABIWordLength, len(bz))
	}
	if !isZero(bz[:ABIWordLength-1]) {
		return false, fmt.Errorf("non-canonical bool")
	}
	switch bz[ABIWordLength-1] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("non-canonical bool")
	}
}

// DecodeAddress decodes a single address return value.
func DecodeAddress(bz []byte) (EVMAddress, error) {
	if len(bz) != ABIWordLength {
		return EVMAddress{}, fmt.Errorf("expected %d bytes, got %d", ABIWordLength, len(bz))
	}
	if !isZero(bz[:ABIWordLength-EVMAddressLength]) {
		return EVMAddress{}, fmt.Errorf("address word has dirty high bytes")
	}
	return BytesToEVMAddress(bz[ABIWordLength-EVMAddressLength:]), nil
}

// SplitCall separates the selector from the argument words of encoded call data.
func SplitCall(data []byte) ([4]byte, []ABIWord, error) {
	var sel [4]byte
	if len(data) < 4 || (len(data)-4)%ABIWordLength != 0 {
		return sel, nil, fmt.Errorf("malformed call data of %d bytes", len(data))
	}
	copy(sel[:], data[:4])
	words := make([]ABIWord, 0, (len(data)-4)/ABIWordLength)
	for off := 4; off < len(data); off += ABIWordLength {
		var w ABIWord
		copy(w[:], data[off:off+ABIWordLength])
		words = append(words, w)
	}
	return sel, words, nil
}

// Uint64 reads the word as a uint64, failing if it does not fit.
func (w ABIWord) Uint64() (uint64, error) {
	if !isZero(w[:ABIWordLength-8]) {
		return 0, fmt.Errorf("word overflows uint64")
	}
	return binary.BigEndian.Uint64(w[ABIWordLength-8:]), nil
}

// Address reads the word as an address.
func (w ABIWord) Address() (EVMAddress, error) {
	return DecodeAddress(w[:])
}

// Amount reads the word as an unsigned amount.
func (w ABIWord) Amount() math.Int {
	return math.NewIntFromBigInt(new(big.Int).SetBytes(w[:]))
}

func isZero(bz []byte) bool {
	return bytes.Count(bz, []byte{0}) == len(bz)
}
