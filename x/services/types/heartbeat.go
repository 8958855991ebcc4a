package types

import (
	"encoding/binary"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
)

// HeartbeatMessage builds the signed heartbeat payload:
// serviceID (8 bytes BE) || blueprintID (8 bytes BE) || metrics.
func HeartbeatMessage(serviceID, blueprintID uint64, metrics []byte) []byte {
	msg := make([]byte, 16, 16+len(metrics))
	binary.BigEndian.PutUint64(msg[:8], serviceID)
	binary.BigEndian.PutUint64(msg[8:16], blueprintID)
	return append(msg, metrics...)
}

// Secp256k1Verifier verifies signatures with a compressed secp256k1 public key.
type Secp256k1Verifier struct{}

var _ SignatureVerifier = Secp256k1Verifier{}

// Verify implements SignatureVerifier.
func (Secp256k1Verifier) Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != secp256k1.PubKeySize {
		return false
	}
	pk := &secp256k1.PubKey{Key: pubKey}
	return pk.VerifySignature(msg, sig)
}
