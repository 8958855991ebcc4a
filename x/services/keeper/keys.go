package keeper

import (
	"encoding/binary"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

var (
	// ParamsKey is the key for module parameters
	ParamsKey = []byte{0x01}

	// BlueprintKeyPrefix is the prefix for blueprint storage
	BlueprintKeyPrefix = []byte{0x02}

	// NextBlueprintIDKey is the key for the next blueprint ID counter
	NextBlueprintIDKey = []byte{0x03}

	// OperatorKeyPrefix is the prefix for (blueprint, operator) registrations
	OperatorKeyPrefix = []byte{0x04}

	// OperatorProfileKeyPrefix is the prefix for operator profiles
	OperatorProfileKeyPrefix = []byte{0x05}

	// ServiceRequestKeyPrefix is the prefix for pending service requests
	ServiceRequestKeyPrefix = []byte{0x06}

	// NextRequestIDKey is the key for the next request ID counter
	NextRequestIDKey = []byte{0x07}

	// StagingPaymentKeyPrefix is the prefix for escrowed request payments
	StagingPaymentKeyPrefix = []byte{0x08}

	// ServiceKeyPrefix is the prefix for service instances
	ServiceKeyPrefix = []byte{0x09}

	// NextServiceIDKey is the key for the next service ID counter
	NextServiceIDKey = []byte{0x0A}

	// JobCallKeyPrefix is the prefix for (service, call) job calls
	JobCallKeyPrefix = []byte{0x0B}

	// NextCallIDKey is the key for the global job call ID counter
	NextCallIDKey = []byte{0x0C}

	// JobResultKeyPrefix is the prefix for (service, call, operator) results
	JobResultKeyPrefix = []byte{0x0D}

	// UnappliedSlashKeyPrefix is the prefix for (era, index) unapplied slashes
	UnappliedSlashKeyPrefix = []byte{0x0E}

	// NextSlashIndexKeyPrefix is the prefix for per-era slash index counters
	NextSlashIndexKeyPrefix = []byte{0x0F}

	// MasterManagerKeyPrefix is the prefix for master manager revisions
	MasterManagerKeyPrefix = []byte{0x10}

	// HeartbeatKeyPrefix is the prefix for (service, operator) heartbeat records
	HeartbeatKeyPrefix = []byte{0x11}

	// ServicesByOperatorPrefix indexes services by operator
	ServicesByOperatorPrefix = []byte{0x12}

	// RequestExpiryPrefix indexes pending requests by expiry height
	RequestExpiryPrefix = []byte{0x13}

	// ServiceExpiryPrefix indexes services by expiry height
	ServiceExpiryPrefix = []byte{0x14}

	// PendingSlashPrefix indexes unapplied slash percents by (operator, service)
	PendingSlashPrefix = []byte{0x15}

	// HeartbeatRoundKeyPrefix tracks the last heartbeat round per (service, operator)
	HeartbeatRoundKeyPrefix = []byte{0x16}
)

func uint64Bytes(v uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, v)
	return bz
}

func uint32Bytes(v uint32) []byte {
	bz := make([]byte, 4)
	binary.BigEndian.PutUint32(bz, v)
	return bz
}

func heightBytes(h int64) []byte {
	if h < 0 {
		h = 0
	}
	return uint64Bytes(uint64(h))
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// GetBlueprintKey returns the store key for a blueprint
func GetBlueprintKey(id uint64) []byte {
	return concat(BlueprintKeyPrefix, uint64Bytes(id))
}

// GetOperatorKey returns the store key for an operator's registration to a blueprint
func GetOperatorKey(blueprintID uint64, operator sdk.AccAddress) []byte {
	return concat(GetOperatorsByBlueprintPrefix(blueprintID), address.MustLengthPrefix(operator))
}

// GetOperatorsByBlueprintPrefix returns the prefix for all operators of a blueprint
func GetOperatorsByBlueprintPrefix(blueprintID uint64) []byte {
	return concat(OperatorKeyPrefix, uint64Bytes(blueprintID))
}

// GetOperatorProfileKey returns the store key for an operator profile
func GetOperatorProfileKey(operator sdk.AccAddress) []byte {
	return concat(OperatorProfileKeyPrefix, address.MustLengthPrefix(operator))
}

// GetServiceRequestKey returns the store key for a service request
func GetServiceRequestKey(id uint64) []byte {
	return concat(ServiceRequestKeyPrefix, uint64Bytes(id))
}

// GetStagingPaymentKey returns the store key for a request's staging payment
func GetStagingPaymentKey(requestID uint64) []byte {
	return concat(StagingPaymentKeyPrefix, uint64Bytes(requestID))
}

// GetServiceKey returns the store key for a service
func GetServiceKey(id uint64) []byte {
	return concat(ServiceKeyPrefix, uint64Bytes(id))
}

// GetJobCallKey returns the store key for a job call
func GetJobCallKey(serviceID, callID uint64) []byte {
	return concat(JobCallKeyPrefix, uint64Bytes(serviceID), uint64Bytes(callID))
}

// GetJobResultKey returns the store key for an operator's job result
func GetJobResultKey(serviceID, callID uint64, operator sdk.AccAddress) []byte {
	return concat(GetJobResultsByCallPrefix(serviceID, callID), address.MustLengthPrefix(operator))
}

// GetJobResultsByCallPrefix returns the prefix for all results of a job call
func GetJobResultsByCallPrefix(serviceID, callID uint64) []byte {
	return concat(JobResultKeyPrefix, uint64Bytes(serviceID), uint64Bytes(callID))
}

// GetUnappliedSlashKey returns the store key for an unapplied slash
func GetUnappliedSlashKey(era uint64, index uint32) []byte {
	return concat(UnappliedSlashKeyPrefix, uint64Bytes(era), uint32Bytes(index))
}

// GetNextSlashIndexKey returns the key of an era's slash index counter
func GetNextSlashIndexKey(era uint64) []byte {
	return concat(NextSlashIndexKeyPrefix, uint64Bytes(era))
}

// GetMasterManagerKey returns the store key for a master manager revision
func GetMasterManagerKey(revision uint32) []byte {
	return concat(MasterManagerKeyPrefix, uint32Bytes(revision))
}

// GetHeartbeatKey returns the store key for a heartbeat record
func GetHeartbeatKey(serviceID uint64, operator sdk.AccAddress) []byte {
	return concat(HeartbeatKeyPrefix, uint64Bytes(serviceID), address.MustLengthPrefix(operator))
}

// GetServiceByOperatorKey returns the index key linking an operator to a service
func GetServiceByOperatorKey(operator sdk.AccAddress, serviceID uint64) []byte {
	return concat(GetServicesByOperatorPrefix(operator), uint64Bytes(serviceID))
}

// GetServicesByOperatorPrefix returns the prefix for all services of an operator
func GetServicesByOperatorPrefix(operator sdk.AccAddress) []byte {
	return concat(ServicesByOperatorPrefix, address.MustLengthPrefix(operator))
}

// GetRequestExpiryKey returns the expiry index key of a request
func GetRequestExpiryKey(height int64, requestID uint64) []byte {
	return concat(RequestExpiryPrefix, heightBytes(height), uint64Bytes(requestID))
}

// GetServiceExpiryKey returns the expiry index key of a service
func GetServiceExpiryKey(height int64, serviceID uint64) []byte {
	return concat(ServiceExpiryPrefix, heightBytes(height), uint64Bytes(serviceID))
}

// GetPendingSlashKey returns the index key of an unapplied slash against (operator, service)
func GetPendingSlashKey(operator sdk.AccAddress, serviceID, era uint64, index uint32) []byte {
	return concat(GetPendingSlashesPrefix(operator, serviceID), uint64Bytes(era), uint32Bytes(index))
}

// GetPendingSlashesPrefix returns the prefix of unapplied slashes against (operator, service)
func GetPendingSlashesPrefix(operator sdk.AccAddress, serviceID uint64) []byte {
	return concat(PendingSlashPrefix, address.MustLengthPrefix(operator), uint64Bytes(serviceID))
}

// GetHeartbeatRoundScope returns the nonce scope for an operator's heartbeats on a service
func GetHeartbeatRoundScope(serviceID uint64, operator sdk.AccAddress) []byte {
	return concat(GetHeartbeatServiceScope(serviceID), address.MustLengthPrefix(operator))
}

// GetHeartbeatServiceScope returns the nonce scope prefix shared by every operator of a service
func GetHeartbeatServiceScope(serviceID uint64) []byte {
	return uint64Bytes(serviceID)
}

// trailingUint64 decodes the last 8 bytes of an index key.
func trailingUint64(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
