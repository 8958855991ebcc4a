package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// ServiceOperator is an operator serving an instance and the exposure it committed.
type ServiceOperator struct {
	Operator        sdk.AccAddress            `json:"operator"`
	ExposurePercent Percent                   `json:"exposure_percent"`
	Commitments     []AssetSecurityCommitment `json:"commitments"`
}

// Commitment returns the operator's committed exposure for asset.
func (o ServiceOperator) Commitment(asset Asset) (Percent, bool) {
	for _, c := range o.Commitments {
		if c.Asset.Equal(asset) {
			return c.ExposurePercent, true
		}
	}
	return 0, false
}

// Service is a live service instance.
type Service struct {
	ID               uint64                     `json:"id"`
	BlueprintID      uint64                     `json:"blueprint_id"`
	RequestID        uint64                     `json:"request_id"`
	Owner            sdk.AccAddress             `json:"owner"`
	Operators        []ServiceOperator          `json:"operators"`
	PermittedCallers []sdk.AccAddress           `json:"permitted_callers,omitempty"`
	Args             []Field                    `json:"args,omitempty"`
	Requirements     []AssetSecurityRequirement `json:"requirements"`
	TTL              uint64                     `json:"ttl"`
	CreatedAt        int64                      `json:"created_at"`
	MembershipModel  MembershipModel            `json:"membership_model"`
}

// ExpiresAt is the first height at which the service is expired.
func (s Service) ExpiresAt() int64 {
	return expiry(s.CreatedAt, s.TTL)
}

// IsExpired reports whether the service's ttl has elapsed at height.
func (s Service) IsExpired(height int64) bool {
	return height >= s.ExpiresAt()
}

// Operator returns the entry for operator.
func (s Service) Operator(operator sdk.AccAddress) (ServiceOperator, bool) {
	for _, o := range s.Operators {
		if o.Operator.Equals(operator) {
			return o, true
		}
	}
	return ServiceOperator{}, false
}

// IsPermittedCaller reports whether caller may invoke jobs: the owner or a permitted caller.
func (s Service) IsPermittedCaller(caller sdk.AccAddress) bool {
	if s.Owner.Equals(caller) {
		return true
	}
	for _, p := range s.PermittedCallers {
		if p.Equals(caller) {
			return true
		}
	}
	return false
}

// JobCall is a recorded job invocation.
type JobCall struct {
	ID        uint64         `json:"id"`
	ServiceID uint64         `json:"service_id"`
	JobIndex  uint8          `json:"job_index"`
	Caller    sdk.AccAddress `json:"caller"`
	Args      []Field        `json:"args"`
	Height    int64          `json:"height"`
}

// JobCallResult is one operator's result for a job call.
type JobCallResult struct {
	ServiceID uint64         `json:"service_id"`
	CallID    uint64         `json:"call_id"`
	Operator  sdk.AccAddress `json:"operator"`
	Result    []Field        `json:"result"`
	Height    int64          `json:"height"`
}

// HeartbeatRecord is the last heartbeat an operator sent for a service.
type HeartbeatRecord struct {
	ServiceID   uint64         `json:"service_id"`
	BlueprintID uint64         `json:"blueprint_id"`
	Operator    sdk.AccAddress `json:"operator"`
	Round       uint64         `json:"round"`
	Height      int64          `json:"height"`
	Metrics     []byte         `json:"metrics,omitempty"`
}
