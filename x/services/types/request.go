package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// ApprovalStateKind is the per-operator state inside a pending request.
type ApprovalStateKind uint8

const (
	ApprovalPending ApprovalStateKind = iota
	ApprovalApproved
	ApprovalRejected
)

// String implements fmt.Stringer.
func (k ApprovalStateKind) String() string {
	switch k {
	case ApprovalPending:
		return "pending"
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ApprovalState is Pending, Approved{ExposurePercent, Commitments} or Rejected.
type ApprovalState struct {
	Kind            ApprovalStateKind         `json:"kind"`
	ExposurePercent Percent                   `json:"exposure_percent,omitempty"`
	Commitments     []AssetSecurityCommitment `json:"commitments,omitempty"`
}

// OperatorApproval pairs a candidate operator with its approval state.
type OperatorApproval struct {
	Operator sdk.AccAddress `json:"operator"`
	State    ApprovalState  `json:"state"`
}

// Payment is the escrowed amount attached to a request.
type Payment struct {
	Asset  Asset    `json:"asset"`
	Amount math.Int `json:"amount"`
}

// ServiceRequest is a pending request awaiting operator approvals.
type ServiceRequest struct {
	ID                 uint64                     `json:"id"`
	BlueprintID        uint64                     `json:"blueprint_id"`
	Owner              sdk.AccAddress             `json:"owner"`
	PermittedCallers   []sdk.AccAddress           `json:"permitted_callers,omitempty"`
	OperatorsWithState []OperatorApproval         `json:"operators_with_state"`
	Args               []Field                    `json:"args,omitempty"`
	Requirements       []AssetSecurityRequirement `json:"requirements"`
	TTL                uint64                     `json:"ttl"`
	CreatedAt          int64                      `json:"created_at"`
	Payment            Payment                    `json:"payment"`
	MembershipModel    MembershipModel            `json:"membership_model"`
}

// ExpiresAt is the first height at which the request is expired.
func (r ServiceRequest) ExpiresAt() int64 {
	return expiry(r.CreatedAt, r.TTL)
}

// IsExpired reports whether the request's ttl has elapsed at height.
func (r ServiceRequest) IsExpired(height int64) bool {
	return height >= r.ExpiresAt()
}

// Counts tallies the operator entries by state.
func (r ServiceRequest) Counts() (approved, pending, rejected int) {
	for _, entry := range r.OperatorsWithState {
		switch entry.State.Kind {
		case ApprovalApproved:
			approved++
		case ApprovalPending:
			pending++
		case ApprovalRejected:
			rejected++
		}
	}
	return approved, pending, rejected
}

// IsApproved reports whether every candidate has approved.
func (r ServiceRequest) IsApproved() bool {
	approved, _, _ := r.Counts()
	return approved == len(r.OperatorsWithState)
}

// OperatorIndex returns the position of operator among the candidates, or -1.
func (r ServiceRequest) OperatorIndex(operator sdk.AccAddress) int {
	for i, entry := range r.OperatorsWithState {
		if entry.Operator.Equals(operator) {
			return i
		}
	}
	return -1
}

// RequestResult reports what Request produced. The request id is always
// allocated; Instantiated is set when the fast path created the service directly.
type RequestResult struct {
	RequestID    uint64 `json:"request_id"`
	ServiceID    uint64 `json:"service_id,omitempty"`
	Instantiated bool   `json:"instantiated"`
}

// ApproveOutcomeKind is the result of one Approve call.
type ApproveOutcomeKind uint8

const (
	OutcomeStillPending ApproveOutcomeKind = iota
	OutcomeServiceCreated
	OutcomeExpired
)

// String implements fmt.Stringer.
func (k ApproveOutcomeKind) String() string {
	switch k {
	case OutcomeStillPending:
		return "still_pending"
	case OutcomeServiceCreated:
		return "service_created"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ApproveOutcome is StillPending, ServiceCreated(ServiceID) or Expired.
type ApproveOutcome struct {
	Kind      ApproveOutcomeKind `json:"kind"`
	ServiceID uint64             `json:"service_id,omitempty"`
}

func expiry(createdAt int64, ttl uint64) int64 {
	const maxHeight = int64(^uint64(0) >> 1)
	if ttl > uint64(maxHeight-createdAt) {
		return maxHeight
	}
	return createdAt + int64(ttl)
}
