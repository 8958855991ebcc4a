package types

import "fmt"

// MembershipModelKind selects how a service's operator set may change.
type MembershipModelKind uint8

const (
	MembershipUnspecified MembershipModelKind = iota
	// MembershipFixed freezes the operator set at instantiation.
	MembershipFixed
	// MembershipDynamic lets operators join and leave within bounds.
	MembershipDynamic
)

// String implements fmt.Stringer.
func (k MembershipModelKind) String() string {
	switch k {
	case MembershipFixed:
		return "fixed"
	case MembershipDynamic:
		return "dynamic"
	default:
		return "unspecified"
	}
}

// MembershipModel is Fixed{MinOperators} or Dynamic{MinOperators, MaxOperators}.
// A Dynamic model with MaxOperators == 0 has no upper bound.
type MembershipModel struct {
	Kind         MembershipModelKind `json:"kind"`
	MinOperators uint32              `json:"min_operators"`
	MaxOperators uint32              `json:"max_operators,omitempty"`
}

// FixedMembership returns Fixed{min}.
func FixedMembership(min uint32) MembershipModel {
	return MembershipModel{Kind: MembershipFixed, MinOperators: min}
}

// DynamicMembership returns Dynamic{min, max}.
func DynamicMembership(min, max uint32) MembershipModel {
	return MembershipModel{Kind: MembershipDynamic, MinOperators: min, MaxOperators: max}
}

// Validate checks the model's bounds.
func (m MembershipModel) Validate() error {
	switch m.Kind {
	case MembershipFixed:
		if m.MinOperators == 0 {
			return ErrMembershipBoundViolation.Wrap("fixed membership requires at least one operator")
		}
		if m.MaxOperators != 0 {
			return ErrMembershipBoundViolation.Wrap("fixed membership has no maximum")
		}
	case MembershipDynamic:
		if m.MinOperators == 0 {
			return ErrMembershipBoundViolation.Wrap("dynamic membership requires at least one operator")
		}
		if m.MaxOperators != 0 && m.MaxOperators < m.MinOperators {
			return ErrMembershipBoundViolation.Wrapf("max operators %d below min %d", m.MaxOperators, m.MinOperators)
		}
	default:
		return ErrUnsupportedMembershipModel.Wrapf("unknown membership kind %d", m.Kind)
	}
	return nil
}

// Allows reports whether an operator set of the given size satisfies the model.
func (m MembershipModel) Allows(count int) bool {
	if count < int(m.MinOperators) {
		return false
	}
	if m.Kind == MembershipDynamic && m.MaxOperators != 0 && count > int(m.MaxOperators) {
		return false
	}
	return true
}

// String implements fmt.Stringer.
func (m MembershipModel) String() string {
	if m.Kind == MembershipDynamic {
		return fmt.Sprintf("dynamic{%d,%d}", m.MinOperators, m.MaxOperators)
	}
	return fmt.Sprintf("%s{%d}", m.Kind, m.MinOperators)
}
