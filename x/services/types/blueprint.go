package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	MaxJobsPerBlueprint = 255
	MaxJobNameLength    = 64
	MaxMetadataLength   = 1024
)

// BlueprintMetadata is descriptive, unvalidated data shown to requesters.
type BlueprintMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Category    string `json:"category,omitempty"`
	CodeRepo    string `json:"code_repository,omitempty"`
	Website     string `json:"website,omitempty"`
	License     string `json:"license,omitempty"`
}

func (m BlueprintMetadata) validate() error {
	fields := []struct{ name, value string }{
		{"name", m.Name}, {"description", m.Description}, {"author", m.Author}, {"category", m.Category},
		{"code_repository", m.CodeRepo}, {"website", m.Website}, {"license", m.License},
	}
	for _, f := range fields {
		if len(f.value) > MaxMetadataLength {
			return fmt.Errorf("metadata %s exceeds %d bytes", f.name, MaxMetadataLength)
		}
	}
	return nil
}

// JobDefinition declares one callable job of a blueprint.
type JobDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Params      []FieldType `json:"params"`
	Result      []FieldType `json:"result"`
}

// RevisionKind selects how a blueprint resolves its master manager.
type RevisionKind uint8

const (
	// RevisionLatest follows the newest master manager revision.
	RevisionLatest RevisionKind = iota
	// RevisionSpecific pins one revision.
	RevisionSpecific
)

// MasterManagerRevision is Latest or Specific(n).
type MasterManagerRevision struct {
	Kind     RevisionKind `json:"kind"`
	Revision uint32       `json:"revision,omitempty"`
}

// LatestRevision follows the newest master manager.
func LatestRevision() MasterManagerRevision {
	return MasterManagerRevision{Kind: RevisionLatest}
}

// SpecificRevision pins revision n.
func SpecificRevision(n uint32) MasterManagerRevision {
	return MasterManagerRevision{Kind: RevisionSpecific, Revision: n}
}

// PricingKind discriminates PricingModel variants.
type PricingKind uint8

const (
	PricingPayOnce PricingKind = iota
	PricingSubscription
	PricingEventDriven
)

// PricingModel is PayOnce{Amount}, Subscription{Rate, Interval, MaxCount} or
// EventDriven{RewardPerEvent}. It is advisory: escrow always moves the request's payment.
type PricingModel struct {
	Kind           PricingKind `json:"kind"`
	Amount         math.Int    `json:"amount"`
	Rate           math.Int    `json:"rate"`
	Interval       uint64      `json:"interval,omitempty"`
	MaxCount       uint32      `json:"max_count,omitempty"`
	RewardPerEvent math.Int    `json:"reward_per_event"`
}

// PayOnce returns a single up-front pricing model.
func PayOnce(amount math.Int) PricingModel {
	return PricingModel{Kind: PricingPayOnce, Amount: amount, Rate: math.ZeroInt(), RewardPerEvent: math.ZeroInt()}
}

// Subscription returns a recurring pricing model.
func Subscription(rate math.Int, interval uint64, maxCount uint32) PricingModel {
	return PricingModel{Kind: PricingSubscription, Amount: math.ZeroInt(), Rate: rate, Interval: interval, MaxCount: maxCount, RewardPerEvent: math.ZeroInt()}
}

// EventDriven returns a per-event pricing model.
func EventDriven(reward math.Int) PricingModel {
	return PricingModel{Kind: PricingEventDriven, Amount: math.ZeroInt(), Rate: math.ZeroInt(), RewardPerEvent: reward}
}

func nonNegative(v math.Int) bool {
	return v.IsNil() || !v.IsNegative()
}

// Validate checks the variant's fields.
func (p PricingModel) Validate() error {
	switch p.Kind {
	case PricingPayOnce:
		if !nonNegative(p.Amount) {
			return fmt.Errorf("pay-once amount cannot be negative")
		}
	case PricingSubscription:
		if !nonNegative(p.Rate) {
			return fmt.Errorf("subscription rate cannot be negative")
		}
		if p.Interval == 0 {
			return fmt.Errorf("subscription interval must be positive")
		}
	case PricingEventDriven:
		if !nonNegative(p.RewardPerEvent) {
			return fmt.Errorf("event reward cannot be negative")
		}
	default:
		return fmt.Errorf("unknown pricing kind %d", p.Kind)
	}
	return nil
}

// Blueprint is an immutable service template. Only the master manager
// resolution changes after creation, through UpdateMasterManager.
type Blueprint struct {
	ID                        uint64                `json:"id"`
	Owner                     sdk.AccAddress        `json:"owner"`
	Metadata                  BlueprintMetadata     `json:"metadata"`
	Jobs                      []JobDefinition       `json:"jobs"`
	Manager                   EVMAddress            `json:"manager"`
	MasterManagerRevision     MasterManagerRevision `json:"master_manager_revision"`
	RegistrationParams        []FieldType           `json:"registration_params,omitempty"`
	RequestParams             []FieldType           `json:"request_params,omitempty"`
	SupportedMembershipModels []MembershipModelKind `json:"supported_membership_models"`
	PricingModel              PricingModel          `json:"pricing_model"`
}

// Validate checks everything CreateBlueprint requires of a new blueprint.
func (b Blueprint) Validate() error {
	if len(b.Jobs) == 0 {
		return ErrInvalidBlueprint.Wrap("blueprint declares no jobs")
	}
	if len(b.Jobs) > MaxJobsPerBlueprint {
		return ErrInvalidBlueprint.Wrapf("blueprint declares %d jobs, max %d", len(b.Jobs), MaxJobsPerBlueprint)
	}
	if len(b.SupportedMembershipModels) == 0 {
		return ErrInvalidBlueprint.Wrap("blueprint supports no membership model")
	}
	if err := b.Metadata.validate(); err != nil {
		return ErrInvalidBlueprint.Wrap(err.Error())
	}
	seenModels := make(map[MembershipModelKind]struct{}, len(b.SupportedMembershipModels))
	for _, kind := range b.SupportedMembershipModels {
		if kind != MembershipFixed && kind != MembershipDynamic {
			return ErrInvalidBlueprint.Wrapf("unknown membership kind %d", kind)
		}
		if _, dup := seenModels[kind]; dup {
			return ErrInvalidBlueprint.Wrapf("membership model %s listed twice", kind)
		}
		seenModels[kind] = struct{}{}
	}
	seenJobs := make(map[string]struct{}, len(b.Jobs))
	for i, job := range b.Jobs {
		if job.Name == "" || len(job.Name) > MaxJobNameLength {
			return ErrInvalidBlueprint.Wrapf("job %d: name must be 1-%d bytes", i, MaxJobNameLength)
		}
		if _, dup := seenJobs[job.Name]; dup {
			return ErrInvalidBlueprint.Wrapf("job %q declared twice", job.Name)
		}
		seenJobs[job.Name] = struct{}{}
		if err := validateTypes(job.Params); err != nil {
			return ErrInvalidBlueprint.Wrapf("job %q params: %s", job.Name, err)
		}
		if err := validateTypes(job.Result); err != nil {
			return ErrInvalidBlueprint.Wrapf("job %q result: %s", job.Name, err)
		}
	}
	if err := validateTypes(b.RegistrationParams); err != nil {
		return ErrInvalidBlueprint.Wrapf("registration params: %s", err)
	}
	if err := validateTypes(b.RequestParams); err != nil {
		return ErrInvalidBlueprint.Wrapf("request params: %s", err)
	}
	if err := b.PricingModel.Validate(); err != nil {
		return ErrInvalidBlueprint.Wrap(err.Error())
	}
	if b.MasterManagerRevision.Kind != RevisionLatest && b.MasterManagerRevision.Kind != RevisionSpecific {
		return ErrInvalidBlueprint.Wrapf("unknown revision kind %d", b.MasterManagerRevision.Kind)
	}
	return nil
}

// SupportsMembership reports whether kind is among the blueprint's models.
func (b Blueprint) SupportsMembership(kind MembershipModelKind) bool {
	for _, k := range b.SupportedMembershipModels {
		if k == kind {
			return true
		}
	}
	return false
}

// Job returns the job at index.
func (b Blueprint) Job(index uint8) (JobDefinition, bool) {
	if int(index) >= len(b.Jobs) {
		return JobDefinition{}, false
	}
	return b.Jobs[index], true
}

func validateTypes(types []FieldType) error {
	for i, t := range types {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
	}
	return nil
}
