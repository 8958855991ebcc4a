package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GenesisState is the services module state exported at a height.
type GenesisState struct {
	Params           Params                  `json:"params"`
	MasterManagers   []EVMAddress            `json:"master_managers"`
	Blueprints       []Blueprint             `json:"blueprints"`
	Operators        []OperatorRegistration  `json:"operators"`
	Requests         []ServiceRequest        `json:"requests"`
	StagingPayments  []StagingServicePayment `json:"staging_payments"`
	Services         []Service               `json:"services"`
	JobCalls         []JobCall               `json:"job_calls"`
	JobResults       []JobCallResult         `json:"job_results"`
	UnappliedSlashes []UnappliedSlash        `json:"unapplied_slashes"`
	Heartbeats       []HeartbeatRecord       `json:"heartbeats"`
	SlashIndexes     []SlashIndexCounter     `json:"slash_indexes"`
	NextBlueprintID  uint64                  `json:"next_blueprint_id"`
	NextRequestID    uint64                  `json:"next_request_id"`
	NextServiceID    uint64                  `json:"next_service_id"`
	NextCallID       uint64                  `json:"next_call_id"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:           DefaultParams(),
		MasterManagers:   []EVMAddress{},
		Blueprints:       []Blueprint{},
		Operators:        []OperatorRegistration{},
		Requests:         []ServiceRequest{},
		StagingPayments:  []StagingServicePayment{},
		Services:         []Service{},
		JobCalls:         []JobCall{},
		JobResults:       []JobCallResult{},
		UnappliedSlashes: []UnappliedSlash{},
		Heartbeats:       []HeartbeatRecord{},
		SlashIndexes:     []SlashIndexCounter{},
	}
}

// Validate performs basic genesis state validation returning an error upon any
// failure.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	blueprints := make(map[uint64]struct{}, len(gs.Blueprints))
	for i, bp := range gs.Blueprints {
		if _, dup := blueprints[bp.ID]; dup {
			return ErrInvalidGenesis.Wrapf("blueprint %d: duplicate id %d", i, bp.ID)
		}
		if bp.ID >= gs.NextBlueprintID {
			return ErrInvalidGenesis.Wrapf("blueprint %d: id %d not below next id %d", i, bp.ID, gs.NextBlueprintID)
		}
		if err := bp.Validate(); err != nil {
			return ErrInvalidGenesis.Wrapf("blueprint %d: %s", bp.ID, err)
		}
		if bp.MasterManagerRevision.Kind == RevisionSpecific && int(bp.MasterManagerRevision.Revision) >= len(gs.MasterManagers) {
			return ErrInvalidGenesis.Wrapf("blueprint %d: unknown master manager revision %d", bp.ID, bp.MasterManagerRevision.Revision)
		}
		blueprints[bp.ID] = struct{}{}
	}

	type regKey struct {
		blueprint uint64
		operator  string
	}
	registrations := make(map[regKey]struct{}, len(gs.Operators))
	for i, reg := range gs.Operators {
		if _, ok := blueprints[reg.BlueprintID]; !ok {
			return ErrInvalidGenesis.Wrapf("operator %d: unknown blueprint %d", i, reg.BlueprintID)
		}
		if len(reg.Operator) == 0 {
			return ErrInvalidGenesis.Wrapf("operator %d: empty address", i)
		}
		key := regKey{reg.BlueprintID, reg.Operator.String()}
		if _, dup := registrations[key]; dup {
			return ErrInvalidGenesis.Wrapf("operator %s registered twice for blueprint %d", reg.Operator, reg.BlueprintID)
		}
		if err := reg.Preferences.Validate(); err != nil {
			return ErrInvalidGenesis.Wrapf("operator %s: %s", reg.Operator, err)
		}
		registrations[key] = struct{}{}
	}

	requests := make(map[uint64]struct{}, len(gs.Requests))
	for i, req := range gs.Requests {
		if _, dup := requests[req.ID]; dup {
			return ErrInvalidGenesis.Wrapf("request %d: duplicate id %d", i, req.ID)
		}
		if req.ID >= gs.NextRequestID {
			return ErrInvalidGenesis.Wrapf("request %d: id %d not below next id %d", i, req.ID, gs.NextRequestID)
		}
		if _, ok := blueprints[req.BlueprintID]; !ok {
			return ErrInvalidGenesis.Wrapf("request %d: unknown blueprint %d", req.ID, req.BlueprintID)
		}
		if len(req.OperatorsWithState) == 0 {
			return ErrInvalidGenesis.Wrapf("request %d: no candidate operators", req.ID)
		}
		if _, _, rejected := req.Counts(); rejected > 0 {
			return ErrInvalidGenesis.Wrapf("request %d: rejected requests are never stored", req.ID)
		}
		requests[req.ID] = struct{}{}
	}

	staged := make(map[uint64]struct{}, len(gs.StagingPayments))
	for _, p := range gs.StagingPayments {
		if _, dup := staged[p.RequestID]; dup {
			return ErrInvalidGenesis.Wrapf("staging payment for request %d listed twice", p.RequestID)
		}
		if _, ok := requests[p.RequestID]; !ok {
			return ErrInvalidGenesis.Wrapf("staging payment for unknown request %d", p.RequestID)
		}
		if err := p.Validate(); err != nil {
			return ErrInvalidGenesis.Wrapf("staging payment %d: %s", p.RequestID, err)
		}
		staged[p.RequestID] = struct{}{}
	}
	if len(staged) != len(requests) {
		return ErrInvalidGenesis.Wrapf("%d requests but %d staging payments", len(requests), len(staged))
	}

	services := make(map[uint64]struct{}, len(gs.Services))
	for i, svc := range gs.Services {
		if _, dup := services[svc.ID]; dup {
			return ErrInvalidGenesis.Wrapf("service %d: duplicate id %d", i, svc.ID)
		}
		if svc.ID >= gs.NextServiceID {
			return ErrInvalidGenesis.Wrapf("service %d: id %d not below next id %d", i, svc.ID, gs.NextServiceID)
		}
		if _, ok := blueprints[svc.BlueprintID]; !ok {
			return ErrInvalidGenesis.Wrapf("service %d: unknown blueprint %d", svc.ID, svc.BlueprintID)
		}
		if len(svc.Operators) == 0 {
			return ErrInvalidGenesis.Wrapf("service %d: no operators", svc.ID)
		}
		services[svc.ID] = struct{}{}
	}

	calls := make(map[uint64]struct{}, len(gs.JobCalls))
	for _, call := range gs.JobCalls {
		if _, dup := calls[call.ID]; dup {
			return ErrInvalidGenesis.Wrapf("job call %d listed twice", call.ID)
		}
		if call.ID >= gs.NextCallID {
			return ErrInvalidGenesis.Wrapf("job call id %d not below next id %d", call.ID, gs.NextCallID)
		}
		if _, ok := services[call.ServiceID]; !ok {
			return ErrInvalidGenesis.Wrapf("job call %d: unknown service %d", call.ID, call.ServiceID)
		}
		calls[call.ID] = struct{}{}
	}
	for _, res := range gs.JobResults {
		if _, ok := calls[res.CallID]; !ok {
			return ErrInvalidGenesis.Wrapf("job result for unknown call %d", res.CallID)
		}
	}

	nextIndex := make(map[uint64]uint64, len(gs.SlashIndexes))
	for _, c := range gs.SlashIndexes {
		if _, dup := nextIndex[c.Era]; dup {
			return ErrInvalidGenesis.Wrapf("slash index counter of era %d listed twice", c.Era)
		}
		if c.Next > uint64(^uint32(0))+1 {
			return ErrInvalidGenesis.Wrapf("slash index counter of era %d out of range: %d", c.Era, c.Next)
		}
		nextIndex[c.Era] = c.Next
	}

	type slashKey struct {
		era   uint64
		index uint32
	}
	slashes := make(map[slashKey]struct{}, len(gs.UnappliedSlashes))
	for _, s := range gs.UnappliedSlashes {
		key := slashKey{s.Era, s.Index}
		if _, dup := slashes[key]; dup {
			return ErrInvalidGenesis.Wrapf("unapplied slash (%d, %d) listed twice", s.Era, s.Index)
		}
		if err := s.SlashPercent.Validate(); err != nil {
			return ErrInvalidGenesis.Wrapf("unapplied slash (%d, %d): %s", s.Era, s.Index, err)
		}
		if next, ok := nextIndex[s.Era]; !ok || uint64(s.Index) >= next {
			return ErrInvalidGenesis.Wrapf("unapplied slash (%d, %d) not below its era's next index %d", s.Era, s.Index, next)
		}
		slashes[key] = struct{}{}
	}

	return nil
}

// ParseGenesis decodes a JSON genesis document. Unknown fields are rejected.
func ParseGenesis(bz []byte) (*GenesisState, error) {
	var gs GenesisState
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s genesis state: %w", ModuleName, err)
	}
	return &gs, nil
}
