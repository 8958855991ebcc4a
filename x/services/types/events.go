package types

// Event types for the services module
// All event types use lowercase with underscore separator (module_action format)
const (
	// Blueprint events
	EventTypeBlueprintCreated     = "services_blueprint_created"
	EventTypeMasterManagerUpdated = "services_master_manager_updated"

	// Operator events
	EventTypeOperatorRegistered        = "services_operator_registered"
	EventTypeOperatorUnregistered      = "services_operator_unregistered"
	EventTypeApprovalPreferenceUpdated = "services_approval_preference_updated"
	EventTypePriceTargetsUpdated       = "services_price_targets_updated"
	EventTypeRPCAddressUpdated         = "services_rpc_address_updated"

	// Request events
	EventTypeServiceRequested       = "services_service_requested"
	EventTypeServiceRequestApproved = "services_service_request_approved"
	EventTypeServiceRequestRejected = "services_service_request_rejected"
	EventTypeServiceRequestExpired  = "services_service_request_expired"

	// Service events
	EventTypeServiceInitiated  = "services_service_initiated"
	EventTypeServiceTerminated = "services_service_terminated"
	EventTypeServiceExpired    = "services_service_expired"
	EventTypeOperatorJoined    = "services_operator_joined"
	EventTypeOperatorLeft      = "services_operator_left"

	// Job events
	EventTypeJobCalled          = "services_job_called"
	EventTypeJobResultSubmitted = "services_job_result_submitted"
	EventTypeHeartbeat          = "services_heartbeat"

	// Escrow events
	EventTypeEscrowHeld     = "services_escrow_held"
	EventTypeEscrowReleased = "services_escrow_released"
	EventTypeEscrowRefunded = "services_escrow_refunded"

	// Slashing events
	EventTypeUnappliedSlash  = "services_unapplied_slash"
	EventTypeSlashDisputed   = "services_slash_disputed"
	EventTypeSlashApplied    = "services_slash_applied"
	EventTypeAssetSlashed    = "services_asset_slashed"
	EventTypeManagerCallFail = "services_manager_call_failed"
)

// Event attribute keys for the services module
const (
	AttributeKeyBlueprintID     = "blueprint_id"
	AttributeKeyRequestID       = "request_id"
	AttributeKeyServiceID       = "service_id"
	AttributeKeyCallID          = "call_id"
	AttributeKeyJobIndex        = "job_index"
	AttributeKeyOwner           = "owner"
	AttributeKeyOperator        = "operator"
	AttributeKeyOperatorCount   = "operator_count"
	AttributeKeyCaller          = "caller"
	AttributeKeyAsset           = "asset"
	AttributeKeyAmount          = "amount"
	AttributeKeyRecipient       = "recipient"
	AttributeKeyRefundTo        = "refund_to"
	AttributeKeyTTL             = "ttl"
	AttributeKeyExposurePercent = "exposure_percent"
	AttributeKeySlashPercent    = "slash_percent"
	AttributeKeyEra             = "era"
	AttributeKeyIndex           = "index"
	AttributeKeyRound           = "round"
	AttributeKeyDeduction       = "deduction"
	AttributeKeyDeducted        = "deducted"
	AttributeKeyLiveStake       = "live_stake"
	AttributeKeyManager         = "manager"
	AttributeKeyRevision        = "revision"
	AttributeKeyPreference      = "preference"
	AttributeKeyInitialStake    = "initial_stake"
	AttributeKeyRPCAddress      = "rpc_address"
	AttributeKeyFastPath        = "fast_path"
	AttributeKeyHook            = "hook"
	AttributeKeyReason          = "reason"
	AttributeKeyError           = "error"
	AttributeKeyDisputer        = "disputer"
	AttributeKeyAuthority       = "authority"
)
