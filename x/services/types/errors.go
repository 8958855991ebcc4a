package types

import (
	"errors"

	sdkerrors "cosmossdk.io/errors"
)

// Services module sentinel errors, grouped by how a caller can react to them.

var (
	// Not found: the caller used a stale or wrong identifier.
	ErrBlueprintNotFound             = sdkerrors.Register(ModuleName, 2, "blueprint not found")
	ErrServiceRequestNotFound        = sdkerrors.Register(ModuleName, 3, "service request not found")
	ErrServiceNotFound               = sdkerrors.Register(ModuleName, 4, "service not found")
	ErrUnappliedSlashNotFound        = sdkerrors.Register(ModuleName, 5, "unapplied slash not found")
	ErrJobCallNotFound               = sdkerrors.Register(ModuleName, 6, "job call not found")
	ErrJobDefinitionNotFound         = sdkerrors.Register(ModuleName, 7, "job definition not found")
	ErrNotRegistered                 = sdkerrors.Register(ModuleName, 8, "operator not registered for blueprint")
	ErrNotRequested                  = sdkerrors.Register(ModuleName, 9, "operator has no pending approval for request")
	ErrMasterManagerRevisionNotFound = sdkerrors.Register(ModuleName, 10, "master blueprint service manager revision not found")
	ErrAssetNotFound                 = sdkerrors.Register(ModuleName, 11, "asset not found")
	ErrERC20NotFound                 = sdkerrors.Register(ModuleName, 12, "erc20 contract not found")

	// Validation: malformed input, never worth retrying unchanged.
	ErrInvalidBlueprint           = sdkerrors.Register(ModuleName, 20, "invalid blueprint")
	ErrInvalidAmount              = sdkerrors.Register(ModuleName, 21, "invalid amount")
	ErrInvalidSecurityRequirement = sdkerrors.Register(ModuleName, 22, "invalid security requirement")
	ErrInvalidSecurityCommitment  = sdkerrors.Register(ModuleName, 23, "invalid security commitment")
	ErrInvalidJobCallInput        = sdkerrors.Register(ModuleName, 24, "invalid job call input")
	ErrInvalidJobResult           = sdkerrors.Register(ModuleName, 25, "invalid job result")
	ErrInvalidRequestInput        = sdkerrors.Register(ModuleName, 26, "invalid request input")
	ErrInvalidRegistrationInput   = sdkerrors.Register(ModuleName, 27, "invalid registration input")
	ErrMembershipBoundViolation   = sdkerrors.Register(ModuleName, 28, "membership bound violation")
	ErrUnsupportedMembershipModel = sdkerrors.Register(ModuleName, 29, "membership model not supported by blueprint")
	ErrNoAssetsProvided           = sdkerrors.Register(ModuleName, 30, "no security requirements provided")
	ErrNoOperatorsProvided        = sdkerrors.Register(ModuleName, 31, "no operators provided")
	ErrDuplicateOperator          = sdkerrors.Register(ModuleName, 32, "duplicate operator")
	ErrDuplicateAsset             = sdkerrors.Register(ModuleName, 33, "duplicate asset")
	ErrInvalidTTL                 = sdkerrors.Register(ModuleName, 34, "invalid ttl")
	ErrInvalidSlashPercent        = sdkerrors.Register(ModuleName, 35, "invalid slash percent")
	ErrInvalidHeartbeatSignature  = sdkerrors.Register(ModuleName, 36, "invalid heartbeat signature")
	ErrInvalidHeartbeat           = sdkerrors.Register(ModuleName, 37, "invalid heartbeat")
	ErrInvalidAddress             = sdkerrors.Register(ModuleName, 38, "invalid address")
	ErrInvalidParams              = sdkerrors.Register(ModuleName, 39, "invalid params")
	ErrInvalidGenesis             = sdkerrors.Register(ModuleName, 40, "invalid genesis state")
	ErrAlreadyRegistered          = sdkerrors.Register(ModuleName, 41, "operator already registered for blueprint")
	ErrAlreadyOperator            = sdkerrors.Register(ModuleName, 42, "operator already serves this service")
	ErrResultAlreadySubmitted     = sdkerrors.Register(ModuleName, 43, "job result already submitted")
	ErrServiceExpired             = sdkerrors.Register(ModuleName, 44, "service has expired")
	ErrOperatorHasActiveServices  = sdkerrors.Register(ModuleName, 45, "operator still serves active services")
	ErrStaleHeartbeat             = sdkerrors.Register(ModuleName, 46, "heartbeat already recorded for this round")
	ErrServiceBlueprintMismatch   = sdkerrors.Register(ModuleName, 47, "service does not belong to blueprint")
	ErrInvalidAsset               = sdkerrors.Register(ModuleName, 48, "invalid asset")
	ErrInvalidField               = sdkerrors.Register(ModuleName, 49, "field does not match its declared type")
	ErrOperatorHasPendingRequests = sdkerrors.Register(ModuleName, 50, "operator is named by pending service requests")

	// Authorization: the caller lacks the required capability.
	ErrBadOrigin            = sdkerrors.Register(ModuleName, 60, "bad origin")
	ErrNotAuthorized        = sdkerrors.Register(ModuleName, 61, "not authorized")
	ErrOffenderNotOperator  = sdkerrors.Register(ModuleName, 62, "offender is not an operator of the service")
	ErrNotOperatorOfService = sdkerrors.Register(ModuleName, 63, "caller is not an operator of the service")
	ErrOperatorNotActive    = sdkerrors.Register(ModuleName, 64, "operator is not active")

	// Resource: depends on live external state, may succeed on retry.
	ErrInsufficientBalance        = sdkerrors.Register(ModuleName, 80, "insufficient balance")
	ErrInsufficientStake          = sdkerrors.Register(ModuleName, 81, "insufficient stake")
	ErrInsufficientStakeRemaining = sdkerrors.Register(ModuleName, 82, "insufficient stake remaining")

	// External call: a bridge call failed or returned an unexpected shape.
	ErrERC20TransferFailed   = sdkerrors.Register(ModuleName, 90, "erc20 transfer failed")
	ErrInvalidERC20Contract  = sdkerrors.Register(ModuleName, 91, "invalid erc20 contract")
	ErrManagerCallFailed     = sdkerrors.Register(ModuleName, 92, "manager contract call failed")
	ErrEscrowTransferFailed  = sdkerrors.Register(ModuleName, 93, "escrow transfer failed")
	ErrEscrowInvariantBroken = sdkerrors.Register(ModuleName, 94, "escrow staging record missing")
)

// ErrorClass is the coarse taxonomy callers use to decide how to react to an error.
type ErrorClass string

const (
	ErrorClassNotFound     ErrorClass = "not_found"
	ErrorClassValidation   ErrorClass = "validation"
	ErrorClassAuthz        ErrorClass = "authorization"
	ErrorClassResource     ErrorClass = "resource"
	ErrorClassExternalCall ErrorClass = "external_call"
	ErrorClassUnknown      ErrorClass = "unknown"
)

var (
	notFoundErrors = []error{
		ErrBlueprintNotFound, ErrServiceRequestNotFound, ErrServiceNotFound, ErrUnappliedSlashNotFound,
		ErrJobCallNotFound, ErrJobDefinitionNotFound, ErrNotRegistered, ErrNotRequested,
		ErrMasterManagerRevisionNotFound, ErrAssetNotFound, ErrERC20NotFound,
	}
	authzErrors = []error{
		ErrBadOrigin, ErrNotAuthorized, ErrOffenderNotOperator, ErrNotOperatorOfService, ErrOperatorNotActive,
	}
	resourceErrors = []error{
		ErrInsufficientBalance, ErrInsufficientStake, ErrInsufficientStakeRemaining,
	}
	externalCallErrors = []error{
		ErrERC20TransferFailed, ErrInvalidERC20Contract, ErrManagerCallFailed, ErrEscrowTransferFailed,
	}
)

// Classify maps an error returned by the keeper to its taxonomy class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	for _, group := range []struct {
		class ErrorClass
		errs  []error
	}{
		{ErrorClassNotFound, notFoundErrors},
		{ErrorClassAuthz, authzErrors},
		{ErrorClassResource, resourceErrors},
		{ErrorClassExternalCall, externalCallErrors},
	} {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.class
			}
		}
	}
	if isModuleError(err) {
		return ErrorClassValidation
	}
	return ErrorClassUnknown
}

// IsRetryable reports whether the error depends on live external state and may
// succeed when the same call is repeated later.
func IsRetryable(err error) bool {
	return Classify(err) == ErrorClassResource
}

func isModuleError(err error) bool {
	codespace, _, _ := sdkerrors.ABCIInfo(err, false)
	return codespace == ModuleName
}
