// Package abci provides shared error handling for begin and end blockers.
package abci

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// ErrorSeverity classifies the severity of ABCI blocker errors.
type ErrorSeverity int

const (
	// SeverityLow covers housekeeping failures such as index cleanup.
	SeverityLow ErrorSeverity = iota

	// SeverityMedium degrades functionality without touching funds.
	SeverityMedium

	// SeverityHigh affects escrow or stake movements.
	SeverityHigh

	// SeverityCritical may indicate broken module invariants.
	SeverityCritical
)

// EventTypeBlockerError is emitted for every handled blocker error.
const EventTypeBlockerError = "abci_blocker_error"

// String returns the string representation of the severity level.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Observer is notified of every handled error, typically to bump a metric.
type Observer func(operation string, severity ErrorSeverity)

// BlockerErrorHandler logs blocker errors with severity, emits monitoring
// events and keeps per-severity counts. Blockers never return errors, so
// callers continue after handing an error over.
type BlockerErrorHandler struct {
	moduleName string
	ctx        sdk.Context
	observer   Observer
	counts     map[ErrorSeverity]int
}

// NewBlockerErrorHandler creates a new error handler for the given module.
func NewBlockerErrorHandler(ctx sdk.Context, moduleName string) *BlockerErrorHandler {
	return &BlockerErrorHandler{
		moduleName: moduleName,
		ctx:        ctx,
		counts:     make(map[ErrorSeverity]int),
	}
}

// WithObserver registers fn to be called for every handled error.
func (h *BlockerErrorHandler) WithObserver(fn Observer) *BlockerErrorHandler {
	h.observer = fn
	return h
}

// HandleError logs and emits an event for a non-nil error.
func (h *BlockerErrorHandler) HandleError(operation string, severity ErrorSeverity, err error) {
	if err == nil {
		return
	}
	h.counts[severity]++

	logger := h.ctx.Logger()
	kv := []any{
		"module", h.moduleName,
		"operation", operation,
		"severity", severity.String(),
		"error", err.Error(),
	}
	switch severity {
	case SeverityCritical, SeverityHigh:
		logger.Error("end blocker operation failed", kv...)
	case SeverityMedium:
		logger.Warn("end blocker operation degraded", kv...)
	default:
		logger.Debug("end blocker housekeeping failed", kv...)
	}

	h.ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			EventTypeBlockerError,
			sdk.NewAttribute("module", h.moduleName),
			sdk.NewAttribute("operation", operation),
			sdk.NewAttribute("severity", severity.String()),
			sdk.NewAttribute("error", err.Error()),
			sdk.NewAttribute("height", strconv.FormatInt(h.ctx.BlockHeight(), 10)),
		),
	)

	if h.observer != nil {
		h.observer(operation, severity)
	}
}

// WrapError handles err and reports whether there was one.
//
//	if handler.WrapError("sweep_requests", SeverityMedium, err) {
//	    // handled, continue with the next step
//	}
func (h *BlockerErrorHandler) WrapError(operation string, severity ErrorSeverity, err error) bool {
	if err != nil {
		h.HandleError(operation, severity, err)
		return true
	}
	return false
}

// Count returns how many errors of the given severity were handled.
func (h *BlockerErrorHandler) Count(severity ErrorSeverity) int {
	return h.counts[severity]
}

// Total returns how many errors were handled.
func (h *BlockerErrorHandler) Total() int {
	total := 0
	for _, n := range h.counts {
		total += n
	}
	return total
}
