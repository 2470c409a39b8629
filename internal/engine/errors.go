package engine

import (
	"errors"
	"fmt"

	"github.com/OrionReed/ggraph/internal/ir"
)

// RuntimeError represents an error detected while processing an event.
//
// Cycle and quota errors are logged and counted during a wave and never
// returned to the host; the others are returned from Evaluate and Generate.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Wave    string
	NodeID  string
	Details map[string]string
	Err     error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates a node would be evaluated twice in a wave.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeQuotaExceeded indicates a wave exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeNodeNotFound indicates the node is not on the board.
	ErrCodeNodeNotFound RuntimeErrorCode = "NODE_NOT_FOUND"

	// ErrCodeWrongKind indicates an operation on a node of the wrong kind.
	ErrCodeWrongKind RuntimeErrorCode = "WRONG_KIND"

	// ErrCodeStreamFailed indicates a generation stream ended with an error.
	ErrCodeStreamFailed RuntimeErrorCode = "STREAM_FAILED"
)

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Wave != "" && e.NodeID != "":
		msg += fmt.Sprintf(" (wave=%s, node=%s)", e.Wave, e.NodeID)
	case e.NodeID != "":
		msg += fmt.Sprintf(" (node=%s)", e.NodeID)
	case e.Wave != "":
		msg += fmt.Sprintf(" (wave=%s)", e.Wave)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsQuotaError reports whether err is a quota error. It matches both
// RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is a missing node error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNodeNotFound)
}

// IsWrongKind reports whether err is a wrong node kind error.
func IsWrongKind(err error) bool {
	return hasCode(err, ErrCodeWrongKind)
}

// IsStreamError reports whether err is a failed stream.
func IsStreamError(err error) bool {
	return hasCode(err, ErrCodeStreamFailed)
}

// NewCycleError creates a RuntimeError for a node reached twice in a wave.
func NewCycleError(wave, nodeID string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleDetected,
		Message: "node already evaluated in this wave",
		Wave:    wave,
		NodeID:  nodeID,
	}
}

// NewQuotaError creates a RuntimeError for a wave over its step limit.
func NewQuotaError(wave string, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("wave exceeded max steps (%d > %d)", steps, maxSteps),
		Wave:    wave,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}

// NewNodeNotFoundError creates a RuntimeError for a missing node.
func NewNodeNotFoundError(nodeID string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNodeNotFound,
		Message: "node not found",
		NodeID:  nodeID,
	}
}

// NewWrongKindError creates a RuntimeError for an operation that needs a
// node of kind want.
func NewWrongKindError(nodeID string, got, want ir.NodeKind) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeWrongKind,
		Message: fmt.Sprintf("node is %s, want %s", got, want),
		NodeID:  nodeID,
		Details: map[string]string{"kind": string(got), "want": string(want)},
	}
}

// NewStreamError creates a RuntimeError wrapping a failed stream.
func NewStreamError(nodeID string, generation int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStreamFailed,
		Message: fmt.Sprintf("generation %d failed", generation),
		NodeID:  nodeID,
		Details: map[string]string{"generation": fmt.Sprintf("%d", generation)},
		Err:     err,
	}
}
