package errors

import (
	"errors"
	"fmt"
)

// Error codes for the mission engine.
const (
	// Session errors
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"

	// Domain errors
	ErrCodeRecordNotFound     = "RECORD_NOT_FOUND"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"

	// Store errors
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeDatabaseError    = "DATABASE_ERROR"

	// Config errors
	ErrCodeConfigInvalid = "CONFIG_INVALID"

	// Reward integration errors
	ErrCodeRewardGrantFailed = "REWARD_GRANT_FAILED"

	// Validation errors
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// MissionError represents an error in the mission engine.
type MissionError struct {
	Code    string
	Message string
	Err     error
}

func (e *MissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MissionError) Unwrap() error {
	return e.Err
}

// NewMissionError creates a new MissionError.
func NewMissionError(code, message string, err error) *MissionError {
	return &MissionError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrNotAuthenticated returns an error when an operation is invoked without a user.
func ErrNotAuthenticated() *MissionError {
	return &MissionError{
		Code:    ErrCodeNotAuthenticated,
		Message: "no user in session",
	}
}

// ErrRecordNotFound returns an error when a referenced record is missing.
func ErrRecordNotFound(kind, id string) *MissionError {
	return &MissionError{
		Code:    ErrCodeRecordNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
	}
}

// ErrStoreUnavailable wraps transport or connection failures of the backing store.
func ErrStoreUnavailable(operation string, err error) *MissionError {
	return &MissionError{
		Code:    ErrCodeStoreUnavailable,
		Message: fmt.Sprintf("store unavailable during %s", operation),
		Err:     err,
	}
}

// ErrDatabaseError wraps database errors.
func ErrDatabaseError(operation string, err error) *MissionError {
	return &MissionError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("database error during %s", operation),
		Err:     err,
	}
}

// ErrInvariantViolation reports state that correct operation never produces.
func ErrInvariantViolation(reason string) *MissionError {
	return &MissionError{
		Code:    ErrCodeInvariantViolation,
		Message: fmt.Sprintf("invariant violated: %s", reason),
	}
}

// ErrConfigInvalid returns an error for invalid configuration.
func ErrConfigInvalid(reason string) *MissionError {
	return &MissionError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("invalid configuration: %s", reason),
	}
}

// ErrRewardGrantFailed returns an error when forwarding a reward fails.
func ErrRewardGrantFailed(rewardType, rewardID string, err error) *MissionError {
	return &MissionError{
		Code:    ErrCodeRewardGrantFailed,
		Message: fmt.Sprintf("failed to grant %s reward: %s", rewardType, rewardID),
		Err:     err,
	}
}

// ErrValidationFailed returns a validation error.
func ErrValidationFailed(field, reason string) *MissionError {
	return &MissionError{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}

// Code returns the code of the first MissionError in err's chain, or "" if none.
func Code(err error) string {
	var me *MissionError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsNotAuthenticated reports whether err carries ErrCodeNotAuthenticated.
func IsNotAuthenticated(err error) bool {
	return Code(err) == ErrCodeNotAuthenticated
}

// IsNotFound reports whether err carries ErrCodeRecordNotFound.
func IsNotFound(err error) bool {
	return Code(err) == ErrCodeRecordNotFound
}

// IsStoreUnavailable reports whether err carries ErrCodeStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return Code(err) == ErrCodeStoreUnavailable
}

// IsInvariantViolation reports whether err carries ErrCodeInvariantViolation.
func IsInvariantViolation(err error) bool {
	return Code(err) == ErrCodeInvariantViolation
}
