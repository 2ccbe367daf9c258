package batch

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes batch operation errors.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates the change set violates a merge
	// rule. The whole operation is rejected before any item is touched.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeEmptyItemList indicates Start was called without item IDs.
	ErrCodeEmptyItemList ErrorCode = "EMPTY_ITEM_LIST"

	// ErrCodeTooManyItems indicates the item set exceeds the configured
	// maximum.
	ErrCodeTooManyItems ErrorCode = "TOO_MANY_ITEMS"

	// ErrCodeEmptyChangeSet indicates every change field is absent and
	// reset is false - the operation would be a no-op for every item.
	ErrCodeEmptyChangeSet ErrorCode = "EMPTY_CHANGE_SET"

	// ErrCodeCannotResume indicates the checkpoint is missing, malformed
	// or older than the retention window. Terminal: the operation must be
	// restarted with a fresh item set and change set.
	ErrCodeCannotResume ErrorCode = "CANNOT_RESUME"

	// ErrCodeAlreadyCompleted indicates a resume was requested for an
	// operation that already ran to completion.
	ErrCodeAlreadyCompleted ErrorCode = "ALREADY_COMPLETED"

	// ErrCodeStorageFailure indicates a checkpoint read/write failed. The
	// current invocation's remaining chunks are aborted; progress persisted
	// so far is preserved and the operation stays resumable.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
)

// Error is a batch operation error with structured fields for diagnostics
// and recovery. Expected control-flow conditions (time budget exhaustion,
// per-item failures, "no effective change") are NOT errors - they are
// modeled on Result and ItemFailure instead.
type Error struct {
	Code        ErrorCode
	Message     string
	OperationID string // affected operation, when known
	Processed   int    // items already processed, for resumable failures
	Err         error  // underlying cause (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.OperationID != "" {
		msg += fmt.Sprintf(" (operation=%s)", e.OperationID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the ErrorCode from err, or "" if err is not a batch
// *Error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsCannotResume reports whether err is a CANNOT_RESUME batch error.
func IsCannotResume(err error) bool { return CodeOf(err) == ErrCodeCannotResume }

// IsAlreadyCompleted reports whether err is an ALREADY_COMPLETED batch error.
func IsAlreadyCompleted(err error) bool { return CodeOf(err) == ErrCodeAlreadyCompleted }

// IsStorageFailure reports whether err is a STORAGE_FAILURE batch error.
func IsStorageFailure(err error) bool { return CodeOf(err) == ErrCodeStorageFailure }

// IsValidation reports whether err is a pre-flight rejection: a merge-rule
// violation, an empty/oversized item list or an empty change set.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case ErrCodeValidationFailed, ErrCodeEmptyItemList, ErrCodeTooManyItems, ErrCodeEmptyChangeSet:
		return true
	}
	return false
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapStorageError(operationID string, processed int, err error) *Error {
	return &Error{
		Code:        ErrCodeStorageFailure,
		Message:     "checkpoint storage failed; progress up to the last checkpoint is preserved",
		OperationID: operationID,
		Processed:   processed,
		Err:         err,
	}
}
