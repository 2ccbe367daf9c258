package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution (including interrupted-but-resumable runs)
	ExitFailure      = 1 // Operational failure (item failures, checkpoint storage down)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, invalid change sets)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeFileRead   = "E002" // File read error
	ErrCodeBadChange  = "E003" // Change set file failed schema validation
	ErrCodeBadItems   = "E004" // Item list file unusable
	ErrCodeStoreOpen  = "E005" // Item database could not be opened
	ErrCodeCheckpoint = "E006" // Checkpoint backend unreachable

	// Batch pre-flight rejections
	ErrCodeValidation     = "E101" // Change set violates a merge rule
	ErrCodeEmptyItemList  = "E102" // No item IDs supplied
	ErrCodeTooManyItems   = "E103" // Item set over the configured maximum
	ErrCodeEmptyChangeSet = "E104" // Change set has no effect

	// Batch lifecycle errors
	ErrCodeCannotResume     = "E111" // Checkpoint missing, malformed or aged out
	ErrCodeAlreadyCompleted = "E112" // Operation already ran to completion
	ErrCodeStorageFailure   = "E113" // Checkpoint storage failed mid-run
)

// batchErrorCode maps a batch error to its CLI error code.
func batchErrorCode(err error) string {
	switch batch.CodeOf(err) {
	case batch.ErrCodeValidationFailed:
		return ErrCodeValidation
	case batch.ErrCodeEmptyItemList:
		return ErrCodeEmptyItemList
	case batch.ErrCodeTooManyItems:
		return ErrCodeTooManyItems
	case batch.ErrCodeEmptyChangeSet:
		return ErrCodeEmptyChangeSet
	case batch.ErrCodeCannotResume:
		return ErrCodeCannotResume
	case batch.ErrCodeAlreadyCompleted:
		return ErrCodeAlreadyCompleted
	case batch.ErrCodeStorageFailure:
		return ErrCodeStorageFailure
	}
	return ErrCodeGeneric
}

// batchExitCode maps a batch error to a process exit code. Pre-flight and
// lifecycle rejections are command errors; storage failures are operational.
func batchExitCode(err error) int {
	if batch.IsStorageFailure(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// renderResult writes one invocation's outcome in the configured format.
//
// Text output is a short human summary; JSON output is the full Result.
// Interrupted runs render their resume hint prominently.
func renderResult(f *OutputFormatter, result *batch.Result) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "Operation %s: %s\n", result.OperationID, result.State)
	fmt.Fprintf(f.Writer, "  items:     %d\n", result.TotalItems)
	fmt.Fprintf(f.Writer, "  processed: %d (%d unchanged)\n", result.SuccessCount, result.UnchangedCount)
	fmt.Fprintf(f.Writer, "  failed:    %d\n", result.FailedCount)
	fmt.Fprintf(f.Writer, "  chunks:    %d in %.1fs\n", result.ChunkCount, result.ProcessingTime)
	for _, failure := range result.Errors {
		fmt.Fprintf(f.Writer, "  FAILED %s: %s\n", failure.ItemID, failure.Message)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(f.Writer, "  WARNING: %s\n", warning)
	}
	return nil
}
