package errors

import "fmt"

// ErrorCode represents a Pith error code.
type ErrorCode string

const (
	ErrAmbiguousAddressing ErrorCode = "AMBIGUOUS_ADDRESSING" // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrNameAlreadyExists   ErrorCode = "NAME_ALREADY_EXISTS"  // 409
	ErrTextTooLarge        ErrorCode = "TEXT_TOO_LARGE"       // 413
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrCancelled           ErrorCode = "CANCELLED"            // 499
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// PithError represents a structured error with code, status, and details.
type PithError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *PithError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAmbiguousAddressing creates a 400 error for when both ID and name are provided.
func NewAmbiguousAddressing() *PithError {
	return &PithError{
		Code:    ErrAmbiguousAddressing,
		Status:  400,
		Message: "cannot specify both id and name; use one addressing mode",
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PithError {
	return &PithError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a stored result cannot be found.
func NewNotFound(identifier string) *PithError {
	return &PithError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("result not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNameAlreadyExists creates a 409 error for name collisions.
func NewNameAlreadyExists(workspace, name string) *PithError {
	return &PithError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("result with name %q already exists in workspace %q", name, workspace),
		Details: map[string]any{"workspace": workspace, "name": name},
	}
}

// NewTextTooLarge creates a 413 error when input text exceeds the size limit.
func NewTextTooLarge(max, actual int) *PithError {
	return &PithError{
		Code:    ErrTextTooLarge,
		Status:  413,
		Message: fmt.Sprintf("text exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *PithError {
	return &PithError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *PithError {
	return &PithError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging and not shown in Message.
func NewInternal(err error) *PithError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &PithError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a PithError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PithError); ok {
		return pErr.Code == code
	}
	return false
}
