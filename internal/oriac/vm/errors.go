package vm

import "fmt"

// ErrorCode identifies the kind of failure that aborted a run.
type ErrorCode int

const (
	// ErrUnknown represents an unclassified error
	ErrUnknown ErrorCode = iota

	// ErrInvalidEncoding represents an instruction word with bits outside the defined fields
	ErrInvalidEncoding

	// ErrInvalidInstruction represents a well-formed word with an illegal flag combination
	ErrInvalidInstruction

	// ErrNotAnInstruction represents a relocatable value found where an instruction word was expected
	ErrNotAnInstruction

	// ErrInconsistentWrite represents a second write to a memory cell with a different value
	ErrInconsistentWrite

	// ErrUnknownCell represents a read from a memory cell that was never written
	ErrUnknownCell

	// ErrInvalidAddress represents a negative offset or a reference to a non-existent segment
	ErrInvalidAddress

	// ErrAddRelocatableRelocatable represents an addition of two relocatable addresses
	ErrAddRelocatableRelocatable

	// ErrMulRelocatable represents a multiplication involving a relocatable address
	ErrMulRelocatable

	// ErrJumpToNonRelocatable represents an absolute jump whose target is not an address
	ErrJumpToNonRelocatable

	// ErrDiffAssertValues represents an assert-equal whose destination and result disagree
	ErrDiffAssertValues

	// ErrRunPastEnd represents a program counter leaving the loaded program without halting
	ErrRunPastEnd

	// ErrExecutionOutOfSteps represents a step budget exhausted before the stop pc was reached
	ErrExecutionOutOfSteps

	// ErrPrimeMismatch represents a program artifact compiled for a different field modulus
	ErrPrimeMismatch

	// ErrBuiltinValidation represents a builtin segment that failed its post-run invariant
	ErrBuiltinValidation

	// ErrUnrelocatableReference represents a relocation of an address with no assigned base
	ErrUnrelocatableReference
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnknown:                   "Unknown",
	ErrInvalidEncoding:           "InvalidEncoding",
	ErrInvalidInstruction:        "InvalidInstruction",
	ErrNotAnInstruction:          "NotAnInstruction",
	ErrInconsistentWrite:         "InconsistentWrite",
	ErrUnknownCell:               "UnknownCell",
	ErrInvalidAddress:            "InvalidAddress",
	ErrAddRelocatableRelocatable: "AddRelocatableRelocatable",
	ErrMulRelocatable:            "MulRelocatable",
	ErrJumpToNonRelocatable:      "JumpToNonRelocatable",
	ErrDiffAssertValues:          "DiffAssertValues",
	ErrRunPastEnd:                "RunPastEnd",
	ErrExecutionOutOfSteps:       "ExecutionOutOfSteps",
	ErrPrimeMismatch:             "PrimeMismatch",
	ErrBuiltinValidation:         "BuiltinValidationError",
	ErrUnrelocatableReference:    "UnrelocatableReference",
}

// String returns the stable name of the error code, suitable for CLI output.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// VMError represents a failure of the execution engine. The first error
// encountered aborts the run and is surfaced verbatim to the caller.
type VMError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *VMError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code
func (e *VMError) Is(target error) bool {
	t, ok := target.(*VMError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Errorf builds a VMError with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *VMError {
	return &VMError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapErrorf builds a VMError carrying an underlying cause.
func WrapErrorf(code ErrorCode, cause error, format string, args ...interface{}) *VMError {
	return &VMError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the error code from err, or ErrUnknown if err is not a VMError.
func CodeOf(err error) ErrorCode {
	if vmErr, ok := err.(*VMError); ok {
		return vmErr.Code
	}
	return ErrUnknown
}
