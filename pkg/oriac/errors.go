package oriac

import "github.com/oriac/oriac-go/internal/oriac/vm"

// ErrorCode identifies the kind of failure that aborted a run
type ErrorCode = vm.ErrorCode

// VMError is the error type every failure of the engine surfaces. It wraps
// an optional cause and matches by code under errors.Is.
type VMError = vm.VMError

// The full failure taxonomy of the engine.
const (
	// ErrUnknown represents an unclassified error
	ErrUnknown = vm.ErrUnknown

	// ErrInvalidEncoding represents an instruction word with bits outside the defined fields
	ErrInvalidEncoding = vm.ErrInvalidEncoding

	// ErrInvalidInstruction represents a well-formed word with an illegal flag combination
	ErrInvalidInstruction = vm.ErrInvalidInstruction

	// ErrNotAnInstruction represents a relocatable value found where an instruction was expected
	ErrNotAnInstruction = vm.ErrNotAnInstruction

	// ErrInconsistentWrite represents a second write to a memory cell with a different value
	ErrInconsistentWrite = vm.ErrInconsistentWrite

	// ErrUnknownCell represents a read from a memory cell that was never written
	ErrUnknownCell = vm.ErrUnknownCell

	// ErrInvalidAddress represents a negative offset or a reference to a non-existent segment
	ErrInvalidAddress = vm.ErrInvalidAddress

	// ErrAddRelocatableRelocatable represents an addition of two relocatable addresses
	ErrAddRelocatableRelocatable = vm.ErrAddRelocatableRelocatable

	// ErrMulRelocatable represents a multiplication involving a relocatable address
	ErrMulRelocatable = vm.ErrMulRelocatable

	// ErrJumpToNonRelocatable represents an absolute jump whose target is not an address
	ErrJumpToNonRelocatable = vm.ErrJumpToNonRelocatable

	// ErrDiffAssertValues represents an assert-equal whose destination and result disagree
	ErrDiffAssertValues = vm.ErrDiffAssertValues

	// ErrRunPastEnd represents a program counter leaving the loaded program without halting
	ErrRunPastEnd = vm.ErrRunPastEnd

	// ErrExecutionOutOfSteps represents a step budget exhausted before the stop pc
	ErrExecutionOutOfSteps = vm.ErrExecutionOutOfSteps

	// ErrPrimeMismatch represents a program compiled for a different field modulus
	ErrPrimeMismatch = vm.ErrPrimeMismatch

	// ErrBuiltinValidation represents a builtin segment failing its post-run invariant
	ErrBuiltinValidation = vm.ErrBuiltinValidation

	// ErrUnrelocatableReference represents relocating an address with no assigned base
	ErrUnrelocatableReference = vm.ErrUnrelocatableReference
)

// CodeOf extracts the error code from err, or ErrUnknown if err is not a
// VMError
func CodeOf(err error) ErrorCode {
	return vm.CodeOf(err)
}
