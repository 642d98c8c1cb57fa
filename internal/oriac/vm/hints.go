package vm

// Hint is one opaque unit of externally interpreted logic attached to a
// program counter. The engine never interprets the code itself.
type Hint struct {
	Code             string
	AccessibleScopes []string
}

// HintRunner is the injected capability invoked with the hint units
// registered at the current pc, before the instruction at that pc executes.
// Its memory writes go through the same write-once checks as any other
// write; implementations must be deterministic for a run to be replayable.
type HintRunner interface {
	RunHint(vm *VirtualMachine, hint Hint) error
}

// NoOpHintRunner ignores every hint. It is a valid substitute whenever hint
// semantics are not required.
type NoOpHintRunner struct{}

// RunHint does nothing
func (NoOpHintRunner) RunHint(*VirtualMachine, Hint) error {
	return nil
}
