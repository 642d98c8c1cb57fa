package oriac

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"

	"github.com/oriac/oriac-go/internal/oriac/program"
	"github.com/oriac/oriac-go/internal/oriac/runner"
	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// Felt is an element of the engine's field, an integer modulo the prime
// 2^251 + 17*2^192 + 1
type Felt = fp.Element

// Value is a memory cell's tagged union: field element or relocatable
// address
type Value = vm.Value

// Relocatable is a (segment, offset) address before final flattening
type Relocatable = vm.Relocatable

// Instruction is a decoded 64-bit instruction word
type Instruction = vm.Instruction

// TraceEntry is a per-step register snapshot
type TraceEntry = vm.TraceEntry

// RelocatedTraceEntry is a trace entry in the flat absolute address space
type RelocatedTraceEntry = vm.RelocatedTraceEntry

// Memory is the segmented write-once address space
type Memory = vm.Memory

// VirtualMachine is the register/step state machine
type VirtualMachine = vm.VirtualMachine

// HintRunner is the injected hint-execution capability
type HintRunner = vm.HintRunner

// BuiltinValidator is a pluggable per-segment post-run consistency check
type BuiltinValidator = vm.BuiltinValidator

// Program is a loaded compiled-program artifact
type Program = program.Program

// Runner drives one run end to end
type Runner = runner.Runner

// RunConfig configures a run started through the facade
type RunConfig struct {
	// Entrypoint is the function label to start from; empty means "main".
	Entrypoint string
	// MaxSteps is the per-run step budget; 0 applies the default.
	MaxSteps uint64
	// HintRunner executes hint units; nil ignores hints.
	HintRunner HintRunner
}

// Result is the outcome of a successful run
type Result struct {
	// Steps is the number of executed instructions
	Steps uint64
	// Trace is the relocated register trace, one entry per step
	Trace []RelocatedTraceEntry
	// Memory is the relocated flat memory; index 0 is the reserved
	// sentinel, holes stay nil
	Memory []*Felt
}

// LoadProgram reads a compiled-program artifact from disk
func LoadProgram(path string) (*Program, error) {
	return program.Load(path)
}

// Run executes a loaded program from its entrypoint to its end sentinel and
// relocates the results. The first failure aborts the run and is returned
// verbatim.
func Run(prog *Program, cfg RunConfig) (*Result, error) {
	r, err := runner.New(prog, runner.Options{
		MaxSteps:   cfg.MaxSteps,
		HintRunner: cfg.HintRunner,
	})
	if err != nil {
		return nil, err
	}

	entrypoint := cfg.Entrypoint
	if entrypoint == "" {
		entrypoint = "main"
	}
	offset, err := prog.EntryPoint(entrypoint)
	if err != nil {
		return nil, err
	}

	end, err := r.Initialize(offset)
	if err != nil {
		return nil, err
	}
	if err := r.RunUntilPC(end); err != nil {
		return nil, err
	}
	if err := r.EndRun(); err != nil {
		return nil, err
	}

	trace, err := r.RelocatedTrace()
	if err != nil {
		return nil, err
	}
	memory, err := r.RelocatedMemory()
	if err != nil {
		return nil, err
	}
	return &Result{Steps: r.StepCount(), Trace: trace, Memory: memory}, nil
}
