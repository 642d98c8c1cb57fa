// Package runner orchestrates one deterministic run: segment layout,
// entrypoint setup, the driving loop with its step budget, post-run builtin
// validation and relocation of the trace and memory for the proof pipeline.
package runner

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/ethereum/go-ethereum/log"

	"github.com/oriac/oriac-go/internal/oriac/program"
	"github.com/oriac/oriac-go/internal/oriac/vm"
)

// DefaultMaxSteps bounds a run when the caller does not configure a budget.
const DefaultMaxSteps uint64 = 1_000_000

// Options configures a run
type Options struct {
	// MaxSteps is the per-run step budget; 0 means DefaultMaxSteps.
	MaxSteps uint64
	// HintRunner executes hint units; nil installs the no-op runner.
	HintRunner vm.HintRunner
	// ExtraValidators are registered after the builtin runners' own
	// validators, in order.
	ExtraValidators []SegmentValidator
}

// SegmentValidator pairs a builtin validator with the segment it owns
type SegmentValidator struct {
	SegmentIndex int
	Validator    vm.BuiltinValidator
}

// Runner drives a single run over exclusively owned memory and registers.
// It is not reusable: one Runner, one run.
type Runner struct {
	Program *program.Program

	Memory   *vm.Memory
	VM       *vm.VirtualMachine
	registry *vm.ValidatorRegistry

	builtinRunners  []BuiltinRunner
	extraValidators []SegmentValidator

	programBase   vm.Relocatable
	executionBase vm.Relocatable
	finalPc       vm.Relocatable
	programEnd    uint64

	maxSteps   uint64
	hintRunner vm.HintRunner

	initialized bool
	runEnded    bool

	logger log.Logger
}

// New creates a runner for the given program. The program's declared modulus
// must match the engine field.
func New(prog *program.Program, opts Options) (*Runner, error) {
	if prog.Prime != nil && prog.Prime.Cmp(fp.Modulus()) != 0 {
		return nil, vm.Errorf(vm.ErrPrimeMismatch,
			"program declares prime %s, engine field modulus is %s", prog.Prime, fp.Modulus())
	}
	maxSteps := opts.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}

	r := &Runner{
		Program:    prog,
		Memory:     vm.NewMemory(),
		registry:   &vm.ValidatorRegistry{},
		maxSteps:   maxSteps,
		hintRunner: opts.HintRunner,
		logger:     log.New("component", "runner"),
	}
	for _, name := range prog.Builtins {
		builtin, err := newBuiltinRunner(name)
		if err != nil {
			return nil, err
		}
		r.builtinRunners = append(r.builtinRunners, builtin)
	}
	r.extraValidators = opts.ExtraValidators
	return r, nil
}

// Initialize lays out the segments, loads the program data and builds the
// initial stack and registers for the given entrypoint offset. It returns
// the end sentinel: the address an expected final ret folds back to,
// signaling successful completion.
func (r *Runner) Initialize(entrypoint uint64) (vm.Relocatable, error) {
	r.programBase = vm.NewRelocatable(r.Memory.AllocateSegment(), 0)
	r.executionBase = vm.NewRelocatable(r.Memory.AllocateSegment(), 0)

	data := make([]vm.Value, len(r.Program.Data))
	for i := range r.Program.Data {
		data[i] = vm.NewFeltValue(&r.Program.Data[i])
	}
	if _, err := r.Memory.LoadData(r.programBase, data); err != nil {
		return vm.Relocatable{}, err
	}
	r.programEnd = r.programBase.Offset + uint64(len(data))

	var stack []vm.Value
	for _, builtin := range r.builtinRunners {
		segment := r.Memory.AllocateSegment()
		builtin.InitializeSegment(segment)
		r.registry.Register(segment, builtin)
		stack = append(stack, vm.NewRelocatableValue(vm.NewRelocatable(segment, 0)))
	}

	// The caller frame of main lives in two sentinel segments: a return fp
	// with nothing behind it and a final pc the closing ret folds back to.
	returnFp := vm.NewRelocatable(r.Memory.AllocateSegment(), 0)
	r.finalPc = vm.NewRelocatable(r.Memory.AllocateSegment(), 0)
	stack = append(stack, vm.NewRelocatableValue(returnFp), vm.NewRelocatableValue(r.finalPc))

	for _, extra := range r.extraValidators {
		r.registry.Register(extra.SegmentIndex, extra.Validator)
	}

	if _, err := r.Memory.LoadData(r.executionBase, stack); err != nil {
		return vm.Relocatable{}, err
	}

	initialAp := vm.NewRelocatable(r.executionBase.SegmentIndex, r.executionBase.Offset+uint64(len(stack)))
	ctx := vm.RunContext{
		Pc: vm.NewRelocatable(r.programBase.SegmentIndex, r.programBase.Offset+entrypoint),
		Ap: initialAp,
		Fp: initialAp,
	}

	hints := make(map[vm.Relocatable][]vm.Hint, len(r.Program.Hints))
	for offset, units := range r.Program.Hints {
		addr := vm.NewRelocatable(r.programBase.SegmentIndex, r.programBase.Offset+offset)
		converted := make([]vm.Hint, len(units))
		for i, unit := range units {
			converted[i] = vm.Hint{Code: unit.Code, AccessibleScopes: unit.AccessibleScopes}
		}
		hints[addr] = converted
	}

	r.VM = vm.NewVirtualMachine(r.Memory, ctx, hints, r.hintRunner)
	r.initialized = true

	r.logger.Debug("initialized run",
		"words", len(data), "builtins", len(r.builtinRunners), "entrypoint", entrypoint)
	return r.finalPc, nil
}

// RunUntilPC executes steps until pc reaches stop. The step budget bounds
// the run; a pc that leaves the loaded program without reaching stop is a
// run past the end. Step errors propagate verbatim.
func (r *Runner) RunUntilPC(stop vm.Relocatable) error {
	if !r.initialized {
		return vm.Errorf(vm.ErrUnknown, "runner not initialized")
	}
	for r.VM.RunContext.Pc != stop {
		if r.VM.CurrentStep >= r.maxSteps {
			return vm.Errorf(vm.ErrExecutionOutOfSteps,
				"step budget %d exhausted at pc %s before reaching %s",
				r.maxSteps, r.VM.RunContext.Pc, stop)
		}
		pc := r.VM.RunContext.Pc
		if pc.SegmentIndex != r.programBase.SegmentIndex || pc.Offset >= r.programEnd {
			return vm.Errorf(vm.ErrRunPastEnd,
				"pc %s left the loaded program after step %d without reaching %s",
				pc, r.VM.CurrentStep, stop)
		}
		if err := r.VM.Step(); err != nil {
			return err
		}
	}
	r.logger.Info("run reached stop pc", "steps", r.VM.CurrentStep, "stop", stop)
	return nil
}

// EndRun performs the post-run builtin validation pass. It must follow a
// successful RunUntilPC.
func (r *Runner) EndRun() error {
	if r.runEnded {
		return vm.Errorf(vm.ErrUnknown, "run already ended")
	}
	if err := r.registry.ValidateAll(r.Memory); err != nil {
		return err
	}
	r.runEnded = true
	return nil
}

// RelocatedMemory flattens the final memory into the absolute address space
func (r *Runner) RelocatedMemory() ([]*fp.Element, error) {
	return vm.RelocateMemory(r.Memory)
}

// RelocatedTrace rewrites the execution trace into the absolute address
// space
func (r *Runner) RelocatedTrace() ([]vm.RelocatedTraceEntry, error) {
	return vm.RelocateTrace(r.VM.Trace, vm.SegmentBases(r.Memory))
}

// StepCount returns the number of executed steps
func (r *Runner) StepCount() uint64 {
	if r.VM == nil {
		return 0
	}
	return r.VM.CurrentStep
}
