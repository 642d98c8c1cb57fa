package vm

import (
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// VirtualMachine executes decoded instructions against memory, one fully
// deterministic step at a time. It owns its memory and run context
// exclusively for the duration of one run; halting is decided by the driving
// loop, not by the step function.
type VirtualMachine struct {
	Memory     *Memory
	RunContext RunContext

	// Trace records the pre-update registers of every executed step.
	Trace []TraceEntry

	// CurrentStep counts executed steps; the driving loop compares it
	// against the step budget.
	CurrentStep uint64

	// SkipInstructionExecution can be set by a hint so that only the hint
	// runs in the current step and the instruction itself is skipped.
	SkipInstructionExecution bool

	hints      map[Relocatable][]Hint
	hintRunner HintRunner
}

// NewVirtualMachine creates a machine over the given memory and initial
// registers. hints maps instruction addresses to their ordered hint units;
// hintRunner may be nil, in which case hints are ignored.
func NewVirtualMachine(memory *Memory, ctx RunContext, hints map[Relocatable][]Hint, hintRunner HintRunner) *VirtualMachine {
	if hintRunner == nil {
		hintRunner = NoOpHintRunner{}
	}
	if hints == nil {
		hints = map[Relocatable][]Hint{}
	}
	return &VirtualMachine{
		Memory:     memory,
		RunContext: ctx,
		hints:      hints,
		hintRunner: hintRunner,
	}
}

// operands holds everything resolved for one instruction. res is nil when
// the result is unconstrained; op0 and op1 are nil when the instruction does
// not need them.
type operands struct {
	dstAddr Relocatable
	op0Addr Relocatable
	op1Addr Relocatable

	dst *Value
	op0 *Value
	op1 *Value
	res *Value
}

// Step executes the hint units at the current pc and then one instruction:
// fetch, decode, resolve operands, apply the opcode, update the registers
// and append the pre-update trace entry. The first failure aborts the step
// with the machine state unchanged from the caller's point of view, except
// for memory writes already performed.
func (vm *VirtualMachine) Step() error {
	for _, hint := range vm.hints[vm.RunContext.Pc] {
		if err := vm.hintRunner.RunHint(vm, hint); err != nil {
			return err
		}
	}
	if vm.SkipInstructionExecution {
		vm.SkipInstructionExecution = false
		return nil
	}

	word, err := vm.Memory.Read(vm.RunContext.Pc)
	if err != nil {
		return err
	}
	felt, ok := word.Felt()
	if !ok {
		return Errorf(ErrNotAnInstruction,
			"cell at pc %s holds address %s, not an instruction word", vm.RunContext.Pc, word)
	}
	inst, err := DecodeInstruction(&felt)
	if err != nil {
		return err
	}

	ops, err := vm.computeOperands(inst)
	if err != nil {
		return err
	}
	next, err := vm.nextContext(inst, ops)
	if err != nil {
		return err
	}

	vm.Trace = append(vm.Trace, TraceEntry{
		Pc: vm.RunContext.Pc,
		Ap: vm.RunContext.Ap,
		Fp: vm.RunContext.Fp,
	})
	vm.RunContext = next
	vm.CurrentStep++
	return nil
}

// computeOperands resolves the operand addresses and loads or writes the
// operand values as the opcode demands.
func (vm *VirtualMachine) computeOperands(inst *Instruction) (*operands, error) {
	ops := &operands{}
	var err error

	if ops.dstAddr, err = vm.RunContext.DstAddr(inst); err != nil {
		return nil, err
	}
	if ops.op0Addr, err = vm.RunContext.Op0Addr(inst); err != nil {
		return nil, err
	}

	// op0 is written by call (return pc) and read only where the result or
	// the derived op1 address depends on it.
	if inst.Opcode == OpcodeCall {
		retPc, err := vm.RunContext.Pc.AddOffset(int64(inst.Size()))
		if err != nil {
			return nil, err
		}
		retPcValue := NewRelocatableValue(retPc)
		if err := vm.Memory.Write(ops.op0Addr, retPcValue); err != nil {
			return nil, err
		}
		ops.op0 = &retPcValue
	} else if inst.Op1Src == Op1SrcOp0 || inst.Res == ResAdd || inst.Res == ResMul {
		op0, err := vm.Memory.Read(ops.op0Addr)
		if err != nil {
			return nil, err
		}
		ops.op0 = &op0
	}

	if ops.op1Addr, err = vm.RunContext.Op1Addr(inst, ops.op0); err != nil {
		return nil, err
	}

	// The unconstrained result is exclusive to jnz, which reads op1 only on
	// the nonzero branch; every other result logic needs op1.
	if inst.Res != ResUnconstrained {
		op1, err := vm.Memory.Read(ops.op1Addr)
		if err != nil {
			return nil, err
		}
		ops.op1 = &op1
	}

	switch inst.Res {
	case ResOp1:
		ops.res = ops.op1
	case ResAdd:
		sum, err := AddValues(*ops.op0, *ops.op1)
		if err != nil {
			return nil, err
		}
		ops.res = &sum
	case ResMul:
		prod, err := MulValues(*ops.op0, *ops.op1)
		if err != nil {
			return nil, err
		}
		ops.res = &prod
	}

	switch inst.Opcode {
	case OpcodeAssertEq:
		if existing, found := vm.Memory.Get(ops.dstAddr); found {
			if !existing.Equal(*ops.res) {
				return nil, Errorf(ErrDiffAssertValues,
					"assert at pc %s: cell %s holds %s, computed %s",
					vm.RunContext.Pc, ops.dstAddr, existing, ops.res)
			}
			ops.dst = &existing
		} else {
			if err := vm.Memory.Write(ops.dstAddr, *ops.res); err != nil {
				return nil, err
			}
			ops.dst = ops.res
		}
	case OpcodeCall:
		fpValue := NewRelocatableValue(vm.RunContext.Fp)
		if err := vm.Memory.Write(ops.dstAddr, fpValue); err != nil {
			return nil, err
		}
		ops.dst = &fpValue
	case OpcodeRet:
		dst, err := vm.Memory.Read(ops.dstAddr)
		if err != nil {
			return nil, err
		}
		ops.dst = &dst
	}

	if inst.PcUpdate == PcUpdateJnz {
		if ops.dst == nil {
			dst, err := vm.Memory.Read(ops.dstAddr)
			if err != nil {
				return nil, err
			}
			ops.dst = &dst
		}
		if !ops.dst.IsZero() {
			op1, err := vm.Memory.Read(ops.op1Addr)
			if err != nil {
				return nil, err
			}
			ops.op1 = &op1
		}
	}

	return ops, nil
}

// nextContext computes the register triple for the next step without
// mutating the current one.
func (vm *VirtualMachine) nextContext(inst *Instruction, ops *operands) (RunContext, error) {
	var next RunContext
	var err error

	switch inst.PcUpdate {
	case PcUpdateRegular:
		if next.Pc, err = vm.RunContext.Pc.AddOffset(int64(inst.Size())); err != nil {
			return RunContext{}, err
		}
	case PcUpdateJump:
		target, ok := ops.res.Relocatable()
		if !ok {
			return RunContext{}, Errorf(ErrJumpToNonRelocatable,
				"jmp abs at pc %s targets non-address value %s", vm.RunContext.Pc, ops.res)
		}
		next.Pc = target
	case PcUpdateJumpRel:
		delta, ok := ops.res.Felt()
		if !ok {
			return RunContext{}, Errorf(ErrAddRelocatableRelocatable,
				"jmp rel at pc %s has address offset %s", vm.RunContext.Pc, ops.res)
		}
		if next.Pc, err = vm.RunContext.Pc.AddFelt(&delta); err != nil {
			return RunContext{}, err
		}
	case PcUpdateJnz:
		if ops.dst.IsZero() {
			if next.Pc, err = vm.RunContext.Pc.AddOffset(int64(inst.Size())); err != nil {
				return RunContext{}, err
			}
		} else {
			delta, ok := ops.op1.Felt()
			if !ok {
				return RunContext{}, Errorf(ErrAddRelocatableRelocatable,
					"jnz at pc %s has address offset %s", vm.RunContext.Pc, ops.op1)
			}
			if next.Pc, err = vm.RunContext.Pc.AddFelt(&delta); err != nil {
				return RunContext{}, err
			}
		}
	}

	switch inst.ApUpdate {
	case ApUpdateRegular:
		next.Ap = vm.RunContext.Ap
	case ApUpdateAdd:
		delta, ok := ops.res.Felt()
		if !ok {
			return RunContext{}, Errorf(ErrAddRelocatableRelocatable,
				"ap += res at pc %s has address result %s", vm.RunContext.Pc, ops.res)
		}
		if next.Ap, err = vm.RunContext.Ap.AddFelt(&delta); err != nil {
			return RunContext{}, err
		}
	case ApUpdateAdd1:
		if next.Ap, err = vm.RunContext.Ap.AddOffset(1); err != nil {
			return RunContext{}, err
		}
	case ApUpdateAdd2:
		if next.Ap, err = vm.RunContext.Ap.AddOffset(2); err != nil {
			return RunContext{}, err
		}
	}

	switch inst.FpUpdate {
	case FpUpdateRegular:
		next.Fp = vm.RunContext.Fp
	case FpUpdateApPlus2:
		if next.Fp, err = vm.RunContext.Ap.AddOffset(2); err != nil {
			return RunContext{}, err
		}
	case FpUpdateDst:
		target, ok := ops.dst.Relocatable()
		if !ok {
			return RunContext{}, Errorf(ErrInvalidAddress,
				"ret at pc %s restores non-address frame pointer %s", vm.RunContext.Pc, ops.dst)
		}
		next.Fp = target
	}

	return next, nil
}

// FeltFromString parses a field element from its decimal or 0x-prefixed
// hexadecimal rendering, reducing mod p.
func FeltFromString(s string) (fp.Element, error) {
	var el fp.Element
	if _, err := el.SetString(s); err != nil {
		return fp.Element{}, Errorf(ErrUnknown, "malformed field element %q", s)
	}
	return el, nil
}
